package generator

import "text/template"

// headerTemplate - предупреждение в начале каждого сгенерированного файла.
const headerTemplate = `# This code was generated by a tool.
# sorbet-validators@{{.Version}}
{{- if .Source}}
# Source: {{.Source}}
{{- end}}
#
# Changes to this file may cause incorrect behavior and will be lost if
# the code is regenerated.`

// HeaderData - данные для headerTemplate.
type HeaderData struct {
	Version string
	Source  string
}

var headerTmpl = template.Must(template.New("header").Parse(headerTemplate))
