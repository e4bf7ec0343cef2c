package guard

import (
	"strings"

	"sorbet-validators/internal/layout"
	"sorbet-validators/internal/names"
)

// ErrorRecord - ошибка валидации, которую создает сгенерированный код.
type ErrorRecord struct {
	Code  string `json:"code" yaml:"code"`
	Title string `json:"title" yaml:"title"`
	Path  string `json:"path" yaml:"path"`
}

// NewErrorRecord нормализует код ("string-max-length" -> "STRING_MAX_LENGTH").
func NewErrorRecord(code, title, path string) ErrorRecord {
	return ErrorRecord{Code: names.Constant(code), Title: title, Path: path}
}

// ErrorOptions - режимы рендеринга записи об ошибке.
type ErrorOptions struct {
	// SkipPush рендерит только конструктор, без "validator_internal_errors <<"
	SkipPush bool
	// TrailingComma добавляет запятую после ")" для литерала списка
	TrailingComma bool
}

// Fragment рендерит создание ошибки:
//
//	validator_internal_errors << Types::ValidationError.new(
//	  code: 'STRING_MAX_LENGTH',
//	  title: '"search" max length is 25',
//	  path: 'search'
//	)
func (e ErrorRecord) Fragment(errorType string, opts ErrorOptions) layout.Fragment {
	prefix := ErrorsVar + " << "
	if opts.SkipPush {
		prefix = ""
	}
	suffix := ""
	if opts.TrailingComma {
		suffix = ","
	}

	return layout.Group{
		layout.Line(prefix + errorType + ".new("),
		layout.Indent(layout.Lines(
			"code: "+Quote(e.Code)+",",
			"title: "+Quote(e.Title)+",",
			"path: "+Quote(e.Path),
		)...),
		layout.Line(")" + suffix),
	}
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// Quote - строковый литерал Ruby в одинарных кавычках.
func Quote(s string) string {
	return "'" + quoteReplacer.Replace(s) + "'"
}
