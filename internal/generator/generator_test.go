package generator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sorbet-validators/internal/config"
	"sorbet-validators/internal/guard"
	"sorbet-validators/internal/ir"
	"sorbet-validators/internal/names"
)

const gizmoIR = `
title: Basketry Example
majorVersion: 1
interfaces:
  - name: gizmo
    methods:
      - name: getGizmos
        parameters:
          - name: search
            typeName: string
            rules:
              - id: string-max-length
                length: 25
types:
  - name: gizmo
    properties:
      - name: id
        typeName: string
        isRequired: true
      - name: tags
        typeName: string
        isArray: true
        rules:
          - id: array-max-items
            max: 2
enums:
  - name: size
    values: [small, big]
`

func build(t *testing.T, cfg Config) *Result {
	t.Helper()
	svc, err := ir.Parse([]byte(gizmoIR), ir.LoadOptions{StrictRules: true})
	require.NoError(t, err)

	res, err := Build(svc, cfg)
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	return res
}

func TestBuild_ValidationError(t *testing.T) {
	res := build(t, Config{Guard: guard.Options{RuntimeChecks: true}})

	f := res.Files[0]
	assert.Equal(t, "basketry_example/v1/types/validation_error.rb", f.Name())

	want := `# This code was generated by a tool.
# sorbet-validators@dev
#
# Changes to this file may cause incorrect behavior and will be lost if
# the code is regenerated.

# typed: strict

module BasketryExample::V1::Types
  class ValidationError < T::Struct
    const :code, T.nilable(String)
    const :title, T.nilable(String)
    const :path, T.nilable(String)
  end
end
`
	assert.Equal(t, want, f.Contents)
}

func TestBuild_Validators(t *testing.T) {
	res := build(t, Config{Guard: guard.Options{RuntimeChecks: true}})

	f := res.Files[1]
	assert.Equal(t, "basketry_example/v1/interfaces/validators.rb", f.Name())

	assert.True(t, strings.HasPrefix(f.Contents, "# This code was generated by a tool.\n"))
	assert.Contains(t, f.Contents, "\n# typed: strict\n\nmodule BasketryExample::V1::Interfaces\n  module Validators\n    extend T::Sig\n\n    sig do\n")
	assert.Contains(t, f.Contents, "    def validate_get_gizmos_parameters(search: nil)\n")
	assert.Contains(t, f.Contents, "    def validate_gizmo(gizmo)\n")
	assert.Contains(t, f.Contents, "    def validate_size(size)\n")
	assert.Contains(t, f.Contents, "      if gizmo.tags.is_a?(Array) && gizmo.tags.length > 2\n")
	assert.True(t, strings.HasSuffix(f.Contents, "    end\n  end\nend\n"))
	assert.NotContains(t, f.Contents, "rubocop")
	assert.NotContains(t, f.Contents, " \n", "no trailing whitespace")
}

func TestBuild_Options(t *testing.T) {
	res := build(t, Config{
		Names: names.Options{Namespace: "Acme", Subfolder: "lib/gen"},
		Guard: guard.Options{RuntimeChecks: true},
		Files: Options{
			RubocopDisable: []string{"Metrics/MethodLength", "Style/Next"},
			FileIncludes:   []string{"sorbet-runtime"},
			Source:         "api.yaml",
		},
	})

	errFile, validatorsFile := res.Files[0], res.Files[1]
	assert.Equal(t, []string{"lib", "gen", "acme", "types", "validation_error.rb"}, errFile.Path)
	assert.Contains(t, errFile.Contents, "# Source: api.yaml\n#\n")
	assert.Contains(t, errFile.Contents, "# typed: strict\n\nrequire 'sorbet-runtime'\n\nmodule Acme::Types\n")

	assert.Contains(t, validatorsFile.Contents,
		"# typed: strict\n\n# rubocop:disable Metrics/MethodLength\n# rubocop:disable Style/Next\n\nrequire 'sorbet-runtime'\n\nmodule Acme::Interfaces\n")
	assert.True(t, strings.HasSuffix(validatorsFile.Contents,
		"end\n\n# rubocop:enable Metrics/MethodLength\n# rubocop:enable Style/Next\n"))
}

// TestBuild_Idempotent проверяет, что повторная генерация дает тот же результат.
func TestBuild_Idempotent(t *testing.T) {
	cfg := Config{Guard: guard.Options{RuntimeChecks: true}}
	first := build(t, cfg)
	second := build(t, cfg)

	assert.Equal(t, first.Files, second.Files)
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	res := build(t, Config{Guard: guard.Options{RuntimeChecks: false}})

	require.NoError(t, WriteFiles(dir, res.Files))

	data, err := os.ReadFile(filepath.Join(dir, "basketry_example", "v1", "interfaces", "validators.rb"))
	require.NoError(t, err)
	assert.Equal(t, res.Files[1].Contents, string(data))
}

func TestFromConfig(t *testing.T) {
	off := false
	cfg := FromConfig(&config.Config{
		Basketry: &config.ConfigBasketry{Subfolder: "lib"},
		Sorbet: &config.ConfigSorbet{
			Runtime:        &off,
			Namespace:      "Acme",
			TypesModule:    "Models",
			RubocopDisable: []string{"Style/Next"},
			FileIncludes:   []string{"sorbet-runtime"},
		},
	})

	assert.Equal(t, names.Options{Namespace: "Acme", TypesModule: "Models", Subfolder: "lib"}, cfg.Names)
	assert.False(t, cfg.Guard.RuntimeChecks)
	assert.Equal(t, []string{"Style/Next"}, cfg.Files.RubocopDisable)
	assert.Equal(t, []string{"sorbet-runtime"}, cfg.Files.FileIncludes)

	assert.True(t, FromConfig(&config.Config{}).Guard.RuntimeChecks)
}
