package ir

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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
      - name: createGizmo
        parameters:
          - name: size
            typeName: createGizmoSize
types:
  - name: gizmo
    properties:
      - name: id
        typeName: string
        rules:
          - id: required
      - name: tags
        typeName: string
        isArray: true
        rules:
          - id: array-max-items
            max: 2
          - id: array-unique-items
      - name: weight
        typeName: number
        rules:
          - id: number-gte
            value: 0.5
enums:
  - name: createGizmoSize
    values: [small, medium, big]
`

// TestParse_Gizmo проверяет декодирование и нормализацию полного IR.
func TestParse_Gizmo(t *testing.T) {
	svc, err := Parse([]byte(gizmoIR), LoadOptions{StrictRules: true})
	require.NoError(t, err)

	assert.Equal(t, "Basketry Example", svc.Title)
	assert.Equal(t, 1, svc.MajorVersion)

	methods := svc.Methods()
	require.Len(t, methods, 2)
	assert.Equal(t, []Rule{{Kind: RuleStringMaxLength, Length: 25, ID: "string-max-length"}}, methods[0].Parameters[0].Rules)
	assert.Equal(t, KindPrimitive, methods[0].Parameters[0].Kind)
	assert.Equal(t, KindEnum, methods[1].Parameters[0].Kind)

	gizmo, ok := svc.FindType("gizmo")
	require.True(t, ok)
	require.Len(t, gizmo.Properties, 3)

	id := gizmo.Properties[0]
	assert.True(t, id.IsRequired, "required rule must be folded into IsRequired")
	assert.Empty(t, id.Rules)

	tags := gizmo.Properties[1]
	assert.True(t, tags.IsArray)
	require.Len(t, tags.Rules, 2)
	assert.Equal(t, RuleArrayMaxItems, tags.Rules[0].Kind)
	assert.Equal(t, 2, tags.Rules[0].Max)
	assert.Equal(t, RuleArrayUniqueItems, tags.Rules[1].Kind)

	assert.Equal(t, 0.5, gizmo.Properties[2].Rules[0].Value)

	e, ok := svc.FindEnum("createGizmoSize")
	require.True(t, ok)
	assert.Equal(t, []string{"small", "medium", "big"}, e.Values)
}

// TestParse_JSON проверяет, что JSON принимается так же, как YAML.
func TestParse_JSON(t *testing.T) {
	doc := `{"title": "x", "types": [{"name": "a", "properties": [` +
		`{"name": "n", "typeName": "integer", "isRequired": true, ` +
		`"rules": [{"id": "number-lt", "value": 10}]}]}]}`

	svc, err := Parse([]byte(doc), LoadOptions{StrictRules: true})
	require.NoError(t, err)
	require.Len(t, svc.Types, 1)

	n := svc.Types[0].Properties[0]
	assert.True(t, n.IsRequired)
	assert.Equal(t, KindPrimitive, n.Kind)
	assert.Equal(t, NumberLT(10).Kind, n.Rules[0].Kind)
	assert.Equal(t, 10.0, n.Rules[0].Value)
}

func TestParse_UnknownRule(t *testing.T) {
	doc := `
title: x
types:
  - name: a
    properties:
      - name: email
        typeName: string
        rules:
          - id: string-format
          - id: string-min-length
            length: 3
`

	t.Run("strict", func(t *testing.T) {
		_, err := Parse([]byte(doc), LoadOptions{StrictRules: true})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownRule))
		assert.Contains(t, err.Error(), "string-format")
	})

	t.Run("lenient", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		logger.SetOutput(io.Discard)

		svc, err := Parse([]byte(doc), LoadOptions{StrictRules: false, Logger: logger})
		require.NoError(t, err)

		rules := svc.Types[0].Properties[0].Rules
		require.Len(t, rules, 1)
		assert.Equal(t, RuleStringMinLength, rules[0].Kind)

		require.Len(t, hook.Entries, 1)
		assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
		assert.Equal(t, "string-format", hook.LastEntry().Data["rule"])
	})
}

func TestParse_MissingRuleArgument(t *testing.T) {
	doc := `
title: x
types:
  - name: a
    properties:
      - name: n
        typeName: string
        rules:
          - id: string-max-length
`
	_, err := Parse([]byte(doc), LoadOptions{StrictRules: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `requires "length"`)
}

// TestValidate_Problems проверяет, что все проблемы собираются в одну ошибку.
func TestValidate_Problems(t *testing.T) {
	svc := &Service{
		Title: "x",
		Types: []Type{
			{
				Name: "widget",
				Properties: []Field{
					{Name: "part", TypeName: "part", Kind: KindType},
					{Name: "part", TypeName: "string", Kind: KindPrimitive},
					{Name: "", TypeName: "string", Kind: KindPrimitive},
					{Name: "code", TypeName: "string", Kind: KindPrimitive, Rules: []Rule{StringPattern("")}},
					{Name: "step", TypeName: "number", Kind: KindPrimitive, Rules: []Rule{NumberMultipleOf(0)}},
				},
			},
			{Name: "widget"},
		},
		Enums: []Enum{{Name: "color", Values: []string{"red", ""}}},
	}

	err := Validate(svc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidIR))

	var invalid *InvalidError
	require.True(t, errors.As(err, &invalid))

	paths := make([]string, 0, len(invalid.Problems))
	for _, p := range invalid.Problems {
		paths = append(paths, p.Path)
	}
	assert.Contains(t, paths, "types[0].properties[2].name")
	assert.Contains(t, paths, "enums[0].values[1]")
	assert.Contains(t, paths, "types[1].name")
	assert.Contains(t, paths, "types[0].properties[0].typeName")
	assert.Contains(t, paths, "types[0].properties[1].name")
	assert.Contains(t, paths, "types[0].properties[3].rules[0].pattern")
	assert.Contains(t, paths, "types[0].properties[4].rules[0].value")
}

func TestParse_UncompilablePattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		wantErr bool
	}{
		{"unclosed class", "[a-", true},
		{"unbalanced group", "(ab", true},
		{"ruby end of string", `^[A-Z]+\Z`, false},
		{"anchored", "^[a-z]{2,}$", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := "title: Carts\nmajorVersion: 1\ntypes:\n  - name: cart\n    properties:\n" +
				"      - name: code\n        typeName: string\n        rules:\n" +
				"          - id: string-pattern\n            pattern: '" + tt.pattern + "'\n"

			_, err := Parse([]byte(data), LoadOptions{StrictRules: true})
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			var invalid *InvalidError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			require.Len(t, invalid.Problems, 1)
			assert.Equal(t, "types[0].properties[0].rules[0].pattern", invalid.Problems[0].Path)
			assert.Contains(t, invalid.Problems[0].Description, "does not compile")
		})
	}
}

func TestValidate_OK(t *testing.T) {
	svc, err := Parse([]byte(gizmoIR), LoadOptions{StrictRules: true})
	require.NoError(t, err)
	assert.NoError(t, Validate(svc))
}

func TestRuleKind_Code(t *testing.T) {
	tests := []struct {
		kind RuleKind
		id   string
		code string
	}{
		{RuleStringMaxLength, "string-max-length", "STRING_MAX_LENGTH"},
		{RuleNumberGTE, "number-gte", "NUMBER_GTE"},
		{RuleArrayUniqueItems, "array-unique-items", "ARRAY_UNIQUE_ITEMS"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.id, tt.kind.String())
			assert.Equal(t, tt.code, tt.kind.Code())

			parsed, ok := ParseRuleKind(tt.id)
			assert.True(t, ok)
			assert.Equal(t, tt.kind, parsed)
		})
	}

	for _, kind := range RuleKinds() {
		assert.NotEqual(t, "unknown", kind.String(), "kind %d has no id", kind)
	}
}
