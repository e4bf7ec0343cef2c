package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sorbet-validators/internal/expr"
	"sorbet-validators/internal/ir"
	"sorbet-validators/internal/layout"
	"sorbet-validators/internal/names"
)

const errType = "BasketryExample::V1::Types::ValidationError"

func newCompiler(runtime bool) *Compiler {
	svc := &ir.Service{
		Title:        "Basketry Example",
		MajorVersion: 1,
		Types:        []ir.Type{{Name: "gizmo"}},
		Enums:        []ir.Enum{{Name: "size", Values: []string{"small"}}},
	}
	return New(names.New(svc, names.Options{}), Options{RuntimeChecks: runtime})
}

func render(clauses []Clause) string {
	frags := make([]layout.Fragment, len(clauses))
	for i, c := range clauses {
		frags[i] = c.Fragment(errType)
	}
	return layout.Render(frags...)
}

func conditions(c Clause) string {
	return expr.All(c.Conditions...).Ruby()
}

func kinds(clauses []Clause) []string {
	out := make([]string, len(clauses))
	for i, c := range clauses {
		out[i] = c.Kind.String()
		if c.Kind == ClauseRule {
			out[i] = c.Rule.String()
		}
	}
	return out
}

func TestFieldClauses_RequiredStringMinLength(t *testing.T) {
	c := newCompiler(true)
	f := ir.Field{Name: "name", TypeName: "string", Kind: ir.KindPrimitive, IsRequired: true, Rules: []ir.Rule{ir.StringMinLength(3)}}

	got := render(c.FieldClauses("", f))

	want := `
# required
if T.unsafe(name).nil?
  validator_internal_errors << BasketryExample::V1::Types::ValidationError.new(
    code: 'REQUIRED',
    title: '"name" is required',
    path: 'name'
  )
end

# "non-local" type check
if !T.unsafe(name).nil? && !T.unsafe(name).is_a?(String)
  validator_internal_errors << BasketryExample::V1::Types::ValidationError.new(
    code: 'TYPE',
    title: '"name" must be a String',
    path: 'name'
  )
end

# string-min-length
if name.is_a?(String) && name.length < 3
  validator_internal_errors << BasketryExample::V1::Types::ValidationError.new(
    code: 'STRING_MIN_LENGTH',
    title: '"name" min length is 3',
    path: 'name'
  )
end`
	assert.Equal(t, want, got)
}

func TestFieldClauses_OptionalPropertyUsesMust(t *testing.T) {
	c := newCompiler(true)
	f := ir.Field{Name: "weight", TypeName: "number", Kind: ir.KindPrimitive, Rules: []ir.Rule{ir.NumberGTE(0.5)}}

	clauses := c.FieldClauses("gizmo", f)
	require.Len(t, clauses, 2)

	assert.Equal(t, `!T.unsafe(gizmo.weight).nil? && !T.unsafe(gizmo.weight).is_a?(Numeric)`, conditions(clauses[0]))
	assert.Equal(t, `"gizmo.weight" must be a Numeric if supplied`, clauses[0].Error.Title)

	assert.Equal(t, "gizmo.weight.is_a?(Numeric)", clauses[1].Conditions[0].Ruby())
	assert.Equal(t, "T.must(gizmo.weight) < 0.5", clauses[1].Conditions[1].Ruby())
	assert.Equal(t, "NUMBER_GTE", clauses[1].Error.Code)
	assert.Equal(t, `"gizmo.weight" must be greater than or equal to 0.5`, clauses[1].Error.Title)
	assert.Equal(t, "gizmo.weight", clauses[1].Error.Path)
}

func TestFieldClauses_ArrayPerElement(t *testing.T) {
	c := newCompiler(true)
	f := ir.Field{
		Name: "tags", TypeName: "string", Kind: ir.KindPrimitive, IsArray: true,
		Rules: []ir.Rule{ir.StringMaxLength(5), ir.ArrayMaxItems(2), ir.ArrayUniqueItems()},
	}

	clauses := c.FieldClauses("gizmo", f)
	assert.Equal(t, []string{"primitive-type", "string-max-length", "array-max-items", "array-unique-items"}, kinds(clauses))

	cond := func(i int) string { return conditions(clauses[i]) }

	assert.Equal(t, "gizmo.tags.is_a?(Array) && gizmo.tags.any? { |x| !x.is_a?(String) }", cond(0))
	assert.Equal(t, `Each item in "gizmo.tags" must be a String if supplied`, clauses[0].Error.Title)

	assert.Equal(t, "gizmo.tags.is_a?(Array) && gizmo.tags.any? { |x| x.is_a?(String) && x.length > 5 }", cond(1))
	assert.Equal(t, `Each item in "gizmo.tags" max length is 5`, clauses[1].Error.Title)

	assert.Equal(t, "gizmo.tags.is_a?(Array) && gizmo.tags.length > 2", cond(2))
	assert.Equal(t, `"gizmo.tags" max length is 2`, clauses[2].Error.Title)

	assert.Equal(t, "gizmo.tags.is_a?(Array) && T.must(gizmo.tags).length != T.must(gizmo.tags).uniq.length", cond(3))
	assert.Equal(t, `"gizmo.tags" must contain unique values`, clauses[3].Error.Title)
}

func TestFieldClauses_BooleanUnion(t *testing.T) {
	c := newCompiler(true)

	scalar := c.FieldClauses("", ir.Field{Name: "flag", TypeName: "boolean", Kind: ir.KindPrimitive, IsRequired: true})
	require.Len(t, scalar, 2)
	assert.Equal(t,
		"!T.unsafe(flag).nil? && !T.unsafe(flag).is_a?(TrueClass) && !T.unsafe(flag).is_a?(FalseClass)",
		conditions(scalar[1]),
	)
	assert.Equal(t, `"flag" must be a T::Boolean`, scalar[1].Error.Title)

	array := c.FieldClauses("", ir.Field{Name: "flags", TypeName: "boolean", Kind: ir.KindPrimitive, IsArray: true})
	require.Len(t, array, 1)
	assert.Equal(t, "flags.any? { |x| !x.is_a?(TrueClass) && !x.is_a?(FalseClass) }", array[0].Conditions[1].Ruby())
}

func TestFieldClauses_Pattern(t *testing.T) {
	c := newCompiler(true)
	f := ir.Field{Name: "code", TypeName: "string", Kind: ir.KindPrimitive, IsRequired: true, Rules: []ir.Rule{ir.StringPattern(`^[a-z]+/\d'$`)}}

	clauses := c.FieldClauses("", f)
	require.Len(t, clauses, 3)

	got := layout.Render(clauses[2].Fragment(errType))
	assert.Contains(t, got, `if code.is_a?(String) && !/^[a-z]+\/\d'$/.match?(code)`)
	assert.Contains(t, got, `title: '"code" must match the pattern /^[a-z]+\\/\\d\'$/',`)
}

func TestFieldClauses_UntypedPrimitiveSkipsTypeCheck(t *testing.T) {
	c := newCompiler(true)
	clauses := c.FieldClauses("", ir.Field{Name: "when", TypeName: "date-time", Kind: ir.KindPrimitive, IsRequired: true})
	assert.Equal(t, []string{"required"}, kinds(clauses))
}

func TestFieldClauses_UnknownKindHasNoDelegation(t *testing.T) {
	c := newCompiler(true)
	clauses := c.FieldClauses("", ir.Field{Name: "blob", TypeName: "blob", Kind: ir.KindUnknown})
	assert.Empty(t, clauses)
}

// TestFieldClauses_LocalFieldIgnoresRules проверяет, что у полей локального
// типа и перечисления остается только делегирование.
func TestFieldClauses_LocalFieldIgnoresRules(t *testing.T) {
	for _, runtime := range []bool{true, false} {
		c := newCompiler(runtime)

		items := ir.Field{
			Name: "items", TypeName: "gizmo", Kind: ir.KindType, IsArray: true,
			Rules: []ir.Rule{ir.StringMaxLength(1), ir.ArrayMaxItems(3)},
		}
		assert.Equal(t, []string{"custom-type"}, kinds(c.FieldClauses("cart", items)))

		size := ir.Field{
			Name: "size", TypeName: "size", Kind: ir.KindEnum, IsRequired: true,
			Rules: []ir.Rule{ir.StringMinLength(2)},
		}
		want := []string{"custom-type"}
		if runtime {
			want = []string{"required", "custom-type"}
		}
		assert.Equal(t, want, kinds(c.FieldClauses("", size)))
	}
}

func TestCustomTypeClause_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		runtime bool
		owner   string
		field   ir.Field
		want    string
	}{
		{
			name:    "required scalar",
			runtime: true,
			owner:   "widget",
			field:   ir.Field{Name: "gizmo", TypeName: "gizmo", Kind: ir.KindType, IsRequired: true},
			want:    "if !T.unsafe(widget.gizmo).nil?\n  validator_internal_errors.concat(validate_gizmo(widget.gizmo))\nend",
		},
		{
			name:    "optional scalar property",
			runtime: true,
			owner:   "widget",
			field:   ir.Field{Name: "gizmo", TypeName: "gizmo", Kind: ir.KindType},
			want:    "if !widget.gizmo.nil?\n  validator_internal_errors.concat(validate_gizmo(T.must(widget.gizmo)))\nend",
		},
		{
			name:    "optional scalar parameter",
			runtime: true,
			field:   ir.Field{Name: "size", TypeName: "size", Kind: ir.KindEnum},
			want:    "if !size.nil?\n  validator_internal_errors.concat(validate_size(size))\nend",
		},
		{
			name:    "required array",
			runtime: true,
			field:   ir.Field{Name: "gizmos", TypeName: "gizmo", Kind: ir.KindType, IsArray: true, IsRequired: true},
			want:    "if !T.unsafe(gizmos).nil?\n  gizmos.each { |x| validator_internal_errors.concat(validate_gizmo(x)) }\nend",
		},
		{
			name:    "optional array",
			runtime: true,
			owner:   "widget",
			field:   ir.Field{Name: "gizmos", TypeName: "gizmo", Kind: ir.KindType, IsArray: true},
			want:    "widget.gizmos&.each { |x| validator_internal_errors.concat(validate_gizmo(x)) }",
		},
		{
			name:  "required scalar without runtime",
			field: ir.Field{Name: "gizmo", TypeName: "gizmo", Kind: ir.KindType, IsRequired: true},
			want:  "validator_internal_errors.concat(validate_gizmo(gizmo))",
		},
		{
			name:  "required array without runtime",
			field: ir.Field{Name: "gizmos", TypeName: "gizmo", Kind: ir.KindType, IsArray: true, IsRequired: true},
			want:  "gizmos.each { |x| validator_internal_errors.concat(validate_gizmo(x)) }",
		},
		{
			name:  "optional scalar without runtime keeps nil guard",
			field: ir.Field{Name: "gizmo", TypeName: "gizmo", Kind: ir.KindType},
			want:  "if !gizmo.nil?\n  validator_internal_errors.concat(validate_gizmo(gizmo))\nend",
		},
		{
			name:  "optional array without runtime keeps safe navigation",
			owner: "widget",
			field: ir.Field{Name: "gizmos", TypeName: "gizmo", Kind: ir.KindType, IsArray: true},
			want:  "widget.gizmos&.each { |x| validator_internal_errors.concat(validate_gizmo(x)) }",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCompiler(tt.runtime)
			clauses := c.FieldClauses(tt.owner, tt.field)

			var custom *Clause
			for i := range clauses {
				if clauses[i].Kind == ClauseCustomType {
					custom = &clauses[i]
				}
			}
			require.NotNil(t, custom)
			assert.Equal(t, tt.want, layout.Render(custom.Delegate.Fragment()))
		})
	}
}

func TestRuntimeDisabled(t *testing.T) {
	c := newCompiler(false)

	t.Run("no required or type clauses", func(t *testing.T) {
		f := ir.Field{Name: "name", TypeName: "string", Kind: ir.KindPrimitive, IsRequired: true, Rules: []ir.Rule{ir.StringMaxLength(3)}}
		assert.Equal(t, []string{"string-max-length"}, kinds(c.FieldClauses("", f)))
	})

	t.Run("numeric rule on optional parameter skips must", func(t *testing.T) {
		f := ir.Field{Name: "n", TypeName: "integer", Kind: ir.KindPrimitive, Rules: []ir.Rule{ir.NumberLT(10)}}
		clauses := c.FieldClauses("", f)
		require.Len(t, clauses, 1)
		assert.Equal(t, "n >= 10", clauses[0].Conditions[1].Ruby())
	})

	t.Run("numeric rule on optional property keeps must", func(t *testing.T) {
		f := ir.Field{Name: "n", TypeName: "integer", Kind: ir.KindPrimitive, Rules: []ir.Rule{ir.NumberMultipleOf(2)}}
		clauses := c.FieldClauses("gizmo", f)
		require.Len(t, clauses, 1)
		assert.Equal(t, "T.must(gizmo.n) % 2 != 0", clauses[0].Conditions[1].Ruby())
	})
}

func TestRuleClause_UnknownRule(t *testing.T) {
	c := newCompiler(true)
	f := ir.Field{Name: "name", TypeName: "string", Kind: ir.KindPrimitive}

	_, ok := c.RuleClause("", f, ir.Rule{Kind: ir.RuleUnknown, ID: "string-format"})
	assert.False(t, ok)
}

// TestRuleClause_EveryKind проверяет, что для каждого известного вида правила
// строится клауза с соответствующим кодом ошибки.
func TestRuleClause_EveryKind(t *testing.T) {
	c := newCompiler(true)
	f := ir.Field{Name: "v", TypeName: "string", Kind: ir.KindPrimitive}

	for _, kind := range ir.RuleKinds() {
		t.Run(kind.String(), func(t *testing.T) {
			r := ir.Rule{Kind: kind, Length: 1, Pattern: "a", Value: 1, Max: 1, Min: 1}
			clause, ok := c.RuleClause("", f, r)
			require.True(t, ok)
			assert.Equal(t, kind.Code(), clause.Error.Code)
			assert.Equal(t, kind, clause.Rule)
			assert.NotEmpty(t, clause.Conditions)
		})
	}
}

func TestErrorRecord_Fragment(t *testing.T) {
	rec := NewErrorRecord("type", `"size" must be a member of `+"`X`", "size")

	got := layout.Render(rec.Fragment("Err", ErrorOptions{SkipPush: true, TrailingComma: true}))
	assert.Equal(t, "Err.new(\n  code: 'TYPE',\n  title: '\"size\" must be a member of `X`',\n  path: 'size'\n),", got)

	got = layout.Render(rec.Fragment("Err", ErrorOptions{}))
	assert.Equal(t, "validator_internal_errors << Err.new(", got[:len("validator_internal_errors << Err.new(")])
	assert.Equal(t, ")", got[len(got)-1:])
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `'it\'s'`, Quote("it's"))
	assert.Equal(t, `'a\\d'`, Quote(`a\d`))
}
