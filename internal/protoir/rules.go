package protoir

import (
	validate "github.com/envoyproxy/protoc-gen-validate/validate"
	"google.golang.org/protobuf/compiler/protogen"
	"google.golang.org/protobuf/proto"

	"sorbet-validators/internal/ir"
)

// fieldRules возвращает расширение validate.rules поля или nil.
func fieldRules(field *protogen.Field) *validate.FieldRules {
	opts := field.Desc.Options()
	if opts == nil || !proto.HasExtension(opts, validate.E_Rules) {
		return nil
	}
	rules, ok := proto.GetExtension(opts, validate.E_Rules).(*validate.FieldRules)
	if !ok {
		return nil
	}
	return rules
}

// extractRules переводит правила PGV в правила IR.
//
// Порядок фиксирован: правила repeated (min_items, max_items, unique), затем
// правила элемента (repeated.items) или скалярные правила поля. Внутри
// строковых правил: min_len, max_len, pattern; внутри числовых: gt, gte, lt, lte.
//
// Правила без аналога в IR (email, const, in, ...) пропускаются.
func extractRules(rules *validate.FieldRules) []ir.Rule {
	var out []ir.Rule

	if r := rules.GetRepeated(); r != nil {
		if r.MinItems != nil {
			out = append(out, ir.ArrayMinItems(int(r.GetMinItems())))
		}
		if r.MaxItems != nil {
			out = append(out, ir.ArrayMaxItems(int(r.GetMaxItems())))
		}
		if r.GetUnique() {
			out = append(out, ir.ArrayUniqueItems())
		}
		if items := r.GetItems(); items != nil {
			out = append(out, scalarRules(items)...)
		}
		return out
	}

	return append(out, scalarRules(rules)...)
}

func scalarRules(rules *validate.FieldRules) []ir.Rule {
	if s := rules.GetString_(); s != nil {
		var out []ir.Rule
		if s.MinLen != nil {
			out = append(out, ir.StringMinLength(int(s.GetMinLen())))
		}
		if s.MaxLen != nil {
			out = append(out, ir.StringMaxLength(int(s.GetMaxLen())))
		}
		if s.Pattern != nil {
			out = append(out, ir.StringPattern(s.GetPattern()))
		}
		return out
	}

	if r := rules.GetInt32(); r != nil {
		return bounds(r.Gt, r.Gte, r.Lt, r.Lte)
	}
	if r := rules.GetInt64(); r != nil {
		return bounds(r.Gt, r.Gte, r.Lt, r.Lte)
	}
	if r := rules.GetUint32(); r != nil {
		return bounds(r.Gt, r.Gte, r.Lt, r.Lte)
	}
	if r := rules.GetUint64(); r != nil {
		return bounds(r.Gt, r.Gte, r.Lt, r.Lte)
	}
	if r := rules.GetSint32(); r != nil {
		return bounds(r.Gt, r.Gte, r.Lt, r.Lte)
	}
	if r := rules.GetSint64(); r != nil {
		return bounds(r.Gt, r.Gte, r.Lt, r.Lte)
	}
	if r := rules.GetFixed32(); r != nil {
		return bounds(r.Gt, r.Gte, r.Lt, r.Lte)
	}
	if r := rules.GetFixed64(); r != nil {
		return bounds(r.Gt, r.Gte, r.Lt, r.Lte)
	}
	if r := rules.GetSfixed32(); r != nil {
		return bounds(r.Gt, r.Gte, r.Lt, r.Lte)
	}
	if r := rules.GetSfixed64(); r != nil {
		return bounds(r.Gt, r.Gte, r.Lt, r.Lte)
	}
	if r := rules.GetFloat(); r != nil {
		return bounds(r.Gt, r.Gte, r.Lt, r.Lte)
	}
	if r := rules.GetDouble(); r != nil {
		return bounds(r.Gt, r.Gte, r.Lt, r.Lte)
	}
	return nil
}

type number interface {
	~int32 | ~int64 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func bounds[T number](gt, gte, lt, lte *T) []ir.Rule {
	var out []ir.Rule
	if gt != nil {
		out = append(out, ir.NumberGT(float64(*gt)))
	}
	if gte != nil {
		out = append(out, ir.NumberGTE(float64(*gte)))
	}
	if lt != nil {
		out = append(out, ir.NumberLT(float64(*lt)))
	}
	if lte != nil {
		out = append(out, ir.NumberLTE(float64(*lte)))
	}
	return out
}
