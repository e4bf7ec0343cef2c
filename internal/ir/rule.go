package ir

import (
	"fmt"

	"github.com/stoewer/go-strcase"
	"gopkg.in/yaml.v3"
)

// RuleKind - дискриминант правила валидации.
type RuleKind int

const (
	// RuleUnknown - правило с нераспознанным id, живет только до нормализации
	RuleUnknown RuleKind = iota
	RuleStringMaxLength
	RuleStringMinLength
	RuleStringPattern
	RuleNumberMultipleOf
	RuleNumberGT
	RuleNumberGTE
	RuleNumberLT
	RuleNumberLTE
	RuleArrayMaxItems
	RuleArrayMinItems
	RuleArrayUniqueItems
)

// requiredRuleID - id, которым исходный IR помечает обязательные поля.
const requiredRuleID = "required"

var ruleIDs = map[RuleKind]string{
	RuleStringMaxLength:  "string-max-length",
	RuleStringMinLength:  "string-min-length",
	RuleStringPattern:    "string-pattern",
	RuleNumberMultipleOf: "number-multiple-of",
	RuleNumberGT:         "number-gt",
	RuleNumberGTE:        "number-gte",
	RuleNumberLT:         "number-lt",
	RuleNumberLTE:        "number-lte",
	RuleArrayMaxItems:    "array-max-items",
	RuleArrayMinItems:    "array-min-items",
	RuleArrayUniqueItems: "array-unique-items",
}

// RuleKinds возвращает все известные виды правил в порядке объявления.
func RuleKinds() []RuleKind {
	return []RuleKind{
		RuleStringMaxLength,
		RuleStringMinLength,
		RuleStringPattern,
		RuleNumberMultipleOf,
		RuleNumberGT,
		RuleNumberGTE,
		RuleNumberLT,
		RuleNumberLTE,
		RuleArrayMaxItems,
		RuleArrayMinItems,
		RuleArrayUniqueItems,
	}
}

// ParseRuleKind переводит id правила в RuleKind.
func ParseRuleKind(id string) (RuleKind, bool) {
	for kind, known := range ruleIDs {
		if known == id {
			return kind, true
		}
	}
	return RuleUnknown, false
}

// String возвращает id правила ("string-max-length").
func (k RuleKind) String() string {
	if id, ok := ruleIDs[k]; ok {
		return id
	}
	return "unknown"
}

// Code возвращает id в виде константы ("STRING_MAX_LENGTH").
func (k RuleKind) Code() string {
	return strcase.UpperSnakeCase(k.String())
}

// Rule - правило валидации, прикрепленное к одному полю.
//
// Заполнено только поле, соответствующее Kind:
//   - Length для string-max-length / string-min-length
//   - Pattern для string-pattern
//   - Value для number-*
//   - Max / Min для array-max-items / array-min-items
type Rule struct {
	Kind    RuleKind
	Length  int     `validate:"gte=0"`
	Pattern string  `validate:"-"`
	Value   float64 `validate:"-"`
	Max     int     `validate:"gte=0"`
	Min     int     `validate:"gte=0"`

	// ID хранит исходный id для правил, не попавших в RuleKind
	ID string `validate:"-"`
}

// ruleDocument - форма правила в YAML/JSON.
type ruleDocument struct {
	ID      string   `yaml:"id"`
	Length  *int     `yaml:"length,omitempty"`
	Pattern *string  `yaml:"pattern,omitempty"`
	Value   *float64 `yaml:"value,omitempty"`
	Max     *int     `yaml:"max,omitempty"`
	Min     *int     `yaml:"min,omitempty"`
}

// UnmarshalYAML декодирует правило и проверяет наличие аргумента.
func (r *Rule) UnmarshalYAML(node *yaml.Node) error {
	var doc ruleDocument
	if err := node.Decode(&doc); err != nil {
		return err
	}

	kind, ok := ParseRuleKind(doc.ID)
	if !ok {
		*r = Rule{Kind: RuleUnknown, ID: doc.ID}
		return nil
	}

	rule := Rule{Kind: kind, ID: doc.ID}
	missing := func(arg string) error {
		return fmt.Errorf("line %d: rule %q requires %q", node.Line, doc.ID, arg)
	}

	switch kind {
	case RuleStringMaxLength, RuleStringMinLength:
		if doc.Length == nil {
			return missing("length")
		}
		rule.Length = *doc.Length
	case RuleStringPattern:
		if doc.Pattern == nil {
			return missing("pattern")
		}
		rule.Pattern = *doc.Pattern
	case RuleNumberMultipleOf, RuleNumberGT, RuleNumberGTE, RuleNumberLT, RuleNumberLTE:
		if doc.Value == nil {
			return missing("value")
		}
		rule.Value = *doc.Value
	case RuleArrayMaxItems:
		if doc.Max == nil {
			return missing("max")
		}
		rule.Max = *doc.Max
	case RuleArrayMinItems:
		if doc.Min == nil {
			return missing("min")
		}
		rule.Min = *doc.Min
	case RuleArrayUniqueItems:
	}

	*r = rule
	return nil
}

// MarshalYAML - обратная операция, нужна protoc плагину для отладочного вывода IR.
func (r Rule) MarshalYAML() (interface{}, error) {
	doc := ruleDocument{ID: r.Kind.String()}
	switch r.Kind {
	case RuleStringMaxLength, RuleStringMinLength:
		doc.Length = &r.Length
	case RuleStringPattern:
		doc.Pattern = &r.Pattern
	case RuleNumberMultipleOf, RuleNumberGT, RuleNumberGTE, RuleNumberLT, RuleNumberLTE:
		doc.Value = &r.Value
	case RuleArrayMaxItems:
		doc.Max = &r.Max
	case RuleArrayMinItems:
		doc.Min = &r.Min
	case RuleUnknown:
		doc.ID = r.ID
	}
	return doc, nil
}

// Constructors used by IR providers and tests.

func StringMaxLength(n int) Rule      { return Rule{Kind: RuleStringMaxLength, Length: n} }
func StringMinLength(n int) Rule      { return Rule{Kind: RuleStringMinLength, Length: n} }
func StringPattern(p string) Rule     { return Rule{Kind: RuleStringPattern, Pattern: p} }
func NumberMultipleOf(v float64) Rule { return Rule{Kind: RuleNumberMultipleOf, Value: v} }
func NumberGT(v float64) Rule         { return Rule{Kind: RuleNumberGT, Value: v} }
func NumberGTE(v float64) Rule        { return Rule{Kind: RuleNumberGTE, Value: v} }
func NumberLT(v float64) Rule         { return Rule{Kind: RuleNumberLT, Value: v} }
func NumberLTE(v float64) Rule        { return Rule{Kind: RuleNumberLTE, Value: v} }
func ArrayMaxItems(n int) Rule        { return Rule{Kind: RuleArrayMaxItems, Max: n} }
func ArrayMinItems(n int) Rule        { return Rule{Kind: RuleArrayMinItems, Min: n} }
func ArrayUniqueItems() Rule          { return Rule{Kind: RuleArrayUniqueItems} }
