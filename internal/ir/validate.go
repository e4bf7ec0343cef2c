package ir

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"

	"sorbet-validators/internal/expr"
)

// ErrInvalidIR - общий признак ошибок структурной валидации IR
var ErrInvalidIR = errors.New("invalid IR")

// Problem - одна найденная в IR проблема.
type Problem struct {
	Path        string // путь до элемента, например "types[0].properties[1].name"
	Description string
}

func (p *Problem) Error() string {
	return fmt.Sprintf("%s: %s", p.Path, p.Description)
}

// InvalidError собирает все проблемы IR, а не только первую.
type InvalidError struct {
	Problems []*Problem
}

func (e *InvalidError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return "invalid IR: " + strings.Join(msgs, "; ")
}

// Is позволяет проверять ошибку через errors.Is(err, ErrInvalidIR).
func (e *InvalidError) Is(target error) bool {
	return target == ErrInvalidIR
}

var structValidator = validator.New()

// Validate проверяет структуру IR и ссылки между его элементами.
func Validate(svc *Service) error {
	var errs error

	if err := structValidator.Struct(svc); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validator.Struct: %w", err)
		}
		for _, fe := range verrs {
			errs = multierr.Append(errs, &Problem{
				Path:        fieldPath(fe.Namespace()),
				Description: fmt.Sprintf("failed %q validation", fe.Tag()),
			})
		}
	}

	errs = multierr.Append(errs, checkUnique("types", typeNames(svc)))
	errs = multierr.Append(errs, checkUnique("enums", enumNames(svc)))

	for i, iface := range svc.Interfaces {
		for j, m := range iface.Methods {
			prefix := fmt.Sprintf("interfaces[%d].methods[%d].parameters", i, j)
			errs = multierr.Append(errs, checkFields(svc, prefix, m.Parameters))
		}
	}
	for i, t := range svc.Types {
		prefix := fmt.Sprintf("types[%d].properties", i)
		errs = multierr.Append(errs, checkFields(svc, prefix, t.Properties))
	}

	if errs == nil {
		return nil
	}

	invalid := &InvalidError{}
	for _, err := range multierr.Errors(errs) {
		var p *Problem
		if errors.As(err, &p) {
			invalid.Problems = append(invalid.Problems, p)
		}
	}
	return invalid
}

func checkFields(svc *Service, prefix string, fields []Field) error {
	var errs error
	seen := make(map[string]bool, len(fields))

	for i, f := range fields {
		path := fmt.Sprintf("%s[%d]", prefix, i)
		if seen[f.Name] {
			errs = multierr.Append(errs, &Problem{Path: path + ".name", Description: fmt.Sprintf("duplicate name %q", f.Name)})
		}
		seen[f.Name] = true

		switch f.Kind {
		case KindType:
			if _, ok := svc.FindType(f.TypeName); !ok {
				errs = multierr.Append(errs, &Problem{Path: path + ".typeName", Description: fmt.Sprintf("type %q is not declared", f.TypeName)})
			}
		case KindEnum:
			if _, ok := svc.FindEnum(f.TypeName); !ok {
				errs = multierr.Append(errs, &Problem{Path: path + ".typeName", Description: fmt.Sprintf("enum %q is not declared", f.TypeName)})
			}
		}

		for j, r := range f.Rules {
			if r.Kind == RuleStringPattern {
				errs = multierr.Append(errs, checkPattern(fmt.Sprintf("%s.rules[%d].pattern", path, j), r.Pattern))
			}
			if r.Kind == RuleNumberMultipleOf && r.Value == 0 {
				errs = multierr.Append(errs, &Problem{
					Path:        fmt.Sprintf("%s.rules[%d].value", path, j),
					Description: "multiple-of value must not be zero",
				})
			}
		}
	}
	return errs
}

// checkPattern требует шаблон, который можно вычислить при dry run
func checkPattern(path, pattern string) error {
	if pattern == "" {
		return &Problem{Path: path, Description: "pattern must not be empty"}
	}
	if _, err := expr.CompilePattern(pattern); err != nil {
		return &Problem{Path: path, Description: fmt.Sprintf("pattern %q does not compile: %v", pattern, err)}
	}
	return nil
}

func checkUnique(what string, names []string) error {
	var errs error
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		if seen[name] {
			errs = multierr.Append(errs, &Problem{
				Path:        fmt.Sprintf("%s[%d].name", what, i),
				Description: fmt.Sprintf("duplicate name %q", name),
			})
		}
		seen[name] = true
	}
	return errs
}

func typeNames(svc *Service) []string {
	names := make([]string, len(svc.Types))
	for i, t := range svc.Types {
		names[i] = t.Name
	}
	return names
}

func enumNames(svc *Service) []string {
	names := make([]string, len(svc.Enums))
	for i, e := range svc.Enums {
		names[i] = e.Name
	}
	return names
}

// fieldPath переводит namespace валидатора ("Service.Types[0].Name") в путь IR.
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToLower(p[:1]) + p[1:]
	}
	return strings.Join(parts, ".")
}
