package ir

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrUnknownRule возвращается в строгом режиме для правила с неизвестным id
var ErrUnknownRule = errors.New("unknown validation rule")

// LoadOptions управляет нормализацией IR.
type LoadOptions struct {
	// StrictRules: неизвестный id правила - ошибка. Иначе правило
	// отбрасывается с предупреждением в лог.
	StrictRules bool
	Logger      logrus.FieldLogger
}

// Load читает IR из YAML или JSON файла.
func Load(path string, opts LoadOptions) (*Service, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %w", err)
	}
	svc, err := Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return svc, nil
}

// Parse декодирует IR (YAML или JSON), нормализует и валидирует его.
func Parse(data []byte, opts LoadOptions) (*Service, error) {
	var svc Service
	if err := yaml.Unmarshal(data, &svc); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal: %w", err)
	}
	if err := Normalize(&svc, opts); err != nil {
		return nil, err
	}
	if err := Validate(&svc); err != nil {
		return nil, err
	}
	return &svc, nil
}

// Normalize приводит IR к виду, который ожидает компилятор:
//   - правило "required" переносится в IsRequired
//   - неизвестные правила отбрасываются или дают ErrUnknownRule
//   - пустой Kind выводится из имени типа
func Normalize(svc *Service, opts LoadOptions) error {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	normalizeField := func(owner string, f *Field) error {
		rules := f.Rules[:0]
		for _, r := range f.Rules {
			switch {
			case r.Kind != RuleUnknown:
				rules = append(rules, r)
			case r.ID == requiredRuleID:
				f.IsRequired = true
			case opts.StrictRules:
				return fmt.Errorf("%s.%s: %w %q", owner, f.Name, ErrUnknownRule, r.ID)
			default:
				log.WithFields(logrus.Fields{
					"field": owner + "." + f.Name,
					"rule":  r.ID,
				}).Warn("dropping unknown validation rule")
			}
		}
		f.Rules = rules

		if f.Kind == "" {
			f.Kind = inferKind(svc, f.TypeName)
		}
		return nil
	}

	for i := range svc.Interfaces {
		for j := range svc.Interfaces[i].Methods {
			m := &svc.Interfaces[i].Methods[j]
			for k := range m.Parameters {
				if err := normalizeField(m.Name, &m.Parameters[k]); err != nil {
					return err
				}
			}
		}
	}
	for i := range svc.Types {
		t := &svc.Types[i]
		for k := range t.Properties {
			if err := normalizeField(t.Name, &t.Properties[k]); err != nil {
				return err
			}
		}
	}
	return nil
}

func inferKind(svc *Service, typeName string) TypeKind {
	if _, ok := svc.FindType(typeName); ok {
		return KindType
	}
	if _, ok := svc.FindEnum(typeName); ok {
		return KindEnum
	}
	if IsPrimitiveName(typeName) {
		return KindPrimitive
	}
	return KindUnknown
}
