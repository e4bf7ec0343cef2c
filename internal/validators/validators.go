// Package validators собирает определения валидаторов: по одному на метод
// с параметрами, на тип со свойствами и на каждое перечисление. Определения
// независимы и адресуются по имени; вызовы между ними разрешаются по имени
// во время рендеринга или интерпретации.
package validators

import (
	"errors"
	"fmt"

	"sorbet-validators/internal/guard"
	"sorbet-validators/internal/ir"
	"sorbet-validators/internal/names"
)

// ErrDuplicateValidator - два элемента IR дают валидатор с одним именем.
var ErrDuplicateValidator = errors.New("duplicate validator name")

// Kind - вид валидатора.
type Kind int

const (
	KindMethod Kind = iota
	KindType
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindMethod:
		return "method"
	case KindType:
		return "type"
	case KindEnum:
		return "enum"
	}
	return "unknown"
}

// Param - параметр сгенерированной функции.
type Param struct {
	// Name - имя в Ruby (snake_case)
	Name string
	// Key - исходное имя из IR
	Key string
	// Type - тип Sorbet для сигнатуры
	Type string
}

// EnumBody - исчерпывающий перебор значений перечисления.
type EnumBody struct {
	// Members - полные имена значений в Ruby, в порядке объявления
	Members []string
	// Values - исходные значения из IR, в том же порядке
	Values []string
	// Fallback - единственная ошибка для значения вне перечисления
	Fallback guard.ErrorRecord
}

// Definition - один валидатор.
type Definition struct {
	Name   string
	Kind   Kind
	Source string
	Params []Param

	// Clauses - тело валидатора метода или типа
	Clauses []guard.Clause

	// Enum - тело валидатора перечисления; nil при выключенных рантайм
	// проверках, тогда валидатор всегда возвращает пустой список
	Enum *EnumBody
}

// Keyword сообщает, что параметры передаются по имени (валидаторы методов).
func (d *Definition) Keyword() bool { return d.Kind == KindMethod }

// Set - упорядоченный набор определений с поиском по имени.
type Set struct {
	ErrorType string
	defs      []*Definition
	byName    map[string]*Definition
}

func newSet(errorType string) *Set {
	return &Set{ErrorType: errorType, byName: make(map[string]*Definition)}
}

func (s *Set) add(d *Definition) error {
	if prev, ok := s.byName[d.Name]; ok {
		return fmt.Errorf("%w: %q (%s %q and %s %q)", ErrDuplicateValidator, d.Name, prev.Kind, prev.Source, d.Kind, d.Source)
	}
	s.defs = append(s.defs, d)
	s.byName[d.Name] = d
	return nil
}

// Get возвращает определение по имени валидатора.
func (s *Set) Get(name string) (*Definition, bool) {
	d, ok := s.byName[name]
	return d, ok
}

// All возвращает определения в порядке сборки: методы, типы, перечисления.
func (s *Set) All() []*Definition {
	out := make([]*Definition, len(s.defs))
	copy(out, s.defs)
	return out
}

// Names возвращает имена валидаторов в порядке сборки.
func (s *Set) Names() []string {
	out := make([]string, len(s.defs))
	for i, d := range s.defs {
		out[i] = d.Name
	}
	return out
}

// Len - число определений.
func (s *Set) Len() int { return len(s.defs) }

// Assemble строит набор валидаторов для сервиса.
//
// Порядок: методы всех интерфейсов, затем типы, затем перечисления, каждый
// раздел в порядке объявления в IR. Методы без параметров и типы без
// свойств пропускаются.
func Assemble(svc *ir.Service, resolver *names.Resolver, opts guard.Options) (*Set, error) {
	a := &assembler{
		names:  resolver,
		guards: guard.New(resolver, opts),
		opts:   opts,
	}
	set := newSet(resolver.ErrorType())

	for _, m := range svc.Methods() {
		if len(m.Parameters) == 0 {
			continue
		}
		if err := set.add(a.method(m)); err != nil {
			return nil, err
		}
	}
	for _, t := range svc.Types {
		if len(t.Properties) == 0 {
			continue
		}
		if err := set.add(a.typeValidator(t)); err != nil {
			return nil, err
		}
	}
	for _, e := range svc.Enums {
		if err := set.add(a.enum(e)); err != nil {
			return nil, err
		}
	}
	return set, nil
}

type assembler struct {
	names  *names.Resolver
	guards *guard.Compiler
	opts   guard.Options
}

func (a *assembler) method(m ir.Method) *Definition {
	d := &Definition{
		Name:   names.MethodValidatorName(m.Name),
		Kind:   KindMethod,
		Source: m.Name,
	}
	for _, p := range m.Parameters {
		d.Params = append(d.Params, Param{
			Name: names.Snake(p.Name),
			Key:  p.Name,
			Type: a.names.SignatureType(p),
		})
		d.Clauses = append(d.Clauses, a.guards.FieldClauses("", p)...)
	}
	return d
}

func (a *assembler) typeValidator(t ir.Type) *Definition {
	d := &Definition{
		Name:   names.ValidatorName(t.Name),
		Kind:   KindType,
		Source: t.Name,
		Params: []Param{{Name: names.Snake(t.Name), Key: t.Name, Type: a.names.TypeType(t.Name)}},
	}
	for _, p := range t.Properties {
		d.Clauses = append(d.Clauses, a.guards.FieldClauses(t.Name, p)...)
	}
	return d
}

func (a *assembler) enum(e ir.Enum) *Definition {
	d := &Definition{
		Name:   names.ValidatorName(e.Name),
		Kind:   KindEnum,
		Source: e.Name,
		Params: []Param{{Name: names.Snake(e.Name), Key: e.Name, Type: a.names.EnumType(e.Name)}},
	}
	if !a.opts.RuntimeChecks {
		return d
	}

	body := &EnumBody{
		Values: append([]string(nil), e.Values...),
		Fallback: guard.NewErrorRecord(
			"type",
			fmt.Sprintf("\"%s\" must be a member of `%s`", names.Snake(e.Name), a.names.EnumType(e.Name)),
			names.Snake(e.Name),
		),
	}
	for _, v := range e.Values {
		body.Members = append(body.Members, a.names.EnumMember(e.Name, v))
	}
	d.Enum = body
	return d
}
