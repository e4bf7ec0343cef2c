// Package ir описывает промежуточное представление API, из которого
// генерируются валидаторы: методы с параметрами, типы со свойствами и
// перечисления. Каждый параметр и каждое свойство несут упорядоченный
// список правил валидации.
//
// Пакет не знает ничего о целевом языке: имена здесь исходные, как в
// описании API, а приведение регистра выполняет пакет names.
package ir

// TypeKind классифицирует тип поля.
type TypeKind string

const (
	// KindPrimitive - встроенный тип (string, number, integer, boolean, ...)
	KindPrimitive TypeKind = "primitive"
	// KindType - локально объявленный тип со свойствами
	KindType TypeKind = "type"
	// KindEnum - локально объявленное перечисление
	KindEnum TypeKind = "enum"
	// KindUnknown - тип, о котором генератор ничего не знает (untyped)
	KindUnknown TypeKind = "unknown"
)

// Primitive names understood by the name resolver.
const (
	PrimitiveString  = "string"
	PrimitiveNumber  = "number"
	PrimitiveInteger = "integer"
	PrimitiveBoolean = "boolean"
	PrimitiveLong    = "long"
	PrimitiveFloat   = "float"
	PrimitiveDouble  = "double"
)

// IsPrimitiveName сообщает, является ли имя типа встроенным.
func IsPrimitiveName(name string) bool {
	switch name {
	case PrimitiveString, PrimitiveNumber, PrimitiveInteger, PrimitiveBoolean,
		PrimitiveLong, PrimitiveFloat, PrimitiveDouble,
		"date", "date-time", "null", "untyped", "binary":
		return true
	}
	return false
}

// Service - корень IR.
type Service struct {
	Title        string      `yaml:"title" validate:"required"`
	MajorVersion int         `yaml:"majorVersion" validate:"gte=0"`
	Interfaces   []Interface `yaml:"interfaces" validate:"dive"`
	Types        []Type      `yaml:"types" validate:"dive"`
	Enums        []Enum      `yaml:"enums" validate:"dive"`
}

// Interface группирует методы.
type Interface struct {
	Name    string   `yaml:"name" validate:"required"`
	Methods []Method `yaml:"methods" validate:"dive"`
}

// Method - операция API с упорядоченными параметрами.
type Method struct {
	Name       string  `yaml:"name" validate:"required"`
	Parameters []Field `yaml:"parameters" validate:"dive"`
}

// Type - локальный тип со свойствами.
type Type struct {
	Name       string  `yaml:"name" validate:"required"`
	Properties []Field `yaml:"properties" validate:"dive"`
}

// Enum - перечисление с упорядоченным набором значений.
type Enum struct {
	Name   string   `yaml:"name" validate:"required"`
	Values []string `yaml:"values" validate:"dive,required"`
}

// Field - параметр метода или свойство типа.
type Field struct {
	Name       string   `yaml:"name" validate:"required"`
	TypeName   string   `yaml:"typeName" validate:"required"`
	Kind       TypeKind `yaml:"kind" validate:"omitempty,oneof=primitive type enum unknown"`
	IsArray    bool     `yaml:"isArray"`
	IsRequired bool     `yaml:"isRequired"`
	Rules      []Rule   `yaml:"rules" validate:"dive"`
}

// IsPrimitive сообщает, что поле встроенного типа.
func (f Field) IsPrimitive() bool { return f.Kind == KindPrimitive }

// IsLocal сообщает, что поле ссылается на локальный тип или перечисление.
func (f Field) IsLocal() bool { return f.Kind == KindType || f.Kind == KindEnum }

// Methods возвращает методы всех интерфейсов в порядке объявления.
func (s *Service) Methods() []Method {
	var methods []Method
	for _, i := range s.Interfaces {
		methods = append(methods, i.Methods...)
	}
	return methods
}

// FindType ищет тип по исходному имени.
func (s *Service) FindType(name string) (Type, bool) {
	for _, t := range s.Types {
		if t.Name == name {
			return t, true
		}
	}
	return Type{}, false
}

// FindEnum ищет перечисление по исходному имени.
func (s *Service) FindEnum(name string) (Enum, bool) {
	for _, e := range s.Enums {
		if e.Name == name {
			return e, true
		}
	}
	return Enum{}, false
}
