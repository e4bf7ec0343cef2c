// Package names вычисляет идентификаторы целевого кода: регистр имен,
// пространства имен Ruby модулей, типы Sorbet, имена валидаторов и пути
// генерируемых файлов. Генератор считает результат непрозрачными строками.
package names

import (
	"fmt"
	"strings"

	"github.com/stoewer/go-strcase"

	"sorbet-validators/internal/ir"
)

// Sorbet классы встроенных типов
const (
	ClassString  = "String"
	ClassNumeric = "Numeric"
	ClassInteger = "Integer"
	ClassBoolean = "T::Boolean"
	ClassUntyped = "T.untyped"
	ClassArray   = "Array"
)

const (
	validatorsName      = "Validators"
	validationErrorName = "ValidationError"
)

// Snake переводит имя в snake_case ("getGizmos" -> "get_gizmos").
func Snake(s string) string { return strcase.SnakeCase(s) }

// Constant переводит имя в CONSTANT_CASE.
func Constant(s string) string { return strcase.UpperSnakeCase(s) }

// Pascal переводит имя в PascalCase.
func Pascal(s string) string { return strcase.UpperCamelCase(s) }

// Join собирает путь поля: части в snake_case через точку, пустые пропускаются.
func Join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, Snake(p))
	}
	return strings.Join(out, ".")
}

// MethodValidatorName - имя валидатора параметров метода.
func MethodValidatorName(method string) string {
	return "validate_" + Snake(method) + "_parameters"
}

// ValidatorName - имя валидатора типа или перечисления.
func ValidatorName(name string) string {
	return "validate_" + Snake(name)
}

// Options - настройки пространств имен и расположения файлов.
type Options struct {
	Namespace        string
	TypesModule      string
	EnumsModule      string
	InterfacesModule string
	Subfolder        string
}

// Resolver вычисляет имена для одного сервиса.
type Resolver struct {
	svc  *ir.Service
	opts Options
}

// New создает Resolver; пустые модули заменяются значениями по умолчанию.
func New(svc *ir.Service, opts Options) *Resolver {
	if opts.TypesModule == "" {
		opts.TypesModule = "Types"
	}
	if opts.EnumsModule == "" {
		opts.EnumsModule = "Enums"
	}
	if opts.InterfacesModule == "" {
		opts.InterfacesModule = "Interfaces"
	}
	return &Resolver{svc: svc, opts: opts}
}

// BaseNamespace - корневой модуль ("BasketryExample::V1").
func (r *Resolver) BaseNamespace() string {
	if r.opts.Namespace != "" {
		return r.opts.Namespace
	}
	return fmt.Sprintf("%s::V%d", Pascal(r.svc.Title), r.svc.MajorVersion)
}

func (r *Resolver) TypesNamespace() string {
	return r.BaseNamespace() + "::" + r.opts.TypesModule
}

func (r *Resolver) EnumsNamespace() string {
	return r.BaseNamespace() + "::" + r.opts.EnumsModule
}

func (r *Resolver) InterfacesNamespace() string {
	return r.BaseNamespace() + "::" + r.opts.InterfacesModule
}

// ValidationErrorNamespace - модуль, в котором объявлен класс ошибки.
func (r *Resolver) ValidationErrorNamespace() string {
	return r.TypesNamespace()
}

// ErrorType - полное имя класса ошибки валидации.
func (r *Resolver) ErrorType() string {
	return r.ValidationErrorNamespace() + "::" + validationErrorName
}

// ValidationErrorName - короткое имя класса ошибки.
func (r *Resolver) ValidationErrorName() string { return validationErrorName }

// ValidatorsName - имя модуля с валидаторами.
func (r *Resolver) ValidatorsName() string { return validatorsName }

// ValidatorsNamespace - модуль, в который вкладывается модуль Validators.
func (r *Resolver) ValidatorsNamespace() string {
	return r.InterfacesNamespace()
}

// TypeType - полное имя локального типа.
func (r *Resolver) TypeType(name string) string {
	return r.TypesNamespace() + "::" + Pascal(name)
}

// EnumType - полное имя перечисления.
func (r *Resolver) EnumType(name string) string {
	return r.EnumsNamespace() + "::" + Pascal(name)
}

// EnumMember - полное имя значения перечисления.
func (r *Resolver) EnumMember(enum, value string) string {
	return r.EnumType(enum) + "::" + Constant(value)
}

// ElementType - тип Sorbet без учета массива и nilable.
func (r *Resolver) ElementType(f ir.Field) string {
	switch f.Kind {
	case ir.KindType:
		return r.TypeType(f.TypeName)
	case ir.KindEnum:
		return r.EnumType(f.TypeName)
	case ir.KindPrimitive:
		return PrimitiveClass(f.TypeName)
	}
	return ClassUntyped
}

// FieldType - тип Sorbet с учетом массива: "T::Array[String]".
func (r *Resolver) FieldType(f ir.Field) string {
	t := r.ElementType(f)
	if f.IsArray {
		return "T::Array[" + t + "]"
	}
	return t
}

// SignatureType - тип параметра в sig: nilable, если поле не обязательное.
func (r *Resolver) SignatureType(f ir.Field) string {
	t := r.FieldType(f)
	if f.IsRequired {
		return t
	}
	return "T.nilable(" + t + ")"
}

// PrimitiveClass переводит встроенный тип IR в класс Sorbet.
func PrimitiveClass(typeName string) string {
	switch typeName {
	case ir.PrimitiveString:
		return ClassString
	case ir.PrimitiveNumber, ir.PrimitiveFloat, ir.PrimitiveDouble:
		return ClassNumeric
	case ir.PrimitiveInteger, ir.PrimitiveLong:
		return ClassInteger
	case ir.PrimitiveBoolean:
		return ClassBoolean
	}
	return ClassUntyped
}

// ValidatorsFilepath - путь файла validators.rb.
func (r *Resolver) ValidatorsFilepath() []string {
	return r.filepath(r.ValidatorsNamespace(), Snake(validatorsName)+".rb")
}

// ValidationErrorFilepath - путь файла validation_error.rb.
func (r *Resolver) ValidationErrorFilepath() []string {
	return r.filepath(r.ValidationErrorNamespace(), Snake(validationErrorName)+".rb")
}

func (r *Resolver) filepath(namespace, file string) []string {
	var path []string
	for _, p := range strings.Split(r.opts.Subfolder, "/") {
		if p != "" {
			path = append(path, p)
		}
	}
	for _, p := range strings.Split(namespace, "::") {
		path = append(path, Snake(p))
	}
	return append(path, file)
}
