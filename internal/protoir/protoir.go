// Package protoir строит IR из protobuf описаний, размеченных правилами
// protoc-gen-validate (validate.rules) или protovalidate (buf.validate.field).
// Если у поля есть оба расширения, используется validate.rules.
//
// Сообщения становятся типами, enum - перечислениями, сервисы - интерфейсами.
// Каждый RPC превращается в метод с одним обязательным параметром типа
// входного сообщения.
//
// Пример разметки:
//
//	message CreateNoteRequest {
//	  string title = 1 [(validate.rules).string = {min_len: 5, max_len: 255}];
//	  repeated string tags = 2 [(validate.rules).repeated = {max_items: 10, unique: true}];
//	  Author author = 3 [(validate.rules).message.required = true];
//	}
package protoir

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/protobuf/compiler/protogen"
	"google.golang.org/protobuf/reflect/protoreflect"

	"sorbet-validators/internal/ir"
)

// ErrNoFiles - среди входных файлов нет ни одного для генерации
var ErrNoFiles = errors.New("no proto files to generate")

var versionSegment = regexp.MustCompile(`^v(\d+)`)

// Options управляет построением IR.
type Options struct {
	// Title - заголовок сервиса. Пустой: берется из proto package без версии.
	Title string
	// MajorVersion используется, если версия не найдена в proto package.
	MajorVersion int
}

// Build строит IR из файлов, помеченных для генерации.
//
// Параметры:
//   - files: файлы плагина (gen.Files); учитываются только f.Generate
//   - opts: заголовок и версия сервиса
//
// Возвращает:
//   - *ir.Service: нормализованный и проверенный IR
//   - error: ErrNoFiles, ErrBadRules или ошибка ir.Validate
//
// Пример использования:
//
//	svc, err := protoir.Build(gen.Files, protoir.Options{})
func Build(files []*protogen.File, opts Options) (*ir.Service, error) {
	var generate []*protogen.File
	for _, f := range files {
		if f.Generate {
			generate = append(generate, f)
		}
	}
	if len(generate) == 0 {
		return nil, ErrNoFiles
	}
	if err := checkBufRules(generate); err != nil {
		return nil, err
	}

	b := &builder{
		types: map[protoreflect.FullName]string{},
		enums: map[protoreflect.FullName]string{},
	}
	for _, f := range generate {
		b.declare(f.Messages, f.Enums)
	}

	title, major := titleAndVersion(string(generate[0].Desc.Package()))
	if opts.Title != "" {
		title = opts.Title
	}
	if major == 0 {
		major = opts.MajorVersion
	}
	svc := &ir.Service{Title: title, MajorVersion: major}

	for _, f := range generate {
		for _, s := range f.Services {
			svc.Interfaces = append(svc.Interfaces, b.service(s))
		}
		b.collect(svc, f.Messages, f.Enums)
	}

	if err := ir.Validate(svc); err != nil {
		return nil, err
	}
	return svc, nil
}

type builder struct {
	// полное имя protobuf -> имя в IR
	types map[protoreflect.FullName]string
	enums map[protoreflect.FullName]string
}

// declare регистрирует сообщения и enum (включая вложенные) до построения полей,
// чтобы ссылки вперед и рекурсивные ссылки получили правильный Kind.
func (b *builder) declare(messages []*protogen.Message, enums []*protogen.Enum) {
	for _, e := range enums {
		b.enums[e.Desc.FullName()] = e.GoIdent.GoName
	}
	for _, m := range messages {
		if m.Desc.IsMapEntry() {
			continue
		}
		b.types[m.Desc.FullName()] = m.GoIdent.GoName
		b.declare(m.Messages, m.Enums)
	}
}

func (b *builder) collect(svc *ir.Service, messages []*protogen.Message, enums []*protogen.Enum) {
	for _, e := range enums {
		svc.Enums = append(svc.Enums, enum(e))
	}
	for _, m := range messages {
		if m.Desc.IsMapEntry() {
			continue
		}
		t := ir.Type{Name: b.types[m.Desc.FullName()]}
		for _, f := range m.Fields {
			t.Properties = append(t.Properties, b.field(f))
		}
		svc.Types = append(svc.Types, t)
		b.collect(svc, m.Messages, m.Enums)
	}
}

func (b *builder) service(s *protogen.Service) ir.Interface {
	out := ir.Interface{Name: string(s.Desc.Name())}
	for _, m := range s.Methods {
		param := ir.Field{
			Name:       string(m.Input.Desc.Name()),
			IsRequired: true,
		}
		param.TypeName, param.Kind = b.messageRef(m.Input.Desc)
		out.Methods = append(out.Methods, ir.Method{
			Name:       string(m.Desc.Name()),
			Parameters: []ir.Field{param},
		})
	}
	return out
}

func enum(e *protogen.Enum) ir.Enum {
	out := ir.Enum{Name: e.GoIdent.GoName}
	for _, v := range e.Values {
		out.Values = append(out.Values, string(v.Desc.Name()))
	}
	return out
}

func (b *builder) field(f *protogen.Field) ir.Field {
	out := ir.Field{
		Name:    string(f.Desc.Name()),
		IsArray: f.Desc.IsList(),
	}

	switch {
	case f.Desc.IsMap():
		out.TypeName, out.Kind = "map", ir.KindUnknown
	case f.Desc.Kind() == protoreflect.EnumKind:
		if name, ok := b.enums[f.Desc.Enum().FullName()]; ok {
			out.TypeName, out.Kind = name, ir.KindEnum
		} else {
			out.TypeName, out.Kind = string(f.Desc.Enum().FullName()), ir.KindUnknown
		}
	case f.Desc.Kind() == protoreflect.MessageKind || f.Desc.Kind() == protoreflect.GroupKind:
		out.TypeName, out.Kind = b.messageRef(f.Desc.Message())
	default:
		out.TypeName, out.Kind = scalarType(f.Desc.Kind())
	}

	if rules := fieldRules(f); rules != nil {
		out.IsRequired = rules.GetMessage().GetRequired()
		out.Rules = extractRules(rules)
	} else if rules := bufFieldRules(f); rules != nil {
		out.Rules, out.IsRequired = extractBufRules(rules)
	}
	return out
}

func (b *builder) messageRef(m protoreflect.MessageDescriptor) (string, ir.TypeKind) {
	if name, ok := b.types[m.FullName()]; ok {
		return name, ir.KindType
	}
	return string(m.FullName()), ir.KindUnknown
}

// scalarType сопоставляет скалярный protobuf тип примитиву IR.
func scalarType(kind protoreflect.Kind) (string, ir.TypeKind) {
	switch kind {
	case protoreflect.StringKind:
		return ir.PrimitiveString, ir.KindPrimitive
	case protoreflect.BoolKind:
		return ir.PrimitiveBoolean, ir.KindPrimitive
	case protoreflect.FloatKind, protoreflect.DoubleKind:
		return ir.PrimitiveNumber, ir.KindPrimitive
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return ir.PrimitiveInteger, ir.KindPrimitive
	case protoreflect.BytesKind:
		return "binary", ir.KindUnknown
	}
	return kind.String(), ir.KindUnknown
}

// titleAndVersion разбирает proto package вида "acme.notes.v1".
func titleAndVersion(pkg string) (string, int) {
	if pkg == "" {
		return "api", 0
	}
	parts := strings.Split(pkg, ".")
	major := 0
	if m := versionSegment.FindStringSubmatch(parts[len(parts)-1]); m != nil {
		major, _ = strconv.Atoi(m[1])
		parts = parts[:len(parts)-1]
	}
	if len(parts) == 0 {
		return "api", major
	}
	return strings.Join(parts, "_"), major
}

// Describe возвращает краткое описание для заголовка сгенерированных файлов.
func Describe(files []*protogen.File) string {
	var paths []string
	for _, f := range files {
		if f.Generate {
			paths = append(paths, f.Desc.Path())
		}
	}
	return strings.Join(paths, ", ")
}
