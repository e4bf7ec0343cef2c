package protoir

import (
	"errors"
	"fmt"

	bufvalidate "buf.build/gen/go/bufbuild/protovalidate/protocolbuffers/go/buf/validate"
	"buf.build/go/protovalidate"
	"google.golang.org/protobuf/compiler/protogen"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"sorbet-validators/internal/ir"
)

// ErrBadRules - аннотации buf.validate не компилируются
var ErrBadRules = errors.New("invalid buf.validate rules")

// numericRules - варианты FieldRules.type с границами gt/gte/lt/lte
var numericRules = []protoreflect.Name{
	"int32", "int64", "uint32", "uint64", "sint32", "sint64",
	"fixed32", "fixed64", "sfixed32", "sfixed64", "float", "double",
}

// bufFieldRules возвращает расширение (buf.validate.field) поля или nil.
func bufFieldRules(field *protogen.Field) *bufvalidate.FieldRules {
	opts := field.Desc.Options()
	if opts == nil || !proto.HasExtension(opts, bufvalidate.E_Field) {
		return nil
	}
	rules, ok := proto.GetExtension(opts, bufvalidate.E_Field).(*bufvalidate.FieldRules)
	if !ok {
		return nil
	}
	return rules
}

// extractBufRules переводит правила buf.validate в правила IR в том же
// порядке, что и extractRules для PGV. Второе значение - required.
//
// Правила читаются через protoreflect по именам полей validate.proto.
func extractBufRules(rules *bufvalidate.FieldRules) ([]ir.Rule, bool) {
	m := rules.ProtoReflect()
	required := getBool(m, "required")

	if repeated, ok := getMessage(m, "repeated"); ok {
		var out []ir.Rule
		if n, ok := getUint(repeated, "min_items"); ok {
			out = append(out, ir.ArrayMinItems(n))
		}
		if n, ok := getUint(repeated, "max_items"); ok {
			out = append(out, ir.ArrayMaxItems(n))
		}
		if getBool(repeated, "unique") {
			out = append(out, ir.ArrayUniqueItems())
		}
		if items, ok := getMessage(repeated, "items"); ok {
			out = append(out, bufScalarRules(items)...)
		}
		return out, required
	}
	return bufScalarRules(m), required
}

func bufScalarRules(m protoreflect.Message) []ir.Rule {
	if s, ok := getMessage(m, "string"); ok {
		var out []ir.Rule
		if n, ok := getUint(s, "min_len"); ok {
			out = append(out, ir.StringMinLength(n))
		}
		if n, ok := getUint(s, "max_len"); ok {
			out = append(out, ir.StringMaxLength(n))
		}
		if fd := s.Descriptor().Fields().ByName("pattern"); fd != nil && s.Has(fd) {
			out = append(out, ir.StringPattern(s.Get(fd).String()))
		}
		return out
	}

	for _, name := range numericRules {
		n, ok := getMessage(m, name)
		if !ok {
			continue
		}
		var out []ir.Rule
		if v, ok := getNumber(n, "gt"); ok {
			out = append(out, ir.NumberGT(v))
		}
		if v, ok := getNumber(n, "gte"); ok {
			out = append(out, ir.NumberGTE(v))
		}
		if v, ok := getNumber(n, "lt"); ok {
			out = append(out, ir.NumberLT(v))
		}
		if v, ok := getNumber(n, "lte"); ok {
			out = append(out, ir.NumberLTE(v))
		}
		return out
	}
	return nil
}

func getMessage(m protoreflect.Message, name protoreflect.Name) (protoreflect.Message, bool) {
	fd := m.Descriptor().Fields().ByName(name)
	if fd == nil || fd.Message() == nil || !m.Has(fd) {
		return nil, false
	}
	return m.Get(fd).Message(), true
}

func getBool(m protoreflect.Message, name protoreflect.Name) bool {
	fd := m.Descriptor().Fields().ByName(name)
	if fd == nil || fd.Kind() != protoreflect.BoolKind || !m.Has(fd) {
		return false
	}
	return m.Get(fd).Bool()
}

func getUint(m protoreflect.Message, name protoreflect.Name) (int, bool) {
	fd := m.Descriptor().Fields().ByName(name)
	if fd == nil || !m.Has(fd) {
		return 0, false
	}
	return int(m.Get(fd).Uint()), true
}

func getNumber(m protoreflect.Message, name protoreflect.Name) (float64, bool) {
	fd := m.Descriptor().Fields().ByName(name)
	if fd == nil || !m.Has(fd) {
		return 0, false
	}
	v := m.Get(fd)
	switch fd.Kind() {
	case protoreflect.Int32Kind, protoreflect.Int64Kind, protoreflect.Sint32Kind, protoreflect.Sint64Kind,
		protoreflect.Sfixed32Kind, protoreflect.Sfixed64Kind:
		return float64(v.Int()), true
	case protoreflect.Uint32Kind, protoreflect.Uint64Kind, protoreflect.Fixed32Kind, protoreflect.Fixed64Kind:
		return float64(v.Uint()), true
	case protoreflect.FloatKind, protoreflect.DoubleKind:
		return v.Float(), true
	}
	return 0, false
}

// checkBufRules компилирует правила buf.validate всех сообщений через
// protovalidate. Пустое сообщение может нарушать правила, это не ошибка;
// ошибкой считается только невозможность скомпилировать правила (например,
// строковые правила на числовом поле).
func checkBufRules(files []*protogen.File) error {
	validator, err := protovalidate.New()
	if err != nil {
		return fmt.Errorf("protovalidate.New: %w", err)
	}

	var walk func(messages []*protogen.Message) error
	walk = func(messages []*protogen.Message) error {
		for _, m := range messages {
			if m.Desc.IsMapEntry() {
				continue
			}
			err := validator.Validate(dynamicpb.NewMessage(m.Desc))
			var compileErr *protovalidate.CompilationError
			if errors.As(err, &compileErr) {
				return fmt.Errorf("%w: %s: %v", ErrBadRules, m.Desc.FullName(), compileErr)
			}
			if err := walk(m.Messages); err != nil {
				return err
			}
		}
		return nil
	}

	for _, f := range files {
		if err := walk(f.Messages); err != nil {
			return err
		}
	}
	return nil
}
