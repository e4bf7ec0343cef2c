package protoir

import (
	"testing"

	validate "github.com/envoyproxy/protoc-gen-validate/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/compiler/protogen"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/pluginpb"

	"sorbet-validators/internal/generator"
	"sorbet-validators/internal/guard"
	"sorbet-validators/internal/ir"
)

const notesProto = "notes/v1/notes.proto"

func rulesOpt(r *validate.FieldRules) *descriptorpb.FieldOptions {
	opts := &descriptorpb.FieldOptions{}
	proto.SetExtension(opts, validate.E_Rules, r)
	return opts
}

func scalar(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
}

func ref(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type, typeName string) *descriptorpb.FieldDescriptorProto {
	f := scalar(name, number, typ)
	f.TypeName = proto.String(typeName)
	return f
}

func repeated(f *descriptorpb.FieldDescriptorProto) *descriptorpb.FieldDescriptorProto {
	f.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	return f
}

func withRules(f *descriptorpb.FieldDescriptorProto, r *validate.FieldRules) *descriptorpb.FieldDescriptorProto {
	f.Options = rulesOpt(r)
	return f
}

// notesFile описывает файл, эквивалентный:
//
//	package notes.v1;
//	enum Size { SIZE_UNSPECIFIED = 0; SIZE_SMALL = 1; }
//	message Author { string name = 1 [(validate.rules).string.min_len = 2]; }
//	message CreateNoteRequest { ... }
//	message Note { string id = 1; }
//	service NotesService { rpc CreateNote(CreateNoteRequest) returns (Note); }
func notesFile() *descriptorpb.FileDescriptorProto {
	str := descriptorpb.FieldDescriptorProto_TYPE_STRING
	msg := descriptorpb.FieldDescriptorProto_TYPE_MESSAGE

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String(notesProto),
		Package: proto.String("notes.v1"),
		Syntax:  proto.String("proto3"),
		Options: &descriptorpb.FileOptions{GoPackage: proto.String("example.com/notes/v1;notesv1")},
		EnumType: []*descriptorpb.EnumDescriptorProto{{
			Name: proto.String("Size"),
			Value: []*descriptorpb.EnumValueDescriptorProto{
				{Name: proto.String("SIZE_UNSPECIFIED"), Number: proto.Int32(0)},
				{Name: proto.String("SIZE_SMALL"), Number: proto.Int32(1)},
			},
		}},
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Author"),
				Field: []*descriptorpb.FieldDescriptorProto{
					withRules(scalar("name", 1, str), &validate.FieldRules{Type: &validate.FieldRules_String_{
						String_: &validate.StringRules{MinLen: proto.Uint64(2)},
					}}),
				},
			},
			{
				Name: proto.String("CreateNoteRequest"),
				Field: []*descriptorpb.FieldDescriptorProto{
					withRules(scalar("title", 1, str), &validate.FieldRules{Type: &validate.FieldRules_String_{
						String_: &validate.StringRules{MinLen: proto.Uint64(5), MaxLen: proto.Uint64(255), Pattern: proto.String("^[A-Z]")},
					}}),
					withRules(repeated(scalar("tags", 2, str)), &validate.FieldRules{Type: &validate.FieldRules_Repeated{
						Repeated: &validate.RepeatedRules{
							MinItems: proto.Uint64(1),
							MaxItems: proto.Uint64(10),
							Unique:   proto.Bool(true),
							Items: &validate.FieldRules{Type: &validate.FieldRules_String_{
								String_: &validate.StringRules{MaxLen: proto.Uint64(20)},
							}},
						},
					}}),
					withRules(ref("author", 3, msg, ".notes.v1.Author"), &validate.FieldRules{
						Message: &validate.MessageRules{Required: proto.Bool(true)},
					}),
					ref("size", 4, descriptorpb.FieldDescriptorProto_TYPE_ENUM, ".notes.v1.Size"),
					withRules(scalar("priority", 5, descriptorpb.FieldDescriptorProto_TYPE_INT32), &validate.FieldRules{Type: &validate.FieldRules_Int32{
						Int32: &validate.Int32Rules{Gte: proto.Int32(1), Lte: proto.Int32(5)},
					}}),
					withRules(scalar("weight", 6, descriptorpb.FieldDescriptorProto_TYPE_DOUBLE), &validate.FieldRules{Type: &validate.FieldRules_Double{
						Double: &validate.DoubleRules{Gt: proto.Float64(0)},
					}}),
					scalar("blob", 7, descriptorpb.FieldDescriptorProto_TYPE_BYTES),
					repeated(ref("labels", 8, msg, ".notes.v1.CreateNoteRequest.LabelsEntry")),
					scalar("draft", 9, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
				},
				NestedType: []*descriptorpb.DescriptorProto{{
					Name:    proto.String("LabelsEntry"),
					Options: &descriptorpb.MessageOptions{MapEntry: proto.Bool(true)},
					Field: []*descriptorpb.FieldDescriptorProto{
						scalar("key", 1, str),
						scalar("value", 2, str),
					},
				}},
			},
			{
				Name:  proto.String("Note"),
				Field: []*descriptorpb.FieldDescriptorProto{scalar("id", 1, str)},
			},
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("NotesService"),
			Method: []*descriptorpb.MethodDescriptorProto{{
				Name:       proto.String("CreateNote"),
				InputType:  proto.String(".notes.v1.CreateNoteRequest"),
				OutputType: proto.String(".notes.v1.Note"),
			}},
		}},
	}
}

func plugin(t *testing.T) *protogen.Plugin {
	t.Helper()
	gen, err := protogen.Options{}.New(&pluginpb.CodeGeneratorRequest{
		FileToGenerate: []string{notesProto},
		ProtoFile:      []*descriptorpb.FileDescriptorProto{notesFile()},
	})
	require.NoError(t, err)
	return gen
}

func field(t *testing.T, typ ir.Type, name string) ir.Field {
	t.Helper()
	for _, f := range typ.Properties {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("field %s not found in %s", name, typ.Name)
	return ir.Field{}
}

func TestBuild(t *testing.T) {
	svc, err := Build(plugin(t).Files, Options{})
	require.NoError(t, err)

	assert.Equal(t, "notes", svc.Title)
	assert.Equal(t, 1, svc.MajorVersion)

	require.Len(t, svc.Interfaces, 1)
	assert.Equal(t, "NotesService", svc.Interfaces[0].Name)
	require.Len(t, svc.Interfaces[0].Methods, 1)
	method := svc.Interfaces[0].Methods[0]
	assert.Equal(t, "CreateNote", method.Name)
	assert.Equal(t, []ir.Field{{
		Name:       "CreateNoteRequest",
		TypeName:   "CreateNoteRequest",
		Kind:       ir.KindType,
		IsRequired: true,
	}}, method.Parameters)

	assert.Equal(t, []ir.Enum{{Name: "Size", Values: []string{"SIZE_UNSPECIFIED", "SIZE_SMALL"}}}, svc.Enums)

	var typeNames []string
	for _, typ := range svc.Types {
		typeNames = append(typeNames, typ.Name)
	}
	assert.Equal(t, []string{"Author", "CreateNoteRequest", "Note"}, typeNames)

	req, ok := svc.FindType("CreateNoteRequest")
	require.True(t, ok)

	tests := []struct {
		name string
		want ir.Field
	}{
		{"title", ir.Field{
			Name: "title", TypeName: ir.PrimitiveString, Kind: ir.KindPrimitive,
			Rules: []ir.Rule{ir.StringMinLength(5), ir.StringMaxLength(255), ir.StringPattern("^[A-Z]")},
		}},
		{"tags", ir.Field{
			Name: "tags", TypeName: ir.PrimitiveString, Kind: ir.KindPrimitive, IsArray: true,
			Rules: []ir.Rule{ir.ArrayMinItems(1), ir.ArrayMaxItems(10), ir.ArrayUniqueItems(), ir.StringMaxLength(20)},
		}},
		{"author", ir.Field{Name: "author", TypeName: "Author", Kind: ir.KindType, IsRequired: true}},
		{"size", ir.Field{Name: "size", TypeName: "Size", Kind: ir.KindEnum}},
		{"priority", ir.Field{
			Name: "priority", TypeName: ir.PrimitiveInteger, Kind: ir.KindPrimitive,
			Rules: []ir.Rule{ir.NumberGTE(1), ir.NumberLTE(5)},
		}},
		{"weight", ir.Field{
			Name: "weight", TypeName: ir.PrimitiveNumber, Kind: ir.KindPrimitive,
			Rules: []ir.Rule{ir.NumberGT(0)},
		}},
		{"blob", ir.Field{Name: "blob", TypeName: "binary", Kind: ir.KindUnknown}},
		{"labels", ir.Field{Name: "labels", TypeName: "map", Kind: ir.KindUnknown}},
		{"draft", ir.Field{Name: "draft", TypeName: ir.PrimitiveBoolean, Kind: ir.KindPrimitive}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, field(t, req, tt.name))
		})
	}
}

func TestBuild_Options(t *testing.T) {
	svc, err := Build(plugin(t).Files, Options{Title: "Notes API", MajorVersion: 7})
	require.NoError(t, err)

	assert.Equal(t, "Notes API", svc.Title)
	assert.Equal(t, 1, svc.MajorVersion, "version from the package wins")
}

func TestBuild_NoFiles(t *testing.T) {
	gen := plugin(t)
	for _, f := range gen.Files {
		f.Generate = false
	}

	_, err := Build(gen.Files, Options{})
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestTitleAndVersion(t *testing.T) {
	tests := []struct {
		pkg       string
		wantTitle string
		wantMajor int
	}{
		{"notes.v1", "notes", 1},
		{"acme.billing.v12", "acme_billing", 12},
		{"acme.billing.v2beta1", "acme_billing", 2},
		{"acme", "acme", 0},
		{"v3", "api", 3},
		{"", "api", 0},
	}
	for _, tt := range tests {
		t.Run(tt.pkg, func(t *testing.T) {
			title, major := titleAndVersion(tt.pkg)
			assert.Equal(t, tt.wantTitle, title)
			assert.Equal(t, tt.wantMajor, major)
		})
	}
}

// TestBuild_Generate проверяет полный путь proto -> IR -> Ruby.
func TestBuild_Generate(t *testing.T) {
	gen := plugin(t)
	svc, err := Build(gen.Files, Options{})
	require.NoError(t, err)

	res, err := generator.Build(svc, generator.Config{
		Guard: guard.Options{RuntimeChecks: true},
		Files: generator.Options{Source: Describe(gen.Files)},
	})
	require.NoError(t, err)
	require.Len(t, res.Files, 2)

	assert.Equal(t, "notes/v1/interfaces/validators.rb", res.Files[1].Name())
	assert.Contains(t, res.Files[1].Contents, "# Source: "+notesProto+"\n")
	assert.Contains(t, res.Files[1].Contents, "def validate_create_note_parameters(")
	assert.Contains(t, res.Files[1].Contents, "def validate_create_note_request(create_note_request)")
	assert.Contains(t, res.Files[1].Contents, "def validate_size(size)")
}
