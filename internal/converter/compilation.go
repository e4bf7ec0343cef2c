// Package converter переводит доменные модели в сообщения gRPC и обратно.
//
// CompilerService описан поверх well-known types: запросы и ответы - это
// google.protobuf.Struct с фиксированным набором полей, файлы отдаются как
// google.api.HttpBody.
package converter

import (
	"errors"
	"fmt"
	"math"
	"time"

	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"sorbet-validators/internal/guard"
	"sorbet-validators/internal/model"
)

// ErrInvalidRequest - поле запроса отсутствует или имеет неверный тип
var ErrInvalidRequest = errors.New("invalid request")

// RubyContentType - тип содержимого сгенерированных файлов
const RubyContentType = "text/x-ruby; charset=utf-8"

// Имена полей запросов
const (
	FieldIR        = "ir"
	FieldOptions   = "options"
	FieldID        = "id"
	FieldPath      = "path"
	FieldValidator = "validator"
	FieldInput     = "input"
)

// CompileRequestFromStruct разбирает запрос Compile.
//
// Поле ir - строка с YAML/JSON или объект IR. Поле options необязательно:
//
//	{
//	  "ir": "title: Gizmos\n...",
//	  "options": {"namespace": "Acme", "runtime": false, "rubocop_disable": ["Style/Next"]}
//	}
func CompileRequestFromStruct(s *structpb.Struct) (model.CompileRequest, error) {
	var req model.CompileRequest

	raw, ok := s.GetFields()[FieldIR]
	if !ok {
		return req, fmt.Errorf("%w: %q is required", ErrInvalidRequest, FieldIR)
	}
	switch v := raw.GetKind().(type) {
	case *structpb.Value_StringValue:
		req.IR = []byte(v.StringValue)
	case *structpb.Value_StructValue:
		data, err := protojson.Marshal(v.StructValue)
		if err != nil {
			return req, fmt.Errorf("protojson.Marshal: %w", err)
		}
		req.IR = data
	default:
		return req, fmt.Errorf("%w: %q must be a string or an object", ErrInvalidRequest, FieldIR)
	}

	opts, ok := s.GetFields()[FieldOptions]
	if !ok {
		return req, nil
	}
	o := opts.GetStructValue()
	if o == nil {
		return req, fmt.Errorf("%w: %q must be an object", ErrInvalidRequest, FieldOptions)
	}

	var err error
	fields := o.GetFields()
	if req.Options.Namespace, err = optionalString(fields, "namespace"); err != nil {
		return req, err
	}
	if req.Options.Subfolder, err = optionalString(fields, "subfolder"); err != nil {
		return req, err
	}
	if req.Options.Source, err = optionalString(fields, "source"); err != nil {
		return req, err
	}
	if req.Options.Runtime, err = optionalBool(fields, "runtime"); err != nil {
		return req, err
	}
	if req.Options.StrictRules, err = optionalBool(fields, "strict_rules"); err != nil {
		return req, err
	}
	if req.Options.RubocopDisable, err = optionalStrings(fields, "rubocop_disable"); err != nil {
		return req, err
	}
	if req.Options.FileIncludes, err = optionalStrings(fields, "file_includes"); err != nil {
		return req, err
	}
	return req, nil
}

func optionalString(fields map[string]*structpb.Value, name string) (string, error) {
	v, ok := fields[name]
	if !ok {
		return "", nil
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: option %q must be a string", ErrInvalidRequest, name)
	}
	return s.StringValue, nil
}

func optionalBool(fields map[string]*structpb.Value, name string) (*bool, error) {
	v, ok := fields[name]
	if !ok {
		return nil, nil
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return nil, fmt.Errorf("%w: option %q must be a boolean", ErrInvalidRequest, name)
	}
	return &b.BoolValue, nil
}

func optionalStrings(fields map[string]*structpb.Value, name string) ([]string, error) {
	v, ok := fields[name]
	if !ok {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("%w: option %q must be a list of strings", ErrInvalidRequest, name)
	}
	out := make([]string, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("%w: option %q must be a list of strings", ErrInvalidRequest, name)
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}

// FileRequestFromStruct разбирает запрос GetFile: {"id": ..., "path": ...}
func FileRequestFromStruct(s *structpb.Struct) (id, path string, err error) {
	fields := s.GetFields()
	if id, err = requiredString(fields, FieldID); err != nil {
		return "", "", err
	}
	if path, err = requiredString(fields, FieldPath); err != nil {
		return "", "", err
	}
	return id, path, nil
}

// CheckRequestFromStruct разбирает запрос Check: {"id", "validator", "input"}.
// Отсутствующий input равен nil.
//
// В google.protobuf.Value один числовой тип, поэтому целые значения
// возвращаются как int64, остальные как float64.
func CheckRequestFromStruct(s *structpb.Struct) (id, validator string, input any, err error) {
	fields := s.GetFields()
	if id, err = requiredString(fields, FieldID); err != nil {
		return "", "", nil, err
	}
	if validator, err = requiredString(fields, FieldValidator); err != nil {
		return "", "", nil, err
	}
	if v, ok := fields[FieldInput]; ok {
		input = integral(v.AsInterface())
	}
	return id, validator, input, nil
}

// integral заменяет целые float64 на int64 во всем дереве значения.
func integral(v any) any {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x)
		}
		return x
	case map[string]any:
		for k, item := range x {
			x[k] = integral(item)
		}
		return x
	case []any:
		for i, item := range x {
			x[i] = integral(item)
		}
		return x
	}
	return v
}

func requiredString(fields map[string]*structpb.Value, name string) (string, error) {
	s, err := optionalString(fields, name)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("%w: %q is required", ErrInvalidRequest, name)
	}
	return s, nil
}

// CompilationToStruct конвертирует компиляцию в ответ
func CompilationToStruct(c model.Compilation) (*structpb.Struct, error) {
	return structpb.NewStruct(compilationMap(c))
}

// CompilationsToStruct конвертирует список компиляций в {"compilations": [...]}
func CompilationsToStruct(cs []model.Compilation) (*structpb.Struct, error) {
	items := make([]any, len(cs))
	for i, c := range cs {
		items[i] = compilationMap(c)
	}
	return structpb.NewStruct(map[string]any{"compilations": items})
}

func compilationMap(c model.Compilation) map[string]any {
	files := make([]any, len(c.Files))
	for i, f := range c.Files {
		files[i] = map[string]any{FieldPath: f.Path, "contents": f.Contents}
	}
	validators := make([]any, len(c.Validators))
	for i, v := range c.Validators {
		validators[i] = v
	}

	out := map[string]any{
		FieldID:      c.ID,
		"title":      c.Title,
		"files":      files,
		"validators": validators,
	}
	if !c.CreatedAt.IsZero() {
		out["created_at"] = c.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return out
}

// ErrorRecordsToStruct конвертирует результат Check в {"errors": [...]}
func ErrorRecordsToStruct(errs []guard.ErrorRecord) (*structpb.Struct, error) {
	items := make([]any, len(errs))
	for i, e := range errs {
		items[i] = map[string]any{"code": e.Code, "title": e.Title, "path": e.Path}
	}
	return structpb.NewStruct(map[string]any{"errors": items})
}

// FileToHTTPBody конвертирует файл в HttpBody с типом text/x-ruby
func FileToHTTPBody(f model.GeneratedFile) *httpbody.HttpBody {
	return &httpbody.HttpBody{
		ContentType: RubyContentType,
		Data:        []byte(f.Contents),
	}
}
