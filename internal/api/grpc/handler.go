package grpc

import (
	"context"

	"github.com/sirupsen/logrus"
	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"sorbet-validators/internal/converter"
	svc "sorbet-validators/internal/service"
)

var _ CompilerServiceServer = (*Handler)(nil)

// Handler реализует gRPC сервер для CompilerService
type Handler struct {
	compiler svc.CompilerService
	// serverCtx отменяется при shutdown, чтобы завершить стримы
	serverCtx context.Context
	log       logrus.FieldLogger
}

// NewHandler создает новый экземпляр gRPC хэндлера
func NewHandler(compiler svc.CompilerService, serverCtx context.Context, log logrus.FieldLogger) *Handler {
	return &Handler{
		compiler:  compiler,
		serverCtx: serverCtx,
		log:       log,
	}
}

// Compile генерирует валидаторы по IR из запроса
func (h *Handler) Compile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := converter.CompileRequestFromStruct(req)
	if err != nil {
		return nil, handleError(err)
	}

	c, err := h.compiler.Compile(ctx, in)
	if err != nil {
		return nil, handleError(err)
	}

	out, err := converter.CompilationToStruct(c)
	if err != nil {
		return nil, handleError(err)
	}
	return out, nil
}

// GetCompilation возвращает компиляцию по ID
func (h *Handler) GetCompilation(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	c, err := h.compiler.Get(ctx, req.GetValue())
	if err != nil {
		return nil, handleError(err)
	}

	out, err := converter.CompilationToStruct(c)
	if err != nil {
		return nil, handleError(err)
	}
	return out, nil
}

// ListCompilations возвращает все сохраненные компиляции
func (h *Handler) ListCompilations(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	cs, err := h.compiler.List(ctx)
	if err != nil {
		return nil, handleError(err)
	}

	out, err := converter.CompilationsToStruct(cs)
	if err != nil {
		return nil, handleError(err)
	}
	return out, nil
}

// GetFile возвращает содержимое одного сгенерированного файла
func (h *Handler) GetFile(ctx context.Context, req *structpb.Struct) (*httpbody.HttpBody, error) {
	id, path, err := converter.FileRequestFromStruct(req)
	if err != nil {
		return nil, handleError(err)
	}

	f, err := h.compiler.File(ctx, id, path)
	if err != nil {
		return nil, handleError(err)
	}
	return converter.FileToHTTPBody(f), nil
}

// Check выполняет валидатор компиляции над input без Ruby
func (h *Handler) Check(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, validator, input, err := converter.CheckRequestFromStruct(req)
	if err != nil {
		return nil, handleError(err)
	}

	errs, err := h.compiler.Check(ctx, id, validator, input)
	if err != nil {
		return nil, handleError(err)
	}

	out, err := converter.ErrorRecordsToStruct(errs)
	if err != nil {
		return nil, handleError(err)
	}
	return out, nil
}

// WatchCompilations отправляет клиенту каждую завершенную компиляцию.
//
// Стрим завершается, когда клиент отключается или сервер начинает shutdown.
func (h *Handler) WatchCompilations(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ch := h.compiler.Subscribe()
	defer h.compiler.Unsubscribe(ch)

	// заголовки уходят сразу, не дожидаясь первого события
	if err := stream.SendHeader(metadata.MD{}); err != nil {
		return err
	}

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			h.log.Debug("watch client disconnected")
			return nil
		case <-h.serverCtx.Done():
			h.log.Debug("server shutdown, closing watch stream")
			return nil
		case c, ok := <-ch:
			if !ok {
				return nil
			}
			out, err := converter.CompilationToStruct(c)
			if err != nil {
				return handleError(err)
			}
			if err := stream.Send(out); err != nil {
				return err
			}
		}
	}
}
