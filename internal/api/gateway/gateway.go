// Package gateway публикует CompilerService по HTTP через grpc-gateway.
//
// Маршруты регистрируются на runtime.ServeMux через HandlePath и проксируют
// вызовы в gRPC сервер:
//
//	POST /v1/compile                              Compile (YAML/JSON IR или {"ir", "options"})
//	GET  /v1/compilations                         ListCompilations
//	GET  /v1/compilations/{id}                    GetCompilation
//	GET  /v1/compilations/{id}/files/{path=**}    GetFile (text/x-ruby)
//	POST /v1/compilations/{id}/check              Check ({"validator", "input"})
//	GET  /v1/watch/compilations                   WatchCompilations (NDJSON или WebSocket)
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/tmc/grpc-websocket-proxy/wsproxy"
	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	grpcapi "sorbet-validators/internal/api/grpc"
	"sorbet-validators/internal/api/http/middleware"
	"sorbet-validators/internal/config"
	"sorbet-validators/internal/converter"
)

// maxBodySize ограничивает размер тела запроса
const maxBodySize = 8 << 20

// Client - методы CompilerService, которые проксирует gateway
type Client interface {
	Compile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetCompilation(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListCompilations(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetFile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*httpbody.HttpBody, error)
	Check(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	WatchCompilations(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error)
}

var _ Client = (*grpcapi.CompilerClient)(nil)

type gateway struct {
	mux    *runtime.ServeMux
	client Client
}

// call выполняет один унарный вызов; opts передают заголовки и трейлеры ответа
type call func(ctx context.Context, r *http.Request, params map[string]string, inbound runtime.Marshaler, opts ...grpc.CallOption) (proto.Message, error)

// NewMux создает runtime.ServeMux с маршрутами CompilerService.
//
// Заголовки Authorization и X-Request-Id передаются в gRPC metadata, чтобы
// их видели интерцепторы на gRPC сервере.
func NewMux(client Client) (*runtime.ServeMux, error) {
	gwMux := runtime.NewServeMux(
		runtime.WithMetadata(func(ctx context.Context, req *http.Request) metadata.MD {
			md := metadata.New(nil)
			if auth := req.Header.Get("Authorization"); auth != "" {
				md.Set("authorization", auth)
			}
			if id := req.Header.Get(middleware.RequestIDHeader); id != "" {
				md.Set("x-request-id", id)
			}
			return md
		}),
	)
	g := &gateway{mux: gwMux, client: client}

	routes := []struct {
		method  string
		pattern string
		rpc     string
	}{
		{http.MethodPost, "/v1/compile", grpcapi.FullMethodCompile},
		{http.MethodGet, "/v1/compilations", grpcapi.FullMethodListCompilations},
		{http.MethodGet, "/v1/compilations/{id}", grpcapi.FullMethodGetCompilation},
		{http.MethodGet, "/v1/compilations/{id}/files/{path=**}", grpcapi.FullMethodGetFile},
		{http.MethodPost, "/v1/compilations/{id}/check", grpcapi.FullMethodCheck},
		{http.MethodGet, "/v1/watch/compilations", grpcapi.FullMethodWatchCompilations},
	}
	calls := map[string]call{
		grpcapi.FullMethodCompile:          g.compile,
		grpcapi.FullMethodListCompilations: g.listCompilations,
		grpcapi.FullMethodGetCompilation:   g.getCompilation,
		grpcapi.FullMethodGetFile:          g.getFile,
		grpcapi.FullMethodCheck:            g.check,
	}

	for _, rt := range routes {
		var h runtime.HandlerFunc
		if c, ok := calls[rt.rpc]; ok {
			h = g.unary(rt.rpc, rt.pattern, c)
		} else {
			h = g.watch(rt.pattern)
		}
		if err := gwMux.HandlePath(rt.method, rt.pattern, h); err != nil {
			return nil, fmt.Errorf("HandlePath %s %s: %w", rt.method, rt.pattern, err)
		}
	}
	return gwMux, nil
}

// unary оборачивает вызов в обработку метаданных и ошибок grpc-gateway
func (g *gateway) unary(rpc, pattern string, c call) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		inbound, outbound := runtime.MarshalerForRequest(g.mux, r)

		annotated, err := runtime.AnnotateContext(ctx, g.mux, r, rpc, runtime.WithHTTPPathPattern(pattern))
		if err != nil {
			runtime.HTTPError(ctx, g.mux, outbound, w, r, err)
			return
		}

		var md runtime.ServerMetadata
		resp, err := c(annotated, r, params, inbound, grpc.Header(&md.HeaderMD), grpc.Trailer(&md.TrailerMD))
		annotated = runtime.NewServerMetadataContext(annotated, md)
		if err != nil {
			runtime.HTTPError(annotated, g.mux, outbound, w, r, err)
			return
		}

		runtime.ForwardResponseMessage(annotated, g.mux, outbound, w, r, resp)
	}
}

// watch проксирует серверный стрим как newline-delimited JSON
func (g *gateway) watch(pattern string) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		_, outbound := runtime.MarshalerForRequest(g.mux, r)

		annotated, err := runtime.AnnotateContext(ctx, g.mux, r, grpcapi.FullMethodWatchCompilations, runtime.WithHTTPPathPattern(pattern))
		if err != nil {
			runtime.HTTPError(ctx, g.mux, outbound, w, r, err)
			return
		}

		stream, err := g.client.WatchCompilations(annotated, &emptypb.Empty{})
		if err != nil {
			runtime.HTTPError(annotated, g.mux, outbound, w, r, err)
			return
		}
		header, err := stream.Header()
		if err != nil {
			runtime.HTTPError(annotated, g.mux, outbound, w, r, err)
			return
		}
		annotated = runtime.NewServerMetadataContext(annotated, runtime.ServerMetadata{HeaderMD: header})

		runtime.ForwardResponseStream(annotated, g.mux, outbound, w, r, func() (proto.Message, error) {
			return stream.Recv()
		})
	}
}

func (g *gateway) compile(ctx context.Context, r *http.Request, _ map[string]string, _ runtime.Marshaler, opts ...grpc.CallOption) (proto.Message, error) {
	req, err := compileRequest(r)
	if err != nil {
		return nil, err
	}
	return g.client.Compile(ctx, req, opts...)
}

func (g *gateway) listCompilations(ctx context.Context, _ *http.Request, _ map[string]string, _ runtime.Marshaler, opts ...grpc.CallOption) (proto.Message, error) {
	return g.client.ListCompilations(ctx, &emptypb.Empty{}, opts...)
}

func (g *gateway) getCompilation(ctx context.Context, _ *http.Request, params map[string]string, _ runtime.Marshaler, opts ...grpc.CallOption) (proto.Message, error) {
	return g.client.GetCompilation(ctx, wrapperspb.String(params["id"]), opts...)
}

func (g *gateway) getFile(ctx context.Context, _ *http.Request, params map[string]string, _ runtime.Marshaler, opts ...grpc.CallOption) (proto.Message, error) {
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		converter.FieldID:   structpb.NewStringValue(params["id"]),
		converter.FieldPath: structpb.NewStringValue(params["path"]),
	}}
	return g.client.GetFile(ctx, req, opts...)
}

func (g *gateway) check(ctx context.Context, r *http.Request, params map[string]string, inbound runtime.Marshaler, opts ...grpc.CallOption) (proto.Message, error) {
	req := &structpb.Struct{}
	if err := inbound.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(req); err != nil && !errors.Is(err, io.EOF) {
		return nil, status.Errorf(codes.InvalidArgument, "decode body: %v", err)
	}
	if req.Fields == nil {
		req.Fields = map[string]*structpb.Value{}
	}
	req.Fields[converter.FieldID] = structpb.NewStringValue(params["id"])
	return g.client.Check(ctx, req, opts...)
}

// compileRequest строит запрос Compile из тела HTTP запроса.
//
// JSON с полем "ir" передается как есть. Любое другое тело (YAML, JSON без
// "ir") считается самим IR, а опции берутся из query: namespace, subfolder,
// source, runtime, strict_rules.
func compileRequest(r *http.Request) (*structpb.Struct, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "read body: %v", err)
	}

	if isJSON(r.Header.Get("Content-Type")) {
		req := &structpb.Struct{}
		if err := protojson.Unmarshal(body, req); err == nil {
			if _, ok := req.Fields[converter.FieldIR]; ok {
				return req, nil
			}
		}
	}

	options := map[string]*structpb.Value{}
	q := r.URL.Query()
	for _, name := range []string{"namespace", "subfolder", "source"} {
		if v := q.Get(name); v != "" {
			options[name] = structpb.NewStringValue(v)
		}
	}
	for _, name := range []string{"runtime", "strict_rules"} {
		if v := q.Get(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, status.Errorf(codes.InvalidArgument, "query parameter %q: %v", name, err)
			}
			options[name] = structpb.NewBoolValue(b)
		}
	}

	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		converter.FieldIR: structpb.NewStringValue(string(body)),
	}}
	if len(options) > 0 {
		req.Fields[converter.FieldOptions] = structpb.NewStructValue(&structpb.Struct{Fields: options})
	}
	return req, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && (mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"))
}

// NewHandler собирает HTTP handler: маршруты и middleware.
//
// Порядок (снаружи внутрь): WebSocket proxy → CORS → Logging → Rate Limiting → mux.
func NewHandler(client Client, cfg *config.ConfigGateway, log logrus.FieldLogger) (http.Handler, error) {
	gwMux, err := NewMux(client)
	if err != nil {
		return nil, err
	}

	var handler http.Handler = gwMux
	handler = middleware.RateLimit(handler, cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	handler = middleware.Logging(handler, log)
	handler = setupCORS(cfg).Handler(handler)
	// WebSocket proxy самый внешний, чтобы корректно обрабатывать upgrade
	handler = wsproxy.WebsocketProxy(handler)
	return handler, nil
}

// Setup подключается к gRPC серверу и обслуживает HTTP до отмены ctx
func Setup(ctx context.Context, grpcAddr, httpAddr string, cfg *config.ConfigGateway, log logrus.FieldLogger) error {
	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("grpc.NewClient: %w", err)
	}
	defer conn.Close()

	handler, err := NewHandler(grpcapi.NewCompilerClient(conn), cfg, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("HTTP gateway shutdown")
		}
	}()

	log.WithFields(logrus.Fields{
		"addr":         httpAddr,
		"cors_origins": cfg.CORSAllowedOrigins,
	}).Info("HTTP gateway listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// setupCORS настраивает CORS middleware используя конфигурацию
func setupCORS(cfg *config.ConfigGateway) *cors.Cors {
	origins := strings.Split(cfg.CORSAllowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	maxAge := cfg.CORSMaxAge
	if maxAge == 0 {
		maxAge = 86400
	}

	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
			"X-Requested-With",
			middleware.RequestIDHeader,
		},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           maxAge,
	})
}
