package grpc

import (
	"context"

	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName - полное имя gRPC сервиса
const ServiceName = "sorbetvalidators.v1.CompilerService"

// Полные имена методов CompilerService
const (
	FullMethodCompile           = "/" + ServiceName + "/Compile"
	FullMethodGetCompilation    = "/" + ServiceName + "/GetCompilation"
	FullMethodListCompilations  = "/" + ServiceName + "/ListCompilations"
	FullMethodGetFile           = "/" + ServiceName + "/GetFile"
	FullMethodCheck             = "/" + ServiceName + "/Check"
	FullMethodWatchCompilations = "/" + ServiceName + "/WatchCompilations"
)

// CompilerServiceServer - серверная сторона CompilerService.
//
// Сообщения - well-known types; формат полей Struct описан в пакете converter.
type CompilerServiceServer interface {
	Compile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCompilation(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ListCompilations(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetFile(context.Context, *structpb.Struct) (*httpbody.HttpBody, error)
	Check(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchCompilations(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
}

// RegisterCompilerServiceServer регистрирует реализацию на gRPC сервере
func RegisterCompilerServiceServer(s grpc.ServiceRegistrar, srv CompilerServiceServer) {
	s.RegisterService(&CompilerService_ServiceDesc, srv)
}

// unary строит grpc.MethodHandler для унарного метода с запросом типа Req.
func unary[Req any, Res any](fullMethod string, call func(CompilerServiceServer, context.Context, *Req) (Res, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CompilerServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CompilerServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchCompilationsHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(CompilerServiceServer).WatchCompilations(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

// CompilerService_ServiceDesc - описание сервиса для grpc.ServiceRegistrar
var CompilerService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CompilerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Compile",
			Handler:    unary(FullMethodCompile, CompilerServiceServer.Compile),
		},
		{
			MethodName: "GetCompilation",
			Handler:    unary(FullMethodGetCompilation, CompilerServiceServer.GetCompilation),
		},
		{
			MethodName: "ListCompilations",
			Handler:    unary(FullMethodListCompilations, CompilerServiceServer.ListCompilations),
		},
		{
			MethodName: "GetFile",
			Handler:    unary(FullMethodGetFile, CompilerServiceServer.GetFile),
		},
		{
			MethodName: "Check",
			Handler:    unary(FullMethodCheck, CompilerServiceServer.Check),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchCompilations",
			Handler:       watchCompilationsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "sorbetvalidators/v1/compiler.proto",
}

// CompilerClient - клиент CompilerService поверх grpc.ClientConnInterface
type CompilerClient struct {
	cc grpc.ClientConnInterface
}

// NewCompilerClient создает клиента
func NewCompilerClient(cc grpc.ClientConnInterface) *CompilerClient {
	return &CompilerClient{cc: cc}
}

// Compile вызывает CompilerService.Compile
func (c *CompilerClient) Compile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethodCompile, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCompilation вызывает CompilerService.GetCompilation
func (c *CompilerClient) GetCompilation(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethodGetCompilation, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCompilations вызывает CompilerService.ListCompilations
func (c *CompilerClient) ListCompilations(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethodListCompilations, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetFile вызывает CompilerService.GetFile
func (c *CompilerClient) GetFile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*httpbody.HttpBody, error) {
	out := new(httpbody.HttpBody)
	if err := c.cc.Invoke(ctx, FullMethodGetFile, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Check вызывает CompilerService.Check
func (c *CompilerClient) Check(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethodCheck, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// WatchCompilations открывает стрим завершенных компиляций
func (c *CompilerClient) WatchCompilations(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &CompilerService_ServiceDesc.Streams[0], FullMethodWatchCompilations, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
