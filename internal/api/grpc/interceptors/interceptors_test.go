package interceptors

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var info = &grpc.UnaryServerInfo{FullMethod: "/sorbetvalidators.v1.CompilerService/Compile"}

func okHandler(ctx context.Context, req interface{}) (interface{}, error) {
	return "ok", nil
}

func withAuth(value string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", value))
}

func TestAuthUnaryInterceptor(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		ctx      context.Context
		wantCode codes.Code
	}{
		{"disabled", "", context.Background(), codes.OK},
		{"valid token", "secret", withAuth("Bearer secret"), codes.OK},
		{"no metadata", "secret", context.Background(), codes.Unauthenticated},
		{"no header", "secret", metadata.NewIncomingContext(context.Background(), metadata.MD{}), codes.Unauthenticated},
		{"wrong scheme", "secret", withAuth("Basic secret"), codes.Unauthenticated},
		{"wrong token", "secret", withAuth("Bearer other"), codes.Unauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := AuthUnaryInterceptor(tt.token)(tt.ctx, nil, info, okHandler)
			assert.Equal(t, tt.wantCode, status.Code(err))
			if tt.wantCode == codes.OK {
				assert.Equal(t, "ok", resp)
			}
		})
	}
}

type fakeStream struct {
	grpc.ServerStream
	ctx  context.Context
	sent []interface{}
}

func (f *fakeStream) Context() context.Context { return f.ctx }

func (f *fakeStream) SendMsg(m interface{}) error {
	f.sent = append(f.sent, m)
	return nil
}

func TestAuthStreamInterceptor(t *testing.T) {
	streamInfo := &grpc.StreamServerInfo{FullMethod: "/sorbetvalidators.v1.CompilerService/WatchCompilations"}
	called := false
	handler := func(srv interface{}, ss grpc.ServerStream) error {
		called = true
		return nil
	}

	err := AuthStreamInterceptor("secret")(nil, &fakeStream{ctx: context.Background()}, streamInfo, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.False(t, called)

	err = AuthStreamInterceptor("secret")(nil, &fakeStream{ctx: withAuth("Bearer secret")}, streamInfo, handler)
	assert.NoError(t, err)
	assert.True(t, called)
}

func TestLoggerUnaryInterceptor(t *testing.T) {
	log, hook := test.NewNullLogger()

	_, err := LoggerUnaryInterceptor(log)(context.Background(), nil, info, okHandler)
	require.NoError(t, err)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "request completed", hook.LastEntry().Message)
	assert.Equal(t, info.FullMethod, hook.LastEntry().Data["method"])

	failing := func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "compilation not found")
	}
	_, err = LoggerUnaryInterceptor(log)(context.Background(), nil, info, failing)
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "NotFound", hook.LastEntry().Data["code"])
}

func TestStreamInterceptor(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	streamInfo := &grpc.StreamServerInfo{FullMethod: "/sorbetvalidators.v1.CompilerService/WatchCompilations"}

	ss := &fakeStream{ctx: context.Background()}
	err := StreamInterceptor(log)(nil, ss, streamInfo, func(srv interface{}, stream grpc.ServerStream) error {
		return stream.SendMsg("event")
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"event"}, ss.sent)
	assert.Equal(t, "stream completed", hook.LastEntry().Message)

	err = StreamInterceptor(log)(nil, ss, streamInfo, func(srv interface{}, stream grpc.ServerStream) error {
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, "stream failed", hook.LastEntry().Message)
}
