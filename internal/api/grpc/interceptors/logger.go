package interceptors

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// LoggerUnaryInterceptor возвращает интерцептор, который логирует каждый запрос:
// метод, код ответа и время выполнения хендлера.
func LoggerUnaryInterceptor(log logrus.FieldLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		entry := log.WithField("method", info.FullMethod)
		entry.Debug("incoming request")

		start := time.Now()
		resp, err := handler(ctx, req)
		entry = entry.WithField("duration", time.Since(start))

		if err != nil {
			st, _ := status.FromError(err)
			entry.WithFields(logrus.Fields{
				"code":  st.Code().String(),
				"error": st.Message(),
			}).Warn("request failed")
			return resp, err
		}

		entry.Info("request completed")
		return resp, nil
	}
}
