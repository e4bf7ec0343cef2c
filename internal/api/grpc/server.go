package grpc

import (
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"sorbet-validators/internal/api/grpc/interceptors"
	"sorbet-validators/internal/config"
)

// NewServer создает и настраивает gRPC сервер с интерцепторами.
//
// Порядок интерцепторов: Logger (логирует и отклоненные запросы) → Auth.
// Запросы - well-known типы; их содержимое проверяет сервис компиляции.
func NewServer(handler CompilerServiceServer, cfg *config.ConfigServer, log logrus.FieldLogger) *grpc.Server {
	grpcServer := grpc.NewServer(
		// Ограничиваем количество одновременных стримов
		grpc.MaxConcurrentStreams(25),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     30 * time.Minute,
			MaxConnectionAge:      1 * time.Hour,
			MaxConnectionAgeGrace: 5 * time.Second,
			Time:                  10 * time.Minute,
			Timeout:               20 * time.Second,
		}),
		grpc.ChainUnaryInterceptor(
			interceptors.LoggerUnaryInterceptor(log),
			interceptors.AuthUnaryInterceptor(cfg.AuthToken),
		),
		grpc.ChainStreamInterceptor(
			interceptors.StreamInterceptor(log),
			interceptors.AuthStreamInterceptor(cfg.AuthToken),
		),
	)

	RegisterCompilerServiceServer(grpcServer, handler)
	log.WithField("service", ServiceName).Info("registered gRPC service")

	// reflection для grpcurl/grpcui
	if cfg.UseReflection {
		reflection.Register(grpcServer)
		log.Info("enabled gRPC reflection")
	}

	return grpcServer
}
