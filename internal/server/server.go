// Package server собирает приложение: репозиторий, сервис компиляции,
// gRPC сервер и HTTP gateway, и управляет их жизненным циклом.
package server

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"sorbet-validators/internal/api/gateway"
	grpcapi "sorbet-validators/internal/api/grpc"
	"sorbet-validators/internal/config"
	"sorbet-validators/internal/generator"
	"sorbet-validators/internal/repository"
	"sorbet-validators/internal/repository/memory"
	"sorbet-validators/internal/repository/sqlstore"
	"sorbet-validators/internal/service/compiler"
)

// Server представляет сервер приложения с gRPC и HTTP Gateway
type Server struct {
	// HTTP компоненты
	HTTPAddr      string
	GatewayCtx    context.Context
	GatewayCancel context.CancelFunc

	// gRPC компоненты
	GRPCServer *grpc.Server
	Listener   net.Listener

	// Контекст сервера для graceful shutdown стримов.
	// Отменяется при shutdown до GracefulStop: стримы слушают его явно.
	Ctx    context.Context
	Cancel context.CancelFunc

	// DB открыта, если задан server.database_url
	DB *sqlx.DB

	// Feed - лента завершенных компиляций для WatchCompilations
	Feed *compiler.Feed

	Config *config.Config
	Log    logrus.FieldLogger
}

// NewServer создает сервер и открывает listener для gRPC.
// Порт 0 означает свободный порт, выбранный системой.
func NewServer(cfg *config.Config, log logrus.FieldLogger) (*Server, error) {
	if cfg.Server == nil || cfg.Gateway == nil {
		return nil, fmt.Errorf("server and gateway config sections are required")
	}

	grpcAddr := "0.0.0.0:" + strconv.Itoa(cfg.Server.PortGRPC)
	httpAddr := "0.0.0.0:" + strconv.Itoa(cfg.Server.PortHTTP)

	listener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", grpcAddr, err)
	}

	serverCtx, serverCancel := context.WithCancel(context.Background())
	gatewayCtx, gatewayCancel := context.WithCancel(context.Background())

	return &Server{
		HTTPAddr:      httpAddr,
		GatewayCtx:    gatewayCtx,
		GatewayCancel: gatewayCancel,
		Listener:      listener,
		Ctx:           serverCtx,
		Cancel:        serverCancel,
		Config:        cfg,
		Log:           log,
	}, nil
}

// GRPCAddr - фактический адрес gRPC listener
func (s *Server) GRPCAddr() string {
	return s.Listener.Addr().String()
}

// Initialize инициализирует компоненты сервера (Repository → Service → Handler)
func (s *Server) Initialize() error {
	repo, err := s.repository()
	if err != nil {
		return err
	}

	strict := s.Config.IR != nil && s.Config.IR.StrictRules
	s.Feed = compiler.NewFeed(compiler.DefaultFeedBuffer, s.Log)
	compilerSvc := compiler.NewCompilerService(
		repo,
		s.Feed,
		compiler.Defaults{Generator: generator.FromConfig(s.Config), StrictRules: strict},
		s.Log,
	)
	s.Log.Debug("initialized compiler service")

	handler := grpcapi.NewHandler(compilerSvc, s.Ctx, s.Log)

	s.GRPCServer = grpcapi.NewServer(handler, s.Config.Server, s.Log)
	return nil
}

// repository выбирает хранилище: база по server.database_url или память
func (s *Server) repository() (repository.CompilationRepository, error) {
	limit := s.Config.Server.MaxCompilations
	if s.Config.Server.DatabaseURL == "" {
		s.Log.WithField("max_compilations", limit).Debug("initialized in-memory repository")
		return memory.NewRepository(limit), nil
	}

	db, err := sqlstore.Open(s.Config.Server.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := sqlstore.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore.MigrateUp: %w", err)
	}
	repo, err := sqlstore.NewRepository(db, limit)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore.NewRepository: %w", err)
	}
	s.DB = db
	s.Log.WithFields(logrus.Fields{
		"driver":           db.DriverName(),
		"max_compilations": limit,
	}).Info("initialized database repository")
	return repo, nil
}

// Start запускает gRPC и HTTP Gateway серверы в горутинах.
// Возвращает канал ошибок серверов.
func (s *Server) Start() <-chan error {
	errChan := make(chan error, 2)

	go func() {
		s.Log.WithField("addr", s.GRPCAddr()).Info("gRPC server listening")
		if err := s.GRPCServer.Serve(s.Listener); err != nil {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// Gateway подключается по loopback, даже если gRPC слушает 0.0.0.0
	_, port, _ := net.SplitHostPort(s.GRPCAddr())
	grpcAddr := net.JoinHostPort("localhost", port)

	go func() {
		if err := gateway.Setup(s.GatewayCtx, grpcAddr, s.HTTPAddr, s.Config.Gateway, s.Log); err != nil {
			errChan <- fmt.Errorf("HTTP Gateway error: %w", err)
		}
	}()

	return errChan
}

// Shutdown выполняет graceful shutdown сервера
func (s *Server) Shutdown() error {
	s.Log.Info("starting graceful shutdown")

	// Сначала контекст стримов, иначе GracefulStop ждет их бесконечно
	s.Cancel()
	s.GatewayCancel()
	if s.Feed != nil {
		s.Feed.Close()
	}

	shutdownTimeout := time.Duration(s.Config.Server.GracefulShutdownTimeout) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		s.GRPCServer.GracefulStop()
		close(stopped)
	}()

	var err error
	select {
	case <-stopped:
		s.Log.Info("gRPC server stopped gracefully")
	case <-ctx.Done():
		s.Log.Warn("graceful shutdown timeout, forcing stop")
		s.GRPCServer.Stop()
		err = ctx.Err()
	}

	if s.DB != nil {
		if cerr := s.DB.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close database: %w", cerr)
		}
	}
	return err
}
