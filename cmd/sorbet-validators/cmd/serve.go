package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sorbet-validators/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC compile service and HTTP gateway",
	Long: `Starts CompilerService on server.port_grpc and the HTTP gateway on
server.port_http. Compilations are kept in memory, or in SQLite/PostgreSQL
when server.database_url is set (at most server.max_compilations).
SIGINT or SIGTERM triggers a graceful shutdown.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("port-grpc", 50051, "gRPC server port")
	serveCmd.Flags().Int("port-http", 8080, "HTTP gateway port")
	serveCmd.Flags().String("auth-token", "", "bearer token required by the API (empty disables auth)")
	serveCmd.Flags().String("database-url", "", "store compilations in sqlite://... or postgres://... instead of memory")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if cmd.Flags().Changed("port-grpc") {
		cfg.Server.PortGRPC, _ = cmd.Flags().GetInt("port-grpc")
	}
	if cmd.Flags().Changed("port-http") {
		cfg.Server.PortHTTP, _ = cmd.Flags().GetInt("port-http")
	}
	if cmd.Flags().Changed("auth-token") {
		cfg.Server.AuthToken, _ = cmd.Flags().GetString("auth-token")
	}
	if cmd.Flags().Changed("database-url") {
		cfg.Server.DatabaseURL, _ = cmd.Flags().GetString("database-url")
	}

	srv, err := server.NewServer(cfg, log)
	if err != nil {
		return err
	}
	if err := srv.Initialize(); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"grpc": srv.GRPCAddr(),
		"http": srv.HTTPAddr,
		"auth": cfg.Server.AuthToken != "",
	}).Info("starting sorbet-validators")
	errChan := srv.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		_ = srv.Shutdown()
		return err
	case sig := <-sigChan:
		log.WithField("signal", sig.String()).Info("shutting down gracefully")
		return srv.Shutdown()
	}
}
