// Package cmd содержит команды CLI sorbet-validators.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sorbet-validators/internal/config"
	"sorbet-validators/internal/logging"
)

// defaultEnvFile читается, если существует; явно указанный --env-file обязателен
const defaultEnvFile = ".env"

var (
	configFile string
	envFile    string
	logLevel   string
	logFormat  string

	// заполняются в PersistentPreRunE
	cfg *config.Config
	log *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sorbet-validators",
	Short: "Ruby/Sorbet validator generator",
	Long: `sorbet-validators turns a service description (IR) with validation rules
into Ruby guard-clause validators with Sorbet signatures.

Commands:
  generate  - write validators.rb and validation_error.rb
  check     - run a generated validator against JSON input without Ruby
  serve     - start the gRPC compile service and its HTTP gateway
  client    - talk to a running compile service`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", defaultEnvFile, "dotenv file loaded before the config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
}

// Execute запускает корневую команду.
func Execute() error {
	return rootCmd.Execute()
}

// setup загружает .env, конфигурацию и создает логгер; флаги переопределяют секцию logger.
func setup(cmd *cobra.Command, _ []string) error {
	if err := loadEnvFile(envFile); err != nil {
		return err
	}

	loaded, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		loaded.Logger.Level = logLevel
	}
	if logFormat != "" {
		loaded.Logger.Format = logFormat
	}

	logger, err := logging.NewWithOutput(loaded.Logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	cfg, log = loaded, logger
	return nil
}

// loadEnvFile не переопределяет уже заданные переменные окружения
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err != nil && path == defaultEnvFile && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}
