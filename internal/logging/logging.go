// Package logging создает logrus логгер по секции logger конфигурации.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"sorbet-validators/internal/config"
)

// New создает логгер, пишущий в stderr.
func New(cfg *config.ConfigLogger) (*logrus.Logger, error) {
	return NewWithOutput(cfg, os.Stderr)
}

// NewWithOutput создает логгер с уровнем и форматом из cfg.
//
// Параметры:
//   - cfg: секция logger (nil - уровень info, текстовый формат)
//   - out: куда писать записи
//
// Возвращает ошибку для неизвестного уровня или формата.
func NewWithOutput(cfg *config.ConfigLogger, out io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(out)

	level, format := "info", "text"
	if cfg != nil {
		if cfg.Level != "" {
			level = cfg.Level
		}
		if cfg.Format != "" {
			format = cfg.Format
		}
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logrus.ParseLevel: %w", err)
	}
	log.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return log, nil
}
