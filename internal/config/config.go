package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix префикс переменных окружения, переопределяющих конфигурацию
const EnvPrefix = "SORBET_VALIDATORS"

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnvWithDefaults расширяет переменные окружения с поддержкой дефолтных значений
// Формат: ${VAR:-default}
func expandEnvWithDefaults(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		matches := envPattern.FindStringSubmatch(match)
		if len(matches) < 2 {
			return match
		}

		varName := matches[1]
		defaultValue := ""
		if len(matches) > 2 {
			defaultValue = matches[2]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}

// InitConfig читает конфигурационный файл и возвращает экземпляр конфигурации
// Использует generic для работы с произвольным типом конфигурации.
// Пустой configFile означает "только defaults и переменные окружения".
func InitConfig[C any](configFile string, defaults map[string]any) (*C, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	// SORBET_VALIDATORS_SORBET_RUNTIME=false переопределяет sorbet.runtime
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		ext := strings.TrimLeft(filepath.Ext(configFile), ".")
		v.SetConfigFile(configFile)
		v.SetConfigType(ext)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("v.ReadInConfig: %w", err)
		}
	}

	// Заменяем переменные окружения формата ${VAR:-default} на их значения
	for _, k := range v.AllKeys() {
		raw, ok := v.Get(k).(string)
		if !ok || raw == "" || !strings.Contains(raw, "${") {
			continue
		}
		expanded := expandEnvWithDefaults(raw)

		// Если значение выглядит как число или boolean, пытаемся распарсить
		if expanded == "true" || expanded == "false" {
			boolValue, _ := strconv.ParseBool(expanded)
			v.Set(k, boolValue)
		} else if intValue, err := strconv.Atoi(expanded); err == nil {
			v.Set(k, intValue)
		} else {
			v.Set(k, expanded)
		}
	}

	cfg := new(C)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("v.Unmarshal: %w", err)
	}

	return cfg, nil
}

// Load загружает основную конфигурацию приложения.
func Load(configFile string) (*Config, error) {
	cfg, err := InitConfig[Config](configFile, Defaults)
	if err != nil {
		return nil, err
	}
	cfg.fillSections()
	return cfg, nil
}

// fillSections гарантирует, что все секции не nil.
func (c *Config) fillSections() {
	if c.Logger == nil {
		c.Logger = &ConfigLogger{}
	}
	if c.Basketry == nil {
		c.Basketry = &ConfigBasketry{}
	}
	if c.Sorbet == nil {
		c.Sorbet = &ConfigSorbet{}
	}
	if c.IR == nil {
		c.IR = &ConfigIR{StrictRules: true}
	}
	if c.Server == nil {
		c.Server = &ConfigServer{}
	}
	if c.Gateway == nil {
		c.Gateway = &ConfigGateway{}
	}
}
