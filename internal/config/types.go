package config

// ConfigLogger настройки логирования
type ConfigLogger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json
}

// ConfigBasketry настройки расположения сгенерированных файлов
type ConfigBasketry struct {
	Subfolder string `mapstructure:"subfolder"`
}

// ConfigSorbet настройки генерации Ruby/Sorbet валидаторов
type ConfigSorbet struct {
	// Runtime включает проверки required/type в рантайме. nil означает true.
	Runtime          *bool    `mapstructure:"runtime"`
	RubocopDisable   []string `mapstructure:"rubocop_disable"`
	FileIncludes     []string `mapstructure:"file_includes"`
	Namespace        string   `mapstructure:"namespace"`
	TypesModule      string   `mapstructure:"types_module"`
	EnumsModule      string   `mapstructure:"enums_module"`
	InterfacesModule string   `mapstructure:"interfaces_module"`
}

// RuntimeChecks сообщает, нужно ли генерировать рантайм проверки.
func (c *ConfigSorbet) RuntimeChecks() bool {
	if c == nil || c.Runtime == nil {
		return true
	}
	return *c.Runtime
}

// ConfigIR настройки загрузки IR
type ConfigIR struct {
	StrictRules bool `mapstructure:"strict_rules"`
}

// ConfigServer настройки сервера
type ConfigServer struct {
	UseReflection           bool   `mapstructure:"use_reflection"`
	PortGRPC                int    `mapstructure:"port_grpc"`
	PortHTTP                int    `mapstructure:"port_http"`
	AuthToken               string `mapstructure:"auth_token"`
	GracefulShutdownTimeout int    `mapstructure:"graceful_shutdown_timeout"`
	// MaxCompilations - сколько компиляций хранить, 0 без ограничения
	MaxCompilations int `mapstructure:"max_compilations"`
	// DatabaseURL - sqlite://... или postgres://...; пусто - хранить в памяти
	DatabaseURL string `mapstructure:"database_url"`
}

// ConfigGateway настройки HTTP Gateway
type ConfigGateway struct {
	CORSAllowedOrigins string `mapstructure:"cors_allowed_origins"`
	CORSMaxAge         int    `mapstructure:"cors_max_age"`
	RateLimitRPS       int    `mapstructure:"rate_limit_rps"`
	RateLimitBurst     int    `mapstructure:"rate_limit_burst"`
}

// Config основная структура конфигурации
type Config struct {
	Logger   *ConfigLogger   `mapstructure:"logger"`
	Basketry *ConfigBasketry `mapstructure:"basketry"`
	Sorbet   *ConfigSorbet   `mapstructure:"sorbet"`
	IR       *ConfigIR       `mapstructure:"ir"`
	Server   *ConfigServer   `mapstructure:"server"`
	Gateway  *ConfigGateway  `mapstructure:"gateway"`
}

// Defaults значения по умолчанию, применяемые до чтения файла
var Defaults = map[string]any{
	"logger.level":                     "info",
	"logger.format":                    "text",
	"basketry.subfolder":               "",
	"sorbet.runtime":                   true,
	"sorbet.types_module":              "Types",
	"sorbet.enums_module":              "Enums",
	"sorbet.interfaces_module":         "Interfaces",
	"ir.strict_rules":                  true,
	"server.use_reflection":            true,
	"server.port_grpc":                 50051,
	"server.port_http":                 8080,
	"server.graceful_shutdown_timeout": 10,
	"server.max_compilations":          100,
	"server.database_url":              "",
	"gateway.cors_allowed_origins":     "*",
	"gateway.cors_max_age":             86400,
	"gateway.rate_limit_rps":           100,
	"gateway.rate_limit_burst":         10,
}
