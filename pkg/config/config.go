package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Databases  DatabasesConfig
	Redis      RedisConfig
	Translator TranslatorConfig
	Sankey     SankeyConfig
	History    HistoryConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

// DatabasesConfig names the backing stores. The default store holds released
// datasets; the sandbox store holds work-in-progress datasets whose names
// carry SandboxPrefix.
type DatabasesConfig struct {
	DefaultPath   string
	SandboxPath   string
	SandboxPrefix string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	PlotTTL  int
}

type TranslatorConfig struct {
	CacheTTLHours int
}

type SankeyConfig struct {
	ColorsPath string
}

type HistoryConfig struct {
	MaxEntries int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/mexer")

	viper.SetEnvPrefix("MEXER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("databases.defaultPath", "./data/mexer.db")
	viper.SetDefault("databases.sandboxPath", "./data/sandbox.db")
	viper.SetDefault("databases.sandboxPrefix", "CL-")

	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.plotTTL", 3600)

	viper.SetDefault("translator.cacheTTLHours", 24)

	viper.SetDefault("sankey.colorsPath", "./config/sankey_colors.json")

	viper.SetDefault("history.maxEntries", 5)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
