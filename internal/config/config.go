package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Binance  Binance  `mapstructure:"binance"`
	Bot      Bot      `mapstructure:"bot"`
	Stream   Stream   `mapstructure:"stream"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Binance holds the configuration for the Binance API.
type Binance struct {
	ApiKey         string  `mapstructure:"apiKey"`
	SecretKey      string  `mapstructure:"secretKey"`
	Testnet        bool    `mapstructure:"testnet"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Bot holds the configuration for the automated trading loop.
type Bot struct {
	TickInterval  int `mapstructure:"tick_interval"`  // seconds between iterations
	CandlePeriods int `mapstructure:"candle_periods"` // SMA window length
	StartupDelay  int `mapstructure:"startup_delay"`  // seconds to let schema init settle
}

// Stream holds the configuration for the price streaming hub.
type Stream struct {
	PushInterval int `mapstructure:"push_interval"` // seconds between price pushes
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("binance.rate_limit", 20)      // requests per second
	viper.SetDefault("binance.rate_limit_burst", 5) // burst size
	viper.SetDefault("bot.tick_interval", 60)
	viper.SetDefault("bot.candle_periods", 20)
	viper.SetDefault("bot.startup_delay", 2)
	viper.SetDefault("stream.push_interval", 5)
	viper.SetDefault("server.port", 3000)
	viper.SetDefault("database.dsn", "trades.db")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
