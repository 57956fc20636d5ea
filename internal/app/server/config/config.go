package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath  = ".env"
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Config конфигурация сервера-хаба
type Config struct {
	Env      string
	DB       db
	Server   server
	Logger   logger
	Dispatch dispatch
	Pricing  pricing
}

type db struct {
	DatabaseURI string `env:"DATABASE_URI"`
	Migrations  string `env:"MIGRATIONS_PATH"`
}

type server struct {
	RunAddress string `env:"RUN_ADDRESS"`
}

type logger struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// dispatch настройки координатора доставки
type dispatch struct {
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	MaxAttempts   int
	WindowSize    int
	PollInterval  time.Duration
	AckTimeout    time.Duration
	SnowflakeNode int64
}

// pricing настройки сервиса ценообразования
type pricing struct {
	VarianceAlertPct float64
}

// MustLoad загружает конфигурацию из .env и переменных окружения.
// Отсутствие .env не фатально — полагаемся на окружение.
func MustLoad() *Config {
	if err := godotenv.Load(envPath); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	viper.AutomaticEnv()
	viper.SetDefault("run_address", ":8080")
	viper.SetDefault("app_env", EnvLocal)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("migrations_path", "migrations")
	viper.SetDefault("dispatch_base_delay", "1s")
	viper.SetDefault("dispatch_max_delay", "30s")
	viper.SetDefault("dispatch_max_attempts", 5)
	viper.SetDefault("dispatch_window_size", 50)
	viper.SetDefault("dispatch_poll_interval", "500ms")
	viper.SetDefault("dispatch_ack_timeout", "5s")
	viper.SetDefault("snowflake_node", 1)
	viper.SetDefault("pricing_variance_alert_pct", 25.0)

	config := Config{
		Env: viper.GetString("app_env"),
		DB: db{
			DatabaseURI: viper.GetString("database_uri"),
			Migrations:  viper.GetString("migrations_path"),
		},
		Server: server{RunAddress: viper.GetString("run_address")},
		Logger: logger{LogLevel: viper.GetString("log_level")},
		Dispatch: dispatch{
			BaseDelay:     viper.GetDuration("dispatch_base_delay"),
			MaxDelay:      viper.GetDuration("dispatch_max_delay"),
			MaxAttempts:   viper.GetInt("dispatch_max_attempts"),
			WindowSize:    viper.GetInt("dispatch_window_size"),
			PollInterval:  viper.GetDuration("dispatch_poll_interval"),
			AckTimeout:    viper.GetDuration("dispatch_ack_timeout"),
			SnowflakeNode: viper.GetInt64("snowflake_node"),
		},
		Pricing: pricing{
			VarianceAlertPct: viper.GetFloat64("pricing_variance_alert_pct"),
		},
	}

	return &config
}
