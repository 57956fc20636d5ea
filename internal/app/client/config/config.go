package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultLogLevel      = "info"
	defaultEnv           = "local"
	defaultConfigDir     = ".storesync"
)

type Config struct {
	Env               string        `mapstructure:"app_env"`
	ServerAddress     string        `mapstructure:"server_address"`
	LogLevel          string        `mapstructure:"log_level"`
	StoreCode         string        `mapstructure:"store_code"`
	Actor             string        `mapstructure:"actor"`
	ConfigDir         string        `mapstructure:"config_dir"`
	DataPath          string        `mapstructure:"data_path"`
	ReconnectBase     time.Duration `mapstructure:"reconnect_base"`
	ReconnectMax      time.Duration `mapstructure:"reconnect_max"`
	EnableTLS         bool          `mapstructure:"enable_tls"`
	CACertPath        string        `mapstructure:"ca_cert_path"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

// MustLoad загружает конфигурацию агента магазина
func MustLoad() *Config {
	// Определяем путь к .env файлу (относительно места запуска)
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}

	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("Ошибка загрузки .env файла: %v\n", err)
		}
	}

	viper.AutomaticEnv()

	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("CONFIG_DIR", defaultConfigDir)
	viper.SetDefault("RECONNECT_BASE", "1s")
	viper.SetDefault("RECONNECT_MAX", "30s")
	viper.SetDefault("REQUEST_TIMEOUT", "30s")
	viper.SetDefault("HEARTBEAT_INTERVAL", "30s")
	viper.SetDefault("ENABLE_TLS", false)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		fmt.Printf("Ошибка создания директории конфигурации: %v\n", err)
	}

	dataPath := viper.GetString("DATA_PATH")
	if dataPath == "" {
		dataPath = filepath.Join(configDir, "mirror.db")
	}

	config := &Config{
		Env:               viper.GetString("APP_ENV"),
		ServerAddress:     viper.GetString("SERVER_ADDRESS"),
		LogLevel:          viper.GetString("LOG_LEVEL"),
		StoreCode:         viper.GetString("STORE_CODE"),
		Actor:             viper.GetString("ACTOR"),
		ConfigDir:         configDir,
		DataPath:          dataPath,
		ReconnectBase:     viper.GetDuration("RECONNECT_BASE"),
		ReconnectMax:      viper.GetDuration("RECONNECT_MAX"),
		EnableTLS:         viper.GetBool("ENABLE_TLS"),
		CACertPath:        viper.GetString("CA_CERT_PATH"),
		RequestTimeout:    viper.GetDuration("REQUEST_TIMEOUT"),
		HeartbeatInterval: viper.GetDuration("HEARTBEAT_INTERVAL"),
	}

	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}

	return config
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address не может быть пустым")
	}
	if c.ReconnectBase <= 0 || c.ReconnectMax < c.ReconnectBase {
		return fmt.Errorf("некорректные интервалы переподключения")
	}
	return nil
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == ""
}
