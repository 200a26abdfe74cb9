package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrNoPassword is returned when the server would start without a shared secret.
var ErrNoPassword = errors.New("auth.password or auth.password_hash must be set")

// Config holds all configuration for the application.
// Values are read by viper from a config file or environment variables
// (CLOUDNAV_ prefix, dots replaced by underscores).
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Client   ClientConfig   `mapstructure:"client"`
	Keyring  KeyringConfig  `mapstructure:"keyring"`
}

type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"static_dir"`
}

type AuthConfig struct {
	Password     string `mapstructure:"password"`
	PasswordHash string `mapstructure:"password_hash"`
}

type StorageConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type TelegramConfig struct {
	Token        string  `mapstructure:"token"`
	AllowedUsers []int64 `mapstructure:"allowed_users"`
}

type ScraperConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ClientConfig is used by the CLI commands that talk to a running server.
type ClientConfig struct {
	ServerURL string `mapstructure:"server_url"`
	Password  string `mapstructure:"password"`
}

// KeyringConfig selects where the AI provider config is kept on the client.
type KeyringConfig struct {
	Backend  string `mapstructure:"backend"`
	Dir      string `mapstructure:"dir"`
	Password string `mapstructure:"password"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("auth.password", "")
	v.SetDefault("auth.password_hash", "")
	v.SetDefault("storage.path", "./badger_data")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.allowed_users", []int64{})
	v.SetDefault("scraper.enabled", false)
	v.SetDefault("client.server_url", "http://localhost:8080")
	v.SetDefault("client.password", "")
	v.SetDefault("keyring.backend", "")
	v.SetDefault("keyring.dir", "")
	v.SetDefault("keyring.password", "")
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error.
func LoadConfig(path string) (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("CLOUDNAV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	cfg.Client.ServerURL = strings.TrimRight(cfg.Client.ServerURL, "/")
	return cfg, nil
}

// ValidateServer checks what "serve" needs on top of the defaults.
func (c Config) ValidateServer() error {
	if c.Auth.Password == "" && c.Auth.PasswordHash == "" {
		return ErrNoPassword
	}
	if c.Storage.Path == "" {
		return errors.New("storage.path is empty")
	}
	return nil
}
