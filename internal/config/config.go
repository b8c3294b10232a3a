// Package config loads settings for the basketd server and the basket CLI.
//
// Values come from, in increasing priority: built-in defaults, an optional
// basket.yaml, a .env file, and BASKET_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "BASKET"

type Server struct {
	Port          string
	DBPath        string
	LogLevel      string
	RedisURL      string
	ComparisonTTL time.Duration
	TrustProxy    bool
}

type Client struct {
	APIURL          string
	CredentialsPath string
	Passphrase      string
	LogLevel        string
	Timeout         time.Duration
}

// load builds a viper instance over defaults, the config file and the
// environment. An explicit configFile must exist; the default basket.yaml is
// optional.
func load(configFile string, defaults map[string]any) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("basket")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "basket"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

func LoadServer(configFile string) (Server, error) {
	v, err := load(configFile, map[string]any{
		"port":           "8000",
		"db_path":        "basket.db",
		"log_level":      "info",
		"redis_url":      "",
		"comparison_ttl": "10m",
		"trust_proxy":    false,
	})
	if err != nil {
		return Server{}, err
	}

	cfg := Server{
		Port:          v.GetString("port"),
		DBPath:        v.GetString("db_path"),
		LogLevel:      v.GetString("log_level"),
		RedisURL:      v.GetString("redis_url"),
		ComparisonTTL: v.GetDuration("comparison_ttl"),
		TrustProxy:    v.GetBool("trust_proxy"),
	}
	if cfg.Port == "" {
		return Server{}, fmt.Errorf("config: port is required")
	}
	if cfg.DBPath == "" {
		return Server{}, fmt.Errorf("config: db_path is required")
	}
	if cfg.ComparisonTTL < 0 {
		return Server{}, fmt.Errorf("config: comparison_ttl must not be negative, got %s", cfg.ComparisonTTL)
	}
	return cfg, nil
}

func LoadClient(configFile string) (Client, error) {
	v, err := load(configFile, map[string]any{
		"api_url":          "http://localhost:8000/api",
		"credentials_path": defaultCredentialsPath(),
		"passphrase":       "",
		"log_level":        "warn",
		"timeout":          "15s",
	})
	if err != nil {
		return Client{}, err
	}

	cfg := Client{
		APIURL:          strings.TrimRight(v.GetString("api_url"), "/"),
		CredentialsPath: v.GetString("credentials_path"),
		Passphrase:      v.GetString("passphrase"),
		LogLevel:        v.GetString("log_level"),
		Timeout:         v.GetDuration("timeout"),
	}
	if cfg.APIURL == "" {
		return Client{}, fmt.Errorf("config: api_url is required")
	}
	if cfg.Timeout <= 0 {
		return Client{}, fmt.Errorf("config: timeout must be positive, got %s", cfg.Timeout)
	}
	return cfg, nil
}

func defaultCredentialsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "basket-credentials.db"
	}
	return filepath.Join(dir, "basket", "credentials.db")
}
