package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the server. Tags use
// mapstructure for Viper unmarshalling.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Session token configuration.
	JWTSecretKey        string `mapstructure:"JWT_SECRET_KEY"`
	SessionTokenTTLHour int    `mapstructure:"SESSION_TOKEN_TTL_HOUR"`

	// Identity provider configuration.
	FirebaseProjectID       string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`

	// RedisAddr enables the shared (Redis) token revocation store when
	// set; empty selects the in-memory store.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
}

// LoadConfig reads configuration from file, environment variables, and
// defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/accounts/")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/accounts_dev")
	v.SetDefault("MONGO_DB_NAME", "accounts_dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "accounts-server")
	v.SetDefault("JWT_SECRET_KEY", "a_very_secret_jwt_key_change_me") // CHANGE IN PRODUCTION
	v.SetDefault("SESSION_TOKEN_TTL_HOUR", 168)                       // 7 days

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, we fall back to env and defaults.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	return &cfg, nil
}
