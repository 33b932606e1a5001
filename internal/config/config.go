package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	DatabaseURL       string
	AutoMigrate       bool
	RedisURL          string
	NATSURL           string
	EventChannel      string
	JWTSecret         string
	ProgressCacheTTL  time.Duration
	NotifyOnUnlock    bool
	JudgeSharedSecret string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Course API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("events.channel", "gema:courses")
	v.SetDefault("progress.cache_ttl", "5m")
	v.SetDefault("progress.notify_on_unlock", true)

	ttlString := v.GetString("progress.cache_ttl")
	if ttlString == "" {
		ttlString = "5m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid progress cache ttl: %w", err)
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseURL:       v.GetString("database.url"),
		AutoMigrate:       v.GetBool("database.auto_migrate"),
		RedisURL:          v.GetString("redis.url"),
		NATSURL:           v.GetString("nats.url"),
		EventChannel:      v.GetString("events.channel"),
		JWTSecret:         v.GetString("jwt.secret"),
		ProgressCacheTTL:  ttl,
		NotifyOnUnlock:    v.GetBool("progress.notify_on_unlock"),
		JudgeSharedSecret: v.GetString("judge.shared_secret"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	return cfg, nil
}
