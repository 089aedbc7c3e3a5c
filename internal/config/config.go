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
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	DashboardCacheTTL      time.Duration
	MaxUploadMB            int
	AIProvider             string
	OpenAIAPIKey           string
	OpenAIModel            string
	AnthropicAPIKey        string
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
	v.SetEnvPrefix("CLASSMARK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Classmark API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cloudinary.folder", "classmark/submissions")
	v.SetDefault("dashboard.cache_ttl", "5m")
	v.SetDefault("max_upload_mb", 10)
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("openai_model", "gpt-4o-mini")

	ttlString := v.GetString("dashboard.cache_ttl")
	if ttlString == "" {
		ttlString = "5m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid dashboard cache ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		DashboardCacheTTL:      ttl,
		MaxUploadMB:            v.GetInt("max_upload_mb"),
		AIProvider:             strings.ToLower(v.GetString("ai.provider")),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		OpenAIModel:            v.GetString("openai_model"),
		AnthropicAPIKey:        v.GetString("anthropic_api_key"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 10
	}

	return cfg, nil
}
