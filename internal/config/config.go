package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage providers supported for report attachments.
const (
	StorageNone       = "none"
	StorageR2         = "r2"
	StorageCloudinary = "cloudinary"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseDriver         string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	NATSSubject            string
	JWTSecret              string
	JWTTTL                 time.Duration
	AdminUsername          string
	AdminPassword          string
	StorageProvider        string
	R2AccountID            string
	R2AccessKeyID          string
	R2SecretAccessKey      string
	R2Bucket               string
	R2PublicURL            string
	R2Endpoint             string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	AttachmentMaxMB        int
	RequestTimeout         time.Duration
	DedupeTTL              time.Duration
	CORSOrigins            string
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
	v.SetEnvPrefix("INCIDENT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Incident API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("nats.subject", "incident.reports")
	v.SetDefault("jwt.ttl", "720h")
	v.SetDefault("storage.provider", StorageNone)
	v.SetDefault("cloudinary.folder", "incident/attachments")
	v.SetDefault("attachment.max_mb", 10)
	v.SetDefault("request.timeout", "10s")
	v.SetDefault("dedupe.ttl", "5m")
	v.SetDefault("cors.origins", "*")

	jwtTTL, err := parseDuration(v, "jwt.ttl", 30*24*time.Hour)
	if err != nil {
		return Config{}, fmt.Errorf("invalid jwt ttl: %w", err)
	}

	requestTimeout, err := parseDuration(v, "request.timeout", 10*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid request timeout: %w", err)
	}

	dedupeTTL, err := parseDuration(v, "dedupe.ttl", 5*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid dedupe ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseDriver:         strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		NATSSubject:            v.GetString("nats.subject"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTTTL:                 jwtTTL,
		AdminUsername:          strings.TrimSpace(v.GetString("admin.username")),
		AdminPassword:          v.GetString("admin.password"),
		StorageProvider:        strings.ToLower(v.GetString("storage.provider")),
		R2AccountID:            v.GetString("r2.account_id"),
		R2AccessKeyID:          v.GetString("r2.access_key_id"),
		R2SecretAccessKey:      v.GetString("r2.secret_access_key"),
		R2Bucket:               v.GetString("r2.bucket"),
		R2PublicURL:            v.GetString("r2.public_url"),
		R2Endpoint:             v.GetString("r2.endpoint"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		AttachmentMaxMB:        v.GetInt("attachment.max_mb"),
		RequestTimeout:         requestTimeout,
		DedupeTTL:              dedupeTTL,
		CORSOrigins:            v.GetString("cors.origins"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	switch cfg.StorageProvider {
	case "", StorageNone:
		cfg.StorageProvider = StorageNone
	case StorageR2, StorageCloudinary:
	default:
		return Config{}, fmt.Errorf("unsupported storage provider %q", cfg.StorageProvider)
	}

	if cfg.AttachmentMaxMB <= 0 {
		cfg.AttachmentMaxMB = 10
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if parsed <= 0 {
		return fallback, nil
	}

	return parsed, nil
}
