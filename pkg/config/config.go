package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	PublicURL string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Session      SessionConfig
	CORS         CORSConfig
	Log          LogConfig
	Upstream     UpstreamConfig
	Drafts       DraftsConfig
	Certificates CertificatesConfig
	MediaProbe   MediaProbeConfig
	Outline      OutlineConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

// SessionConfig controls how long each token scope lives.
type SessionConfig struct {
	SessionTTL         time.Duration
	RememberMeTTL      time.Duration
	TokenEncryptionKey string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// UpstreamConfig points at the Academy REST backend.
type UpstreamConfig struct {
	BaseURL    string
	Timeout    time.Duration
	CatalogTTL time.Duration
}

// DraftsConfig controls curriculum draft retention and file staging.
type DraftsConfig struct {
	TTL              time.Duration
	StagingDir       string
	MaxFileSizeBytes int64
	SignedURLSecret  string
	SignedURLTTL     time.Duration
}

// CertificatesConfig governs the issuance sweep and PDF downloads.
type CertificatesConfig struct {
	SweepInterval   time.Duration
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// MediaProbeConfig sizes the background duration probe workers.
type MediaProbeConfig struct {
	Workers int
	Retries int
}

// OutlineConfig enables course description drafting through the Gemini API.
// An empty APIKey leaves the feature off.
type OutlineConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.PublicURL = strings.TrimRight(v.GetString("PUBLIC_URL"), "/")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.Session = SessionConfig{
		SessionTTL:         parseDuration(v.GetString("SESSION_TTL"), 12*time.Hour),
		RememberMeTTL:      parseDuration(v.GetString("REMEMBER_ME_TTL"), 30*24*time.Hour),
		TokenEncryptionKey: v.GetString("TOKEN_ENCRYPTION_KEY"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Upstream = UpstreamConfig{
		BaseURL:    strings.TrimRight(v.GetString("UPSTREAM_BASE_URL"), "/"),
		Timeout:    parseDuration(v.GetString("UPSTREAM_TIMEOUT"), 15*time.Second),
		CatalogTTL: parseDuration(v.GetString("CATALOG_CACHE_TTL"), 5*time.Minute),
	}

	maxFileSize := v.GetInt64("STAGING_MAX_FILE_SIZE")
	if maxFileSize <= 0 {
		maxFileSize = 512 * 1024 * 1024
	}
	cfg.Drafts = DraftsConfig{
		TTL:              parseDuration(v.GetString("DRAFT_TTL"), 72*time.Hour),
		StagingDir:       v.GetString("STAGING_DIR"),
		MaxFileSizeBytes: maxFileSize,
		SignedURLSecret:  v.GetString("STAGING_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("STAGING_SIGNED_URL_TTL"), 2*time.Hour),
	}

	cfg.Certificates = CertificatesConfig{
		SweepInterval:   parseDuration(v.GetString("CERTIFICATE_SWEEP_INTERVAL"), 5*time.Minute),
		StorageDir:      v.GetString("CERTIFICATE_STORAGE_DIR"),
		SignedURLSecret: v.GetString("CERTIFICATE_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("CERTIFICATE_SIGNED_URL_TTL"), 15*time.Minute),
	}

	cfg.MediaProbe = MediaProbeConfig{
		Workers: v.GetInt("MEDIA_PROBE_WORKERS"),
		Retries: v.GetInt("MEDIA_PROBE_RETRIES"),
	}

	cfg.Outline = OutlineConfig{
		APIKey:  v.GetString("GEMINI_API_KEY"),
		Model:   v.GetString("GEMINI_MODEL"),
		Timeout: parseDuration(v.GetString("GEMINI_TIMEOUT"), 30*time.Second),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("PUBLIC_URL", "http://localhost:8080")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "academy_gateway")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "academy-gateway")

	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("REMEMBER_ME_TTL", "720h")
	v.SetDefault("TOKEN_ENCRYPTION_KEY", "dev_token_key")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("UPSTREAM_BASE_URL", "https://api.receitasmilionarias.com.br")
	v.SetDefault("UPSTREAM_TIMEOUT", "15s")
	v.SetDefault("CATALOG_CACHE_TTL", "5m")

	v.SetDefault("DRAFT_TTL", "72h")
	v.SetDefault("STAGING_DIR", "./staging")
	v.SetDefault("STAGING_MAX_FILE_SIZE", 512*1024*1024)
	v.SetDefault("STAGING_SIGNED_URL_SECRET", "dev_staging_secret")
	v.SetDefault("STAGING_SIGNED_URL_TTL", "2h")

	v.SetDefault("CERTIFICATE_SWEEP_INTERVAL", "5m")
	v.SetDefault("CERTIFICATE_STORAGE_DIR", "./certificates")
	v.SetDefault("CERTIFICATE_SIGNED_URL_SECRET", "dev_certificate_secret")
	v.SetDefault("CERTIFICATE_SIGNED_URL_TTL", "15m")

	v.SetDefault("MEDIA_PROBE_WORKERS", 2)
	v.SetDefault("MEDIA_PROBE_RETRIES", 2)

	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("GEMINI_TIMEOUT", "30s")
}

func isMissingFile(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
