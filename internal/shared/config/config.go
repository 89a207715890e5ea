package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"logistics-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string   `yaml:"port"`
	Env             string   `yaml:"env"`
	CORSAllowOrigin []string `yaml:"corsAllowOrigins"`
	DatabaseURL     string   `yaml:"databaseUrl"`

	// ObjectStoreType selects the backend for new uploads: s3, minio or local.
	ObjectStoreType string `yaml:"objectStore"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	PublicBaseURL   string `yaml:"publicBaseUrl"`
	AccessKey       string `yaml:"accessKey"`
	SecretKey       string `yaml:"secretKey"`

	AWSRegion      string `yaml:"awsRegion"`
	S3Endpoint     string `yaml:"s3Endpoint"`
	S3UsePathStyle bool   `yaml:"s3UsePathStyle"`

	MinioEndpoint string `yaml:"minioEndpoint"`
	MinioUseSSL   bool   `yaml:"minioUseSsl"`

	// LocalStoreDir is the uploads root used by the local backend and for legacy files.
	LocalStoreDir  string `yaml:"localStoreDir"`
	LocalURLPrefix string `yaml:"localUrlPrefix"`

	JWTSecret      string        `yaml:"jwtSecret"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	MaxUploadBytes int64         `yaml:"maxUploadBytes"`

	UploadRatePerSec float64 `yaml:"uploadRatePerSec"`
	UploadRateBurst  int     `yaml:"uploadRateBurst"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:             "8080",
		Env:              "dev",
		CORSAllowOrigin:  []string{"http://localhost:5173"},
		ObjectStoreType:  "local",
		AWSRegion:        "eu-central-1",
		LocalStoreDir:    "./uploads",
		LocalURLPrefix:   "/uploads/",
		RequestTimeout:   30 * time.Second,
		MaxUploadBytes:   10 << 20,
		UploadRatePerSec: 2,
		UploadRateBurst:  10,
	}
}

// Load reads configuration from an optional YAML file and environment variables.
// Environment variables win over file values.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	for _, path := range []string{".env", "cmd/.env"} {
		_ = godotenv.Load(path)
	}

	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			telemetry.Warn("config.file.ignored", map[string]any{"path": path, "error": err.Error()})
		}
	}
	applyEnv(&cfg)

	cfg.Env = normalizeEnv(cfg.Env)
	cfg.ObjectStoreType = normalizeStoreType(cfg.ObjectStoreType)
	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		telemetry.Warn("config.database_url.missing", map[string]any{"env": cfg.Env})
	}
	return cfg
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, cfg)
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Env = getEnv("ENV", cfg.Env)
	if raw := os.Getenv("CORS_ALLOW_ORIGINS"); raw != "" {
		cfg.CORSAllowOrigin = splitAndTrim(raw)
	}
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)

	cfg.ObjectStoreType = getEnv("OBJECT_STORE", cfg.ObjectStoreType)
	cfg.Bucket = getEnv("STORAGE_BUCKET", cfg.Bucket)
	cfg.Prefix = getEnv("STORAGE_PREFIX", cfg.Prefix)
	cfg.PublicBaseURL = getEnv("PUBLIC_BASE_URL", cfg.PublicBaseURL)
	cfg.AccessKey = getEnv("STORAGE_ACCESS_KEY", cfg.AccessKey)
	cfg.SecretKey = getEnv("STORAGE_SECRET_KEY", cfg.SecretKey)

	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.S3Endpoint = getEnv("S3_ENDPOINT", cfg.S3Endpoint)
	cfg.S3UsePathStyle = getEnvBool("S3_USE_PATH_STYLE", cfg.S3UsePathStyle)

	cfg.MinioEndpoint = getEnv("MINIO_ENDPOINT", cfg.MinioEndpoint)
	cfg.MinioUseSSL = getEnvBool("MINIO_USE_SSL", cfg.MinioUseSSL)

	cfg.LocalStoreDir = getEnv("LOCAL_STORE_DIR", cfg.LocalStoreDir)
	cfg.LocalURLPrefix = getEnv("LOCAL_URL_PREFIX", cfg.LocalURLPrefix)

	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.MaxUploadBytes = getEnvInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.UploadRatePerSec = getEnvFloat("UPLOAD_RATE_PER_SEC", cfg.UploadRatePerSec)
	cfg.UploadRateBurst = int(getEnvInt64("UPLOAD_RATE_BURST", int64(cfg.UploadRateBurst)))
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		warnInvalid(key, raw, "bool", err)
		return def
	}
	return val
}

func getEnvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		warnInvalid(key, raw, "int", err)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		warnInvalid(key, raw, "float", err)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		warnInvalid(key, raw, "duration", err)
		return def
	}
	return val
}

func warnInvalid(key, raw, kind string, err error) {
	telemetry.Warn("config.env.invalid", map[string]any{
		"key":   key,
		"value": raw,
		"want":  kind,
		"error": err.Error(),
	})
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}
