package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AdminJWTSecret string

	CORSAllowedOrigins string

	// NHIF (authorization/folio family) configuration
	NHIFBaseURL        string
	NHIFUsername       string
	NHIFPassword       string
	NHIFFacilityCode   string
	NHIFRequestTimeout time.Duration

	// Jubilee (session/visit family) configuration
	JubileeBaseURL        string
	JubileeAPIKey         string
	JubileeProviderCode   string
	JubileeRequestTimeout time.Duration

	// Claim audit archive (S3); disabled when bucket is empty
	ArchiveBucket       string
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Delay before the single automatic retry of a transient upstream failure
	TransientRetryDelay time.Duration

	// Lifetime of cached authorization numbers and session ids
	AuthCacheTTL time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),

		NHIFBaseURL:        getEnv("NHIF_BASE_URL", ""),
		NHIFUsername:       getEnv("NHIF_USERNAME", ""),
		NHIFPassword:       getEnv("NHIF_PASSWORD", ""),
		NHIFFacilityCode:   getEnv("NHIF_FACILITY_CODE", ""),
		NHIFRequestTimeout: getEnvAsDuration("NHIF_REQUEST_TIMEOUT", 30*time.Second),

		JubileeBaseURL:        getEnv("JUBILEE_BASE_URL", ""),
		JubileeAPIKey:         getEnv("JUBILEE_API_KEY", ""),
		JubileeProviderCode:   getEnv("JUBILEE_PROVIDER_CODE", ""),
		JubileeRequestTimeout: getEnvAsDuration("JUBILEE_REQUEST_TIMEOUT", 30*time.Second),

		ArchiveBucket:       getEnv("CLAIM_ARCHIVE_BUCKET", ""),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		TransientRetryDelay: getEnvAsDuration("TRANSIENT_RETRY_DELAY", 2*time.Second),

		AuthCacheTTL: getEnvAsDuration("AUTH_CACHE_TTL", 24*time.Hour),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
