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

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Generator GeneratorConfig
	Exports   ExportsConfig
}

type DatabaseConfig struct {
	// Enabled turns on roster loading and run persistence.
	Enabled      bool
	// AutoMigrate creates missing tables on startup.
	AutoMigrate  bool
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// GeneratorConfig tunes timetable generation runs.
type GeneratorConfig struct {
	// StoredRoster allows requests to load teachers and rooms from Postgres.
	StoredRoster           bool
	DefaultAlgorithm       string
	MaxTime                time.Duration
	RunTTL                 time.Duration
	QualityThreshold       int
	PersistProvisional     bool
	ExclusivePriorityRooms bool
	Workers                int
	Retries                int
	StartHour              int
	EndHour                int
	Days                   []string
}

// ExportsConfig configures stored timetable exports.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
	// MaxAge bounds how long a stored export survives the cleanup sweep.
	MaxAge time.Duration
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
		if !errors.As(err, &notFound) {
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

	cfg.Database = DatabaseConfig{
		Enabled:      v.GetBool("DB_ENABLED"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
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
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	workers := v.GetInt("GENERATOR_WORKERS")
	if workers <= 0 {
		workers = 1
	}
	cfg.Generator = GeneratorConfig{
		StoredRoster:           v.GetBool("ENABLE_STORED_ROSTER"),
		DefaultAlgorithm:       v.GetString("GENERATOR_DEFAULT_ALGORITHM"),
		MaxTime:                parseDuration(v.GetString("GENERATOR_MAX_TIME"), 30*time.Second),
		RunTTL:                 parseDuration(v.GetString("GENERATOR_RUN_TTL"), time.Hour),
		QualityThreshold:       v.GetInt("GENERATOR_QUALITY_THRESHOLD"),
		PersistProvisional:     v.GetBool("GENERATOR_PERSIST_PROVISIONAL"),
		ExclusivePriorityRooms: v.GetBool("GENERATOR_EXCLUSIVE_PRIORITY_ROOMS"),
		Workers:                workers,
		Retries:                v.GetInt("GENERATOR_RETRIES"),
		StartHour:              v.GetInt("GENERATOR_START_HOUR"),
		EndHour:                v.GetInt("GENERATOR_END_HOUR"),
		Days:                   splitAndTrim(v.GetString("GENERATOR_DAYS")),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
		MaxAge:          parseDuration(v.GetString("EXPORTS_MAX_AGE"), 7*24*time.Hour),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_ENABLED", false)
	v.SetDefault("DB_AUTO_MIGRATE", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_STORED_ROSTER", false)
	v.SetDefault("GENERATOR_DEFAULT_ALGORITHM", "optimized")
	v.SetDefault("GENERATOR_MAX_TIME", "30s")
	v.SetDefault("GENERATOR_RUN_TTL", "1h")
	v.SetDefault("GENERATOR_QUALITY_THRESHOLD", 70)
	v.SetDefault("GENERATOR_PERSIST_PROVISIONAL", false)
	v.SetDefault("GENERATOR_EXCLUSIVE_PRIORITY_ROOMS", false)
	v.SetDefault("GENERATOR_WORKERS", 1)
	v.SetDefault("GENERATOR_RETRIES", 0)
	v.SetDefault("GENERATOR_START_HOUR", 8)
	v.SetDefault("GENERATOR_END_HOUR", 17)
	v.SetDefault("GENERATOR_DAYS", "Saturday,Sunday,Monday,Tuesday,Wednesday,Thursday")

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("EXPORTS_MAX_AGE", "168h")
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
