package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	Log      LogConfig
	DB       DBConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	JWT      JWTConfig
	Admin    AdminConfig
	CORS     CORSConfig
	Worker   WorkerConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type DBConfig struct {
	// Driver is either "sqlite" or "postgres".
	Driver string

	// sqlite
	Path string

	// postgres
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host          string
	Port          string
	RedisPassword string
	RedisDB       string
}

// Enabled reports whether a Redis host was configured.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type RabbitMQConfig struct {
	URL   string
	Queue string
}

// Enabled reports whether a broker URL was configured.
func (c RabbitMQConfig) Enabled() bool {
	return c.URL != ""
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// AdminConfig holds the credentials seeded into an empty users table.
type AdminConfig struct {
	Username string
	Password string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type WorkerConfig struct {
	Concurrency int
	MetricsPort string
}

const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "adminpassword"
)

func Load() *Config {
	return &Config{
		AppName: getEnv("APP_NAME", "bookkeeping"),
		AppEnv:  getEnv("APP_ENV", "production"),
		AppPort: getEnv("APP_PORT", "3001"),

		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},

		DB: DBConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			Path:     filepath.Join(getEnv("DB_MOUNT_PATH", "./"), getEnv("DB_FILE", "data.db")),
			Host:     os.Getenv("DB_HOST"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		Redis: RedisConfig{
			Host:          os.Getenv("REDIS_HOST"),
			Port:          getEnv("REDIS_PORT", "6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       getEnv("REDIS_DB", "0"),
		},

		RabbitMQ: RabbitMQConfig{
			URL:   os.Getenv("RABBITMQ_URL"),
			Queue: getEnv("LEDGER_QUEUE", "ledger_events"),
		},

		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			TTL:    getDuration("JWT_TTL", time.Hour),
		},

		Admin: AdminConfig{
			Username: getEnv("ADMIN_USERNAME", DefaultAdminUsername),
			Password: getEnv("ADMIN_PASSWORD", DefaultAdminPassword),
		},

		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		},

		Worker: WorkerConfig{
			Concurrency: getInt("WORKER_CONCURRENCY", 3),
			MetricsPort: getEnv("METRICS_PORT", "8088"),
		},
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}

	switch c.DB.Driver {
	case "sqlite":
		if c.DB.Path == "" {
			errs = append(errs, errors.New("DB_MOUNT_PATH/DB_FILE must point to a database file"))
		}
	case "postgres":
		if c.DB.Host == "" || c.DB.Name == "" {
			errs = append(errs, errors.New("DB_HOST and DB_NAME are required for the postgres driver"))
		}
	default:
		errs = append(errs, errors.New("DB_DRIVER must be sqlite or postgres"))
	}

	if len(c.CORS.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must list at least one origin"))
	}
	if c.Worker.Concurrency < 1 {
		errs = append(errs, errors.New("WORKER_CONCURRENCY must be at least 1"))
	}

	return errors.Join(errs...)
}

// IsDevelopment is true when APP_ENV is "development" or "dev".
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
