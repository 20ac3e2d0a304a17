package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Store         StoreConfig         `mapstructure:"store"`
	Security      SecurityConfig      `mapstructure:"security"`
	Session       SessionConfig       `mapstructure:"session"`
	Lifecycle     LifecycleConfig     `mapstructure:"lifecycle"`
	Assistant     AssistantConfig     `mapstructure:"assistant"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	TemplatesDir      string        `mapstructure:"templates_dir"`
	OpenAPIPath       string        `mapstructure:"openapi_path"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source" validate:"required"`
}

// StoreConfig controls the stored-procedure adapter and its health monitor.
type StoreConfig struct {
	HealthCheckSchedule string        `mapstructure:"health_check_schedule"`
	PingTimeout         time.Duration `mapstructure:"ping_timeout"`
	QueryTimeout        time.Duration `mapstructure:"query_timeout"`
}

type SecurityConfig struct {
	SessionSecret string `mapstructure:"session_secret" validate:"required,min=32"`
}

type SessionConfig struct {
	CookieName    string        `mapstructure:"cookie_name" validate:"required"`
	TTL           time.Duration `mapstructure:"ttl" validate:"required"`
	SecureCookie  bool          `mapstructure:"secure_cookie"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" validate:"min=0"`
	SweepSchedule string        `mapstructure:"sweep_schedule"`
}

type LifecycleConfig struct {
	AllowRejectedResubmission bool   `mapstructure:"allow_rejected_resubmission"`
	DefaultCurrency           string `mapstructure:"default_currency" validate:"required,len=3"`
}

type AssistantConfig struct {
	Enabled                 bool          `mapstructure:"enabled"`
	Provider                string        `mapstructure:"provider" validate:"omitempty,oneof=azure openai"`
	Endpoint                string        `mapstructure:"endpoint" validate:"omitempty,url"`
	Deployment              string        `mapstructure:"deployment"`
	APIVersion              string        `mapstructure:"api_version"`
	APIKey                  string        `mapstructure:"api_key"`
	ManagedIdentityClientID string        `mapstructure:"managed_identity_client_id"`
	MaxToolRounds           int           `mapstructure:"max_tool_rounds" validate:"min=0,max=10"`
	Timeout                 time.Duration `mapstructure:"timeout"`
	ChatRateLimit           string        `mapstructure:"chat_rate_limit"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ----------------- DEFAULTS -----------------

// ApplyDefaults fills zero values that have a sensible default.
func (c *Config) ApplyDefaults() {
	if c.Server.OpenAPIPath == "" {
		c.Server.OpenAPIPath = "./api/openapi.yml"
	}
	if c.Store.HealthCheckSchedule == "" {
		c.Store.HealthCheckSchedule = "@every 30s"
	}
	if c.Store.PingTimeout <= 0 {
		c.Store.PingTimeout = 2 * time.Second
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "expense_session"
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.Session.SweepSchedule == "" {
		c.Session.SweepSchedule = "@every 10m"
	}
	if c.Lifecycle.DefaultCurrency == "" {
		c.Lifecycle.DefaultCurrency = "GBP"
	}
	if c.Assistant.Provider == "" {
		c.Assistant.Provider = "azure"
	}
	if c.Assistant.Deployment == "" {
		c.Assistant.Deployment = "gpt-4o"
	}
	if c.Assistant.APIVersion == "" {
		c.Assistant.APIVersion = "2024-06-01"
	}
	if c.Assistant.MaxToolRounds == 0 {
		c.Assistant.MaxToolRounds = 5
	}
	if c.Assistant.Timeout <= 0 {
		c.Assistant.Timeout = 60 * time.Second
	}
	if c.Assistant.ChatRateLimit == "" {
		c.Assistant.ChatRateLimit = "20-M"
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
	if c.Observability.Metrics.Enabled && c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
}

// LoadConfigFromEnv builds the config from plain environment variables (docker deployments).
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("PORT", 8080),
			BaseURL:           getEnv("BASE_URL", ""),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", 90*time.Second),
			TemplatesDir:      getEnv("TEMPLATES_DIR", ""),
			OpenAPIPath:       getEnv("OPENAPI_PATH", ""),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Store: StoreConfig{
			HealthCheckSchedule: getEnv("STORE_HEALTH_CHECK_SCHEDULE", ""),
			PingTimeout:         getEnvAsDuration("STORE_PING_TIMEOUT", 0),
			QueryTimeout:        getEnvAsDuration("STORE_QUERY_TIMEOUT", 0),
		},
		Security: SecurityConfig{
			SessionSecret: getEnv("SESSION_SECRET", ""),
		},
		Session: SessionConfig{
			CookieName:    getEnv("SESSION_COOKIE_NAME", ""),
			TTL:           getEnvAsDuration("SESSION_TTL", 0),
			SecureCookie:  getEnv("SESSION_SECURE_COOKIE", "true") == "true",
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			SweepSchedule: getEnv("SESSION_SWEEP_SCHEDULE", ""),
		},
		Lifecycle: LifecycleConfig{
			AllowRejectedResubmission: getEnv("ALLOW_REJECTED_RESUBMISSION", "false") == "true",
			DefaultCurrency:           getEnv("DEFAULT_CURRENCY", ""),
		},
		Assistant: AssistantConfig{
			Enabled:                 getEnv("ASSISTANT_ENABLED", "false") == "true",
			Provider:                getEnv("ASSISTANT_PROVIDER", ""),
			Endpoint:                getEnv("ASSISTANT_ENDPOINT", ""),
			Deployment:              getEnv("ASSISTANT_DEPLOYMENT", ""),
			APIVersion:              getEnv("ASSISTANT_API_VERSION", ""),
			APIKey:                  getEnv("ASSISTANT_API_KEY", ""),
			ManagedIdentityClientID: getEnv("ASSISTANT_MANAGED_IDENTITY_CLIENT_ID", ""),
			MaxToolRounds:           getEnvAsInt("ASSISTANT_MAX_TOOL_ROUNDS", 0),
			Timeout:                 getEnvAsDuration("ASSISTANT_TIMEOUT", 0),
			ChatRateLimit:           getEnv("ASSISTANT_CHAT_RATE_LIMIT", ""),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnv("METRICS_ENABLED", "true") == "true",
				Path:    getEnv("METRICS_PATH", ""),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", ""),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Assistant.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("assistant config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *AssistantConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return errors.New("endpoint is required when the assistant is enabled")
	}
	if c.Provider == "openai" && c.APIKey == "" {
		return errors.New("api_key is required for the openai provider")
	}
	return nil
}
