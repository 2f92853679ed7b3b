package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds all application configuration
type Config struct {
	App          AppConfig       `mapstructure:"app"`
	Server       ServerConfig    `mapstructure:"server"`
	GRPC         GRPCConfig      `mapstructure:"grpc"`
	AuthDatabase DatabaseConfig  `mapstructure:"auth_database"`
	Redis        RedisConfig     `mapstructure:"redis"`
	Kafka        KafkaConfig     `mapstructure:"kafka"`
	JWT          JWTConfig       `mapstructure:"jwt"`
	Directory    DirectoryConfig `mapstructure:"ldap"`
	Auth         AuthConfig      `mapstructure:"auth"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
	OTel         OTelConfig      `mapstructure:"otel"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
	Debug       bool   `mapstructure:"debug"`
	Version     string `mapstructure:"version"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// GRPCConfig holds the auth-manager RPC listener and the address the gateway dials
type GRPCConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	AuthManagerAddr string        `mapstructure:"auth_manager_addr"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	CallTimeout     time.Duration `mapstructure:"call_timeout"`
}

// Addr returns the listen address
func (g *GRPCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// KafkaConfig holds Kafka/Redpanda connection settings
type KafkaConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Brokers       []string `mapstructure:"brokers"`
	ClientID      string   `mapstructure:"client_id"`
	SecurityTopic string   `mapstructure:"security_topic"`
}

// JWTConfig holds access/refresh token settings
type JWTConfig struct {
	Secret          string        `mapstructure:"secret"`
	Issuer          string        `mapstructure:"issuer"`
	Audience        string        `mapstructure:"audience"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// DirectoryConfig holds LDAP / Active Directory settings
type DirectoryConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	URL          string        `mapstructure:"url"`
	BaseDN       string        `mapstructure:"base_dn"`
	BindDN       string        `mapstructure:"bind_dn"`
	BindPassword string        `mapstructure:"bind_password"`
	UserFilter   string        `mapstructure:"user_filter"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// AuthConfig holds credential and session policy
type AuthConfig struct {
	BcryptCost            int  `mapstructure:"bcrypt_cost"`
	RevokeRefreshOnLogout bool `mapstructure:"revoke_refresh_on_logout"`
}

// RateLimitConfig holds the gateway per-client limiter settings
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	ServiceName   string  `mapstructure:"service_name"`
	CollectorAddr string  `mapstructure:"collector_addr"`
	SampleRatio   float64 `mapstructure:"sample_ratio"`
}

// Load loads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")

	// A missing .env is fine; environment variables still apply.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, fmt.Errorf("failed to read .env: %w", err)
		}
	}

	return load(v)
}

// LoadWithPath loads configuration from a specific env file
func LoadWithPath(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{}
	if err := bindConfig(v, cfg); err != nil {
		return nil, fmt.Errorf("failed to bind config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("APP_NAME", "hr-identity")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_DEBUG", true)
	v.SetDefault("APP_VERSION", "1.0.0")

	// HTTP server
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "30s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "120s")
	v.SetDefault("SERVER_CORS_ORIGINS", "*")

	// gRPC
	v.SetDefault("GRPC_HOST", "0.0.0.0")
	v.SetDefault("GRPC_PORT", 50051)
	v.SetDefault("GRPC_AUTH_MANAGER_ADDR", "localhost:50051")
	v.SetDefault("GRPC_DIAL_TIMEOUT", "5s")
	v.SetDefault("GRPC_CALL_TIMEOUT", "10s")

	// Auth database
	v.SetDefault("AUTH_DATABASE_HOST", "localhost")
	v.SetDefault("AUTH_DATABASE_PORT", 5432)
	v.SetDefault("AUTH_DATABASE_USER", "postgres")
	v.SetDefault("AUTH_DATABASE_PASSWORD", "postgres")
	v.SetDefault("AUTH_DATABASE_DBNAME", "auth_db")
	v.SetDefault("AUTH_DATABASE_SSLMODE", "disable")
	v.SetDefault("AUTH_DATABASE_MAX_OPEN_CONNS", 50)
	v.SetDefault("AUTH_DATABASE_MAX_IDLE_CONNS", 10)
	v.SetDefault("AUTH_DATABASE_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("AUTH_DATABASE_CONN_MAX_IDLE_TIME", "30m")

	// Redis
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 50)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 5)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "3s")

	// Kafka
	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_CLIENT_ID", "auth-manager")
	v.SetDefault("KAFKA_SECURITY_TOPIC", "auth.security-events")

	// JWT
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_ISSUER", "hr-identity")
	v.SetDefault("JWT_AUDIENCE", "hr-api")
	v.SetDefault("JWT_ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TOKEN_TTL", "168h") // 7 days

	// Directory
	v.SetDefault("LDAP_ENABLED", false)
	v.SetDefault("LDAP_URL", "")
	v.SetDefault("LDAP_BASE_DN", "")
	v.SetDefault("LDAP_BIND_DN", "")
	v.SetDefault("LDAP_BIND_PASSWORD", "")
	v.SetDefault("LDAP_USER_FILTER", "(sAMAccountName=%s)")
	v.SetDefault("LDAP_TIMEOUT", "5s")

	// Auth policy
	v.SetDefault("AUTH_BCRYPT_COST", 10)
	v.SetDefault("AUTH_REVOKE_REFRESH_ON_LOGOUT", false)

	// Gateway rate limit
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_REQUESTS_PER_SECOND", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	// OTel
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "hr-identity")
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)
}

func bindConfig(v *viper.Viper, cfg *Config) error {
	// App
	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.Debug = v.GetBool("APP_DEBUG")
	cfg.App.Version = v.GetString("APP_VERSION")

	// HTTP server
	cfg.Server.Host = v.GetString("SERVER_HOST")
	cfg.Server.Port = v.GetInt("SERVER_PORT")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.IdleTimeout = v.GetDuration("SERVER_IDLE_TIMEOUT")
	cfg.Server.CORSOrigins = splitList(v.GetString("SERVER_CORS_ORIGINS"))

	// gRPC
	cfg.GRPC.Host = v.GetString("GRPC_HOST")
	cfg.GRPC.Port = v.GetInt("GRPC_PORT")
	cfg.GRPC.AuthManagerAddr = v.GetString("GRPC_AUTH_MANAGER_ADDR")
	cfg.GRPC.DialTimeout = v.GetDuration("GRPC_DIAL_TIMEOUT")
	cfg.GRPC.CallTimeout = v.GetDuration("GRPC_CALL_TIMEOUT")

	// Auth database
	cfg.AuthDatabase.Host = v.GetString("AUTH_DATABASE_HOST")
	cfg.AuthDatabase.Port = v.GetInt("AUTH_DATABASE_PORT")
	cfg.AuthDatabase.User = v.GetString("AUTH_DATABASE_USER")
	cfg.AuthDatabase.Password = v.GetString("AUTH_DATABASE_PASSWORD")
	cfg.AuthDatabase.DBName = v.GetString("AUTH_DATABASE_DBNAME")
	cfg.AuthDatabase.SSLMode = v.GetString("AUTH_DATABASE_SSLMODE")
	cfg.AuthDatabase.MaxOpenConns = v.GetInt("AUTH_DATABASE_MAX_OPEN_CONNS")
	cfg.AuthDatabase.MaxIdleConns = v.GetInt("AUTH_DATABASE_MAX_IDLE_CONNS")
	cfg.AuthDatabase.ConnMaxLifetime = v.GetDuration("AUTH_DATABASE_CONN_MAX_LIFETIME")
	cfg.AuthDatabase.ConnMaxIdleTime = v.GetDuration("AUTH_DATABASE_CONN_MAX_IDLE_TIME")

	// Redis
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetInt("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	cfg.Redis.MinIdleConns = v.GetInt("REDIS_MIN_IDLE_CONNS")
	cfg.Redis.DialTimeout = v.GetDuration("REDIS_DIAL_TIMEOUT")
	cfg.Redis.ReadTimeout = v.GetDuration("REDIS_READ_TIMEOUT")
	cfg.Redis.WriteTimeout = v.GetDuration("REDIS_WRITE_TIMEOUT")

	// Kafka
	cfg.Kafka.Enabled = v.GetBool("KAFKA_ENABLED")
	cfg.Kafka.Brokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.Kafka.ClientID = v.GetString("KAFKA_CLIENT_ID")
	cfg.Kafka.SecurityTopic = v.GetString("KAFKA_SECURITY_TOPIC")

	// JWT
	cfg.JWT.Secret = v.GetString("JWT_SECRET")
	cfg.JWT.Issuer = v.GetString("JWT_ISSUER")
	cfg.JWT.Audience = v.GetString("JWT_AUDIENCE")
	cfg.JWT.AccessTokenTTL = v.GetDuration("JWT_ACCESS_TOKEN_TTL")
	cfg.JWT.RefreshTokenTTL = v.GetDuration("JWT_REFRESH_TOKEN_TTL")

	// Directory
	cfg.Directory.Enabled = v.GetBool("LDAP_ENABLED")
	cfg.Directory.URL = v.GetString("LDAP_URL")
	cfg.Directory.BaseDN = v.GetString("LDAP_BASE_DN")
	cfg.Directory.BindDN = v.GetString("LDAP_BIND_DN")
	cfg.Directory.BindPassword = v.GetString("LDAP_BIND_PASSWORD")
	cfg.Directory.UserFilter = v.GetString("LDAP_USER_FILTER")
	cfg.Directory.Timeout = v.GetDuration("LDAP_TIMEOUT")

	// Auth policy
	cfg.Auth.BcryptCost = v.GetInt("AUTH_BCRYPT_COST")
	cfg.Auth.RevokeRefreshOnLogout = v.GetBool("AUTH_REVOKE_REFRESH_ON_LOGOUT")

	// Rate limit
	cfg.RateLimit.Enabled = v.GetBool("RATE_LIMIT_ENABLED")
	cfg.RateLimit.RequestsPerSecond = v.GetFloat64("RATE_LIMIT_REQUESTS_PER_SECOND")
	cfg.RateLimit.Burst = v.GetInt("RATE_LIMIT_BURST")

	// OTel
	cfg.OTel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.OTel.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	cfg.OTel.CollectorAddr = v.GetString("OTEL_COLLECTOR_ADDR")
	cfg.OTel.SampleRatio = v.GetFloat64("OTEL_SAMPLE_RATIO")

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the configuration shared by every service
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.GRPC.Port <= 0 || c.GRPC.Port > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.GRPC.Port)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if c.IsProduction() && c.JWT.Secret == defaultJWTSecret {
		return fmt.Errorf("JWT secret must be changed in production")
	}

	if c.JWT.AccessTokenTTL <= 0 {
		return fmt.Errorf("JWT access token TTL must be positive")
	}

	if c.JWT.RefreshTokenTTL <= c.JWT.AccessTokenTTL {
		return fmt.Errorf("JWT refresh token TTL must exceed access token TTL")
	}

	return nil
}

// ValidateAuthDatabase validates auth database configuration
func (c *Config) ValidateAuthDatabase() error {
	if c.AuthDatabase.Host == "" {
		return fmt.Errorf("AUTH_DATABASE_HOST is required")
	}
	if c.AuthDatabase.DBName == "" {
		return fmt.Errorf("AUTH_DATABASE_DBNAME is required")
	}
	return nil
}

// ValidateDirectory validates LDAP settings when the directory adapter is on
func (c *Config) ValidateDirectory() error {
	if !c.Directory.Enabled {
		return nil
	}
	if c.Directory.URL == "" {
		return fmt.Errorf("LDAP_URL is required when LDAP_ENABLED=true")
	}
	if c.Directory.BaseDN == "" {
		return fmt.Errorf("LDAP_BASE_DN is required when LDAP_ENABLED=true")
	}
	if !strings.Contains(c.Directory.UserFilter, "%s") {
		return fmt.Errorf("LDAP_USER_FILTER must contain a %%s placeholder")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
