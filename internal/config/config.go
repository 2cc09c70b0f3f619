package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Email         EmailConfig         `mapstructure:"email"`
	NATS          NATSConfig          `mapstructure:"nats"`
	CORS          CORSConfig          `mapstructure:"cors"`
	Log           LogConfig           `mapstructure:"log"`
	Orders        OrdersConfig        `mapstructure:"orders"`
	Consistency   ConsistencyConfig   `mapstructure:"consistency"`
	RateLimit     RateLimitConfig     `mapstructure:"ratelimit"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns host:port for http.Server.
func (s ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}

const (
	StorageJSON     = "json"
	StoragePostgres = "postgres"
)

type StorageConfig struct {
	Driver  string `mapstructure:"driver"`
	DataDir string `mapstructure:"data_dir"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN renders the keyword/value connection string understood by the postgres driver.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	ExpiryDays int    `mapstructure:"expiry_days"`
}

func (j JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryDays) * 24 * time.Hour
}

type AuthConfig struct {
	SingleAdmin    bool   `mapstructure:"single_admin"`
	GoogleClientID string `mapstructure:"google_client_id"`
}

const (
	EmailProviderLog      = "log"
	EmailProviderSMTP     = "smtp"
	EmailProviderSendGrid = "sendgrid"
)

type EmailConfig struct {
	Provider       string `mapstructure:"provider"`
	From           string `mapstructure:"from"`
	FromName       string `mapstructure:"from_name"`
	StorefrontURL  string `mapstructure:"storefront_url"`
	SMTPHost       string `mapstructure:"smtp_host"`
	SMTPPort       int    `mapstructure:"smtp_port"`
	SMTPUser       string `mapstructure:"smtp_user"`
	SMTPPassword   string `mapstructure:"smtp_password"`
	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
}

type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type OrdersConfig struct {
	NumberPrefix   string          `mapstructure:"number_prefix"`
	TotalTolerance decimal.Decimal `mapstructure:"-"`
}

type ConsistencyConfig struct {
	Schedule string `mapstructure:"schedule"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type NotificationsConfig struct {
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Load reads defaults, then environment variables. Nested keys map to upper-case
// variables with dots replaced by underscores (server.port -> SERVER_PORT); a few
// conventional names (PORT, GIN_MODE, JWT_SECRET, DB_*) are honored as well.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	aliases := map[string]string{
		"PORT":        "server.port",
		"GIN_MODE":    "server.mode",
		"DATA_DIR":    "storage.data_dir",
		"DB_HOST":     "database.host",
		"DB_PORT":     "database.port",
		"DB_USER":     "database.user",
		"DB_PASSWORD": "database.password",
		"DB_NAME":     "database.name",
		"DB_SSLMODE":  "database.sslmode",
		"NATS_URL":    "nats.url",
	}
	for env, key := range aliases {
		if val := os.Getenv(env); val != "" {
			v.Set(key, val)
		}
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		v.Set("cors.origins", strings.Split(origins, ","))
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	tolerance, err := decimal.NewFromString(v.GetString("orders.total_tolerance"))
	if err != nil {
		return nil, fmt.Errorf("orders.total_tolerance: %w", err)
	}
	cfg.Orders.TotalTolerance = tolerance

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8001")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("storage.driver", StorageJSON)
	v.SetDefault("storage.data_dir", "./data")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "pulgax_store")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret", "pulgax-secret-key-change-in-production")
	v.SetDefault("jwt.expiry_days", 7)

	v.SetDefault("auth.single_admin", true)
	v.SetDefault("auth.google_client_id", "")

	v.SetDefault("email.provider", EmailProviderLog)
	v.SetDefault("email.from", "encomendas@pulgax.pt")
	v.SetDefault("email.from_name", "Pulgax 3D Store")
	v.SetDefault("email.storefront_url", "http://localhost:3000")
	v.SetDefault("email.smtp_host", "")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.smtp_user", "")
	v.SetDefault("email.smtp_password", "")
	v.SetDefault("email.sendgrid_api_key", "")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")

	v.SetDefault("cors.origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("orders.number_prefix", "PX")
	v.SetDefault("orders.total_tolerance", "0.01")

	v.SetDefault("consistency.schedule", "")

	v.SetDefault("ratelimit.rps", 5)
	v.SetDefault("ratelimit.burst", 10)

	v.SetDefault("notifications.workers", 2)
	v.SetDefault("notifications.queue_size", 100)
	v.SetDefault("notifications.timeout", 15*time.Second)
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode: unsupported value %q", c.Server.Mode)
	}
	switch c.Storage.Driver {
	case StorageJSON, StoragePostgres:
	default:
		return fmt.Errorf("storage.driver: unsupported value %q", c.Storage.Driver)
	}
	switch c.Email.Provider {
	case EmailProviderLog, EmailProviderSMTP, EmailProviderSendGrid:
	default:
		return fmt.Errorf("email.provider: unsupported value %q", c.Email.Provider)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret must not be empty")
	}
	if c.JWT.ExpiryDays <= 0 {
		return fmt.Errorf("jwt.expiry_days must be positive")
	}
	if c.Orders.TotalTolerance.IsNegative() {
		return fmt.Errorf("orders.total_tolerance must not be negative")
	}
	if c.Notifications.Workers <= 0 || c.Notifications.QueueSize <= 0 {
		return fmt.Errorf("notifications.workers and notifications.queue_size must be positive")
	}
	return nil
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.Server.Mode == "release"
}
