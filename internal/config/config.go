package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type ServerConfig struct {
	Port            int           `yaml:"port" env:"RENTALHUB_SERVER_PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"RENTALHUB_SERVER_SHUTDOWN_TIMEOUT"`
}

type DatabaseConfig struct {
	DSN          string `yaml:"url" env:"RENTALHUB_DATABASE_URL"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"RENTALHUB_DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"max_idle_conns" env:"RENTALHUB_DATABASE_MAX_IDLE_CONNS"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret" env:"RENTALHUB_AUTH_JWT_SECRET"`
	AccessTTL  time.Duration `yaml:"access_ttl" env:"RENTALHUB_AUTH_ACCESS_TTL"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"RENTALHUB_AUTH_REFRESH_TTL"`
}

// GatewayConfig tunes the realtime chat gateway.
type GatewayConfig struct {
	SendBuffer     int           `yaml:"send_buffer" env:"RENTALHUB_GATEWAY_SEND_BUFFER"`
	WriteWait      time.Duration `yaml:"write_wait" env:"RENTALHUB_GATEWAY_WRITE_WAIT"`
	PongWait       time.Duration `yaml:"pong_wait" env:"RENTALHUB_GATEWAY_PONG_WAIT"`
	PingPeriod     time.Duration `yaml:"ping_period" env:"RENTALHUB_GATEWAY_PING_PERIOD"`
	MaxMessageSize int64         `yaml:"max_message_size" env:"RENTALHUB_GATEWAY_MAX_MESSAGE_SIZE"`
	StoreTimeout   time.Duration `yaml:"store_timeout" env:"RENTALHUB_GATEWAY_STORE_TIMEOUT"`
	NotifyTimeout  time.Duration `yaml:"notify_timeout" env:"RENTALHUB_GATEWAY_NOTIFY_TIMEOUT"`
	// AllowAnonymous lets connections without a token assert any identity.
	AllowAnonymous bool     `yaml:"allow_anonymous" env:"RENTALHUB_GATEWAY_ALLOW_ANONYMOUS"`
	AutoRejoin     bool     `yaml:"auto_rejoin" env:"RENTALHUB_GATEWAY_AUTO_REJOIN"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"RENTALHUB_GATEWAY_ALLOWED_ORIGINS" envSeparator:","`
}

type RedisConfig struct {
	Enabled     bool          `yaml:"enabled" env:"RENTALHUB_REDIS_ENABLED"`
	Addr        string        `yaml:"addr" env:"RENTALHUB_REDIS_ADDR"`
	Password    string        `yaml:"password" env:"RENTALHUB_REDIS_PASSWORD"`
	DB          int           `yaml:"db" env:"RENTALHUB_REDIS_DB"`
	PresenceTTL time.Duration `yaml:"presence_ttl" env:"RENTALHUB_REDIS_PRESENCE_TTL"`
}

type PushConfig struct {
	Enabled     bool          `yaml:"enabled" env:"RENTALHUB_PUSH_ENABLED"`
	Endpoint    string        `yaml:"endpoint" env:"RENTALHUB_PUSH_ENDPOINT"`
	AccessToken string        `yaml:"access_token" env:"RENTALHUB_PUSH_ACCESS_TOKEN"`
	Timeout     time.Duration `yaml:"timeout" env:"RENTALHUB_PUSH_TIMEOUT"`
}

type EmailConfig struct {
	Enabled      bool   `yaml:"enabled" env:"RENTALHUB_EMAIL_ENABLED"`
	SMTPHost     string `yaml:"smtp_host" env:"RENTALHUB_EMAIL_SMTP_HOST"`
	SMTPPort     int    `yaml:"smtp_port" env:"RENTALHUB_EMAIL_SMTP_PORT"`
	SMTPUser     string `yaml:"smtp_user" env:"RENTALHUB_EMAIL_SMTP_USER"`
	SMTPPassword string `yaml:"smtp_password" env:"RENTALHUB_EMAIL_SMTP_PASSWORD"`
	FromEmail    string `yaml:"from_email" env:"RENTALHUB_EMAIL_FROM"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"RENTALHUB_LOG_LEVEL"`
	Format string `yaml:"format" env:"RENTALHUB_LOG_FORMAT"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Redis    RedisConfig    `yaml:"redis"`
	Push     PushConfig     `yaml:"push"`
	Email    EmailConfig    `yaml:"email"`
	Log      LogConfig      `yaml:"log"`
}

// Load reads the yaml file at path (a missing file is allowed), applies
// RENTALHUB_* environment overrides and fills defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	var cfg Config

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// env-only configuration
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Auth.AccessTTL <= 0 {
		c.Auth.AccessTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTTL <= 0 {
		c.Auth.RefreshTTL = 30 * 24 * time.Hour
	}
	c.Gateway.applyDefaults()
	if c.Redis.PresenceTTL <= 0 {
		c.Redis.PresenceTTL = 2 * time.Minute
	}
	if c.Push.Endpoint == "" {
		c.Push.Endpoint = "https://exp.host/--/api/v2/push/send"
	}
	if c.Push.Timeout <= 0 {
		c.Push.Timeout = 5 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (g *GatewayConfig) applyDefaults() {
	if g.SendBuffer <= 0 {
		g.SendBuffer = 64
	}
	if g.WriteWait <= 0 {
		g.WriteWait = 10 * time.Second
	}
	if g.PongWait <= 0 {
		g.PongWait = 60 * time.Second
	}
	if g.PingPeriod <= 0 || g.PingPeriod >= g.PongWait {
		g.PingPeriod = g.PongWait * 9 / 10
	}
	if g.MaxMessageSize <= 0 {
		g.MaxMessageSize = 64 * 1024
	}
	if g.StoreTimeout <= 0 {
		g.StoreTimeout = 5 * time.Second
	}
	if g.NotifyTimeout <= 0 {
		g.NotifyTimeout = 10 * time.Second
	}
}

// DefaultGateway returns gateway settings with every default applied.
func DefaultGateway() GatewayConfig {
	var g GatewayConfig
	g.applyDefaults()
	return g
}

// Validate checks what serve cannot run without.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.Email.Enabled && c.Email.SMTPHost == "" {
		return fmt.Errorf("email.smtp_host is required when email is enabled")
	}
	return nil
}
