// Package config provides environment-variable-first configuration loading
// with optional YAML file and .env file fallback for the contact API.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults mirrored by applyDefaults.
const (
	defaultListen        = ":8080"
	defaultMaxBodyBytes  = 10000
	defaultSMTPPort      = 587
	defaultSMTPTimeout   = 15 * time.Second
	defaultRateLimitMax  = 5
	defaultRateWindow    = 60 * time.Second
	defaultSubjectPrefix = "[Contact Form]"
	defaultSender        = "web@localhost"
)

// Provider names accepted by PROVIDER.
const (
	ProviderSMTP   = "smtp"
	ProviderSES    = "ses"
	ProviderGraph  = "graph"
	ProviderStdout = "stdout"
)

// Config holds the complete application configuration.
type Config struct {
	Provider  string          `yaml:"provider"`
	Server    ServerConfig    `yaml:"server"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Mail      MailConfig      `yaml:"mail"`
	SES       SESConfig       `yaml:"ses"`
	Graph     GraphConfig     `yaml:"graph"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Stats     StatsConfig     `yaml:"stats"`
	TLS       TLSConfig       `yaml:"tls"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP listener configuration.
type ServerConfig struct {
	Listen       string `yaml:"listen"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

// SMTPConfig holds the outbound mail relay configuration.
type SMTPConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	Username           string        `yaml:"username"`
	Password           string        `yaml:"password"`
	Timeout            time.Duration `yaml:"timeout"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
}

// MailConfig holds the addressing of outgoing contact messages.
type MailConfig struct {
	Recipient     string `yaml:"recipient"`
	From          string `yaml:"from"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// SESConfig holds AWS SES configuration.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Sender          string `yaml:"sender"`
}

// GraphConfig holds Microsoft Graph API configuration.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Sender       string `yaml:"sender"`
}

// CORSConfig holds cross-origin settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	// EnforceAllowlist restricts the echoed origin to AllowedOrigins.
	// When false every request origin is echoed back.
	EnforceAllowlist bool `yaml:"enforce_allowlist"`
}

// RateLimitConfig holds the per-client sliding window settings.
type RateLimitConfig struct {
	Max             int           `yaml:"max"`
	Window          time.Duration `yaml:"window"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// StatsConfig holds the optional Redis outcome counters.
type StatsConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	Prefix        string `yaml:"prefix"`
}

// TLSConfig holds TLS certificate file paths for the HTTP listener.
type TLSConfig struct {
	CertFile   string `yaml:"cert_file"`
	KeyFile    string `yaml:"key_file"`
	SelfSigned bool   `yaml:"self_signed"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	return cfg, nil
}

// LoadEnvFile populates the process environment from a dotenv file.
// Variables already present in the environment are left untouched and a
// missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Validate reports the first configuration problem that would prevent the
// service from handling submissions.
func (c *Config) Validate() error {
	switch c.Provider {
	case "", ProviderSMTP, ProviderStdout:
	case ProviderSES:
		if !c.SESConfigured() {
			return errors.New("SES provider selected but SES_REGION and SES_SENDER are required")
		}
	case ProviderGraph:
		if !c.GraphConfigured() {
			return errors.New("Graph provider selected but GRAPH_TENANT_ID, GRAPH_CLIENT_ID, GRAPH_CLIENT_SECRET, and GRAPH_SENDER are required")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	if strings.TrimSpace(c.Mail.Recipient) == "" {
		return errors.New("CONTACT_RECIPIENT is required")
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("max body bytes must be positive")
	}
	return nil
}

// ResolvedProvider returns the delivery backend to use. An explicit
// PROVIDER wins; otherwise Graph or SES are picked when fully configured
// and the SMTP relay is the fallback.
func (c *Config) ResolvedProvider() string {
	if c.Provider != "" {
		return c.Provider
	}
	if c.GraphConfigured() {
		return ProviderGraph
	}
	if c.SESConfigured() {
		return ProviderSES
	}
	return ProviderSMTP
}

// GraphConfigured returns true if all four Graph API credentials are set.
func (c *Config) GraphConfigured() bool {
	return c.Graph.TenantID != "" &&
		c.Graph.ClientID != "" &&
		c.Graph.ClientSecret != "" &&
		c.Graph.Sender != ""
}

// SESConfigured returns true if the SES region and sender are set.
// Static credentials are optional; the default AWS chain is used otherwise.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != "" && c.SES.Sender != ""
}

// AuthEnabled returns true if both SMTP username and password are set.
func (c *Config) AuthEnabled() bool {
	return c.SMTP.Username != "" && c.SMTP.Password != ""
}

// StatsEnabled returns true if a Redis address for outcome counters is set.
func (c *Config) StatsEnabled() bool {
	return c.Stats.RedisAddr != ""
}

// Sender returns the From address for outgoing messages: the configured
// address, else the SMTP username when it is a mailbox, else a fixed default.
func (c *Config) Sender() string {
	if c.Mail.From != "" {
		return c.Mail.From
	}
	if c.SMTP.Username != "" {
		return c.SMTP.Username
	}
	return defaultSender
}

// SMTPAddr returns the relay address in host:port form.
func (c *Config) SMTPAddr() string {
	return fmt.Sprintf("%s:%d", c.SMTP.Host, c.SMTP.Port)
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Server.Listen = defaultListen
	c.Server.MaxBodyBytes = defaultMaxBodyBytes
	c.SMTP.Host = "localhost"
	c.SMTP.Port = defaultSMTPPort
	c.SMTP.Timeout = defaultSMTPTimeout
	c.Mail.SubjectPrefix = defaultSubjectPrefix
	c.CORS.AllowedOrigins = []string{"http://localhost"}
	c.RateLimit.Max = defaultRateLimitMax
	c.RateLimit.Window = defaultRateWindow
	c.Stats.Prefix = "contact:stats"
	c.Logging.Level = "info"
	c.Logging.MaxSizeMB = 100
	c.Logging.MaxBackups = 3
	c.Logging.MaxAgeDays = 28
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values; values
// that fail to parse are ignored.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}

	if v := os.Getenv("CONTACT_API_PORT"); v != "" {
		c.Server.Listen = ":" + v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("MAX_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Server.MaxBodyBytes = n
		}
	}

	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.SMTP.Port = port
		}
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASS"); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv("SMTP_TIMEOUT"); v != "" {
		if d, ok := parseSeconds(v); ok {
			c.SMTP.Timeout = d
		}
	}
	if v := os.Getenv("SMTP_INSECURE_SKIP_VERIFY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.SMTP.InsecureSkipVerify = b
		}
	}

	if v := os.Getenv("CONTACT_RECIPIENT"); v != "" {
		c.Mail.Recipient = v
	}
	if v := os.Getenv("MAIL_FROM"); v != "" {
		c.Mail.From = v
	}
	if v := os.Getenv("MAIL_SUBJECT_PREFIX"); v != "" {
		c.Mail.SubjectPrefix = v
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}
	if v := os.Getenv("SES_SENDER"); v != "" {
		c.SES.Sender = v
	}

	if v := os.Getenv("GRAPH_TENANT_ID"); v != "" {
		c.Graph.TenantID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_ID"); v != "" {
		c.Graph.ClientID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_SECRET"); v != "" {
		c.Graph.ClientSecret = v
	}
	if v := os.Getenv("GRAPH_SENDER"); v != "" {
		c.Graph.Sender = v
	}

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.CORS.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("CORS_ENFORCE_ALLOWLIST"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.CORS.EnforceAllowlist = b
		}
	}

	if v := os.Getenv("RATE_LIMIT_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.Max = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		if d, ok := parseSeconds(v); ok {
			c.RateLimit.Window = d
		}
	}
	if v := os.Getenv("RATE_LIMIT_CLEANUP_INTERVAL"); v != "" {
		if d, ok := parseSeconds(v); ok {
			c.RateLimit.CleanupInterval = d
		}
	}

	if v := os.Getenv("STATS_REDIS_ADDR"); v != "" {
		c.Stats.RedisAddr = v
	}
	if v := os.Getenv("STATS_REDIS_PASSWORD"); v != "" {
		c.Stats.RedisPassword = v
	}
	if v := os.Getenv("STATS_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Stats.RedisDB = n
		}
	}
	if v := os.Getenv("STATS_PREFIX"); v != "" {
		c.Stats.Prefix = v
	}

	if v := os.Getenv("TLS_CERT_FILE"); v != "" {
		c.TLS.CertFile = v
	}
	if v := os.Getenv("TLS_KEY_FILE"); v != "" {
		c.TLS.KeyFile = v
	}
	if v := os.Getenv("TLS_SELF_SIGNED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.TLS.SelfSigned = b
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("LOG_MAX_SIZE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Logging.MaxSizeMB = n
		}
	}
	if v := os.Getenv("LOG_MAX_BACKUPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Logging.MaxBackups = n
		}
	}
	if v := os.Getenv("LOG_MAX_AGE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Logging.MaxAgeDays = n
		}
	}
}

// parseSeconds accepts either a bare number of seconds ("60") or a Go
// duration string ("1m").
func parseSeconds(v string) (time.Duration, bool) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, true
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, true
	}
	return 0, false
}

// splitList splits a comma-separated list, dropping blank entries.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
