package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix = "GRPWEB"

	defaultAPIBaseURL    = "http://localhost:8080"
	defaultAPILoginPath  = "/auth/login"
	defaultClientLevel   = "warn"
	defaultSessionFile   = "session.json"
	sessionDirectoryName = "grpweb"

	defaultHTTPAddress   = "0.0.0.0:8080"
	defaultDatabasePath  = "grpweb.db"
	defaultServerLevel   = "info"
	defaultTokenTTL      = 60
	defaultAdminUsername = "admin"
	defaultAdminRole     = "admin"
)

// ClientConfig captures runtime configuration for the grpweb console client.
type ClientConfig struct {
	APIBaseURL  string
	LoginPath   string
	Timeout     time.Duration
	SessionFile string
	LogLevel    string
}

// DevAPIConfig captures runtime configuration for the development API server.
type DevAPIConfig struct {
	HTTPAddress    string
	AllowedOrigins []string
	DatabasePath   string
	SigningSecret  string
	TokenTTL       time.Duration
	AdminUsername  string
	AdminPassword  string
	AdminRole      string
	LogLevel       string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("api.base_url", defaultAPIBaseURL)
	configViper.SetDefault("api.login_path", defaultAPILoginPath)
	configViper.SetDefault("api.timeout", time.Duration(0))
	configViper.SetDefault("session.file", "")

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.allowed_origins", []string{})
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("token.ttl_minutes", defaultTokenTTL)
	configViper.SetDefault("admin.username", defaultAdminUsername)
	configViper.SetDefault("admin.role", defaultAdminRole)
}

// LoadClient parses the console client configuration from viper.
func LoadClient(configViper *viper.Viper) (ClientConfig, error) {
	cfg := ClientConfig{
		APIBaseURL:  strings.TrimRight(strings.TrimSpace(configViper.GetString("api.base_url")), "/"),
		LoginPath:   strings.TrimSpace(configViper.GetString("api.login_path")),
		Timeout:     configViper.GetDuration("api.timeout"),
		SessionFile: strings.TrimSpace(configViper.GetString("session.file")),
		LogLevel:    levelOrDefault(configViper.GetString("log.level"), defaultClientLevel),
	}

	if cfg.SessionFile == "" {
		path, err := DefaultSessionFile()
		if err != nil {
			return ClientConfig{}, err
		}
		cfg.SessionFile = path
	}

	if err := cfg.validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

// LoadDevAPI parses the development API configuration from viper.
func LoadDevAPI(configViper *viper.Viper) (DevAPIConfig, error) {
	cfg := DevAPIConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		AllowedOrigins: trimmedList(configViper.GetStringSlice("http.allowed_origins")),
		DatabasePath:   configViper.GetString("database.path"),
		SigningSecret:  configViper.GetString("auth.signing_secret"),
		TokenTTL:       time.Duration(configViper.GetInt("token.ttl_minutes")) * time.Minute,
		AdminUsername:  strings.TrimSpace(configViper.GetString("admin.username")),
		AdminPassword:  configViper.GetString("admin.password"),
		AdminRole:      strings.TrimSpace(configViper.GetString("admin.role")),
		LogLevel:       levelOrDefault(configViper.GetString("log.level"), defaultServerLevel),
	}

	if err := cfg.validate(); err != nil {
		return DevAPIConfig{}, err
	}
	return cfg, nil
}

// DefaultSessionFile resolves the per-user location of the persisted session token.
func DefaultSessionFile() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve session directory: %w", err)
	}
	return filepath.Join(base, sessionDirectoryName, defaultSessionFile), nil
}

func (c ClientConfig) validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	parsed, err := url.Parse(c.APIBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute url: %q", c.APIBaseURL)
	}
	if !strings.HasPrefix(c.LoginPath, "/") {
		return fmt.Errorf("api.login_path must start with '/'")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	return nil
}

func (c DevAPIConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token.ttl_minutes must be positive")
	}
	if c.AdminPassword != "" && c.AdminUsername == "" {
		return fmt.Errorf("admin.username is required when admin.password is set")
	}
	return nil
}

func levelOrDefault(level, fallback string) string {
	trimmed := strings.TrimSpace(level)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}

func trimmedList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
