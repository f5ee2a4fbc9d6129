// Package config loads gitfolio settings from defaults, an optional config
// file and GITFOLIO_* environment variables, in that order of precedence
// (lowest first).
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sakif/gitfolio/internal/logging"
	"github.com/sakif/gitfolio/internal/repository/sqlstore"
)

// EnvPrefix is prepended to every environment override: http.port becomes
// GITFOLIO_HTTP_PORT.
const EnvPrefix = "gitfolio"

// Keys.
const (
	KeyHTTPPort          = "http.port"
	KeyDatabaseDriver    = "database.driver"
	KeyDatabaseDSN       = "database.dsn"
	KeyDatabaseMaxConns  = "database.max_open_conns"
	KeyAPISecret         = "auth.api_secret"
	KeyAPISecretHash     = "auth.api_secret_hash"
	KeySessionSecret     = "auth.session_secret"
	KeySessionTTL        = "auth.session_ttl"
	KeyCookieSecure      = "auth.cookie_secure"
	KeyPortfolioBaseURL  = "portfolio.base_url"
	KeyGitHubAPIURL      = "github.api_url"
	KeyGitHubToken       = "github.token"
	KeyGitHubTimeout     = "github.timeout"
	KeyLogLevel          = "log.level"
	KeyLogFormat         = "log.format"
	KeyLogFile           = "log.file"
	KeyMetricsNamespace  = "metrics.namespace"
	KeyShutdownTimeout   = "http.shutdown_timeout"
	keyConfigFileEnvName = "GITFOLIO_CONFIG"
)

// DefaultValues is applied before the config file and the environment.
var DefaultValues = map[string]any{
	KeyHTTPPort:         8080,
	KeyDatabaseDriver:   string(sqlstore.DialectSQLite),
	KeyDatabaseDSN:      "data/gitfolio.db",
	KeyDatabaseMaxConns: 10,
	KeySessionTTL:       "168h",
	KeyCookieSecure:     false,
	KeyPortfolioBaseURL: "http://localhost:8080",
	KeyGitHubAPIURL:     "https://api.github.com",
	KeyGitHubTimeout:    "10s",
	KeyLogLevel:         "info",
	KeyLogFormat:        "text",
	KeyMetricsNamespace: "gitfolio",
	KeyShutdownTimeout:  "30s",
}

type Config struct {
	HTTP      HTTP
	Database  sqlstore.Options
	Auth      Auth
	Portfolio Portfolio
	GitHub    GitHub
	Log       logging.Config
	Metrics   Metrics
}

type HTTP struct {
	Port            int
	ShutdownTimeout time.Duration
}

type Auth struct {
	// APISecret and APISecretHash are alternatives; a hash takes precedence.
	APISecret     string
	APISecretHash string
	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool
}

type Portfolio struct {
	// BaseURL prefixes share links: BaseURL + "/" + github_username.
	BaseURL string
}

type GitHub struct {
	APIURL  string
	Token   string
	Timeout time.Duration
}

type Metrics struct {
	Namespace string
}

// Load reads configuration for the server. configFile may be empty, in which
// case GITFOLIO_CONFIG is consulted and, failing that, no file is read.
func Load(configFile string) (*Config, error) {
	cfg, err := read(viper.New(), configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadForStore is Load for commands that only touch the database (migrate,
// admin listings); auth settings may be absent.
func LoadForStore(configFile string) (*Config, error) {
	cfg, err := read(viper.New(), configFile)
	if err != nil {
		return nil, err
	}
	if err := errors.Join(cfg.validateStore()...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func read(v *viper.Viper, configFile string) (*Config, error) {
	for key, val := range DefaultValues {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		configFile = os.Getenv(keyConfigFileEnvName)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		HTTP: HTTP{
			Port:            v.GetInt(KeyHTTPPort),
			ShutdownTimeout: v.GetDuration(KeyShutdownTimeout),
		},
		Database: sqlstore.Options{
			Driver:       sqlstore.Dialect(strings.ToLower(v.GetString(KeyDatabaseDriver))),
			DSN:          v.GetString(KeyDatabaseDSN),
			MaxOpenConns: v.GetInt(KeyDatabaseMaxConns),
		},
		Auth: Auth{
			APISecret:     v.GetString(KeyAPISecret),
			APISecretHash: v.GetString(KeyAPISecretHash),
			SessionSecret: v.GetString(KeySessionSecret),
			SessionTTL:    v.GetDuration(KeySessionTTL),
			CookieSecure:  v.GetBool(KeyCookieSecure),
		},
		Portfolio: Portfolio{
			BaseURL: strings.TrimRight(v.GetString(KeyPortfolioBaseURL), "/"),
		},
		GitHub: GitHub{
			APIURL:  v.GetString(KeyGitHubAPIURL),
			Token:   v.GetString(KeyGitHubToken),
			Timeout: v.GetDuration(KeyGitHubTimeout),
		},
		Log: logging.Config{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
			File:   v.GetString(KeyLogFile),
		},
		Metrics: Metrics{
			Namespace: v.GetString(KeyMetricsNamespace),
		},
	}

	return cfg, nil
}

// Validate reports every missing or malformed value at once rather than
// stopping at the first.
func (c *Config) Validate() error {
	var missing []string
	if c.Auth.APISecret == "" && c.Auth.APISecretHash == "" {
		missing = append(missing, KeyAPISecret+" (or "+KeyAPISecretHash+")")
	}
	if c.Auth.SessionSecret == "" {
		missing = append(missing, KeySessionSecret)
	}
	if c.Portfolio.BaseURL == "" {
		missing = append(missing, KeyPortfolioBaseURL)
	}

	var errs []error
	if len(missing) > 0 {
		sort.Strings(missing)
		errs = append(errs, fmt.Errorf("missing required settings: %s", strings.Join(missing, ", ")))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("%s must be between 1 and 65535, got %d", KeyHTTPPort, c.HTTP.Port))
	}
	errs = append(errs, c.validateStore()...)
	if c.Auth.SessionSecret != "" && len(c.Auth.SessionSecret) < 16 {
		errs = append(errs, fmt.Errorf("%s must be at least 16 characters", KeySessionSecret))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeySessionTTL))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) validateStore() []error {
	var errs []error
	if c.Database.DSN == "" {
		errs = append(errs, fmt.Errorf("missing required settings: %s", KeyDatabaseDSN))
	}
	switch c.Database.Driver {
	case sqlstore.DialectSQLite, sqlstore.DialectPostgres:
	default:
		errs = append(errs, fmt.Errorf("%s must be %q or %q, got %q",
			KeyDatabaseDriver, sqlstore.DialectSQLite, sqlstore.DialectPostgres, c.Database.Driver))
	}
	return errs
}
