package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the process-wide settings loaded from .env, the environment and an
// optional config file.
type Config struct {
	PocketBaseURL            string
	PocketBaseUsername       string
	PocketBasePassword       string
	PocketBaseAuthCollection string

	RegistrationBaseURL  string
	RegistrationRPS      float64
	RegistrationMaxPages int
	RegistrationBrowser  bool
	ChromeBin            string
	HTTPTimeout          time.Duration

	RateLimitMs    int
	MaxConcurrency int
	MaxRetries     int

	PostgresDSN string

	LogLevel string
	LogJSON  bool

	// EnvFileLoaded is false when no .env file was found.
	EnvFileLoaded bool
}

var defaults = map[string]any{
	"pocketbase_url":             "",
	"pocketbase_username":        "",
	"pocketbase_password":        "",
	"pocketbase_auth_collection": "_superusers",
	"registration_base_url":      "https://more.app.vanderbilt.edu/more",
	"registration_rps":           2.0,
	"registration_max_pages":     500,
	"registration_browser":       false,
	"chrome_bin":                 "",
	"http_timeout":               "30s",
	"rate_limit_ms":              250,
	"max_concurrency":            4,
	"max_retries":                1,
	"postgres_dsn":               "host=localhost port=5432 user=scraper password=scraper dbname=classconnect sslmode=disable",
	"log_level":                  "info",
	"log_json":                   false,
}

// Load reads the .env file (without overriding variables already set), then layers
// defaults, the config file at path (if any) and the environment.
func Load(path string) (*Config, error) {
	envLoaded := godotenv.Load() == nil

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WithHint(
				errors.Wrapf(err, "config: read %q", path),
				"the config file extension selects the format: .yaml, .json or .toml",
			)
		}
	}

	return &Config{
		PocketBaseURL:            strings.TrimRight(v.GetString("pocketbase_url"), "/"),
		PocketBaseUsername:       v.GetString("pocketbase_username"),
		PocketBasePassword:       v.GetString("pocketbase_password"),
		PocketBaseAuthCollection: v.GetString("pocketbase_auth_collection"),

		RegistrationBaseURL:  strings.TrimRight(v.GetString("registration_base_url"), "/"),
		RegistrationRPS:      v.GetFloat64("registration_rps"),
		RegistrationMaxPages: v.GetInt("registration_max_pages"),
		RegistrationBrowser:  v.GetBool("registration_browser"),
		ChromeBin:            v.GetString("chrome_bin"),
		HTTPTimeout:          v.GetDuration("http_timeout"),

		RateLimitMs:    v.GetInt("rate_limit_ms"),
		MaxConcurrency: v.GetInt("max_concurrency"),
		MaxRetries:     v.GetInt("max_retries"),

		PostgresDSN: v.GetString("postgres_dsn"),

		LogLevel: v.GetString("log_level"),
		LogJSON:  v.GetBool("log_json"),

		EnvFileLoaded: envLoaded,
	}, nil
}

// RateLimit is the minimum spacing between backend create requests.
func (c *Config) RateLimit() time.Duration {
	return time.Duration(c.RateLimitMs) * time.Millisecond
}
