// Package config loads rentd and rentctl settings. Sources are applied in
// order: built-in defaults, an optional YAML file, an optional .env file, then
// the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete application configuration.
type Config struct {
	Supabase SupabaseConfig `yaml:"supabase"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	RBAC     RBACConfig     `yaml:"rbac"`
}

// SupabaseConfig locates the hosted project.
type SupabaseConfig struct {
	URL       string `yaml:"url"`
	AnonKey   string `yaml:"anon_key"`
	JWTSecret string `yaml:"jwt_secret"`
	// Breaker settings for the REST client.
	FailureThreshold uint32        `yaml:"failure_threshold"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr               string        `yaml:"addr"`
	SignInURL          string        `yaml:"sign_in_url"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	RateLimitRPS       int           `yaml:"rate_limit_rps"`
	RateLimitBurst     int           `yaml:"rate_limit_burst"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig is the direct Postgres connection used for migrations.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RBACConfig locates the casbin model and policy.
type RBACConfig struct {
	ModelPath  string `yaml:"model_path"`
	PolicyPath string `yaml:"policy_path"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Supabase: SupabaseConfig{
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			SignInURL:       "/auth",
			RateLimitRPS:    20,
			RateLimitBurst:  40,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		RBAC: RBACConfig{
			ModelPath:  "config/rbac_model.conf",
			PolicyPath: "config/policy.csv",
		},
	}
}

// Load builds the configuration. yamlPath and envPath may be empty; an
// explicitly named YAML file must exist, a missing .env file is ignored.
func Load(yamlPath, envPath string) (*Config, error) {
	cfg := Default()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Supabase.URL, "SUPABASE_URL")
	setString(&c.Supabase.AnonKey, "SUPABASE_ANON_KEY")
	setString(&c.Supabase.JWTSecret, "SUPABASE_JWT_SECRET")
	setString(&c.Server.Addr, "RENTD_ADDR")
	setString(&c.Server.SignInURL, "SIGN_IN_URL")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.RBAC.ModelPath, "RBAC_MODEL_PATH")
	setString(&c.RBAC.PolicyPath, "RBAC_POLICY_PATH")

	if v := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.CORSAllowedOrigins = origins
	}
	if err := setInt(&c.Server.RateLimitRPS, "RATE_LIMIT_RPS"); err != nil {
		return err
	}
	return setInt(&c.Server.RateLimitBurst, "RATE_LIMIT_BURST")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

// ValidateSupabase checks the settings every Supabase-backed command needs.
func (c *Config) ValidateSupabase() error {
	if c.Supabase.URL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	u, err := url.Parse(c.Supabase.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("SUPABASE_URL must be an absolute URL")
	}
	if c.Supabase.AnonKey == "" {
		return fmt.Errorf("SUPABASE_ANON_KEY is required")
	}
	return nil
}

// ValidateServer checks the settings rentd needs.
func (c *Config) ValidateServer() error {
	if err := c.ValidateSupabase(); err != nil {
		return err
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server address is required")
	}
	if c.Server.RateLimitRPS <= 0 || c.Server.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	return nil
}

// ValidateDatabase checks the settings the migration tool needs.
func (c *Config) ValidateDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}
