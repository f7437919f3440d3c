package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTP struct {
		Addr string `validate:"required"`
	}
	API struct {
		URL     string        `validate:"required,url"`
		Timeout time.Duration `validate:"gt=0"`
	}
	Session struct {
		Secret          string        `validate:"required,min=32"`
		Lifetime        time.Duration `validate:"gt=0"`
		RefreshAfter    time.Duration `validate:"gt=0"`
		RetryAfter      time.Duration `validate:"gt=0"`
		InsecureCookies bool
	}
	DB struct {
		Driver string `validate:"oneof=sqlite3 mysql postgres"`
		DSN    string `validate:"required"`
	}
	Redis struct {
		URL string `validate:"omitempty,url"`
	}
	Cache struct {
		TTL time.Duration `validate:"gt=0"`
	}
	Log struct {
		Level  string `validate:"oneof=trace debug info warn error"`
		Format string `validate:"oneof=json console"`
	}
}

// envFiles are loaded, if present, before viper reads the environment.
// Existing environment variables are never overwritten.
var envFiles = []string{".env.local", ".env"}

// Load reads config from environment (TOMHASIT_ prefix), optional .env files
// and an optional tomhasit.yaml.
func Load() (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("TOMHASIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("tomhasit")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional config file

	// Names the frontend deployment already used.
	_ = v.BindEnv("api.url", "TOMHASIT_API_URL", "NEXT_PUBLIC_API_URL")
	_ = v.BindEnv("session.secret", "TOMHASIT_SESSION_SECRET", "NEXTAUTH_SECRET")

	v.SetDefault("http.addr", ":3000")
	v.SetDefault("api.url", "http://localhost:5001/api/v1")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("session.lifetime", "720h")
	v.SetDefault("session.refresh_after", "1h")
	v.SetDefault("session.retry_after", "1m")
	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("db.dsn", "tomhasit.db")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	cfg := &Config{}
	cfg.HTTP.Addr = v.GetString("http.addr")
	cfg.API.URL = strings.TrimRight(v.GetString("api.url"), "/")
	cfg.Session.Secret = v.GetString("session.secret")
	cfg.Session.InsecureCookies = v.GetBool("session.insecure_cookies")
	cfg.DB.Driver = v.GetString("db.driver")
	cfg.DB.DSN = v.GetString("db.dsn")
	cfg.Redis.URL = v.GetString("redis.url")
	cfg.Log.Level = strings.ToLower(v.GetString("log.level"))
	cfg.Log.Format = strings.ToLower(v.GetString("log.format"))

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"api.timeout", &cfg.API.Timeout},
		{"session.lifetime", &cfg.Session.Lifetime},
		{"session.refresh_after", &cfg.Session.RefreshAfter},
		{"session.retry_after", &cfg.Session.RetryAfter},
		{"cache.ttl", &cfg.Cache.TTL},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(v.GetString(d.key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", envName(d.key), err)
		}
		*d.dst = parsed
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg against its struct tags and reports the first
// offending setting by its environment variable name.
func Validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%s is invalid (%s)", envName(fieldKey(fe.Namespace())), fe.Tag())
	}
	return fmt.Errorf("validate config: %w", err)
}

// fieldKey turns a validator namespace ("Config.Session.RefreshAfter") into
// a config key ("session.refresh_after").
func fieldKey(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	if s == "URL" || s == "DSN" || s == "HTTP" || s == "API" || s == "TTL" || s == "DB" {
		return strings.ToLower(s)
	}
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func envName(key string) string {
	return "TOMHASIT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
