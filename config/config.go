package config

import (
	"errors"
	"face-insight-api/logger"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// TierConfig describes the quota applied to one model type.
type TierConfig struct {
	Name   string        `mapstructure:"name"`
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

type Config struct {
	App struct {
		Timezone string `mapstructure:"timezone"`
		ResetURL string `mapstructure:"reset_url"`
	} `mapstructure:"app"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Database struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"database"`
	Redis struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Server struct {
		Port            string        `mapstructure:"port"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	JWT struct {
		SecretKey  string        `mapstructure:"secret_key"`
		Issuer     string        `mapstructure:"issuer"`
		AccessTTL  time.Duration `mapstructure:"access_ttl"`
		RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
		ResetTTL   time.Duration `mapstructure:"reset_ttl"`
	} `mapstructure:"jwt"`
	Store struct {
		Timeout         time.Duration `mapstructure:"timeout"`
		TokenRetention  time.Duration `mapstructure:"token_retention"`
		JanitorInterval time.Duration `mapstructure:"janitor_interval"`
	} `mapstructure:"store"`
	Quota struct {
		Backend string                `mapstructure:"backend"`
		Tiers   map[string]TierConfig `mapstructure:"tiers"`
		Trial   TierConfig            `mapstructure:"trial"`
	} `mapstructure:"quota"`
	Predictor struct {
		URL               string        `mapstructure:"url"`
		Timeout           time.Duration `mapstructure:"timeout"`
		RequestsPerSecond float64       `mapstructure:"requests_per_second"`
		Burst             int           `mapstructure:"burst"`
	} `mapstructure:"predictor"`
}

var AppConfig Config

// DefaultTiers are the per-model quotas used when config.yml defines none.
var DefaultTiers = map[string]TierConfig{
	"gs":   {Name: "30 per day", Limit: 30, Window: 24 * time.Hour},
	"as":   {Name: "30 per day", Limit: 30, Window: 24 * time.Hour},
	"gas":  {Name: "20 per day", Limit: 20, Window: 24 * time.Hour},
	"gat":  {Name: "10 per day", Limit: 10, Window: 24 * time.Hour},
	"eagt": {Name: "5 per day", Limit: 5, Window: 24 * time.Hour},
	"wrtv": {Name: "100 per hour", Limit: 100, Window: time.Hour},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.timezone", "Europe/Paris")
	v.SetDefault("app.reset_url", "http://localhost:4200/passwordforgot?token=")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "face_insight")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.issuer", "face-insight-api")
	v.SetDefault("jwt.access_ttl", time.Hour)
	v.SetDefault("jwt.refresh_ttl", 30*24*time.Hour)
	v.SetDefault("jwt.reset_ttl", 15*time.Minute)

	v.SetDefault("store.timeout", 2*time.Second)
	v.SetDefault("store.token_retention", 30*24*time.Hour)
	v.SetDefault("store.janitor_interval", time.Hour)

	v.SetDefault("quota.backend", "redis")
	v.SetDefault("quota.trial.name", "trial 5 per day")
	v.SetDefault("quota.trial.limit", 5)
	v.SetDefault("quota.trial.window", 24*time.Hour)

	v.SetDefault("predictor.url", "")
	v.SetDefault("predictor.timeout", 30*time.Second)
	v.SetDefault("predictor.requests_per_second", 5.0)
	v.SetDefault("predictor.burst", 10)
}

// Load reads config.yml from path (if present) and the environment into a Config.
// Environment variables use the upper-cased key with dots replaced by
// underscores, e.g. JWT_SECRET_KEY.
func Load(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
		logger.Log.WithField("path", path).Warn("No config file found, using defaults and environment")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	// Tiers are not merged with DefaultTiers: a model left out of the file
	// must stay unknown.
	if len(cfg.Quota.Tiers) == 0 {
		cfg.Quota.Tiers = make(map[string]TierConfig, len(DefaultTiers))
		for model, tier := range DefaultTiers {
			cfg.Quota.Tiers[model] = tier
		}
	}
	if cfg.JWT.SecretKey == "" {
		return Config{}, errors.New("jwt.secret_key must be set")
	}
	return cfg, nil
}

func LoadConfig(path string) {
	cfg, err := Load(path)
	if err != nil {
		logger.Log.Fatalf("Error loading configuration: %v", err)
	}
	AppConfig = cfg
}
