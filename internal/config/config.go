package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration (file + env overrides)
type Config struct {
	Server struct {
		Addr     string `mapstructure:"addr"`
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"server"`

	Postgres struct {
		Host         string `mapstructure:"host"`
		Port         int    `mapstructure:"port"`
		User         string `mapstructure:"user"`
		Password     string `mapstructure:"password"`
		DBName       string `mapstructure:"db_name"`
		SSLMode      string `mapstructure:"ssl_mode"`
		MaxOpenConns int    `mapstructure:"max_open_conns"`
		MaxIdleConns int    `mapstructure:"max_idle_conns"`
	} `mapstructure:"postgres"`

	Listener struct {
		Channel          string `mapstructure:"channel"`
		ReconnectSeconds int    `mapstructure:"reconnect_seconds"`
	} `mapstructure:"listener"`

	Sessions struct {
		Max int `mapstructure:"max"`
	} `mapstructure:"sessions"`

	Integration Integration `mapstructure:"integration"`
}

// Integration holds the options of one adapter instance. An instance
// never sees them change.
type Integration struct {
	// Listen emits "Experiment Viewed" per active experiment or campaign.
	Listen bool `mapstructure:"listen" json:"listen"`
	// Variations replays experiment name to variation name as traits.
	Variations            bool `mapstructure:"variations" json:"variations"`
	TrackCategorizedPages bool `mapstructure:"track_categorized_pages" json:"trackCategorizedPages"`
	TrackNamedPages       bool `mapstructure:"track_named_pages" json:"trackNamedPages"`
	NonInteraction        bool `mapstructure:"non_interaction" json:"nonInteraction"`
}

func DefaultIntegration() Integration {
	return Integration{
		TrackCategorizedPages: true,
		TrackNamedPages:       true,
	}
}

// IntegrationPatch overrides individual options; nil fields keep the base.
type IntegrationPatch struct {
	Listen                *bool `json:"listen,omitempty"`
	Variations            *bool `json:"variations,omitempty"`
	TrackCategorizedPages *bool `json:"trackCategorizedPages,omitempty"`
	TrackNamedPages       *bool `json:"trackNamedPages,omitempty"`
	NonInteraction        *bool `json:"nonInteraction,omitempty"`
}

func (i Integration) Apply(p *IntegrationPatch) Integration {
	if p == nil {
		return i
	}
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&i.Listen, p.Listen)
	set(&i.Variations, p.Variations)
	set(&i.TrackCategorizedPages, p.TrackCategorizedPages)
	set(&i.TrackNamedPages, p.TrackNamedPages)
	set(&i.NonInteraction, p.NonInteraction)
	return i
}

func Load() Config {
	_ = godotenv.Load() // optional .env for local runs

	v := viper.New()
	v.SetConfigName("application")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	setDefaults(v)
	_ = v.ReadInConfig() // optional; env can fully configure

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := decode(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	def := DefaultIntegration()
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("postgres.host", "")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.db_name", "")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("listener.channel", "")
	v.SetDefault("listener.reconnect_seconds", 5)
	v.SetDefault("sessions.max", 10000)
	v.SetDefault("integration.listen", def.Listen)
	v.SetDefault("integration.variations", def.Variations)
	v.SetDefault("integration.track_categorized_pages", def.TrackCategorizedPages)
	v.SetDefault("integration.track_named_pages", def.TrackNamedPages)
	v.SetDefault("integration.non_interaction", def.NonInteraction)
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to decode config: %w", err)
	}
	validate(&cfg)
	return cfg, nil
}

func validate(c *Config) {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
	if c.Postgres.MaxOpenConns == 0 {
		c.Postgres.MaxOpenConns = 10
	}
	if c.Postgres.MaxIdleConns == 0 {
		c.Postgres.MaxIdleConns = 2
	}
	if c.Listener.ReconnectSeconds <= 0 {
		c.Listener.ReconnectSeconds = 5
	}
	if c.Sessions.Max <= 0 {
		c.Sessions.Max = 10000
	}
}

// PostgresEnabled reports whether an event sink database is configured.
func (c Config) PostgresEnabled() bool { return c.Postgres.Host != "" }

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.DBName,
		c.Postgres.SSLMode,
	)
}

func (c Config) Backoff() time.Duration { return time.Duration(c.Listener.ReconnectSeconds) * time.Second }
