package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "ARENA"

// ServerConfig holds the HTTP listener and connection admission settings
type ServerConfig struct {
	Addr          string `mapstructure:"addr"`
	PublicURL     string `mapstructure:"publicUrl"`
	MaxConnsPerIP int    `mapstructure:"maxConnsPerIp"`
	MaxTotalConns int    `mapstructure:"maxTotalConns"`
}

// RoomConfig bounds the room registry
type RoomConfig struct {
	MaxRooms      int           `mapstructure:"maxRooms"`
	IdleTimeout   time.Duration `mapstructure:"idleTimeout"`
	SweepInterval time.Duration `mapstructure:"sweepInterval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig enables signed identity tokens. An empty secret disables them.
type AuthConfig struct {
	Secret   string `mapstructure:"secret"`
	Required bool   `mapstructure:"required"`
}

// AnalyticsConfig enables the sqlite event log. An empty path disables it.
type AnalyticsConfig struct {
	Path          string        `mapstructure:"path"`
	FlushInterval time.Duration `mapstructure:"flushInterval"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Room      RoomConfig      `mapstructure:"room"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.publicUrl", "")
	v.SetDefault("server.maxConnsPerIp", 5)
	v.SetDefault("server.maxTotalConns", 1000)

	v.SetDefault("room.maxRooms", 100)
	v.SetDefault("room.idleTimeout", "2m")
	v.SetDefault("room.sweepInterval", "30s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.required", false)

	v.SetDefault("analytics.path", "")
	v.SetDefault("analytics.flushInterval", "5s")
}

// Load builds the configuration from defaults, an optional file and
// ARENA_-prefixed environment variables, in increasing precedence.
// An empty path skips the file; a named file that cannot be read is an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if c.Server.MaxConnsPerIP <= 0 || c.Server.MaxTotalConns <= 0 {
		errs = append(errs, errors.New("connection limits must be positive"))
	}
	if c.Room.MaxRooms <= 0 {
		errs = append(errs, errors.New("room.maxRooms must be positive"))
	}
	if c.Room.IdleTimeout <= 0 || c.Room.SweepInterval <= 0 {
		errs = append(errs, errors.New("room timeouts must be positive"))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}
	if c.Auth.Required && c.Auth.Secret == "" {
		errs = append(errs, errors.New("auth.required needs auth.secret"))
	}
	if c.Analytics.Path != "" && c.Analytics.FlushInterval <= 0 {
		errs = append(errs, errors.New("analytics.flushInterval must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
