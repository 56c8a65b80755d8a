package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/goliatone/go-widgets/pkg/logging"
)

// Config is the CLI configuration, read from widgets.yaml, WIDGETS_*
// environment variables and flags, in increasing priority.
type Config struct {
	WidgetsDir   string       `mapstructure:"widgets_dir"`
	Translations string       `mapstructure:"translations"`
	Lang         string       `mapstructure:"lang"`
	Cache        bool         `mapstructure:"cache"`
	Trace        bool         `mapstructure:"trace"`
	Log          LogConfig    `mapstructure:"log"`
	Server       ServerConfig `mapstructure:"server"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig configures `widgets serve`.
type ServerConfig struct {
	Addr  string `mapstructure:"addr"`
	Watch bool   `mapstructure:"watch"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		WidgetsDir: "widgets",
		Lang:       "en",
		Cache:      true,
		Log:        LogConfig{Level: "info", Format: "text"},
		Server:     ServerConfig{Addr: ":8080"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("widgets_dir", d.WidgetsDir)
	v.SetDefault("translations", d.Translations)
	v.SetDefault("lang", d.Lang)
	v.SetDefault("cache", d.Cache)
	v.SetDefault("trace", d.Trace)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.watch", d.Server.Watch)
}

// loadConfig reads the config file, if any, into v and decodes it.
// cfgFile overrides the lookup of widgets.yaml in the working directory.
func loadConfig(v *viper.Viper, cfgFile string) (Config, error) {
	setDefaults(v)
	v.SetEnvPrefix("WIDGETS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("widgets")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg LogConfig, out io.Writer) *slog.Logger {
	if out == nil {
		out = os.Stderr
	}
	return logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Level),
		Format: logging.ParseFormat(cfg.Format),
		Output: out,
	})
}
