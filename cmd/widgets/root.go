package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	widgets "github.com/goliatone/go-widgets"
	"github.com/goliatone/go-widgets/pkg/engine/ejs"
	"github.com/goliatone/go-widgets/pkg/render"
)

// app carries the state shared by the subcommands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     Config
	logger  *slog.Logger
	tracer  *sdktrace.TracerProvider
}

func newRootCmd(version string) *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "widgets",
		Short:         "Render, lint and serve editor widgets",
		Long:          `widgets renders widget templates written for the mustache or ejs engines, validates widget definitions and serves an HTTP preview API.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default: ./widgets.yaml)")
	flags.StringP("widgets-dir", "d", "", "directory holding widget definitions")
	flags.String("translations", "", "directory holding global translation files")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: text or json")
	flags.Bool("trace", false, "print render spans to stderr")
	flags.Bool("no-cache", false, "disable the compiled template cache")

	_ = a.v.BindPFlag("widgets_dir", flags.Lookup("widgets-dir"))
	_ = a.v.BindPFlag("translations", flags.Lookup("translations"))
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = a.v.BindPFlag("trace", flags.Lookup("trace"))

	root.AddCommand(
		newListCmd(a),
		newLintCmd(a),
		newRenderCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache = false
	}
	a.cfg = cfg
	a.logger = newLogger(cfg.Log, cmd.ErrOrStderr())

	if cfg.Trace {
		tp, err := newTracerProvider(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		a.tracer = tp
	}
	return nil
}

func (a *app) close(ctx context.Context) error {
	if a.tracer == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return a.tracer.Shutdown(ctx)
}

// toolkit builds a Toolkit with the configured definitions and translations
// loaded.
func (a *app) toolkit() (*widgets.Toolkit, error) {
	opts := []render.Option{render.WithLogger(a.logger)}
	if a.tracer != nil {
		opts = append(opts, render.WithTracerProvider(a.tracer))
	}
	if !a.cfg.Cache {
		opts = append(opts, render.WithEJSOptions(ejs.WithCache(false)))
	}
	kit := widgets.New(widgets.WithLogger(a.logger), widgets.WithRenderOptions(opts...))

	if dir := a.cfg.WidgetsDir; dir != "" {
		if _, err := os.Stat(dir); err == nil {
			if err := kit.LoadFS(os.DirFS(dir)); err != nil {
				return nil, err
			}
		} else {
			a.logger.Debug("widgets directory not found", slog.String("dir", dir))
		}
	}
	if dir := a.cfg.Translations; dir != "" {
		if err := kit.LoadTranslationsFS(os.DirFS(dir)); err != nil {
			return nil, fmt.Errorf("load translations: %w", err)
		}
	}
	return kit, nil
}
