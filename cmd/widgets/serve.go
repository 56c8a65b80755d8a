package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-widgets/pkg/logging"
	"github.com/goliatone/go-widgets/pkg/preview"
	"github.com/goliatone/go-widgets/pkg/server"
	"github.com/goliatone/go-widgets/pkg/watch"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the widget preview API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kit, err := a.toolkit()
			if err != nil {
				return err
			}
			page, err := preview.New(preview.WithLogger(logging.Component(a.logger, "preview")))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if a.cfg.Server.Watch {
				w, err := watch.New(
					watch.Config{Dir: a.cfg.WidgetsDir},
					kit.Registry(),
					watch.WithResetter(kit.Service()),
					watch.WithLogger(a.logger),
				)
				if err != nil {
					return err
				}
				if err := w.Start(ctx); err != nil {
					return err
				}
				defer w.Stop()
			}

			srv := server.New(kit.Registry(), kit.Service(),
				server.WithPreview(page),
				server.WithTranslations(kit.Translations()),
				server.WithLogger(a.logger),
			)
			return srv.ListenAndServe(ctx, a.cfg.Server.Addr)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().Bool("watch", false, "reload definitions when the widgets directory changes")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = a.v.BindPFlag("server.watch", cmd.Flags().Lookup("watch"))
	return cmd
}
