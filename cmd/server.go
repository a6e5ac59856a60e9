package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/court-scheduler/internal/booking"
	"github.com/example/court-scheduler/internal/config"
	"github.com/example/court-scheduler/internal/dispatch"
	"github.com/example/court-scheduler/internal/gate"
	"github.com/example/court-scheduler/internal/logging"
	"github.com/example/court-scheduler/internal/pipeline"
	"github.com/example/court-scheduler/internal/transport"
	"github.com/example/court-scheduler/internal/web"
)

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Run the web UI + dispatch engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
			ring := logging.NewRing(500)
			sink := logging.Tee(logging.Slog(logger), ring.Append)

			registry := booking.NewRegistry(sink)
			pipe := &pipeline.Pipeline{
				NewSession: func(cookie string) transport.FormPoster {
					return transport.NewSession(cfg.BaseURL, cookie, transport.Options{
						Timeout:   cfg.TransportTimeout,
						Referer:   cfg.Referer,
						UserAgent: cfg.UserAgent,
					})
				},
				Form:       cfg.Form,
				MaxRetries: cfg.MaxRetries,
				Log:        sink,
			}
			engine := dispatch.New(registry, pipe, sink, dispatch.Options{DequeueWait: cfg.DequeueWait})
			defer engine.Stop()

			srv := web.New(gate.New(cfg.GateSecret), engine, registry, ring, cfg.CookieHashKey, cfg.CookieBlockKey)

			logger.Info("listening", "addr", cfg.ListenAddr, "upstream", cfg.BaseURL)
			return web.Start(ctx, cfg.ListenAddr, srv.Routes())
		},
	}
}
