package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/notescan/internal/config"
	"github.com/thywilljoshua/notescan/internal/web"
)

func serveCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := web.New(web.Options{
				MaxUploadBytes: int64(cfg.MaxUploadMB) << 20,
				SessionTTL:     cfg.SessionTTL,
				AI:             cfg.AI(),
				Extract:        cfg.Extract(),
			})
			if err != nil {
				return err
			}
			return srv.Run(ctx, cfg.Addr)
		},
	}
	cmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	cmd.Flags().IntVar(&cfg.MaxUploadMB, "max-upload-mb", cfg.MaxUploadMB, "largest accepted upload in MB")
	cmd.Flags().DurationVar(&cfg.SessionTTL, "ttl", cfg.SessionTTL, "forget sessions idle for this long")
	return cmd
}
