package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"note-drop/pkg/server"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the notepad web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := setup(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer e.close()

			srv, err := server.New(e.cfg, e.store, e.log)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			e.log.Infow("Note-Drop ready",
				"addr", e.cfg.Server.Addr(),
				"store", e.cfg.Store.Driver,
				"base_url", e.cfg.App.BaseURL,
			)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			e.log.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return <-errCh
		},
	}
}
