package cli

import (
	"context"
	"fmt"

	"note-drop/pkg/config"
	"note-drop/pkg/logger"
	"note-drop/pkg/store"

	"github.com/spf13/cobra"
)

// NewRootCommand wires every subcommand under the notedrop binary.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "notedrop",
		Short:         "Note-Drop online notepad",
		Long:          "Note-Drop serves a markdown notepad where every page is addressed by a short slug and auto-saved as you type.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to a config file (yaml, toml or json)")

	root.AddCommand(NewServeCommand())
	root.AddCommand(NewGetCommand())
	root.AddCommand(NewPutCommand())
	root.AddCommand(NewExportCommand())
	root.AddCommand(NewImportCommand())
	root.AddCommand(NewWatchCommand())
	return root
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// env bundles what most commands need. close releases the store and
// flushes the logger.
type env struct {
	cfg   *config.Config
	log   *logger.Logger
	store store.Store
}

func (e *env) close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.log.Warnw("Failed to close store", "error", err)
		}
	}
	_ = e.log.Close()
}

func setup(ctx context.Context, cmd *cobra.Command, withStore bool) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	e := &env{cfg: cfg, log: log}
	if withStore {
		st, err := store.Open(ctx, cfg.Store, log)
		if err != nil {
			_ = log.Close()
			return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
		}
		e.store = st
	}
	return e, nil
}
