package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"note-drop/pkg/client"
	"note-drop/pkg/editor"
	"note-drop/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <slug> <file>",
		Short: "Auto-save a local markdown file to a page on a running server",
		Long: "watch feeds every change of <file> into an editor session that saves it to <slug> " +
			"once edits pause for the configured debounce interval.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := setup(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer e.close()

			apiURL, _ := cmd.Flags().GetString("api")
			if apiURL == "" {
				apiURL = e.cfg.Editor.APIURL
			}
			return watchFile(ctx, client.New(apiURL, nil), args[0], args[1], e.cfg.Editor.Debounce, e.log)
		},
	}
	cmd.Flags().String("api", "", "server base URL (default editor.api_url)")
	return cmd
}

type pageClient interface {
	editor.Persister
	Get(ctx context.Context, slug string) (string, error)
}

func watchFile(ctx context.Context, c pageClient, slug, path string, debounce time.Duration, log *logger.Logger) error {
	base := log
	log = log.WithComponent("watch").WithSlug(slug)

	remote, err := c.Get(ctx, slug)
	if err != nil {
		return fmt.Errorf("failed to load page: %w", err)
	}

	// a missing local file starts from the server copy
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(path, []byte(remote), 0644); err != nil {
			return err
		}
	}

	session := editor.NewSession(slug, remote, c,
		editor.WithDebounce(debounce),
		editor.WithLogger(base),
		editor.WithStatusHook(func(s editor.Status) {
			log.Infow("Save status", "status", s.Indicator())
		}),
	)
	defer session.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// watch the directory so editors that replace the file are still seen
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	load := func() {
		content, err := os.ReadFile(abs)
		if err != nil {
			log.Warnw("Failed to read file", "file", abs, "error", err)
			return
		}
		session.SetText(string(content))
	}
	load()
	log.Infow("Watching", "file", abs)

	for {
		select {
		case <-ctx.Done():
			return session.Flush(context.Background())
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				load()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnw("Watcher error", "error", err)
		}
	}
}
