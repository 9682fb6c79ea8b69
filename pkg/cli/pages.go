package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"note-drop/pkg/services"
	"note-drop/pkg/store"

	"github.com/spf13/cobra"
)

func NewGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <slug>",
		Short: "Print the markdown stored for a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer e.close()

			markdown, err := e.store.Get(ctx, args[0])
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), markdown)
			return err
		},
	}
}

func NewPutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "put <slug> [file]",
		Short: "Store markdown for a page from a file or stdin",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var content []byte
			var err error
			if len(args) == 2 && args[1] != "-" {
				content, err = os.ReadFile(args[1])
			} else {
				content, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read markdown: %w", err)
			}

			e, err := setup(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.store.Put(ctx, args[0], string(content)); err != nil {
				return err
			}
			e.log.Infow("Page saved", "slug", args[0], "bytes", len(content))
			return nil
		},
	}
}

func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump every page as one json, yaml or toml mapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			format, _ := cmd.Flags().GetString("format")
			out, _ := cmd.Flags().GetString("out")
			if format == "" {
				format = services.FormatFromPath(out)
			}

			e, err := setup(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer e.close()

			pages, err := services.ExportPages(ctx, e.store)
			if err != nil {
				return err
			}
			data, err := services.EncodePages(pages, format)
			if err != nil {
				return err
			}

			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0644); err != nil {
				return err
			}
			e.log.Infow("Export written", "file", out, "pages", len(pages), "format", format)
			return nil
		},
	}
	cmd.Flags().StringP("format", "f", "", "output format: json, yaml or toml (default from --out extension, else json)")
	cmd.Flags().StringP("out", "o", "", "write to this file instead of stdout")
	return cmd
}

func NewImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Store every page of an exported mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			format, _ := cmd.Flags().GetString("format")
			if format == "" {
				format = services.FormatFromPath(args[0])
			}

			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			pages, err := services.DecodePages(content, format)
			if err != nil {
				return err
			}

			e, err := setup(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer e.close()

			n, err := services.ImportPages(ctx, e.store, pages)
			if err != nil {
				return fmt.Errorf("imported %d of %d pages: %w", n, len(pages), err)
			}
			e.log.Infow("Import finished", "file", args[0], "pages", n)
			return nil
		},
	}
	cmd.Flags().StringP("format", "f", "", "input format: json, yaml or toml (default from file extension)")
	return cmd
}
