package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/notescan/internal/convert"
	"github.com/thywilljoshua/notescan/internal/outline"
	"github.com/thywilljoshua/notescan/internal/populate"
)

func generateCmd() *cobra.Command {
	var formats []string
	var tmplPath, outDir string

	cmd := &cobra.Command{
		Use:   "generate <outline.json>",
		Short: "Populate output documents from a blueprint outline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			o, err := outline.Parse(data)
			if err != nil {
				return err
			}
			var tmpl []byte
			if tmplPath != "" {
				if len(formats) != 1 {
					return fmt.Errorf("--template needs exactly one --format")
				}
				if tmpl, err = os.ReadFile(tmplPath); err != nil {
					return err
				}
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			base := convert.Slug(o.Title(), "outline")
			for _, name := range formats {
				f, err := populate.ParseFormat(name)
				if err != nil {
					return err
				}
				b, err := populate.Populate(o, f, populate.Options{Template: tmpl})
				if err != nil {
					return err
				}
				path := filepath.Join(outDir, base+f.Extension())
				if err := os.WriteFile(path, b, 0o644); err != nil {
					return err
				}
				slog.Info("Wrote output.", "format", f, "path", path, "bytes", len(b))
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&formats, "format", "f", []string{"pptx"}, "output formats: pptx, docx, md, pdf")
	cmd.Flags().StringVarP(&tmplPath, "template", "t", "", "template file for the single output format")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	return cmd
}
