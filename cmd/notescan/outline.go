package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/notescan/internal/config"
	"github.com/thywilljoshua/notescan/internal/convert"
)

func outlineCmd(cfg *config.Config) *cobra.Command {
	var out, textOut string
	var maxBullets, tocPages int

	cmd := &cobra.Command{
		Use:   "outline <pdf>",
		Short: "Extract a PDF and print its outline as blueprint JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pdf, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			conf, err := pipeline(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			conf.MaxBullets = maxBullets
			conf.ToCPages = tocPages

			res, err := convert.Run(cmd.Context(), pdf, conf)
			if err != nil {
				return err
			}
			slog.Info("Outline ready.", "pages", res.Pages, "source", res.Source,
				"sections", len(res.Outline.Sections), "heuristic", res.Heuristic)

			if textOut != "" {
				if err := os.WriteFile(textOut, []byte(res.Text), 0o644); err != nil {
					return err
				}
			}
			b, err := res.Outline.MarshalBlueprint()
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}
			return os.WriteFile(out, append(b, '\n'), 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the outline here instead of stdout")
	cmd.Flags().StringVar(&textOut, "text", "", "also write the cleaned text to this file")
	cmd.Flags().IntVar(&maxBullets, "max-bullets", 6, "bullets per heuristic slide before it is split")
	cmd.Flags().IntVar(&tocPages, "toc-pages", 16, "scan up to N early pages for a table of contents")
	return cmd
}
