package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpfielding/geoview.go/pkg/annotation"
	"github.com/jpfielding/geoview.go/pkg/assist"
	"github.com/jpfielding/geoview.go/pkg/interchange"
	"github.com/jpfielding/geoview.go/pkg/session"
	"github.com/jpfielding/geoview.go/pkg/upload"
)

// NewAnnotationsCmd validates and normalizes a geometry interchange file:
// records are decoded (malformed ones skipped with a warning), admitted
// through the store and re-exported.
func NewAnnotationsCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotations",
		Short: "validate and normalize a geometry interchange file",
		Long:  "validate and normalize a geometry interchange file",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(cmd)
			if err != nil {
				return err
			}
			defer in.Close()

			recs, err := interchange.ReadAll(in)
			if err != nil {
				return fmt.Errorf("reading interchange file: %w", err)
			}

			anns, skipped := interchange.DecodeAll(recs)
			store := annotation.NewStore()
			for _, a := range anns {
				if _, err := store.Add(a); err != nil {
					slog.WarnContext(ctx, "record rejected by store",
						slog.String("id", a.ID),
						slog.String("error", err.Error()))
					skipped = append(skipped, interchange.Skipped{Err: err})
				}
			}

			slog.InfoContext(ctx, "interchange file processed",
				slog.Int("admitted", store.Len()),
				slog.Int("skipped", len(skipped)))

			return interchange.WriteAll(os.Stdout, store.List())
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("uri", "u", "-", "interchange file path, or - for stdin")
	return cmd
}

// NewSuggestCmd runs the labeling-suggestion collaborator and prints the
// merged annotation set.
func NewSuggestCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "merge labeling suggestions for a raster and print the result",
		Long:  "merge labeling suggestions for a raster and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, _ := cmd.Flags().GetString("locator")

			var suggester assist.Suggester = assist.StaticSuggester{}
			recs, err := suggester.Suggest(ctx, upload.Locator(loc))
			if err != nil {
				return fmt.Errorf("fetching suggestions: %w", err)
			}

			s := session.New(0, 0)
			added, skipped := s.Merge(recs)
			slog.InfoContext(ctx, "suggestions merged",
				slog.Int("added", added),
				slog.Int("skipped", skipped))

			return interchange.WriteAll(os.Stdout, s.Store().List())
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("locator", "l", "", "stored-object locator to suggest against")
	return cmd
}
