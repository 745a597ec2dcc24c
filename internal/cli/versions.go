package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/msomdec/gallery/internal/config"
	"github.com/msomdec/gallery/internal/domain"
	"github.com/spf13/cobra"
)

func newVersionsCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var oneline bool

	cmd := &cobra.Command{
		Use:   "versions <asset-id>",
		Short: "Show the edition history of an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cmd, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			editions, err := db.Editions().ListEditions(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("list editions: %w", err)
			}
			printVersions(cmd.OutOrStdout(), args[0], editions, oneline)
			return nil
		},
	}
	cmd.Flags().BoolVar(&oneline, "oneline", false, "show each edition on a single line")
	return cmd
}

func printVersions(w io.Writer, assetID string, editions []domain.Edition, oneline bool) {
	if len(editions) == 0 {
		fmt.Fprintf(w, "No editions for asset %s\n", assetID)
		return
	}

	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	magenta := color.New(color.FgMagenta)

	// Newest first.
	for i := len(editions) - 1; i >= 0; i-- {
		e := editions[i]
		if oneline {
			yellow.Fprintf(w, "v%d", e.VersionNumber)
			printMarkers(w, e, cyan, magenta)
			fmt.Fprintf(w, " %s\n", e.Location.FileName)
			continue
		}

		yellow.Fprintf(w, "version %d", e.VersionNumber)
		printMarkers(w, e, cyan, magenta)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "File:   %s\n", e.Location.Key())
		fmt.Fprintf(w, "Date:   %s\n", e.CreatedAt.Format("Mon Jan 2 15:04:05 2006"))
		if e.Width != nil && e.Height != nil {
			fmt.Fprintf(w, "Size:   %dx%d %s\n", *e.Width, *e.Height, e.ContentType)
		} else {
			fmt.Fprintf(w, "Type:   %s\n", e.ContentType)
		}
		if len(e.EditsApplied) > 0 {
			kinds := make([]string, len(e.EditsApplied))
			for j, rec := range e.EditsApplied {
				kinds[j] = string(rec.Type)
			}
			fmt.Fprintf(w, "\n    %s\n", strings.Join(kinds, " -> "))
		}
		fmt.Fprintln(w)
	}
}

func printMarkers(w io.Writer, e domain.Edition, cyan, magenta *color.Color) {
	if e.IsCurrent {
		cyan.Fprint(w, " (current)")
	}
	if e.IsOriginal {
		magenta.Fprint(w, " [original]")
	}
}
