package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geosample-cli/internal/catalog"
	"github.com/sells-group/geosample-cli/internal/model"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and fetch city catalogs",
}

// -- catalog stats --

var catalogStatsCmd = &cobra.Command{
	Use:   "stats <path>",
	Short: "Summarize a catalog file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		cat, err := catalog.Load(cmd.Context(), args[0], format, cfg.Catalog.Columns, cfg.Catalog.Shapefile)
		if err != nil {
			return eris.Wrap(err, "catalog stats")
		}

		formatCatalogStats(os.Stdout, cat)
		return nil
	},
}

// -- catalog validate --

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Check a catalog for skipped rows and duplicate names",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		cat, err := catalog.Load(cmd.Context(), args[0], format, cfg.Catalog.Columns, cfg.Catalog.Shapefile)
		if err != nil {
			return eris.Wrap(err, "catalog validate")
		}

		dupes := cat.DuplicateNames()
		formatCatalogValidation(os.Stdout, cat, dupes)

		if cat.Skipped > 0 || len(dupes) > 0 {
			os.Exit(1)
		}
		return nil
	},
}

// -- catalog fetch --

var catalogFetchCmd = &cobra.Command{
	Use:   "fetch <url> <dest>",
	Short: "Download a catalog over HTTP or FTP",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := &catalog.Fetcher{}
		n, err := f.Fetch(cmd.Context(), args[0], args[1])
		if err != nil {
			return eris.Wrap(err, "catalog fetch")
		}

		fmt.Printf("wrote %d bytes to %s\n", n, args[1])
		return nil
	},
}

func init() {
	catalogStatsCmd.Flags().String("format", "", "catalog format override (default: by extension)")
	catalogValidateCmd.Flags().String("format", "", "catalog format override (default: by extension)")

	catalogCmd.AddCommand(catalogStatsCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogFetchCmd)
	rootCmd.AddCommand(catalogCmd)
}

// formatCatalogStats writes catalog summary statistics to w.
func formatCatalogStats(out io.Writer, cat *catalog.Catalog) {
	var totalPop int64
	var top model.City
	minLat, maxLat := 90.0, -90.0
	minLng, maxLng := 180.0, -180.0

	for _, c := range cat.Cities {
		totalPop += c.Population
		if c.Population > top.Population {
			top = c
		}
		if c.Lat < minLat {
			minLat = c.Lat
		}
		if c.Lat > maxLat {
			maxLat = c.Lat
		}
		if c.Lng < minLng {
			minLng = c.Lng
		}
		if c.Lng > maxLng {
			maxLng = c.Lng
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Cities:\t%d\n", len(cat.Cities))
	_, _ = fmt.Fprintf(w, "Skipped rows:\t%d\n", cat.Skipped)
	_, _ = fmt.Fprintf(w, "Total population:\t%d\n", totalPop)
	if top.Name != "" {
		_, _ = fmt.Fprintf(w, "Largest city:\t%s (%d)\n", top.Name, top.Population)
	}
	if len(cat.Cities) > 0 {
		_, _ = fmt.Fprintf(w, "Lat range:\t%.4f to %.4f\n", minLat, maxLat)
		_, _ = fmt.Fprintf(w, "Lng range:\t%.4f to %.4f\n", minLng, maxLng)
	}
	_ = w.Flush()
}

// formatCatalogValidation writes validation findings to w.
func formatCatalogValidation(out io.Writer, cat *catalog.Catalog, dupes map[string][]int64) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Cities:\t%d\n", len(cat.Cities))
	_, _ = fmt.Fprintf(w, "Skipped rows:\t%d\n", cat.Skipped)
	_, _ = fmt.Fprintf(w, "Duplicate names:\t%d\n", len(dupes))
	_ = w.Flush()

	if len(dupes) == 0 {
		return
	}

	names := make([]string, 0, len(dupes))
	for name := range dupes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		_, _ = fmt.Fprintf(out, "  %s: ids %v\n", name, dupes[name])
	}
}
