package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geosample-cli/internal/catalog"
	"github.com/sells-group/geosample-cli/internal/dispersion"
	"github.com/sells-group/geosample-cli/internal/export"
	"github.com/sells-group/geosample-cli/internal/model"
)

var (
	selectCatalogPath  string
	selectFormat       string
	selectN            int
	selectMinDistance  float64
	selectPopMin       int64
	selectWorkers      int
	selectMaxIter      int
	selectOutputFormat string
	selectOutputPath   string
	selectManifestPath string
	selectNoStore      bool
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Select a dispersed city subset from a catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		catalogPath := selectCatalogPath
		if catalogPath == "" {
			catalogPath = cfg.Catalog.Path
		}
		if catalogPath == "" {
			return eris.New("catalog path is required (--catalog or GEOSAMPLE_CATALOG_PATH)")
		}

		params := model.RunParams{
			NCities:       selectN,
			MinDistanceKm: selectMinDistance,
			PopulationMin: selectPopMin,
			Catalog:       catalogPath,
		}
		if !cmd.Flags().Changed("n-cities") {
			params.NCities = cfg.Selection.NCities
		}
		if !cmd.Flags().Changed("min-distance") {
			params.MinDistanceKm = cfg.Selection.MinDistanceKm
		}
		if !cmd.Flags().Changed("population-min") {
			params.PopulationMin = cfg.Catalog.PopulationMin
		}

		cat, err := catalog.Load(ctx, catalogPath, selectFormat, cfg.Catalog.Columns, cfg.Catalog.Shapefile)
		if err != nil {
			return eris.Wrap(err, "load catalog")
		}
		pool := cat.FilterPopulation(params.PopulationMin)

		zap.L().Info("catalog loaded",
			zap.String("path", catalogPath),
			zap.Int("cities", len(cat.Cities)),
			zap.Int("skipped", cat.Skipped),
			zap.Int("pool", len(pool)),
		)

		workers := selectWorkers
		if workers == 0 {
			workers = cfg.Selection.Workers
		}
		maxIter := selectMaxIter
		if maxIter == 0 {
			maxIter = cfg.Selection.MaxRepairIterations
		}

		p := dispersion.Pipeline{
			Selector: dispersion.Selector{Workers: workers},
			Repairer: dispersion.Repairer{MaxIterations: maxIter},
		}
		result, err := p.Run(ctx, pool, params)
		if err != nil {
			return eris.Wrap(err, "selection pipeline")
		}

		for _, w := range result.Warnings {
			zap.L().Warn("selection warning",
				zap.String("kind", string(w.Kind)),
				zap.String("message", w.Message),
			)
		}

		runID := ""
		createdAt := time.Now().UTC()
		if !selectNoStore {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			run, err := st.CreateRun(ctx, params, result.Cities, result.Warnings)
			if err != nil {
				return eris.Wrap(err, "persist run")
			}
			runID = run.ID
			createdAt = run.CreatedAt
			zap.L().Info("run persisted", zap.String("run_id", run.ID), zap.String("status", string(run.Status)))
		}

		out := os.Stdout
		if selectOutputPath != "" {
			f, err := os.Create(selectOutputPath)
			if err != nil {
				return eris.Wrap(err, "create output file")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		if err := writeSelection(out, selectOutputFormat, result); err != nil {
			return err
		}

		if selectManifestPath != "" {
			f, err := os.Create(selectManifestPath)
			if err != nil {
				return eris.Wrap(err, "create manifest file")
			}
			defer f.Close() //nolint:errcheck

			m := export.Manifest{
				RunID:     runID,
				CreatedAt: createdAt,
				Params:    params,
				Selected:  len(result.Cities),
				ClosestKm: result.ClosestKm,
				CityIDs:   result.Cities.IDs(),
			}
			for _, w := range result.Warnings {
				m.Warnings = append(m.Warnings, w.Message)
			}
			if err := export.WriteManifest(f, m); err != nil {
				return eris.Wrap(err, "write manifest")
			}
		}

		return nil
	},
}

// writeSelection renders a pipeline result in the requested format.
func writeSelection(w io.Writer, format string, result *dispersion.Result) error {
	switch format {
	case "csv":
		return export.WriteCSV(w, result.Cities)
	case "geojson":
		return export.WriteGeoJSON(w, result.Cities)
	case "table":
		formatSelectionTable(w, result)
		return nil
	default:
		return eris.Errorf("unsupported output format %q", format)
	}
}

// formatSelectionTable writes a tabular view of the selection to w.
func formatSelectionTable(out io.Writer, result *dispersion.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCITY\tLAT\tLNG\tPOPULATION")
	_, _ = fmt.Fprintln(w, "--\t----\t---\t---\t----------")
	for _, c := range result.Cities {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%.4f\t%.4f\t%d\n", c.ID, c.Name, c.Lat, c.Lng, c.Population)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(out, "\n%d cities, closest pair %.1f km\n", len(result.Cities), result.ClosestKm)
}

func init() {
	selectCmd.Flags().StringVar(&selectCatalogPath, "catalog", "", "path to city catalog (csv, xlsx, shp)")
	selectCmd.Flags().StringVar(&selectFormat, "format", "", "catalog format override (default: by extension)")
	selectCmd.Flags().IntVarP(&selectN, "n-cities", "n", 0, "number of cities to select (default from config)")
	selectCmd.Flags().Float64Var(&selectMinDistance, "min-distance", 0, "minimum pairwise distance in km (default from config)")
	selectCmd.Flags().Int64Var(&selectPopMin, "population-min", 0, "minimum population filter (default from config)")
	selectCmd.Flags().IntVar(&selectWorkers, "workers", 0, "parallel scoring workers (default from config)")
	selectCmd.Flags().IntVar(&selectMaxIter, "max-iterations", 0, "repair iteration budget (default from config)")
	selectCmd.Flags().StringVarP(&selectOutputFormat, "output", "o", "table", "output format: table, csv, geojson")
	selectCmd.Flags().StringVar(&selectOutputPath, "out", "", "write output to file instead of stdout")
	selectCmd.Flags().StringVar(&selectManifestPath, "manifest", "", "write a YAML run manifest to this path")
	selectCmd.Flags().BoolVar(&selectNoStore, "no-store", false, "skip persisting the run")
	rootCmd.AddCommand(selectCmd)
}
