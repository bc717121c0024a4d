package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/geosample-cli/internal/catalog"
	"github.com/sells-group/geosample-cli/internal/dispersion"
	"github.com/sells-group/geosample-cli/internal/model"
	"github.com/sells-group/geosample-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the selection HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		srvCfg := serveConfig{
			pool:         poolLoaderFromConfig(),
			store:        st,
			workers:      cfg.Selection.Workers,
			maxIter:      cfg.Selection.MaxRepairIterations,
			rateLimitRPS: cfg.Server.RateLimitRPS,
			rateBurst:    cfg.Server.RateBurst,
		}
		handler := newServeHandler(srvCfg)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: handler,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// poolLoader loads the candidate pool for a selection request.
type poolLoader func(r *http.Request, populationMin int64) ([]model.City, error)

// poolLoaderFromConfig loads the configured catalog on each request.
func poolLoaderFromConfig() poolLoader {
	return func(r *http.Request, populationMin int64) ([]model.City, error) {
		if cfg.Catalog.Path == "" {
			return nil, eris.New("no catalog configured (GEOSAMPLE_CATALOG_PATH)")
		}
		cat, err := catalog.Load(r.Context(), cfg.Catalog.Path, cfg.Catalog.Format, cfg.Catalog.Columns, cfg.Catalog.Shapefile)
		if err != nil {
			return nil, err
		}
		return cat.FilterPopulation(populationMin), nil
	}
}

type serveConfig struct {
	pool         poolLoader
	store        store.Store
	workers      int
	maxIter      int
	rateLimitRPS float64
	rateBurst    int
}

// newServeHandler builds the chi router for the selection API.
func newServeHandler(sc serveConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	if sc.rateLimitRPS > 0 {
		r.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(sc.rateLimitRPS), sc.rateBurst)))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/v1/selections", func(w http.ResponseWriter, req *http.Request) {
		var body model.RunParams
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.NCities <= 0 || body.MinDistanceKm <= 0 {
			writeJSONError(w, http.StatusBadRequest, "n_cities and min_distance_km must be positive")
			return
		}

		pool, err := sc.pool(req, body.PopulationMin)
		if err != nil {
			zap.L().Error("pool load failed", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "catalog load failed")
			return
		}

		p := dispersion.Pipeline{
			Selector: dispersion.Selector{Workers: sc.workers},
			Repairer: dispersion.Repairer{MaxIterations: sc.maxIter},
		}
		result, err := p.Run(req.Context(), pool, body)
		if err != nil {
			zap.L().Error("selection failed", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "selection failed")
			return
		}

		run, err := sc.store.CreateRun(req.Context(), body, result.Cities, result.Warnings)
		if err != nil {
			zap.L().Error("persist run failed", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "persist failed")
			return
		}

		writeJSON(w, http.StatusCreated, run)
	})

	r.Get("/v1/selections/{runID}", func(w http.ResponseWriter, req *http.Request) {
		run, err := sc.store.GetRun(req.Context(), chi.URLParam(req, "runID"))
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "run not found")
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	r.Get("/v1/selections", func(w http.ResponseWriter, req *http.Request) {
		filter := store.RunFilter{Limit: 50}
		if s := req.URL.Query().Get("status"); s != "" {
			filter.Status = model.RunStatus(s)
		}

		runs, err := sc.store.ListRuns(req.Context(), filter)
		if err != nil {
			zap.L().Error("list runs failed", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "list failed")
			return
		}
		if runs == nil {
			runs = []model.SelectionRun{}
		}
		writeJSON(w, http.StatusOK, runs)
	})

	return r
}

// rateLimitMiddleware rejects requests above the configured rate with 429.
func rateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
