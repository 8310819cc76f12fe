package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/seismo-tools/quakemerge/internal/config"
	"github.com/seismo-tools/quakemerge/internal/merge"
	"github.com/seismo-tools/quakemerge/internal/model"
	"github.com/seismo-tools/quakemerge/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the merge API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		engine, err := newEngine(cfg.Authority)
		if err != nil {
			return err
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		limiter := newClientLimiter(rate.Limit(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst)
		mux := newServeMux(engine, st, cfg.Merge, limiter)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// clientLimiter keeps one token bucket per client IP.
type clientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newClientLimiter(limit rate.Limit, burst int) *clientLimiter {
	return &clientLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (c *clientLimiter) allow(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	c.mu.Lock()
	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(c.limit, c.burst)
		c.limiters[host] = l
	}
	c.mu.Unlock()

	return l.Allow()
}

// mergeRequest is the API payload for preview and commit. Catalogues are
// keyed by catalogue ID; each event inherits the key when its own field is
// empty.
type mergeRequest struct {
	Catalogues map[string][]model.Event `json:"catalogues"`
	Preset     string                   `json:"preset,omitempty"`
	Strategy   string                   `json:"strategy,omitempty"`
}

// catalogueLists flattens the request in deterministic key order.
func (r *mergeRequest) catalogueLists() [][]model.Event {
	keys := make([]string, 0, len(r.Catalogues))
	for k := range r.Catalogues {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lists := make([][]model.Event, 0, len(keys))
	for _, k := range keys {
		events := r.Catalogues[k]
		for i := range events {
			if events[i].CatalogueID == "" {
				events[i].CatalogueID = k
			}
		}
		lists = append(lists, events)
	}
	return lists
}

func newServeMux(engine *merge.Engine, st store.Store, mergeCfg config.MergeConfig, limiter *clientLimiter) *http.ServeMux {
	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, status int, body any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
	writeError := func(w http.ResponseWriter, status int, msg string) {
		writeJSON(w, status, map[string]string{"error": msg})
	}

	decodeRequest := func(w http.ResponseWriter, r *http.Request) (*mergeRequest, merge.Config, bool) {
		if !limiter.allow(r.RemoteAddr) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return nil, merge.Config{}, false
		}

		var req mergeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return nil, merge.Config{}, false
		}
		if len(req.Catalogues) == 0 {
			writeError(w, http.StatusBadRequest, "catalogues are required")
			return nil, merge.Config{}, false
		}

		runCfg, err := buildMergeConfig(req.Preset, req.Strategy, mergeCfg)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return nil, merge.Config{}, false
		}
		return &req, runCfg, true
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /v1/merge/preview", func(w http.ResponseWriter, r *http.Request) {
		req, runCfg, ok := decodeRequest(w, r)
		if !ok {
			return
		}

		preview, err := engine.Preview(req.catalogueLists(), runCfg)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"duplicate_groups": preview.DuplicateGroups,
			"statistics":       preview.Statistics,
			"catalogue_colors": preview.CatalogueColors,
			"conflicts":        preview.Conflicts.Conflicts(),
		})
	})

	mux.HandleFunc("POST /v1/merge/commit", func(w http.ResponseWriter, r *http.Request) {
		req, runCfg, ok := decodeRequest(w, r)
		if !ok {
			return
		}

		result, err := engine.Merge(req.catalogueLists(), runCfg)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		conflicts, err := result.Conflicts.ToJSON()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		run := &model.MergeRun{
			ID:         uuid.New().String(),
			Preset:     req.Preset,
			Strategy:   string(runCfg.Strategy),
			Statistics: result.Statistics,
			Events:     result.Events,
			Conflicts:  conflicts,
			CreatedAt:  time.Now().UTC(),
		}
		if run.Preset == "" {
			run.Preset = mergeCfg.Preset
		}
		if err := st.SaveRun(r.Context(), run); err != nil {
			zap.L().Error("save run failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to persist run")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"run_id":     run.ID,
			"events":     result.Events,
			"statistics": result.Statistics,
		})
	})

	return mux
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
