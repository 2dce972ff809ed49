package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoutworks/jobscout/internal/accuracy"
	"github.com/scoutworks/jobscout/internal/deadlines"
	"github.com/scoutworks/jobscout/internal/model"
	"github.com/scoutworks/jobscout/internal/pipeline"
	"github.com/scoutworks/jobscout/internal/scoring"
	"github.com/scoutworks/jobscout/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the learned state and accept feedback over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runner := pipeline.NewRunner(st, cfg)
		tracker := accuracy.NewTracker(cfg.Accuracy.TrendWindow, cfg.Accuracy.DeadBand)
		monitor := deadlines.NewMonitor(cfg.Deadlines.WarnDays)
		mux := buildMux(st, runner, tracker, monitor, cfg.Queries.SeedFile)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// buildMux wires the HTTP routes over the store and session runner.
func buildMux(st store.Store, runner *pipeline.Runner, tracker *accuracy.Tracker, monitor *deadlines.Monitor, seedFile string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// The scoring collaborator reads the published model and the active
	// strictness directive from here.
	mux.HandleFunc("GET /model", func(w http.ResponseWriter, r *http.Request) {
		m, err := st.GetPreferenceModel(r.Context())
		if err != nil {
			http.Error(w, `{"error":"model unavailable"}`, http.StatusInternalServerError)
			return
		}
		if m == nil {
			m = &model.PreferenceModel{}
		}
		writeJSON(w, http.StatusOK, m)
	})

	mux.HandleFunc("GET /strategy", func(w http.ResponseWriter, r *http.Request) {
		s, err := st.GetStrategyState(r.Context())
		if err != nil {
			http.Error(w, `{"error":"strategy unavailable"}`, http.StatusInternalServerError)
			return
		}
		strictness := model.StrictnessModerate
		if s != nil {
			strictness = s.Current
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"state":            s,
			"notify_threshold": scoring.Threshold(strictness),
		})
	})

	mux.HandleFunc("GET /accuracy", func(w http.ResponseWriter, r *http.Request) {
		snaps, err := st.ListAccuracySnapshots(r.Context())
		if err != nil {
			http.Error(w, `{"error":"accuracy history unavailable"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"sessions":  len(snaps),
			"trend":     tracker.Trend(snaps),
			"direction": tracker.Direction(snaps),
		})
	})

	mux.HandleFunc("GET /deadlines", func(w http.ResponseWriter, r *http.Request) {
		postings, err := st.ListPostings(r.Context())
		if err != nil {
			http.Error(w, `{"error":"postings unavailable"}`, http.StatusInternalServerError)
			return
		}
		decisions, err := st.ListDecisions(r.Context(), nil)
		if err != nil {
			http.Error(w, `{"error":"decisions unavailable"}`, http.StatusInternalServerError)
			return
		}
		alerts := monitor.Check(postings, decisions, time.Now().UTC())
		writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
	})

	mux.HandleFunc("GET /queries/ranked", func(w http.ResponseWriter, r *http.Request) {
		ranked, err := runner.RankQueries(r.Context(), seedFile)
		if err != nil {
			http.Error(w, `{"error":"seed queries unavailable"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"queries": ranked})
	})

	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SessionID string                   `json:"session_id"`
			Shown     int                      `json:"shown"`
			Decisions []model.FeedbackDecision `json:"decisions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		res, err := runner.RunSession(r.Context(), pipeline.SessionInput{
			SessionID: req.SessionID,
			Decisions: req.Decisions,
			Shown:     req.Shown,
		})
		if err != nil {
			zap.L().Error("session failed", zap.Error(err))
			http.Error(w, `{"error":"session failed"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	return mux
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
