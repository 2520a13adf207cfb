package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/regioniq/catchment/internal/catchment"
	"github.com/regioniq/catchment/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the catchment HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		// Warm the boundary cache in the background; requests that arrive
		// before it finishes just join the in-flight load.
		go func() {
			if err := preloadConfigured(ctx, env); err != nil {
				zap.L().Warn("boundary preload failed", zap.Error(err))
			}
		}()

		r := buildRouter(env, catchment.NewSession(env.Engine))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildRouter assembles the HTTP API over an initialized environment. All
// calculations run through the session, so a newer request supersedes any
// still in flight.
func buildRouter(env *catchmentEnv, session *catchment.Session) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/catchment/state", func(w http.ResponseWriter, req *http.Request) {
		resp := map[string]any{"state": session.State()}
		if err := session.Err(); err != nil {
			resp["error"] = catchment.UserMessage(catchment.Classify(err))
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Post("/catchment/preload", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Level string `json:"level"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		level, err := model.ParseLevel(body.Level)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := env.Engine.Preload(req.Context(), level); err != nil {
			zap.L().Error("preload failed", zap.String("level", string(level)), zap.Error(err))
			writeError(w, statusForError(err), catchment.UserMessage(catchment.Classify(err)))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "level": string(level)})
	})

	r.Post("/catchment/calculate", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Fence    model.Geofence `json:"fence"`
			Level    string         `json:"level"`
			Year     int            `json:"year"`
			Scenario string         `json:"scenario"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		level, err := model.ParseLevel(body.Level)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		scenario, err := model.ParseScenario(body.Scenario)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := body.Fence.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		start := time.Now()
		result, err := session.Calculate(req.Context(), body.Fence, level, body.Year, scenario)
		if err != nil {
			if errors.Is(err, catchment.ErrSuperseded) {
				writeError(w, http.StatusConflict, "superseded by a newer calculation")
				return
			}
			zap.L().Error("calculation failed",
				zap.String("level", string(level)),
				zap.Int("year", body.Year),
				zap.Error(err),
			)
			writeError(w, statusForError(err), catchment.UserMessage(catchment.Classify(err)))
			return
		}

		zap.L().Info("calculation complete",
			zap.String("level", string(level)),
			zap.Int("year", body.Year),
			zap.Int("areas", result.AreaCount),
			zap.Duration("elapsed", time.Since(start)),
		)
		writeJSON(w, http.StatusOK, result)
	})

	return r
}

// requestID tags each request with a UUID for log correlation.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// statusForError maps a calculation failure to an HTTP status.
func statusForError(err error) int {
	switch catchment.Classify(err) {
	case catchment.ErrorKindTimeout:
		return http.StatusGatewayTimeout
	case catchment.ErrorKindBoundary, catchment.ErrorKindMetric:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
