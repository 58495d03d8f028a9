package app

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"toggl-freee/internal/domain"
	"toggl-freee/internal/ports"
	"toggl-freee/internal/table"
)

// HTTPServer returns a configured http.Server that exposes endpoints to trigger runs.
// Call ListenAndServe on the returned server in a goroutine and Shutdown it on exit.
func (a *App) HTTPServer(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	a.log.Info("http trigger server configured", slog.String("addr", addr))
	return srv
}

// Handler routes the trigger endpoints. Runs are synchronous: the response
// is written once the run finishes.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// /report?month=YYYY-MM, default: current month in FREEE_TZ
	mux.HandleFunc("POST /report", func(w http.ResponseWriter, r *http.Request) {
		year, month, err := ParseMonth(r.URL.Query().Get("month"), time.Now(), a.loc)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"status": "error", "error": err.Error()})
			return
		}
		res, err := a.RunReport(r.Context(), year, month)
		a.writeResult(w, res, err)
	})

	mux.HandleFunc("POST /taxonomy", func(w http.ResponseWriter, r *http.Request) {
		res, err := a.ExportTaxonomy(r.Context())
		a.writeResult(w, res, err)
	})

	mux.HandleFunc("POST /toggl-taxonomy", func(w http.ResponseWriter, r *http.Request) {
		res, err := a.ExportTogglTaxonomy(r.Context())
		a.writeResult(w, res, err)
	})

	// /submit?table=NAME, default: the report table
	mux.HandleFunc("POST /submit", func(w http.ResponseWriter, r *http.Request) {
		res, err := a.Submit(r.Context(), r.URL.Query().Get("table"))
		a.writeResult(w, res, err)
	})

	mux.HandleFunc("GET /workspaces", func(w http.ResponseWriter, r *http.Request) {
		ws, err := a.Workspaces(r.Context())
		if err != nil {
			a.writeError(w, "", err)
			return
		}
		writeJSON(w, http.StatusOK, ws)
	})

	mux.HandleFunc("GET /companies", func(w http.ResponseWriter, r *http.Request) {
		cs, err := a.Companies(r.Context())
		if err != nil {
			a.writeError(w, "", err)
			return
		}
		writeJSON(w, http.StatusOK, cs)
	})

	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		st, err := a.Status(r.Context())
		if err != nil {
			a.writeError(w, "", err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	})

	h := loggingMiddleware(a.log, mux)
	// rs/cors reads an empty origin list as "allow all"; without configured
	// origins browsers stay on the same-origin policy.
	if len(a.cfg.HTTP.AllowedOrigins) == 0 {
		return h
	}
	c := cors.New(cors.Options{
		AllowedOrigins: a.cfg.HTTP.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(h)
}

func (a *App) writeResult(w http.ResponseWriter, res Result, err error) {
	if err != nil {
		a.writeError(w, res.RunID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"run_id": res.RunID,
		"table":  res.Table,
		"rows":   res.Rows,
	})
}

func (a *App) writeError(w http.ResponseWriter, runID string, err error) {
	body := map[string]any{"status": "error", "error": err.Error()}
	if runID != "" {
		body["run_id"] = runID
	}
	var se *domain.SubmissionError
	if errors.As(err, &se) {
		body["row"] = se.Row
		body["submitted"] = se.Submitted
		body["entry"] = se.Entry
	}
	writeJSON(w, statusFor(err), body)
}

// statusFor maps run failures onto response codes.
func statusFor(err error) int {
	var te *domain.TransportError
	switch {
	case errors.Is(err, ErrBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, ports.ErrTableNotFound):
		return http.StatusNotFound
	case errors.Is(err, table.ErrMissingColumn), errors.Is(err, table.ErrInvalidValue):
		return http.StatusUnprocessableEntity
	case errors.As(err, &te):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// loggingMiddleware provides basic request logging.
func loggingMiddleware(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
			slog.Int("status", rec.status),
			slog.Duration("dur", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
