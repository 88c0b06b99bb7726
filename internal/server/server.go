// Package server exposes the persona pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/persona-cli/internal/config"
	"github.com/sells-group/persona-cli/internal/model"
	"github.com/sells-group/persona-cli/internal/store"
)

// Pipeline is the set of operations served over HTTP.
type Pipeline interface {
	Resolve(ctx context.Context, seed model.Seed) (*model.ResolutionResult, error)
	Scan(ctx context.Context, personID string) (*model.ScanResult, error)
	BuildPersona(ctx context.Context, personID string) (*model.PersonaResult, error)
	Persona(ctx context.Context, personID string) (*model.PersonaVector, error)
	GeneratePlaybook(ctx context.Context, personID, vendor string) (*model.PlaybookResult, error)
	Playbook(ctx context.Context, personID, vendor string) (*model.Playbook, error)
	Run(ctx context.Context, runID string) (*model.Run, error)
	Runs(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

const maxBodyBytes = 1 << 20

// NewRouter builds the HTTP API. gatherer backs /metrics; nil disables it.
func NewRouter(p Pipeline, cfg config.ServerConfig, gatherer prometheus.Gatherer) http.Handler {
	h := &handler{p: p}

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/resolve", h.resolve)
		r.Route("/persons/{personID}", func(r chi.Router) {
			r.Post("/scan", h.scan)
			r.Post("/persona", h.buildPersona)
			r.Get("/persona", h.getPersona)
			r.Post("/playbooks/{vendor}", h.generatePlaybook)
			r.Get("/playbooks/{vendor}", h.getPlaybook)
		})
		r.Get("/runs", h.listRuns)
		r.Get("/runs/{runID}", h.getRun)
	})
	return r
}

type handler struct {
	p Pipeline
}

func (h *handler) resolve(w http.ResponseWriter, r *http.Request) {
	var seed model.Seed
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&seed); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body", Kind: model.KindInvalidInput})
		return
	}
	res, err := h.p.Resolve(r.Context(), seed)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) scan(w http.ResponseWriter, r *http.Request) {
	res, err := h.p.Scan(r.Context(), chi.URLParam(r, "personID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) buildPersona(w http.ResponseWriter, r *http.Request) {
	res, err := h.p.BuildPersona(r.Context(), chi.URLParam(r, "personID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) getPersona(w http.ResponseWriter, r *http.Request) {
	v, err := h.p.Persona(r.Context(), chi.URLParam(r, "personID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"persona": v})
}

func (h *handler) generatePlaybook(w http.ResponseWriter, r *http.Request) {
	res, err := h.p.GeneratePlaybook(r.Context(), chi.URLParam(r, "personID"), chi.URLParam(r, "vendor"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) getPlaybook(w http.ResponseWriter, r *http.Request) {
	pb, err := h.p.Playbook(r.Context(), chi.URLParam(r, "personID"), chi.URLParam(r, "vendor"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.PlaybookResult{Playbook: *pb})
}

func (h *handler) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.p.Run(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *handler) listRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		PersonID: q.Get("person"),
		Status:   model.RunStatus(q.Get("status")),
		Kind:     model.RunKind(q.Get("kind")),
	}
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: key + " must be a non-negative integer", Kind: model.KindInvalidInput})
				return
			}
			*dst = n
		}
	}

	runs, err := h.p.Runs(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

type errorBody struct {
	Error string          `json:"error"`
	Kind  model.ErrorKind `json:"kind"`
}

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	switch model.KindOf(err) {
	case model.KindInvalidInput:
		return http.StatusBadRequest
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindPrecondition:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	body := errorBody{Error: err.Error(), Kind: model.KindOf(err)}
	if status == http.StatusInternalServerError {
		zap.L().Error("server: request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		body.Error = "internal error"
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
