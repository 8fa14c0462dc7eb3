package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"evaluations/internal/cycle"
	"evaluations/internal/scoring"
	"evaluations/models"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type Handler struct {
	Store     StorageInterface
	Generator CycleGenerator
	Scorer    Scorer
	Log       logrus.FieldLogger
}

func NewHandler(store StorageInterface, generator CycleGenerator, scorer Scorer, log logrus.FieldLogger) *Handler {
	return &Handler{Store: store, Generator: generator, Scorer: scorer, Log: log}
}

// Routes mounts the API under r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)
		r.Post("/cycles/{year}/generate", h.GenerateCycleHandler)
		r.Get("/requests", h.ListRequestsHandler)
		r.Post("/requests/{requestId}/answers", h.SubmitAnswersHandler)
		r.Get("/requests/{requestId}/score", h.RequestScoreHandler)
		r.Get("/people/{personId}/score", h.PersonScoreHandler)
	})
}

// PingHandler answers "ok" for liveness checks.
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes. Unknown errors are
// logged and reported as 500 without detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, models.ErrInvalidAnswer), errors.Is(err, scoring.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, cycle.ErrMissingTemplate):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.Log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// positiveParam parses a positive integer from s.
func positiveParam(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func urlID(r *http.Request, name string) (int64, bool) {
	return positiveParam(chi.URLParam(r, name))
}
