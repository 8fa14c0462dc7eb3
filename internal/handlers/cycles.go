package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GenerateCycleHandler handles POST /api/cycles/{year}/generate.
func (h *Handler) GenerateCycleHandler(w http.ResponseWriter, r *http.Request) {
	year, ok := positiveParam(chi.URLParam(r, "year"))
	if !ok {
		http.Error(w, "Invalid year", http.StatusBadRequest)
		return
	}

	res, err := h.Generator.GenerateCycle(r.Context(), int(year))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
