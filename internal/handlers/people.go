package handlers

import (
	"net/http"
	"strconv"
)

// PersonScoreHandler handles GET /api/people/{personId}/score?year=.
func (h *Handler) PersonScoreHandler(w http.ResponseWriter, r *http.Request) {
	personID, ok := urlID(r, "personId")
	if !ok {
		http.Error(w, "Invalid personId", http.StatusBadRequest)
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year <= 0 {
		http.Error(w, "Missing or invalid year", http.StatusBadRequest)
		return
	}

	b, err := h.Scorer.FinalScoreForPerson(r.Context(), personID, year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
