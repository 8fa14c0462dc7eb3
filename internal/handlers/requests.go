package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"evaluations/models"
)

// ListRequestsHandler lists evaluation requests filtered by the year,
// personId, type and status query parameters.
func (h *Handler) ListRequestsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f models.RequestFilter

	if s := q.Get("year"); s != "" {
		year, err := strconv.Atoi(s)
		if err != nil || year <= 0 {
			http.Error(w, "Invalid year", http.StatusBadRequest)
			return
		}
		f.Year = year
	}
	if s := q.Get("personId"); s != "" {
		id, ok := positiveParam(s)
		if !ok {
			http.Error(w, "Invalid personId", http.StatusBadRequest)
			return
		}
		f.PersonID = id
	}
	if s := q.Get("type"); s != "" {
		typ, err := models.ParseEvaluationType(s)
		if err != nil {
			http.Error(w, "Invalid type", http.StatusBadRequest)
			return
		}
		f.Type = typ
	}
	if s := q.Get("status"); s != "" {
		status := models.RequestStatus(s)
		if !status.Valid() {
			http.Error(w, "Invalid status", http.StatusBadRequest)
			return
		}
		f.Status = status
	}

	views, err := h.Store.ListRequests(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if views == nil {
		views = []models.RequestView{}
	}
	writeJSON(w, http.StatusOK, views)
}

type submitAnswersRequest struct {
	Answers []struct {
		QuestionID int64 `json:"questionId"`
		Score      *int  `json:"score"`
	} `json:"answers"`
}

// SubmitAnswersHandler handles POST /api/requests/{requestId}/answers.
func (h *Handler) SubmitAnswersHandler(w http.ResponseWriter, r *http.Request) {
	requestID, ok := urlID(r, "requestId")
	if !ok {
		http.Error(w, "Invalid requestId", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var in submitAnswersRequest
	if err := json.Unmarshal(body, &in); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if len(in.Answers) == 0 {
		http.Error(w, "answers are required", http.StatusBadRequest)
		return
	}

	answers := make([]models.Answer, 0, len(in.Answers))
	for _, a := range in.Answers {
		answers = append(answers, models.Answer{QuestionID: a.QuestionID, Score: a.Score})
	}
	if err := h.Store.SubmitAnswers(r.Context(), requestID, answers); err != nil {
		h.writeError(w, r, err)
		return
	}

	score, err := h.Scorer.ScoreForRequest(r.Context(), requestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requestId": requestID, "score": score})
}

// RequestScoreHandler returns the score of one request, null while it is pending.
func (h *Handler) RequestScoreHandler(w http.ResponseWriter, r *http.Request) {
	requestID, ok := urlID(r, "requestId")
	if !ok {
		http.Error(w, "Invalid requestId", http.StatusBadRequest)
		return
	}

	score, err := h.Scorer.ScoreForRequest(r.Context(), requestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requestId": requestID, "score": score})
}
