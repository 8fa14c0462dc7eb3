package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"evaluations/internal/cycle"
	"evaluations/internal/handlers"
	"evaluations/internal/handlers/testutils"
	"evaluations/internal/scoring"
	"evaluations/models"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

// MockStorage implements StorageInterface.
type MockStorage struct {
	filter    models.RequestFilter
	views     []models.RequestView
	submitted []models.Answer
	submitErr error
}

func (m *MockStorage) ListRequests(ctx context.Context, f models.RequestFilter) ([]models.RequestView, error) {
	m.filter = f
	return m.views, nil
}

func (m *MockStorage) SubmitAnswers(ctx context.Context, requestID int64, answers []models.Answer) error {
	m.submitted = answers
	return m.submitErr
}

type MockGenerator struct {
	year int
	err  error
}

func (m *MockGenerator) GenerateCycle(ctx context.Context, year int) (cycle.Result, error) {
	m.year = year
	if m.err != nil {
		return cycle.Result{}, m.err
	}
	return cycle.Result{RunID: "run-1", Year: year, SelfCreated: 2, UpwardCreated: 1, DownwardCreated: 1}, nil
}

type MockScorer struct {
	score    *int
	scoreErr error
	final    scoring.Breakdown
	finalErr error
}

func (m *MockScorer) ScoreForRequest(ctx context.Context, requestID int64) (*int, error) {
	return m.score, m.scoreErr
}

func (m *MockScorer) FinalScoreForPerson(ctx context.Context, personID int64, year int) (scoring.Breakdown, error) {
	if m.finalErr != nil {
		return scoring.Breakdown{}, m.finalErr
	}
	b := m.final
	b.PersonID, b.Year = personID, year
	return b, nil
}

func newHandler(store *MockStorage, gen *MockGenerator, scorer *MockScorer) *handlers.Handler {
	log, _ := test.NewNullLogger()
	return handlers.NewHandler(store, gen, scorer, log)
}

func do(t *testing.T, h http.HandlerFunc, req *http.Request) (int, string) {
	t.Helper()
	w := httptest.NewRecorder()
	h(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, string(body)
}

func TestPingHandler(t *testing.T) {
	handler := newHandler(&MockStorage{}, &MockGenerator{}, &MockScorer{})

	status, body := do(t, handler.PingHandler, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body)
}

func TestGenerateCycleHandler(t *testing.T) {
	gen := &MockGenerator{}
	handler := newHandler(&MockStorage{}, gen, &MockScorer{})

	req := httptest.NewRequest(http.MethodPost, "/api/cycles/2025/generate", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"year": "2025"})

	status, body := do(t, handler.GenerateCycleHandler, req)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 2025, gen.year)

	var res cycle.Result
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	require.Equal(t, "run-1", res.RunID)
	require.Equal(t, 2, res.SelfCreated)
}

func TestGenerateCycleHandlerErrors(t *testing.T) {
	cases := []struct {
		name   string
		year   string
		err    error
		status int
	}{
		{"bad year", "next", nil, http.StatusBadRequest},
		{"zero year", "0", nil, http.StatusBadRequest},
		{"missing template", "2025", fmt.Errorf("generate cycle 2025: %w", cycle.ErrMissingTemplate), http.StatusUnprocessableEntity},
		{"database down", "2025", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newHandler(&MockStorage{}, &MockGenerator{err: tc.err}, &MockScorer{})
			req := httptest.NewRequest(http.MethodPost, "/api/cycles/"+tc.year+"/generate", nil)
			req = testutils.WithChiURLParams(req, map[string]string{"year": tc.year})

			status, body := do(t, handler.GenerateCycleHandler, req)
			require.Equal(t, tc.status, status)
			require.NotContains(t, body, "connection refused")
		})
	}
}

func TestListRequestsHandler(t *testing.T) {
	store := &MockStorage{views: []models.RequestView{{
		EvaluationRequest: models.EvaluationRequest{ID: 7, RequesterPersonID: 1, RequestedPersonID: 2, Status: models.StatusPending},
		EvaluatedPersonID: 1,
		Type:              models.TypeServidor,
		Year:              2025,
	}}}
	handler := newHandler(store, &MockGenerator{}, &MockScorer{})

	req := httptest.NewRequest(http.MethodGet, "/api/requests?year=2025&personId=1&type=servidor&status=pending", nil)
	status, body := do(t, handler.ListRequestsHandler, req)

	require.Equal(t, http.StatusOK, status)
	require.Equal(t, models.RequestFilter{Year: 2025, PersonID: 1, Type: models.TypeServidor, Status: models.StatusPending}, store.filter)
	require.Contains(t, body, `"requestedPersonId":2`)
}

func TestListRequestsHandlerAcceptsLegacyType(t *testing.T) {
	store := &MockStorage{}
	handler := newHandler(store, &MockGenerator{}, &MockScorer{})

	req := httptest.NewRequest(http.MethodGet, "/api/requests?type=Autoavalia%C3%A7%C3%A3o", nil)
	status, body := do(t, handler.ListRequestsHandler, req)

	require.Equal(t, http.StatusOK, status)
	require.Equal(t, models.TypeSelf, store.filter.Type)
	require.Equal(t, "[]\n", body)
}

func TestListRequestsHandlerRejectsBadFilters(t *testing.T) {
	handler := newHandler(&MockStorage{}, &MockGenerator{}, &MockScorer{})
	for _, query := range []string{"year=abc", "personId=-1", "type=peer", "status=done"} {
		status, _ := do(t, handler.ListRequestsHandler, httptest.NewRequest(http.MethodGet, "/api/requests?"+query, nil))
		require.Equal(t, http.StatusBadRequest, status, query)
	}
}

func TestSubmitAnswersHandler(t *testing.T) {
	store := &MockStorage{}
	score := 82
	handler := newHandler(store, &MockGenerator{}, &MockScorer{score: &score})

	reqBody := `{"answers":[{"questionId":10,"score":80},{"questionId":11,"score":null}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/requests/7/answers", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req = testutils.WithChiURLParams(req, map[string]string{"requestId": "7"})

	status, body := do(t, handler.SubmitAnswersHandler, req)
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"requestId":7,"score":82}`, body)
	require.Len(t, store.submitted, 2)
	require.Equal(t, 80, *store.submitted[0].Score)
	require.Nil(t, store.submitted[1].Score)
}

func TestSubmitAnswersHandlerErrors(t *testing.T) {
	cases := []struct {
		name      string
		id        string
		body      string
		submitErr error
		status    int
	}{
		{"bad id", "x", `{"answers":[{"questionId":1,"score":1}]}`, nil, http.StatusBadRequest},
		{"bad json", "7", `{"answers":`, nil, http.StatusBadRequest},
		{"no answers", "7", `{"answers":[]}`, nil, http.StatusBadRequest},
		{"invalid score", "7", `{"answers":[{"questionId":1,"score":101}]}`, fmt.Errorf("score 101: %w", models.ErrInvalidAnswer), http.StatusBadRequest},
		{"unknown request", "7", `{"answers":[{"questionId":1,"score":1}]}`, fmt.Errorf("request 7: %w", models.ErrNotFound), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newHandler(&MockStorage{submitErr: tc.submitErr}, &MockGenerator{}, &MockScorer{})
			req := httptest.NewRequest(http.MethodPost, "/api/requests/"+tc.id+"/answers", strings.NewReader(tc.body))
			req = testutils.WithChiURLParams(req, map[string]string{"requestId": tc.id})

			status, _ := do(t, handler.SubmitAnswersHandler, req)
			require.Equal(t, tc.status, status)
		})
	}
}

func TestRequestScoreHandlerPending(t *testing.T) {
	handler := newHandler(&MockStorage{}, &MockGenerator{}, &MockScorer{})

	req := httptest.NewRequest(http.MethodGet, "/api/requests/7/score", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"requestId": "7"})

	status, body := do(t, handler.RequestScoreHandler, req)
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"requestId":7,"score":null}`, body)
}

func TestRequestScoreHandlerNotFound(t *testing.T) {
	scorer := &MockScorer{scoreErr: fmt.Errorf("evaluation request 7: %w", models.ErrNotFound)}
	handler := newHandler(&MockStorage{}, &MockGenerator{}, scorer)

	req := httptest.NewRequest(http.MethodGet, "/api/requests/7/score", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"requestId": "7"})

	status, _ := do(t, handler.RequestScoreHandler, req)
	require.Equal(t, http.StatusNotFound, status)
}

func TestPersonScoreHandler(t *testing.T) {
	self, superior := 80, 90
	scorer := &MockScorer{final: scoring.Breakdown{Eligible: true, Self: &self, Superior: &superior, Complete: true, Final: 87}}
	handler := newHandler(&MockStorage{}, &MockGenerator{}, scorer)

	req := httptest.NewRequest(http.MethodGet, "/api/people/3/score?year=2025", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"personId": "3"})

	status, body := do(t, handler.PersonScoreHandler, req)
	require.Equal(t, http.StatusOK, status)

	var b scoring.Breakdown
	require.NoError(t, json.Unmarshal([]byte(body), &b))
	require.Equal(t, int64(3), b.PersonID)
	require.Equal(t, 2025, b.Year)
	require.Equal(t, 87, b.Final)
}

func TestPersonScoreHandlerRequiresYear(t *testing.T) {
	handler := newHandler(&MockStorage{}, &MockGenerator{}, &MockScorer{})

	req := httptest.NewRequest(http.MethodGet, "/api/people/3/score", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"personId": "3"})

	status, _ := do(t, handler.PersonScoreHandler, req)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestRoutes(t *testing.T) {
	gen := &MockGenerator{}
	handler := newHandler(&MockStorage{}, gen, &MockScorer{})
	r := chi.NewRouter()
	handler.Routes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/cycles/2026/generate", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 2026, gen.year)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cycles/2026/generate", nil))
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
