// Package memstore is a test fixture: an in-memory implementation of the
// storage surface that package tests use in place of Postgres. No binary
// imports it.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"evaluations/models"
)

type Store struct {
	mu sync.Mutex

	people      map[int64]models.Person
	forms       map[int64]models.Form
	evaluations map[int64]models.Evaluation
	requests    map[int64]models.EvaluationRequest
	answers     map[int64]models.Answer
	nextID      int64

	// Fail, when set, is consulted before every write with the operation
	// name. A non-nil result aborts the write.
	Fail func(op string) error
}

func New() *Store {
	return &Store{
		people:      map[int64]models.Person{},
		forms:       map[int64]models.Form{},
		evaluations: map[int64]models.Evaluation{},
		requests:    map[int64]models.EvaluationRequest{},
		answers:     map[int64]models.Answer{},
	}
}

type snapshot struct {
	people      map[int64]models.Person
	forms       map[int64]models.Form
	evaluations map[int64]models.Evaluation
	requests    map[int64]models.EvaluationRequest
	answers     map[int64]models.Answer
	nextID      int64
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// InTx restores the state seen at its start when fn fails.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	snap := snapshot{
		people:      copyMap(s.people),
		forms:       copyMap(s.forms),
		evaluations: copyMap(s.evaluations),
		requests:    copyMap(s.requests),
		answers:     copyMap(s.answers),
		nextID:      s.nextID,
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.people, s.forms, s.evaluations = snap.people, snap.forms, snap.evaluations
		s.requests, s.answers, s.nextID = snap.requests, snap.answers, snap.nextID
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) fail(op string) error {
	if s.Fail == nil {
		return nil
	}
	return s.Fail(op)
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// AddPerson inserts or replaces a directory entry.
func (s *Store) AddPerson(p models.Person) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.people[p.ID] = p
}

func (s *Store) ListPeople(ctx context.Context) ([]models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Person, 0, len(s.people))
	for _, p := range s.people {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetPerson(ctx context.Context, id int64) (*models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.people[id]
	if !ok {
		return nil, fmt.Errorf("person %d: %w", id, models.ErrNotFound)
	}
	return &p, nil
}

// UpsertForm stores f keyed by (year, type). Groups and questions keep their
// ids when their position is unchanged; dropping an answered question fails
// with models.ErrTemplateInUse.
func (s *Store) UpsertForm(ctx context.Context, f *models.Form) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("upsert-form"); err != nil {
		return err
	}
	f.ID = 0
	for id, existing := range s.forms {
		if existing.Year == f.Year && existing.Type == f.Type {
			f.ID = id
		}
	}
	if f.ID == 0 {
		f.ID = s.id()
	}

	type slot struct{ group, question int }
	previous := map[slot]int64{}
	groupIDs := map[int]int64{}
	for _, g := range s.forms[f.ID].Groups {
		groupIDs[g.Position] = g.ID
		for _, q := range g.Questions {
			previous[slot{g.Position, q.Position}] = q.ID
		}
	}

	kept := map[int64]bool{}
	groups := make([]models.GroupQuestion, len(f.Groups))
	for gi, g := range f.Groups {
		if id, ok := groupIDs[g.Position]; ok {
			g.ID = id
		} else {
			g.ID = s.id()
		}
		g.FormID = f.ID
		g.Questions = append([]models.Question(nil), g.Questions...)
		for qi := range g.Questions {
			q := &g.Questions[qi]
			if id, ok := previous[slot{g.Position, q.Position}]; ok {
				q.ID = id
			} else {
				q.ID = s.id()
			}
			q.GroupID = g.ID
			kept[q.ID] = true
		}
		groups[gi] = g
	}
	for _, a := range s.answers {
		for _, id := range previous {
			if id == a.QuestionID && !kept[id] {
				return fmt.Errorf("question %d: answers recorded: %w", id, models.ErrTemplateInUse)
			}
		}
	}

	f.Groups = groups
	stored := *f
	s.forms[f.ID] = stored
	return nil
}

func (s *Store) FormsForYear(ctx context.Context, year int) ([]models.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Form
	for _, f := range s.forms {
		if f.Year == year {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetForm(ctx context.Context, id int64) (*models.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.forms[id]
	if !ok {
		return nil, fmt.Errorf("form %d: %w", id, models.ErrNotFound)
	}
	return &f, nil
}

// FormYearsStartingOn returns the years whose earliest form starts on day.
func (s *Store) FormYearsStartingOn(ctx context.Context, day time.Time) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	earliest := map[int]time.Time{}
	for _, f := range s.forms {
		if cur, ok := earliest[f.Year]; !ok || f.StartsOn.Before(cur) {
			earliest[f.Year] = f.StartsOn
		}
	}
	y, m, d := day.Date()
	var years []int
	for year, start := range earliest {
		sy, sm, sd := start.Date()
		if sy == y && sm == m && sd == d {
			years = append(years, year)
		}
	}
	sort.Ints(years)
	return years, nil
}

func (s *Store) yearOf(ev models.Evaluation) int {
	return s.forms[ev.FormID].Year
}

func (s *Store) CountEvaluations(ctx context.Context, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.evaluations {
		if s.yearOf(ev) == year {
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteCycle(ctx context.Context, year int) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("delete-cycle"); err != nil {
		return 0, 0, err
	}
	doomed := map[int64]bool{}
	for id, ev := range s.evaluations {
		if s.yearOf(ev) == year {
			doomed[id] = true
		}
	}
	for id, a := range s.answers {
		if doomed[a.EvaluationID] {
			delete(s.answers, id)
		}
	}
	var requests int64
	for id, r := range s.requests {
		if doomed[r.EvaluationID] {
			delete(s.requests, id)
			requests++
		}
	}
	for id := range doomed {
		delete(s.evaluations, id)
	}
	return int64(len(doomed)), requests, nil
}

func (s *Store) FindOrCreateEvaluation(ctx context.Context, e *models.Evaluation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("create-evaluation"); err != nil {
		return false, err
	}
	for id, ev := range s.evaluations {
		if ev.FormID == e.FormID && ev.EvaluatedPersonID == e.EvaluatedPersonID && ev.Type == e.Type {
			e.ID, e.CreatedAt = id, ev.CreatedAt
			return false, nil
		}
	}
	e.ID, e.CreatedAt = s.id(), time.Now()
	s.evaluations[e.ID] = *e
	return true, nil
}

func (s *Store) FindOrCreateRequest(ctx context.Context, r *models.EvaluationRequest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("create-request"); err != nil {
		return false, err
	}
	for id, req := range s.requests {
		if req.EvaluationID == r.EvaluationID && req.RequestedPersonID == r.RequestedPersonID {
			*r = req
			r.ID = id
			return false, nil
		}
	}
	r.ID, r.CreatedAt = s.id(), time.Now()
	s.requests[r.ID] = *r
	return true, nil
}

func (s *Store) GetEvaluation(ctx context.Context, id int64) (*models.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.evaluations[id]
	if !ok {
		return nil, fmt.Errorf("evaluation %d: %w", id, models.ErrNotFound)
	}
	return &ev, nil
}

func (s *Store) GetRequest(ctx context.Context, id int64) (*models.EvaluationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("evaluation request %d: %w", id, models.ErrNotFound)
	}
	return &r, nil
}

// ListEvaluations returns every evaluation ordered by id.
func (s *Store) ListEvaluations() []models.Evaluation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Evaluation, 0, len(s.evaluations))
	for _, ev := range s.evaluations {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) ListRequests(ctx context.Context, f models.RequestFilter) ([]models.RequestView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RequestView
	for _, r := range s.requests {
		ev := s.evaluations[r.EvaluationID]
		v := models.RequestView{
			EvaluationRequest: r,
			EvaluatedPersonID: ev.EvaluatedPersonID,
			Type:              ev.Type,
			FormID:            ev.FormID,
			Year:              s.yearOf(ev),
		}
		if f.Year != 0 && v.Year != f.Year {
			continue
		}
		if f.PersonID != 0 && v.EvaluatedPersonID != f.PersonID {
			continue
		}
		if f.Type != "" && v.Type != f.Type {
			continue
		}
		if f.Status != "" && v.Status != f.Status {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) AnswersForEvaluation(ctx context.Context, evaluationID int64) ([]models.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Answer
	for _, a := range s.answers {
		if a.EvaluationID == evaluationID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SubmitAnswers records the rater's answers for a request and completes it.
func (s *Store) SubmitAnswers(ctx context.Context, requestID int64, answers []models.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("submit-answers"); err != nil {
		return err
	}
	req, ok := s.requests[requestID]
	if !ok {
		return fmt.Errorf("evaluation request %d: %w", requestID, models.ErrNotFound)
	}
	questions := map[int64]bool{}
	for _, g := range s.forms[s.evaluations[req.EvaluationID].FormID].Groups {
		for _, q := range g.Questions {
			questions[q.ID] = true
		}
	}
	for _, in := range answers {
		if !questions[in.QuestionID] {
			return fmt.Errorf("question %d: %w", in.QuestionID, models.ErrInvalidAnswer)
		}
		if in.Score != nil && (*in.Score < 0 || *in.Score > models.MaxScore) {
			return fmt.Errorf("score %d for question %d: %w", *in.Score, in.QuestionID, models.ErrInvalidAnswer)
		}
	}
	for _, in := range answers {
		in.EvaluationID = req.EvaluationID
		in.SubjectPersonID = req.RequestedPersonID
		in.UpdatedAt = time.Now()
		in.ID = 0
		for id, a := range s.answers {
			if a.EvaluationID == in.EvaluationID && a.QuestionID == in.QuestionID && a.SubjectPersonID == in.SubjectPersonID {
				in.ID = id
			}
		}
		if in.ID == 0 {
			in.ID = s.id()
		}
		s.answers[in.ID] = in
	}
	req.Status = models.StatusCompleted
	s.requests[requestID] = req
	return nil
}

// PutAnswer stores a raw answer without touching request status.
func (s *Store) PutAnswer(a models.Answer) models.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.id()
	}
	s.answers[a.ID] = a
	return a
}

// SetStatus overrides the status of a request.
func (s *Store) SetStatus(requestID int64, status models.RequestStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.requests[requestID]; ok {
		r.Status = status
		s.requests[requestID] = r
	}
}
