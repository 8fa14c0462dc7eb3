// Package scoring computes request scores from weighted answers and combines
// them into a person's final yearly score. Nothing is cached: every call reads
// the current answers.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"

	"evaluations/internal/eligibility"
	"evaluations/models"
)

var ErrInvalidArgument = errors.New("invalid argument")

type Store interface {
	GetPerson(ctx context.Context, id int64) (*models.Person, error)
	GetRequest(ctx context.Context, id int64) (*models.EvaluationRequest, error)
	GetEvaluation(ctx context.Context, id int64) (*models.Evaluation, error)
	GetForm(ctx context.Context, id int64) (*models.Form, error)
	AnswersForEvaluation(ctx context.Context, evaluationID int64) ([]models.Answer, error)
	ListRequests(ctx context.Context, f models.RequestFilter) ([]models.RequestView, error)
}

type Aggregator struct {
	store  Store
	policy eligibility.Policy
}

type Option func(*Aggregator)

func WithPolicy(p eligibility.Policy) Option {
	return func(a *Aggregator) { a.policy = p }
}

func New(store Store, opts ...Option) *Aggregator {
	a := &Aggregator{store: store, policy: eligibility.DefaultPolicy}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ScoreForRequest returns the 0..100 score of a completed request, or nil
// while the request is still pending.
func (a *Aggregator) ScoreForRequest(ctx context.Context, requestID int64) (*int, error) {
	if requestID <= 0 {
		return nil, fmt.Errorf("request id %d: %w", requestID, ErrInvalidArgument)
	}
	req, err := a.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.StatusCompleted {
		return nil, nil
	}
	ev, err := a.store.GetEvaluation(ctx, req.EvaluationID)
	if err != nil {
		return nil, err
	}
	return a.score(ctx, *req, ev.FormID)
}

// score averages the rater's answers weighted by question weight. Only answers
// written by the request's rater count; other raters of the same evaluation
// are ignored.
func (a *Aggregator) score(ctx context.Context, req models.EvaluationRequest, formID int64) (*int, error) {
	form, err := a.store.GetForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	answers, err := a.store.AnswersForEvaluation(ctx, req.EvaluationID)
	if err != nil {
		return nil, fmt.Errorf("answers for evaluation %d: %w", req.EvaluationID, err)
	}

	byQuestion := make(map[int64]models.Answer, len(answers))
	for _, ans := range answers {
		if ans.SubjectPersonID == req.RequestedPersonID {
			byQuestion[ans.QuestionID] = ans
		}
	}

	var weighted, weights float64
	for _, g := range form.Groups {
		for _, q := range g.Questions {
			ans, ok := byQuestion[q.ID]
			if !ok || ans.Score == nil {
				continue
			}
			weighted += float64(*ans.Score) * q.WeightPct
			weights += q.WeightPct
		}
	}

	result := 0
	if weights > 0 {
		result = roundHalfUp(weighted / weights)
	}
	return &result, nil
}

// roundHalfUp rounds non-negative x to the nearest integer, halves upward.
// The epsilon absorbs float error on exact halves.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5 + 1e-9))
}
