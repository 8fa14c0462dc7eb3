package handlers

import (
	"context"

	"evaluations/internal/cycle"
	"evaluations/internal/scoring"
	"evaluations/models"
)

type StorageInterface interface {
	ListRequests(ctx context.Context, f models.RequestFilter) ([]models.RequestView, error)
	SubmitAnswers(ctx context.Context, requestID int64, answers []models.Answer) error
}

type CycleGenerator interface {
	GenerateCycle(ctx context.Context, year int) (cycle.Result, error)
}

type Scorer interface {
	ScoreForRequest(ctx context.Context, requestID int64) (*int, error)
	FinalScoreForPerson(ctx context.Context, personID int64, year int) (scoring.Breakdown, error)
}
