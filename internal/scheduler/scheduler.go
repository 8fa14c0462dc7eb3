// Package scheduler starts a year's evaluation cycle on the day its forms open.
package scheduler

import (
	"context"
	"time"

	"evaluations/internal/cycle"

	"github.com/sirupsen/logrus"
)

type Store interface {
	FormYearsStartingOn(ctx context.Context, day time.Time) ([]int, error)
	CountEvaluations(ctx context.Context, year int) (int, error)
}

type Generator interface {
	GenerateCycle(ctx context.Context, year int) (cycle.Result, error)
}

type Trigger struct {
	store     Store
	generator Generator
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewTrigger(store Store, generator Generator, log logrus.FieldLogger) *Trigger {
	return &Trigger{store: store, generator: generator, log: log, now: time.Now}
}

// Check generates the cycle of every year whose earliest form starts on
// today and that has no evaluations yet. A failing year is logged and does
// not stop the others. It returns the years that were generated.
func (t *Trigger) Check(ctx context.Context, today time.Time) ([]int, error) {
	years, err := t.store.FormYearsStartingOn(ctx, today)
	if err != nil {
		return nil, err
	}

	var generated []int
	for _, year := range years {
		log := t.log.WithField("year", year)
		n, err := t.store.CountEvaluations(ctx, year)
		if err != nil {
			log.WithError(err).Error("count evaluations")
			continue
		}
		if n > 0 {
			log.WithField("evaluations", n).Debug("cycle already generated")
			continue
		}
		if _, err := t.generator.GenerateCycle(ctx, year); err != nil {
			log.WithError(err).Error("scheduled cycle generation failed")
			continue
		}
		generated = append(generated, year)
	}
	return generated, nil
}

// Run calls Check once immediately and then on every tick until ctx is done.
func (t *Trigger) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := t.Check(ctx, t.now()); err != nil {
			t.log.WithError(err).Error("scheduler check")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
