// Package cycle generates the yearly set of evaluations and evaluation
// requests from the personnel hierarchy and the form catalog.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"evaluations/internal/eligibility"
	"evaluations/internal/hierarchy"
	"evaluations/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrMissingTemplate = errors.New("missing required form template")

// requiredTemplates must exist in the catalog for a year before generation.
var requiredTemplates = []models.EvaluationType{
	models.TypeSelf,
	models.TypeSelfManager,
	models.TypeServidor,
	models.TypeGestor,
	models.TypeChefia,
}

// Store is the storage surface the generator writes through. Every method
// must honor the transaction carried by ctx inside InTx.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	ListPeople(ctx context.Context) ([]models.Person, error)
	FormsForYear(ctx context.Context, year int) ([]models.Form, error)
	DeleteCycle(ctx context.Context, year int) (evaluations, requests int64, err error)
	// FindOrCreateEvaluation fills e.ID and reports whether a row was inserted.
	FindOrCreateEvaluation(ctx context.Context, e *models.Evaluation) (bool, error)
	// FindOrCreateRequest fills r.ID and reports whether a row was inserted.
	FindOrCreateRequest(ctx context.Context, r *models.EvaluationRequest) (bool, error)
}

// Publisher is notified after a cycle has been committed.
type Publisher interface {
	CycleGenerated(ctx context.Context, res Result) error
}

type Generator struct {
	store     Store
	policy    eligibility.Policy
	maxDepth  int
	publisher Publisher
	log       logrus.FieldLogger
}

type Option func(*Generator)

func WithPolicy(p eligibility.Policy) Option {
	return func(g *Generator) { g.policy = p }
}

func WithMaxChainDepth(n int) Option {
	return func(g *Generator) { g.maxDepth = n }
}

func WithPublisher(p Publisher) Option {
	return func(g *Generator) { g.publisher = p }
}

func New(store Store, log logrus.FieldLogger, opts ...Option) *Generator {
	g := &Generator{
		store:    store,
		policy:   eligibility.DefaultPolicy,
		maxDepth: hierarchy.DefaultMaxDepth,
		log:      log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateCycle replaces every evaluation and request of year in a single
// transaction. Any error rolls the whole run back.
func (g *Generator) GenerateCycle(ctx context.Context, year int) (Result, error) {
	if year <= 0 {
		return Result{}, fmt.Errorf("invalid year %d", year)
	}

	res := Result{RunID: uuid.NewString(), Year: year}
	log := g.log.WithFields(logrus.Fields{"run_id": res.RunID, "year": year})
	log.Info("generating evaluation cycle")

	err := g.store.InTx(ctx, func(ctx context.Context) error {
		forms, err := g.store.FormsForYear(ctx, year)
		if err != nil {
			return fmt.Errorf("load forms: %w", err)
		}
		templates, err := resolveTemplates(year, forms)
		if err != nil {
			return err
		}

		people, err := g.store.ListPeople(ctx)
		if err != nil {
			return fmt.Errorf("load people: %w", err)
		}

		res.DeletedEvaluations, res.DeletedRequests, err = g.store.DeleteCycle(ctx, year)
		if err != nil {
			return fmt.Errorf("reset cycle: %w", err)
		}
		log.WithFields(logrus.Fields{
			"evaluations": res.DeletedEvaluations,
			"requests":    res.DeletedRequests,
		}).Info("previous cycle removed")

		r := &run{
			store:     g.store,
			policy:    g.policy,
			dir:       hierarchy.NewDirectory(people, g.maxDepth),
			templates: templates,
			res:       &res,
			log:       log,
		}
		steps := []struct {
			name string
			fn   func(context.Context) error
		}{
			{"self", r.selfEvaluations},
			{"pairing", r.pairings},
			{"lonely-managers", r.lonelyManagers},
		}
		for _, step := range steps {
			if err := step.fn(ctx); err != nil {
				return fmt.Errorf("step %s: %w", step.name, err)
			}
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("evaluation cycle generation failed")
		return Result{}, fmt.Errorf("generate cycle %d: %w", year, err)
	}

	log.WithFields(logrus.Fields{
		"self":            res.SelfCreated,
		"upward":          res.UpwardCreated,
		"downward":        res.DownwardCreated,
		"lonely_managers": res.LonelyManagers,
		"skipped":         len(res.Skipped),
	}).Info("evaluation cycle generated")

	if g.publisher != nil {
		if err := g.publisher.CycleGenerated(ctx, res); err != nil {
			log.WithError(err).Warn("failed to publish cycle event")
		}
	}
	return res, nil
}

func resolveTemplates(year int, forms []models.Form) (map[models.EvaluationType]models.Form, error) {
	templates := make(map[models.EvaluationType]models.Form, len(forms))
	for _, f := range forms {
		if f.Year == year {
			templates[f.Type] = f
		}
	}
	var missing []string
	for _, t := range requiredTemplates {
		if _, ok := templates[t]; !ok {
			missing = append(missing, string(t))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w for %d: %s", ErrMissingTemplate, year, strings.Join(missing, ", "))
	}
	return templates, nil
}
