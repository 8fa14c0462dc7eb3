package cycle

import (
	"context"
	"fmt"

	"evaluations/internal/eligibility"
	"evaluations/internal/hierarchy"
	"evaluations/models"

	"github.com/sirupsen/logrus"
)

// run carries the state of one generation inside its transaction.
type run struct {
	store     Store
	policy    eligibility.Policy
	dir       *hierarchy.Directory
	templates map[models.EvaluationType]models.Form
	res       *Result
	log       logrus.FieldLogger
}

func (r *run) selfEvaluations(ctx context.Context) error {
	for _, p := range r.dir.People() {
		if !r.policy.CanBeEvaluated(p) {
			continue
		}
		typ := models.TypeSelf
		if p.IsManager() {
			typ = models.TypeSelfManager
		}
		created, err := r.assign(ctx, typ, p.ID, p.ID, p.ID)
		if err != nil {
			return err
		}
		if created {
			r.res.SelfCreated++
		}
	}
	r.log.WithField("created", r.res.SelfCreated).Info("self evaluations generated")
	return nil
}

func (r *run) pairings(ctx context.Context) error {
	for _, p := range r.dir.People() {
		if !r.policy.CanBeEvaluated(p) || p.DirectManagerID == nil {
			continue
		}
		if r.dir.InCycle(p.ID) {
			_, err := r.dir.Chain(p.ID)
			r.skip(p.ID, "pairing", SkipManagerCycle, err)
			continue
		}
		m, err := r.dir.Manager(p.ID)
		if err != nil {
			r.skip(p.ID, "pairing", SkipManagerUnresolved, err)
			continue
		}

		if r.policy.CanEvaluate(m) {
			created, err := r.assign(ctx, r.downwardType(p), p.ID, p.ID, m.ID)
			if err != nil {
				return err
			}
			if created {
				r.res.DownwardCreated++
			}
		} else {
			r.skip(p.ID, "downward", SkipRaterIneligible, fmt.Errorf("manager %d cannot evaluate", m.ID))
		}

		switch {
		case !r.policy.CanBeEvaluated(m):
			r.skip(p.ID, "upward", SkipManagerIneligible, fmt.Errorf("manager %d cannot be evaluated", m.ID))
		case !r.policy.CanEvaluate(p):
			r.skip(p.ID, "upward", SkipRaterIneligible, fmt.Errorf("person %d cannot evaluate", p.ID))
		default:
			created, err := r.assign(ctx, models.TypeChefia, m.ID, p.ID, p.ID)
			if err != nil {
				return err
			}
			if created {
				r.res.UpwardCreated++
			}
		}
	}
	r.log.WithFields(logrus.Fields{
		"upward":   r.res.UpwardCreated,
		"downward": r.res.DownwardCreated,
	}).Info("hierarchy pairings generated")
	return nil
}

// lonelyManagers gives a manager without eligible reports a gestor
// evaluation rated by the manager.
func (r *run) lonelyManagers(ctx context.Context) error {
	for _, p := range r.dir.People() {
		if !r.policy.CanBeEvaluated(p) || !p.IsManager() {
			continue
		}
		if r.eligibleReports(p.ID) > 0 {
			continue
		}
		created, err := r.assign(ctx, models.TypeGestor, p.ID, p.ID, p.ID)
		if err != nil {
			return err
		}
		if created {
			r.res.LonelyManagers++
		}
	}
	r.log.WithField("created", r.res.LonelyManagers).Info("lonely manager evaluations generated")
	return nil
}

func (r *run) eligibleReports(id int64) int {
	n := 0
	for _, rep := range r.dir.Reports(id) {
		if rep.ID != id && r.policy.CanBeEvaluated(rep) {
			n++
		}
	}
	return n
}

// downwardType picks the flavor a manager uses to rate p.
func (r *run) downwardType(p models.Person) models.EvaluationType {
	switch {
	case p.IsManager():
		return models.TypeGestor
	case p.JobFunction != nil && p.JobFunction.Category == models.CategoryCommissioned:
		if _, ok := r.templates[models.TypeCommissioned]; ok {
			return models.TypeCommissioned
		}
		r.log.WithField("person_id", p.ID).Debug("no commissioned template, using servidor")
		return models.TypeServidor
	default:
		return models.TypeServidor
	}
}

// assign finds or creates the evaluation of subject under typ and the request
// for rater. It reports whether the request was newly created.
func (r *run) assign(ctx context.Context, typ models.EvaluationType, subject, requester, rater int64) (bool, error) {
	form := r.templates[typ]
	ev := &models.Evaluation{
		FormID:            form.ID,
		EvaluatedPersonID: subject,
		Type:              typ,
	}
	if _, err := r.store.FindOrCreateEvaluation(ctx, ev); err != nil {
		return false, fmt.Errorf("evaluation %s for person %d: %w", typ, subject, err)
	}
	req := &models.EvaluationRequest{
		EvaluationID:      ev.ID,
		RequesterPersonID: requester,
		RequestedPersonID: rater,
		Status:            models.StatusPending,
	}
	created, err := r.store.FindOrCreateRequest(ctx, req)
	if err != nil {
		return false, fmt.Errorf("request %s for person %d by %d: %w", typ, subject, rater, err)
	}
	return created, nil
}

func (r *run) skip(personID int64, step string, reason SkipReason, err error) {
	s := Skip{PersonID: personID, Step: step, Reason: reason}
	if err != nil {
		s.Detail = err.Error()
	}
	r.res.Skipped = append(r.res.Skipped, s)
	r.log.WithFields(logrus.Fields{
		"person_id": personID,
		"step":      step,
		"reason":    reason,
	}).Warn(s.Detail)
}
