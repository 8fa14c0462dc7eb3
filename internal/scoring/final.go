package scoring

import (
	"context"
	"fmt"

	"evaluations/models"
)

// Category weights, in percent.
const (
	managerSelfPct     = 25
	managerSuperiorPct = 50
	managerTeamPct     = 25

	staffSelfPct     = 30
	staffSuperiorPct = 70
)

// Breakdown explains a final score.
type Breakdown struct {
	PersonID int64 `json:"personId"`
	Year     int   `json:"year"`
	Eligible bool  `json:"eligible"`
	// Manager is true when the 25/50/25 weights apply.
	Manager    bool     `json:"manager"`
	Self       *int     `json:"self"`
	Superior   *int     `json:"superior"`
	Team       *float64 `json:"team"`
	TeamRaters int      `json:"teamRaters"`
	Complete   bool     `json:"complete"`
	Final      int      `json:"final"`
}

// FinalScoreForPerson combines the self, superior and team scores of personID
// for year. A missing category yields a final score of 0.
func (a *Aggregator) FinalScoreForPerson(ctx context.Context, personID int64, year int) (Breakdown, error) {
	if personID <= 0 || year <= 0 {
		return Breakdown{}, fmt.Errorf("person %d year %d: %w", personID, year, ErrInvalidArgument)
	}
	p, err := a.store.GetPerson(ctx, personID)
	if err != nil {
		return Breakdown{}, err
	}
	views, err := a.store.ListRequests(ctx, models.RequestFilter{Year: year, PersonID: personID})
	if err != nil {
		return Breakdown{}, fmt.Errorf("requests of person %d: %w", personID, err)
	}

	b := Breakdown{PersonID: personID, Year: year, Eligible: a.policy.CanBeEvaluated(*p)}
	if !b.Eligible {
		return b, nil
	}

	var self, superior, superiorFallback *models.RequestView
	var chefia []models.RequestView
	for i := range views {
		v := &views[i]
		switch {
		case v.Type.IsSelf():
			if self == nil {
				self = v
			}
		case v.Type.IsDownward() && v.RequesterPersonID == personID:
			if v.RequestedPersonID != personID {
				if superior == nil {
					superior = v
				}
			} else if superiorFallback == nil {
				superiorFallback = v
			}
		case v.Type == models.TypeChefia:
			chefia = append(chefia, *v)
		}
	}
	if superior == nil {
		superior = superiorFallback
	}

	if b.Self, err = a.viewScore(ctx, self); err != nil {
		return Breakdown{}, err
	}
	if b.Superior, err = a.viewScore(ctx, superior); err != nil {
		return Breakdown{}, err
	}

	// Managers always need a team score, even when no report can rate them.
	b.Manager = p.IsManager()
	if b.Manager {
		var sum float64
		for i := range chefia {
			s, err := a.viewScore(ctx, &chefia[i])
			if err != nil {
				return Breakdown{}, err
			}
			if s != nil {
				sum += float64(*s)
				b.TeamRaters++
			}
		}
		if b.TeamRaters > 0 {
			mean := sum / float64(b.TeamRaters)
			b.Team = &mean
		}
	}

	b.Final, b.Complete = combine(b)
	return b, nil
}

func (a *Aggregator) viewScore(ctx context.Context, v *models.RequestView) (*int, error) {
	if v == nil || v.Status != models.StatusCompleted {
		return nil, nil
	}
	return a.score(ctx, v.EvaluationRequest, v.FormID)
}

func combine(b Breakdown) (int, bool) {
	if b.Self == nil || b.Superior == nil {
		return 0, false
	}
	self, superior := float64(*b.Self), float64(*b.Superior)
	if !b.Manager {
		return roundHalfUp((self*staffSelfPct + superior*staffSuperiorPct) / 100), true
	}
	if b.Team == nil {
		return 0, false
	}
	return roundHalfUp((self*managerSelfPct + superior*managerSuperiorPct + *b.Team*managerTeamPct) / 100), true
}
