// Package eligibility holds the single definition of who may be evaluated
// and who may evaluate. Generation and scoring both go through it.
package eligibility

import "evaluations/models"

// Policy names the bond classifications excluded from each role. A person
// with any job function assigned overrides the exclusion.
type Policy struct {
	ExcludedSubjectBond models.BondType
	ExcludedRaterBond   models.BondType
}

// DefaultPolicy excludes the probationary bond from both roles.
var DefaultPolicy = Policy{
	ExcludedSubjectBond: models.BondProbationary,
	ExcludedRaterBond:   models.BondProbationary,
}

// activeStatuses are the functional statuses allowed to rate others.
var activeStatuses = map[models.FunctionalStatus]bool{
	models.FunctionalWorking:  true,
	models.FunctionalVacation: true,
	models.FunctionalLoaned:   true,
	models.FunctionalOnLeave:  true,
}

// CanBeEvaluated reports whether p may be the subject of an evaluation.
func (pol Policy) CanBeEvaluated(p models.Person) bool {
	if p.BondType == pol.ExcludedSubjectBond && p.JobFunction == nil {
		return false
	}
	return true
}

// CanEvaluate reports whether p may fill in evaluations as a rater.
func (pol Policy) CanEvaluate(p models.Person) bool {
	if !activeStatuses[p.FunctionalStatus] {
		return false
	}
	return p.BondType != pol.ExcludedRaterBond || p.JobFunction != nil
}

func CanBeEvaluated(p models.Person) bool { return DefaultPolicy.CanBeEvaluated(p) }

func CanEvaluate(p models.Person) bool { return DefaultPolicy.CanEvaluate(p) }
