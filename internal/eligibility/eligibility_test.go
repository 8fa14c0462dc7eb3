package eligibility_test

import (
	"testing"

	"evaluations/internal/eligibility"
	"evaluations/models"

	"github.com/stretchr/testify/require"
)

func TestCanBeEvaluated(t *testing.T) {
	fn := &models.JobFunction{ID: 1, Category: models.CategoryRegular}

	tests := []struct {
		name   string
		person models.Person
		want   bool
	}{
		{"tenured", models.Person{BondType: models.BondTenured}, true},
		{"probationary without function", models.Person{BondType: models.BondProbationary}, false},
		{"probationary with function", models.Person{BondType: models.BondProbationary, JobFunction: fn}, true},
		{"dismissed tenured", models.Person{BondType: models.BondTenured, FunctionalStatus: models.FunctionalDismissed}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, eligibility.CanBeEvaluated(tt.person))
		})
	}
}

func TestCanEvaluate(t *testing.T) {
	fn := &models.JobFunction{ID: 1, IsManager: true}

	tests := []struct {
		name   string
		person models.Person
		want   bool
	}{
		{"working", models.Person{FunctionalStatus: models.FunctionalWorking, BondType: models.BondTenured}, true},
		{"vacation", models.Person{FunctionalStatus: models.FunctionalVacation, BondType: models.BondTenured}, true},
		{"loaned", models.Person{FunctionalStatus: models.FunctionalLoaned, BondType: models.BondTenured}, true},
		{"on leave", models.Person{FunctionalStatus: models.FunctionalOnLeave, BondType: models.BondTenured}, true},
		{"suspended", models.Person{FunctionalStatus: models.FunctionalSuspended, BondType: models.BondTenured}, false},
		{"dismissed", models.Person{FunctionalStatus: models.FunctionalDismissed, BondType: models.BondTenured}, false},
		{"retired with function", models.Person{FunctionalStatus: models.FunctionalRetired, JobFunction: fn}, false},
		{"probationary", models.Person{FunctionalStatus: models.FunctionalWorking, BondType: models.BondProbationary}, false},
		{"probationary manager", models.Person{FunctionalStatus: models.FunctionalWorking, BondType: models.BondProbationary, JobFunction: fn}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, eligibility.CanEvaluate(tt.person))
		})
	}
}

func TestPolicyDivergentBonds(t *testing.T) {
	pol := eligibility.Policy{
		ExcludedSubjectBond: models.BondIntern,
		ExcludedRaterBond:   models.BondTemporary,
	}
	intern := models.Person{FunctionalStatus: models.FunctionalWorking, BondType: models.BondIntern}
	temp := models.Person{FunctionalStatus: models.FunctionalWorking, BondType: models.BondTemporary}

	require.False(t, pol.CanBeEvaluated(intern))
	require.True(t, pol.CanEvaluate(intern))
	require.True(t, pol.CanBeEvaluated(temp))
	require.False(t, pol.CanEvaluate(temp))
}
