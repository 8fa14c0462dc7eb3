package models

import (
	"fmt"
	"strings"
)

// EvaluationType is the closed set of evaluation flavors. The same codes name
// the form templates of the catalog.
type EvaluationType string

const (
	TypeSelf         EvaluationType = "self"
	TypeSelfManager  EvaluationType = "self-manager"
	TypeChefia       EvaluationType = "chefia"
	TypeServidor     EvaluationType = "servidor"
	TypeGestor       EvaluationType = "gestor"
	TypeCommissioned EvaluationType = "commissioned"
)

// AllEvaluationTypes lists every type in catalog order.
var AllEvaluationTypes = []EvaluationType{
	TypeSelf, TypeSelfManager, TypeChefia, TypeServidor, TypeGestor, TypeCommissioned,
}

// legacyTypeLabels maps free-form labels found in imported data onto the
// canonical codes. Keys are lower-cased with accents stripped.
var legacyTypeLabels = map[string]EvaluationType{
	"self":                 TypeSelf,
	"autoavaliacao":        TypeSelf,
	"self-manager":         TypeSelfManager,
	"autoavaliacaogestor":  TypeSelfManager,
	"autoavaliacao gestor": TypeSelfManager,
	"chefia":               TypeChefia,
	"servidor":             TypeServidor,
	"gestor":               TypeGestor,
	"commissioned":         TypeCommissioned,
	"comissionado":         TypeCommissioned,
}

var accentFolder = strings.NewReplacer(
	"á", "a", "à", "a", "ã", "a", "â", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "õ", "o", "ô", "o",
	"ú", "u",
	"ç", "c",
)

// ParseEvaluationType accepts a canonical code or a known legacy label.
func ParseEvaluationType(s string) (EvaluationType, error) {
	key := accentFolder.Replace(strings.ToLower(strings.TrimSpace(s)))
	if t, ok := legacyTypeLabels[key]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown evaluation type %q", s)
}

func (t EvaluationType) Valid() bool {
	for _, v := range AllEvaluationTypes {
		if v == t {
			return true
		}
	}
	return false
}

// IsSelf reports whether t is one of the two self-evaluation flavors.
func (t EvaluationType) IsSelf() bool {
	return t == TypeSelf || t == TypeSelfManager
}

// IsDownward reports whether t is a manager-rates-subordinate flavor.
func (t EvaluationType) IsDownward() bool {
	return t == TypeServidor || t == TypeGestor || t == TypeCommissioned
}

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusCompleted RequestStatus = "completed"
)

func (s RequestStatus) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

type FunctionalStatus string

const (
	FunctionalWorking   FunctionalStatus = "working"
	FunctionalOnLeave   FunctionalStatus = "on-leave"
	FunctionalVacation  FunctionalStatus = "vacation"
	FunctionalLoaned    FunctionalStatus = "loaned"
	FunctionalSuspended FunctionalStatus = "suspended"
	FunctionalDismissed FunctionalStatus = "dismissed"
	FunctionalRetired   FunctionalStatus = "retired"
)

type BondType string

const (
	BondTenured      BondType = "tenured"
	BondProbationary BondType = "probationary"
	BondCommissioned BondType = "commissioned"
	BondTemporary    BondType = "temporary"
	BondIntern       BondType = "intern"
)

type JobCategory string

const (
	CategoryRegular      JobCategory = "regular"
	CategoryChief        JobCategory = "chief"
	CategoryCommissioned JobCategory = "commissioned"
)
