package models

import (
	"errors"
	"time"
)

// ErrNotFound is returned by storage lookups that match no row.
var ErrNotFound = errors.New("not found")

// ErrInvalidAnswer is returned when a submitted answer has a score outside
// 0..100 or refers to a question outside the evaluation's form.
var ErrInvalidAnswer = errors.New("invalid answer")

// ErrTemplateInUse is returned when a form update would remove questions
// that already have answers.
var ErrTemplateInUse = errors.New("form template in use")

// MaxScore is the upper bound of an answer score.
const MaxScore = 100

// Person is a read-only entry of the personnel directory.
type Person struct {
	ID               int64            `db:"id" json:"id"`
	Name             string           `db:"name" json:"name"`
	FunctionalStatus FunctionalStatus `db:"functional_status" json:"functionalStatus"`
	BondType         BondType         `db:"bond_type" json:"bondType"`
	JobFunction      *JobFunction     `db:"-" json:"jobFunction,omitempty"`
	DirectManagerID  *int64           `db:"direct_manager_id" json:"directManagerId,omitempty"`
}

// IsManager reports whether the person holds a managerial job function.
func (p Person) IsManager() bool {
	return p.JobFunction != nil && p.JobFunction.IsManager
}

// JobFunction classifies a position: managerial or not, and its category.
type JobFunction struct {
	ID        int64       `db:"id" json:"id"`
	Name      string      `db:"name" json:"name"`
	IsManager bool        `db:"is_manager" json:"isManager"`
	Category  JobCategory `db:"category" json:"category"`
}

// Form is a template of the catalog, unique per (year, type).
type Form struct {
	ID       int64           `db:"id" json:"id"`
	Year     int             `db:"year" json:"year"`
	Type     EvaluationType  `db:"type" json:"type"`
	StartsOn time.Time       `db:"starts_on" json:"startsOn"`
	EndsOn   time.Time       `db:"ends_on" json:"endsOn"`
	Groups   []GroupQuestion `db:"-" json:"groups,omitempty"`
}

// GroupQuestion is an ordered, weighted block of questions.
type GroupQuestion struct {
	ID        int64      `db:"id" json:"id"`
	FormID    int64      `db:"form_id" json:"formId"`
	Name      string     `db:"name" json:"name"`
	Position  int        `db:"position" json:"position"`
	WeightPct float64    `db:"weight_pct" json:"weightPct"`
	Questions []Question `db:"-" json:"questions,omitempty"`
}

type Question struct {
	ID        int64   `db:"id" json:"id"`
	GroupID   int64   `db:"group_id" json:"groupId"`
	Text      string  `db:"text" json:"text"`
	Position  int     `db:"position" json:"position"`
	WeightPct float64 `db:"weight_pct" json:"weightPct"`
}

// Evaluation is one assessment slot, unique per (form, evaluated person, type).
type Evaluation struct {
	ID                int64          `db:"id" json:"id"`
	FormID            int64          `db:"form_id" json:"formId"`
	EvaluatedPersonID int64          `db:"evaluated_person_id" json:"evaluatedPersonId"`
	Type              EvaluationType `db:"type" json:"type"`
	CreatedAt         time.Time      `db:"created_at" json:"createdAt"`
}

// EvaluationRequest assigns one rater to an Evaluation,
// unique per (evaluation, requested person).
type EvaluationRequest struct {
	ID                int64         `db:"id" json:"id"`
	EvaluationID      int64         `db:"evaluation_id" json:"evaluationId"`
	RequesterPersonID int64         `db:"requester_person_id" json:"requesterPersonId"`
	RequestedPersonID int64         `db:"requested_person_id" json:"requestedPersonId"`
	Status            RequestStatus `db:"status" json:"status"`
	ExceptionStartsOn *time.Time    `db:"exception_starts_on" json:"exceptionStartsOn,omitempty"`
	ExceptionEndsOn   *time.Time    `db:"exception_ends_on" json:"exceptionEndsOn,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"createdAt"`
}

// Answer is one rater's score for one question. SubjectPersonID is the rater.
type Answer struct {
	ID              int64     `db:"id" json:"id"`
	QuestionID      int64     `db:"question_id" json:"questionId"`
	EvaluationID    int64     `db:"evaluation_id" json:"evaluationId"`
	SubjectPersonID int64     `db:"subject_person_id" json:"subjectPersonId"`
	Score           *int      `db:"score" json:"score"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// RequestView joins a request with its evaluation and form year for listing.
type RequestView struct {
	EvaluationRequest
	EvaluatedPersonID int64          `db:"evaluated_person_id" json:"evaluatedPersonId"`
	Type              EvaluationType `db:"type" json:"type"`
	FormID            int64          `db:"form_id" json:"formId"`
	Year              int            `db:"year" json:"year"`
}

// RequestFilter narrows ListRequests. Zero values are ignored.
type RequestFilter struct {
	Year     int
	PersonID int64
	Type     EvaluationType
	Status   RequestStatus
}
