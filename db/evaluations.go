package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"evaluations/models"

	"github.com/jmoiron/sqlx"
)

func (s *Storage) CountEvaluations(ctx context.Context, year int) (int, error) {
	var n int
	query := `
        SELECT COUNT(*) FROM evaluation e
        JOIN form f ON f.id = e.form_id
        WHERE f.year = $1`
	if err := sqlx.GetContext(ctx, s.conn(ctx), &n, query, year); err != nil {
		return 0, wrap(err, "count evaluations of %d", year)
	}
	return n, nil
}

// DeleteCycle removes every answer, request and evaluation attached to the
// forms of year, returning how many evaluations and requests were deleted.
func (s *Storage) DeleteCycle(ctx context.Context, year int) (int64, int64, error) {
	conn := s.conn(ctx)
	const scope = `SELECT e.id FROM evaluation e JOIN form f ON f.id = e.form_id WHERE f.year = $1`

	if _, err := conn.ExecContext(ctx, `DELETE FROM answer WHERE evaluation_id IN (`+scope+`)`, year); err != nil {
		return 0, 0, fmt.Errorf("delete answers of %d: %w", year, err)
	}
	res, err := conn.ExecContext(ctx, `DELETE FROM evaluation_request WHERE evaluation_id IN (`+scope+`)`, year)
	if err != nil {
		return 0, 0, fmt.Errorf("delete requests of %d: %w", year, err)
	}
	requests, err := res.RowsAffected()
	if err != nil {
		return 0, 0, err
	}
	res, err = conn.ExecContext(ctx, `DELETE FROM evaluation WHERE form_id IN (SELECT id FROM form WHERE year = $1)`, year)
	if err != nil {
		return 0, 0, fmt.Errorf("delete evaluations of %d: %w", year, err)
	}
	evaluations, err := res.RowsAffected()
	if err != nil {
		return 0, 0, err
	}
	return evaluations, requests, nil
}

// FindOrCreateEvaluation inserts e unless (form, person, type) already exists.
// Either way e.ID and e.CreatedAt are filled from the stored row.
func (s *Storage) FindOrCreateEvaluation(ctx context.Context, e *models.Evaluation) (bool, error) {
	conn := s.conn(ctx)
	query := `
        INSERT INTO evaluation (form_id, evaluated_person_id, type)
        VALUES ($1, $2, $3)
        ON CONFLICT (form_id, evaluated_person_id, type) DO NOTHING
        RETURNING id, created_at`
	err := conn.QueryRowxContext(ctx, query, e.FormID, e.EvaluatedPersonID, e.Type).Scan(&e.ID, &e.CreatedAt)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("insert evaluation: %w", err)
	}

	query = `
        SELECT id, created_at FROM evaluation
        WHERE form_id = $1 AND evaluated_person_id = $2 AND type = $3`
	if err := conn.QueryRowxContext(ctx, query, e.FormID, e.EvaluatedPersonID, e.Type).Scan(&e.ID, &e.CreatedAt); err != nil {
		return false, wrap(err, "find evaluation")
	}
	return false, nil
}

const requestColumns = `
        r.id, r.evaluation_id, r.requester_person_id, r.requested_person_id,
        r.status, r.exception_starts_on, r.exception_ends_on, r.created_at`

// FindOrCreateRequest inserts r unless the evaluation already has a request
// for the same rater, in which case r is overwritten with the stored row.
func (s *Storage) FindOrCreateRequest(ctx context.Context, r *models.EvaluationRequest) (bool, error) {
	conn := s.conn(ctx)
	if r.Status == "" {
		r.Status = models.StatusPending
	}
	query := `
        INSERT INTO evaluation_request (evaluation_id, requester_person_id, requested_person_id, status)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (evaluation_id, requested_person_id) DO NOTHING
        RETURNING id, created_at`
	err := conn.QueryRowxContext(ctx, query, r.EvaluationID, r.RequesterPersonID, r.RequestedPersonID, r.Status).
		Scan(&r.ID, &r.CreatedAt)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("insert evaluation request: %w", err)
	}

	query = `SELECT` + requestColumns + `
        FROM evaluation_request r
        WHERE r.evaluation_id = $1 AND r.requested_person_id = $2`
	if err := sqlx.GetContext(ctx, conn, r, query, r.EvaluationID, r.RequestedPersonID); err != nil {
		return false, wrap(err, "find evaluation request")
	}
	return false, nil
}

func (s *Storage) GetEvaluation(ctx context.Context, id int64) (*models.Evaluation, error) {
	e := &models.Evaluation{}
	query := `SELECT id, form_id, evaluated_person_id, type, created_at FROM evaluation WHERE id = $1`
	if err := sqlx.GetContext(ctx, s.conn(ctx), e, query, id); err != nil {
		return nil, wrap(err, "evaluation %d", id)
	}
	return e, nil
}

func (s *Storage) GetRequest(ctx context.Context, id int64) (*models.EvaluationRequest, error) {
	r := &models.EvaluationRequest{}
	query := `SELECT` + requestColumns + ` FROM evaluation_request r WHERE r.id = $1`
	if err := sqlx.GetContext(ctx, s.conn(ctx), r, query, id); err != nil {
		return nil, wrap(err, "evaluation request %d", id)
	}
	return r, nil
}

// ListRequests returns the requests matching every non-zero field of f.
func (s *Storage) ListRequests(ctx context.Context, f models.RequestFilter) ([]models.RequestView, error) {
	query := `SELECT` + requestColumns + `,
        e.evaluated_person_id, e.type, e.form_id, fm.year
        FROM evaluation_request r
        JOIN evaluation e ON e.id = r.evaluation_id
        JOIN form fm ON fm.id = e.form_id`

	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Year != 0 {
		add("fm.year = $%d", f.Year)
	}
	if f.PersonID != 0 {
		add("e.evaluated_person_id = $%d", f.PersonID)
	}
	if f.Type != "" {
		add("e.type = $%d", f.Type)
	}
	if f.Status != "" {
		add("r.status = $%d", f.Status)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.id"

	views := []models.RequestView{}
	if err := sqlx.SelectContext(ctx, s.conn(ctx), &views, query, args...); err != nil {
		return nil, wrap(err, "list evaluation requests")
	}
	return views, nil
}
