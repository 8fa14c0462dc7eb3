package db

import (
	"context"
	"fmt"
	"time"

	"evaluations/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const formColumns = `id, year, type, starts_on, ends_on`

func (s *Storage) FormsForYear(ctx context.Context, year int) ([]models.Form, error) {
	forms := []models.Form{}
	query := `SELECT ` + formColumns + ` FROM form WHERE year = $1 ORDER BY id`
	if err := sqlx.SelectContext(ctx, s.conn(ctx), &forms, query, year); err != nil {
		return nil, wrap(err, "forms of %d", year)
	}
	return forms, nil
}

// GetForm loads a form with its groups and questions ordered by position.
func (s *Storage) GetForm(ctx context.Context, id int64) (*models.Form, error) {
	conn := s.conn(ctx)
	f := &models.Form{}
	query := `SELECT ` + formColumns + ` FROM form WHERE id = $1`
	if err := sqlx.GetContext(ctx, conn, f, query, id); err != nil {
		return nil, wrap(err, "form %d", id)
	}

	var groups []models.GroupQuestion
	query = `
        SELECT id, form_id, name, position, weight_pct
        FROM group_question
        WHERE form_id = $1
        ORDER BY position, id`
	if err := sqlx.SelectContext(ctx, conn, &groups, query, id); err != nil {
		return nil, wrap(err, "groups of form %d", id)
	}

	var questions []models.Question
	query = `
        SELECT q.id, q.group_id, q.text, q.position, q.weight_pct
        FROM question q
        JOIN group_question g ON g.id = q.group_id
        WHERE g.form_id = $1
        ORDER BY q.position, q.id`
	if err := sqlx.SelectContext(ctx, conn, &questions, query, id); err != nil {
		return nil, wrap(err, "questions of form %d", id)
	}

	index := make(map[int64]int, len(groups))
	for i, g := range groups {
		index[g.ID] = i
	}
	for _, q := range questions {
		if i, ok := index[q.GroupID]; ok {
			groups[i].Questions = append(groups[i].Questions, q)
		}
	}
	f.Groups = groups
	return f, nil
}

// UpsertForm stores f by (year, type). Groups and questions are matched by
// position and updated in place, so submitted answers keep their questions.
// Groups or questions missing from f are removed unless they have answers,
// in which case models.ErrTemplateInUse is returned. Call it inside InTx so
// a failed import leaves the old template in place.
func (s *Storage) UpsertForm(ctx context.Context, f *models.Form) error {
	if err := checkPositions(f); err != nil {
		return err
	}
	conn := s.conn(ctx)
	query := `
        INSERT INTO form (year, type, starts_on, ends_on)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (year, type) DO UPDATE SET starts_on = EXCLUDED.starts_on, ends_on = EXCLUDED.ends_on
        RETURNING id`
	if err := conn.QueryRowxContext(ctx, query, f.Year, f.Type, f.StartsOn, f.EndsOn).Scan(&f.ID); err != nil {
		return fmt.Errorf("upsert form %d/%s: %w", f.Year, f.Type, err)
	}

	groupPositions := make([]int64, 0, len(f.Groups))
	for gi := range f.Groups {
		g := &f.Groups[gi]
		g.FormID = f.ID
		query := `
            INSERT INTO group_question (form_id, name, position, weight_pct)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT (form_id, position) DO UPDATE SET name = EXCLUDED.name, weight_pct = EXCLUDED.weight_pct
            RETURNING id`
		if err := conn.QueryRowxContext(ctx, query, g.FormID, g.Name, g.Position, g.WeightPct).Scan(&g.ID); err != nil {
			return fmt.Errorf("upsert group %q: %w", g.Name, err)
		}
		groupPositions = append(groupPositions, int64(g.Position))

		questionPositions := make([]int64, 0, len(g.Questions))
		for qi := range g.Questions {
			q := &g.Questions[qi]
			q.GroupID = g.ID
			query := `
                INSERT INTO question (group_id, text, position, weight_pct)
                VALUES ($1, $2, $3, $4)
                ON CONFLICT (group_id, position) DO UPDATE SET text = EXCLUDED.text, weight_pct = EXCLUDED.weight_pct
                RETURNING id`
			if err := conn.QueryRowxContext(ctx, query, q.GroupID, q.Text, q.Position, q.WeightPct).Scan(&q.ID); err != nil {
				return fmt.Errorf("upsert question %q: %w", q.Text, err)
			}
			questionPositions = append(questionPositions, int64(q.Position))
		}

		err := s.prune(ctx, fmt.Sprintf("questions of group %q", g.Name), `
            SELECT COUNT(*) FROM answer a
            JOIN question q ON q.id = a.question_id
            WHERE q.group_id = $1 AND NOT (q.position = ANY($2))`, `
            DELETE FROM question WHERE group_id = $1 AND NOT (position = ANY($2))`,
			g.ID, questionPositions)
		if err != nil {
			return err
		}
	}

	return s.prune(ctx, fmt.Sprintf("groups of form %d/%s", f.Year, f.Type), `
        SELECT COUNT(*) FROM answer a
        JOIN question q ON q.id = a.question_id
        JOIN group_question g ON g.id = q.group_id
        WHERE g.form_id = $1 AND NOT (g.position = ANY($2))`, `
        DELETE FROM group_question WHERE form_id = $1 AND NOT (position = ANY($2))`,
		f.ID, groupPositions)
}

// prune deletes the rows of parent whose position is not in kept, refusing
// when any of them already has answers.
func (s *Storage) prune(ctx context.Context, what, countAnswered, remove string, parent int64, kept []int64) error {
	conn := s.conn(ctx)
	var answered int
	if err := sqlx.GetContext(ctx, conn, &answered, countAnswered, parent, pq.Array(kept)); err != nil {
		return wrap(err, "count answered %s", what)
	}
	if answered > 0 {
		return fmt.Errorf("remove %s: %d answers recorded: %w", what, answered, models.ErrTemplateInUse)
	}
	if _, err := conn.ExecContext(ctx, remove, parent, pq.Array(kept)); err != nil {
		return fmt.Errorf("remove %s: %w", what, err)
	}
	return nil
}

// checkPositions rejects duplicate group or question positions, which would
// collapse into one row.
func checkPositions(f *models.Form) error {
	groups := map[int]bool{}
	for _, g := range f.Groups {
		if groups[g.Position] {
			return fmt.Errorf("form %d/%s: duplicate group position %d", f.Year, f.Type, g.Position)
		}
		groups[g.Position] = true
		questions := map[int]bool{}
		for _, q := range g.Questions {
			if questions[q.Position] {
				return fmt.Errorf("form %d/%s group %q: duplicate question position %d", f.Year, f.Type, g.Name, q.Position)
			}
			questions[q.Position] = true
		}
	}
	return nil
}

// FormYearsStartingOn returns the years whose earliest form starts on day.
func (s *Storage) FormYearsStartingOn(ctx context.Context, day time.Time) ([]int, error) {
	years := []int{}
	query := `
        SELECT year FROM form
        GROUP BY year
        HAVING MIN(starts_on) = $1::date
        ORDER BY year`
	if err := sqlx.SelectContext(ctx, s.conn(ctx), &years, query, day.Format("2006-01-02")); err != nil {
		return nil, wrap(err, "form years starting on %s", day.Format("2006-01-02"))
	}
	return years, nil
}
