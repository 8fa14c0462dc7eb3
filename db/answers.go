package db

import (
	"context"
	"fmt"

	"evaluations/models"

	"github.com/jmoiron/sqlx"
)

func (s *Storage) AnswersForEvaluation(ctx context.Context, evaluationID int64) ([]models.Answer, error) {
	answers := []models.Answer{}
	query := `
        SELECT id, question_id, evaluation_id, subject_person_id, score, updated_at
        FROM answer
        WHERE evaluation_id = $1
        ORDER BY id`
	if err := sqlx.SelectContext(ctx, s.conn(ctx), &answers, query, evaluationID); err != nil {
		return nil, wrap(err, "answers of evaluation %d", evaluationID)
	}
	return answers, nil
}

// SubmitAnswers stores the rater's answers for a request and marks the
// request completed. Answers are always attributed to the requested rater.
func (s *Storage) SubmitAnswers(ctx context.Context, requestID int64, answers []models.Answer) error {
	return s.InTx(ctx, func(ctx context.Context) error {
		conn := s.conn(ctx)
		req, err := s.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}

		var questions []int64
		query := `
            SELECT q.id FROM question q
            JOIN group_question g ON g.id = q.group_id
            JOIN evaluation e ON e.form_id = g.form_id
            WHERE e.id = $1`
		if err := sqlx.SelectContext(ctx, conn, &questions, query, req.EvaluationID); err != nil {
			return wrap(err, "questions of evaluation %d", req.EvaluationID)
		}
		known := make(map[int64]bool, len(questions))
		for _, id := range questions {
			known[id] = true
		}

		for _, a := range answers {
			if !known[a.QuestionID] {
				return fmt.Errorf("question %d: %w", a.QuestionID, models.ErrInvalidAnswer)
			}
			if a.Score != nil && (*a.Score < 0 || *a.Score > models.MaxScore) {
				return fmt.Errorf("score %d for question %d: %w", *a.Score, a.QuestionID, models.ErrInvalidAnswer)
			}
			query := `
                INSERT INTO answer (question_id, evaluation_id, subject_person_id, score, updated_at)
                VALUES ($1, $2, $3, $4, now())
                ON CONFLICT (evaluation_id, question_id, subject_person_id)
                DO UPDATE SET score = EXCLUDED.score, updated_at = now()`
			if _, err := conn.ExecContext(ctx, query, a.QuestionID, req.EvaluationID, req.RequestedPersonID, a.Score); err != nil {
				return fmt.Errorf("upsert answer for question %d: %w", a.QuestionID, err)
			}
		}

		query = `UPDATE evaluation_request SET status = $1 WHERE id = $2`
		if _, err := conn.ExecContext(ctx, query, models.StatusCompleted, requestID); err != nil {
			return fmt.Errorf("complete request %d: %w", requestID, err)
		}
		return nil
	})
}
