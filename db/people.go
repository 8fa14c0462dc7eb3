package db

import (
	"context"
	"database/sql"

	"evaluations/models"

	"github.com/jmoiron/sqlx"
)

type personRow struct {
	ID               int64          `db:"id"`
	Name             string         `db:"name"`
	FunctionalStatus string         `db:"functional_status"`
	BondType         string         `db:"bond_type"`
	DirectManagerID  *int64         `db:"direct_manager_id"`
	FunctionID       sql.NullInt64  `db:"jf_id"`
	FunctionName     sql.NullString `db:"jf_name"`
	IsManager        sql.NullBool   `db:"jf_is_manager"`
	Category         sql.NullString `db:"jf_category"`
}

func (r personRow) person() models.Person {
	p := models.Person{
		ID:               r.ID,
		Name:             r.Name,
		FunctionalStatus: models.FunctionalStatus(r.FunctionalStatus),
		BondType:         models.BondType(r.BondType),
		DirectManagerID:  r.DirectManagerID,
	}
	if r.FunctionID.Valid {
		p.JobFunction = &models.JobFunction{
			ID:        r.FunctionID.Int64,
			Name:      r.FunctionName.String,
			IsManager: r.IsManager.Bool,
			Category:  models.JobCategory(r.Category.String),
		}
	}
	return p
}

const personColumns = `
        p.id, p.name, p.functional_status, p.bond_type, p.direct_manager_id,
        jf.id AS jf_id, jf.name AS jf_name, jf.is_manager AS jf_is_manager, jf.category AS jf_category
    FROM person p
    LEFT JOIN job_function jf ON jf.id = p.job_function_id`

func (s *Storage) ListPeople(ctx context.Context) ([]models.Person, error) {
	var rows []personRow
	query := `SELECT` + personColumns + ` ORDER BY p.id`
	if err := sqlx.SelectContext(ctx, s.conn(ctx), &rows, query); err != nil {
		return nil, wrap(err, "list people")
	}
	people := make([]models.Person, 0, len(rows))
	for _, r := range rows {
		people = append(people, r.person())
	}
	return people, nil
}

func (s *Storage) GetPerson(ctx context.Context, id int64) (*models.Person, error) {
	var row personRow
	query := `SELECT` + personColumns + ` WHERE p.id = $1`
	if err := sqlx.GetContext(ctx, s.conn(ctx), &row, query, id); err != nil {
		return nil, wrap(err, "person %d", id)
	}
	p := row.person()
	return &p, nil
}
