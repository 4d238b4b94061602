package evolution

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medsys/clinic/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const evoCols = `id, user_id, patient_id, date, content, doctor_name, doctor_license, created_at`

func (r *repoPG) Create(ctx context.Context, e *Evolution) error {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return err
	}
	e.ID = uuid.New()
	e.UserID = owner
	err = r.pool.QueryRow(ctx, `
		INSERT INTO evolutions (id, user_id, patient_id, date, content, doctor_name, doctor_license)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		e.ID, e.UserID, e.PatientID, e.Date, e.Content, e.DoctorName, e.DoctorLicense,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("evolution create: %w", err)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context) ([]*Evolution, error) {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, `SELECT `+evoCols+` FROM evolutions
		WHERE user_id = $1 ORDER BY date DESC, created_at DESC`, owner)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Evolution, error) {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, `SELECT `+evoCols+` FROM evolutions
		WHERE user_id = $1 AND patient_id = $2 ORDER BY date DESC, created_at DESC`, owner, patientID)
}

func (r *repoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Evolution, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("evolution list: %w", err)
	}
	defer rows.Close()

	var out []*Evolution
	for rows.Next() {
		e, err := scanEvolution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEvolution(row pgx.Row) (*Evolution, error) {
	var e Evolution
	err := row.Scan(&e.ID, &e.UserID, &e.PatientID, &e.Date, &e.Content,
		&e.DoctorName, &e.DoctorLicense, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
