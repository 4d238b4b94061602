package prescription

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medsys/clinic/internal/domain"
	"github.com/medsys/clinic/internal/platform/db"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const rxCols = `id, user_id, patient_id, date, location, usage_type, items, doctor_name, doctor_license, created_at`

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return err
	}
	p.ID = uuid.New()
	p.UserID = owner
	if p.Items == nil {
		p.Items = []Item{}
	}
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescriptions (id, user_id, patient_id, date, location, usage_type, items, doctor_name, doctor_license)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		p.ID, p.UserID, p.PatientID, p.Date, p.Location, p.UsageType, p.Items, p.DoctorName, p.DoctorLicense,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("prescription create: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return nil, err
	}
	p, err := scanPrescription(r.conn(ctx).QueryRow(ctx,
		`SELECT `+rxCols+` FROM prescriptions WHERE id = $1 AND user_id = $2`, id, owner))
	if err != nil {
		return nil, domain.NoRows(err, "prescription")
	}
	return p, nil
}

func (r *repoPG) List(ctx context.Context) ([]*Prescription, error) {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, `SELECT `+rxCols+` FROM prescriptions
		WHERE user_id = $1 ORDER BY date DESC, created_at DESC`, owner)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error) {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, `SELECT `+rxCols+` FROM prescriptions
		WHERE user_id = $1 AND patient_id = $2 ORDER BY date DESC, created_at DESC`, owner, patientID)
}

func (r *repoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Prescription, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("prescription list: %w", err)
	}
	defer rows.Close()

	var out []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(
		&p.ID, &p.UserID, &p.PatientID, &p.Date, &p.Location, &p.UsageType,
		&p.Items, &p.DoctorName, &p.DoctorLicense, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
