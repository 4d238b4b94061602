package medication

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medsys/clinic/internal/domain"
	"github.com/medsys/clinic/internal/platform/db"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
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

const medCols = `id, user_id, name, description, category, form, stock, price, status, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, m *Medication) error {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return err
	}
	m.ID = uuid.New()
	m.UserID = owner
	if m.Status == "" {
		m.Status = StatusForStock(m.Stock)
	}
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medications (id, user_id, name, description, category, form, stock, price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		m.ID, m.UserID, m.Name, m.Description, m.Category, m.Form, m.Stock, m.Price, m.Status,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("medication create: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return nil, err
	}
	m, err := scanMedication(r.conn(ctx).QueryRow(ctx,
		`SELECT `+medCols+` FROM medications WHERE id = $1 AND user_id = $2`, id, owner))
	if err != nil {
		return nil, domain.NoRows(err, "medication")
	}
	return m, nil
}

func (r *repoPG) FindByName(ctx context.Context, name string) (*Medication, error) {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return nil, err
	}
	m, err := scanMedication(r.conn(ctx).QueryRow(ctx, `
		SELECT `+medCols+` FROM medications
		WHERE user_id = $1 AND lower(btrim(name)) = lower(btrim($2))
		LIMIT 1`, owner, name))
	if err != nil {
		return nil, domain.NoRows(err, "medication")
	}
	return m, nil
}

func (r *repoPG) Update(ctx context.Context, m *Medication) error {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return err
	}
	m.Status = StatusForStock(m.Stock)
	err = r.conn(ctx).QueryRow(ctx, `
		UPDATE medications SET
			name = $3, description = $4, category = $5, form = $6,
			stock = $7, price = $8, status = $9, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING user_id, created_at, updated_at`,
		m.ID, owner, m.Name, m.Description, m.Category, m.Form, m.Stock, m.Price, m.Status,
	).Scan(&m.UserID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return domain.NoRows(err, "medication")
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medications WHERE id = $1 AND user_id = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("medication delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("medication")
	}
	return nil
}

func (r *repoPG) List(ctx context.Context) ([]*Medication, error) {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+medCols+` FROM medications WHERE user_id = $1 ORDER BY name`, owner)
	if err != nil {
		return nil, fmt.Errorf("medication list: %w", err)
	}
	defer rows.Close()

	var meds []*Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		meds = append(meds, m)
	}
	return meds, rows.Err()
}

func scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(
		&m.ID, &m.UserID, &m.Name, &m.Description, &m.Category, &m.Form,
		&m.Stock, &m.Price, &m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
