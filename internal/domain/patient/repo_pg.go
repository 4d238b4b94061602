package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medsys/clinic/internal/domain"
	"github.com/medsys/clinic/internal/platform/db"
	"github.com/medsys/clinic/internal/platform/hipaa"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type repoPG struct {
	pool      *pgxpool.Pool
	encryptor *hipaa.PHIEncryptor
}

// NewRepo returns the Postgres repository. enc may be nil, in which case
// contact fields are stored as plaintext.
func NewRepo(pool *pgxpool.Pool, enc *hipaa.PHIEncryptor) Repository {
	return &repoPG{pool: pool, encryptor: enc}
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, user_id, name, cpf, cns, birth_date, address, phone, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return err
	}
	sealed, err := r.seal(p)
	if err != nil {
		return fmt.Errorf("patient create: %w", err)
	}

	p.ID = uuid.New()
	p.UserID = owner
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (id, user_id, name, cpf, cpf_digits, cns, birth_date, address, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		p.ID, p.UserID, p.Name, p.CPF, NormalizeCPF(p.CPF), sealed.CNS, p.BirthDate, sealed.Address, sealed.Phone,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("patient create: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return nil, err
	}
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = $1 AND user_id = $2`, id, owner))
	if err != nil {
		return nil, domain.NoRows(err, "patient")
	}
	if err := r.open(p); err != nil {
		return nil, fmt.Errorf("patient get: %w", err)
	}
	return p, nil
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return err
	}
	sealed, err := r.seal(p)
	if err != nil {
		return fmt.Errorf("patient update: %w", err)
	}

	err = r.conn(ctx).QueryRow(ctx, `
		UPDATE patients SET
			name = $3, cpf = $4, cpf_digits = $5, cns = $6, birth_date = $7,
			address = $8, phone = $9, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING user_id, created_at, updated_at`,
		p.ID, owner, p.Name, p.CPF, NormalizeCPF(p.CPF), sealed.CNS, p.BirthDate, sealed.Address, sealed.Phone,
	).Scan(&p.UserID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.NoRows(err, "patient")
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1 AND user_id = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("patient delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("patient")
	}
	return nil
}

func (r *repoPG) List(ctx context.Context) ([]*Patient, error) {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patients WHERE user_id = $1 ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("patient list: %w", err)
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		if err := r.open(p); err != nil {
			return nil, fmt.Errorf("patient list: %w", err)
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func (r *repoPG) FindByCPF(ctx context.Context, cpfDigits string) (*Patient, error) {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return nil, err
	}
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `
		SELECT `+patientCols+` FROM patients
		WHERE user_id = $1 AND cpf_digits = $2
		ORDER BY created_at
		LIMIT 1`, owner, cpfDigits))
	if err != nil {
		return nil, domain.NoRows(err, "patient")
	}
	if err := r.open(p); err != nil {
		return nil, fmt.Errorf("patient find by cpf: %w", err)
	}
	return p, nil
}

// contactFields is the storage form of the encrypted columns.
type contactFields struct {
	CNS, Address, Phone string
}

func (r *repoPG) seal(p *Patient) (contactFields, error) {
	var out contactFields
	var err error
	if out.CNS, err = r.encryptor.Seal(p.CNS); err != nil {
		return out, err
	}
	if out.Address, err = r.encryptor.Seal(p.Address); err != nil {
		return out, err
	}
	if out.Phone, err = r.encryptor.Seal(p.Phone); err != nil {
		return out, err
	}
	return out, nil
}

func (r *repoPG) open(p *Patient) error {
	var err error
	if p.CNS, err = r.encryptor.Open(p.CNS); err != nil {
		return err
	}
	if p.Address, err = r.encryptor.Open(p.Address); err != nil {
		return err
	}
	if p.Phone, err = r.encryptor.Open(p.Phone); err != nil {
		return err
	}
	return nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.CPF, &p.CNS, &p.BirthDate,
		&p.Address, &p.Phone, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
