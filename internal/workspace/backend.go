package workspace

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medsys/clinic/internal/domain/evolution"
	"github.com/medsys/clinic/internal/domain/medication"
	"github.com/medsys/clinic/internal/domain/patient"
	"github.com/medsys/clinic/internal/domain/prescription"
	"github.com/medsys/clinic/internal/platform/db"
	"github.com/medsys/clinic/internal/platform/hipaa"
)

// Backend is the persistence the coordinator reads from and writes to.
// Every store scopes its rows by the owner in the context.
type Backend interface {
	Patients() patient.Repository
	Medications() medication.Repository
	Prescriptions() prescription.Repository
	Evolutions() evolution.Repository
	Tx() db.TxRunner
}

type repoBackend struct {
	patients      patient.Repository
	medications   medication.Repository
	prescriptions prescription.Repository
	evolutions    evolution.Repository
	tx            db.TxRunner
}

// NewRepoBackend serves the workspace from the Postgres repositories.
func NewRepoBackend(pool *pgxpool.Pool, enc *hipaa.PHIEncryptor) Backend {
	return &repoBackend{
		patients:      patient.NewRepo(pool, enc),
		medications:   medication.NewRepo(pool),
		prescriptions: prescription.NewRepo(pool),
		evolutions:    evolution.NewRepo(pool),
		tx:            db.NewTxRunner(pool),
	}
}

func (b *repoBackend) Patients() patient.Repository           { return b.patients }
func (b *repoBackend) Medications() medication.Repository     { return b.medications }
func (b *repoBackend) Prescriptions() prescription.Repository { return b.prescriptions }
func (b *repoBackend) Evolutions() evolution.Repository       { return b.evolutions }
func (b *repoBackend) Tx() db.TxRunner                        { return b.tx }
