package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medsys/clinic/pkg/civil"
	"github.com/medsys/clinic/pkg/textnorm"
)

// UnknownLabel stands in for a patient that no longer exists.
const UnknownLabel = "Unknown patient"

// cpfDigits is the length of a complete cpf.
const cpfDigits = 11

// Patient maps to the patients table. CNS, address and phone are stored
// encrypted when a PHI key is configured.
type Patient struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"-"`
	Name      string     `db:"name" json:"name"`
	CPF       string     `db:"cpf" json:"cpf"`
	CNS       string     `db:"cns" json:"cns"`
	BirthDate civil.Date `db:"birth_date" json:"birth_date"`
	Address   string     `db:"address" json:"address"`
	Phone     string     `db:"phone" json:"phone"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// NormalizeCPF strips punctuation so "123.456.789-09" and "12345678909"
// identify the same patient.
func NormalizeCPF(cpf string) string {
	return textnorm.DigitsOnly(cpf)
}

// MatchableCPF returns the normalized cpf once enough digits are present to
// look a patient up by it.
func MatchableCPF(cpf string) (string, bool) {
	digits := NormalizeCPF(cpf)
	return digits, len(digits) >= cpfDigits
}

// Label is the display name, safe on a nil patient.
func (p *Patient) Label() string {
	if p == nil || strings.TrimSpace(p.Name) == "" {
		return UnknownLabel
	}
	return p.Name
}

// Age in whole years on the given day; ok is false without a birth date.
func (p *Patient) Age(today civil.Date) (int, bool) {
	if p.BirthDate.IsZero() {
		return 0, false
	}
	return p.BirthDate.YearsSince(today), true
}

// Matches reports whether term appears in the name (ignoring case and
// accents) or in the cpf digits.
func (p *Patient) Matches(term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	if textnorm.Contains(p.Name, term) {
		return true
	}
	digits := NormalizeCPF(term)
	return digits != "" && strings.Contains(NormalizeCPF(p.CPF), digits)
}

// Filter keeps the patients matching term, preserving order.
func Filter(patients []*Patient, term string) []*Patient {
	out := make([]*Patient, 0, len(patients))
	for _, p := range patients {
		if p.Matches(term) {
			out = append(out, p)
		}
	}
	return out
}

// Index resolves patient ids for views that show related records.
type Index map[uuid.UUID]*Patient

func NewIndex(patients []*Patient) Index {
	idx := make(Index, len(patients))
	for _, p := range patients {
		idx[p.ID] = p
	}
	return idx
}

func (idx Index) Lookup(id uuid.UUID) (*Patient, bool) {
	p, ok := idx[id]
	return p, ok
}
