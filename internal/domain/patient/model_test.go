package patient

import (
	"testing"

	"github.com/google/uuid"

	"github.com/medsys/clinic/pkg/civil"
)

func TestNormalizeCPF(t *testing.T) {
	if got := NormalizeCPF("123.456.789-09"); got != "12345678909" {
		t.Errorf("expected 12345678909, got %s", got)
	}
}

func TestMatchableCPF(t *testing.T) {
	if _, ok := MatchableCPF("123.456.789-0"); ok {
		t.Error("expected ten digits to be too short")
	}
	digits, ok := MatchableCPF("123.456.789-09")
	if !ok || digits != "12345678909" {
		t.Errorf("expected match, got %q %v", digits, ok)
	}
}

func TestPatient_Label(t *testing.T) {
	var missing *Patient
	if missing.Label() != UnknownLabel {
		t.Errorf("expected placeholder for nil patient, got %q", missing.Label())
	}
	if (&Patient{Name: "Ana"}).Label() != "Ana" {
		t.Error("expected name as label")
	}
}

func TestPatient_Age(t *testing.T) {
	p := &Patient{BirthDate: civil.NewDate(1990, 6, 15)}

	age, ok := p.Age(civil.NewDate(2024, 6, 14))
	if !ok || age != 33 {
		t.Errorf("expected 33 the day before the birthday, got %d", age)
	}
	age, _ = p.Age(civil.NewDate(2024, 6, 15))
	if age != 34 {
		t.Errorf("expected 34 on the birthday, got %d", age)
	}

	if _, ok := (&Patient{}).Age(civil.Today()); ok {
		t.Error("expected no age without birth date")
	}
}

func TestIndex_Lookup(t *testing.T) {
	p := &Patient{ID: uuid.New(), Name: "Ana"}
	idx := NewIndex([]*Patient{p})

	if got, ok := idx.Lookup(p.ID); !ok || got != p {
		t.Error("expected patient in index")
	}
	if _, ok := idx.Lookup(uuid.New()); ok {
		t.Error("expected miss for unknown id")
	}
}
