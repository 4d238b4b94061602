package medication

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medsys/clinic/pkg/textnorm"
)

func TestReconcileCatalog_SkipsKnownNames(t *testing.T) {
	known := []*Medication{{Name: "Amoxicillin"}}
	items := []CatalogItem{
		{Name: "amoxicillin "},
		{Name: "Ibuprofen", Dosage: "200mg"},
	}

	got := ReconcileCatalog(context.Background(), items, known, nil)

	require.Len(t, got, 1)
	assert.Equal(t, "Ibuprofen", got[0].Name)
	assert.Equal(t, "200mg", got[0].Description)
	assert.Equal(t, 0, got[0].Stock)
	assert.Equal(t, float64(0), got[0].Price)
	assert.Equal(t, StatusLowStock, got[0].Status)
	assert.Equal(t, DefaultCategory, got[0].Category)
	assert.Equal(t, DefaultForm, got[0].Form)
}

func TestReconcileCatalog_NoDuplicateEmits(t *testing.T) {
	items := []CatalogItem{
		{Name: "Dipirona"},
		{Name: "  DIPIRONA"},
		{Name: "dipirona", Dosage: "500mg"},
		{Name: "Paracetamol"},
		{Name: ""},
		{Name: "   "},
	}

	got := ReconcileCatalog(context.Background(), items, nil, nil)

	require.Len(t, got, 2)
	assert.Equal(t, "Dipirona", got[0].Name, "first spelling wins")
	assert.Equal(t, "Paracetamol", got[1].Name)

	seen := map[string]bool{}
	for _, m := range got {
		k := textnorm.Key(m.Name)
		assert.False(t, seen[k], "duplicate %q", m.Name)
		seen[k] = true
	}
}

func TestReconcileCatalog_TrimsEmittedName(t *testing.T) {
	got := ReconcileCatalog(context.Background(), []CatalogItem{{Name: "  Losartana  ", Dosage: " 50mg "}}, nil, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "Losartana", got[0].Name)
	assert.Equal(t, "50mg", got[0].Description)
}

func TestReconcileCatalog_LookupFindsExisting(t *testing.T) {
	repo := newMockRepo()
	require.NoError(t, repo.Create(context.Background(), &Medication{Name: "Omeprazol", Stock: 40}))

	got := ReconcileCatalog(context.Background(), []CatalogItem{{Name: "omeprazol"}, {Name: "Losartana"}}, nil, repo)

	require.Len(t, got, 1)
	assert.Equal(t, "Losartana", got[0].Name)
	assert.Equal(t, 2, repo.lookups)
}

func TestReconcileCatalog_LookupErrorStillEmits(t *testing.T) {
	repo := newMockRepo()
	repo.lookupErr = errors.New("connection reset")

	got := ReconcileCatalog(context.Background(), []CatalogItem{{Name: "Losartana"}, {Name: "Metformina"}}, nil, repo)

	assert.Len(t, got, 2)
}

func TestCreateMissing_ContinuesAfterFailedInsert(t *testing.T) {
	repo := newMockRepo()
	repo.failNames["Losartana"] = true

	created := CreateMissing(context.Background(), repo,
		[]CatalogItem{{Name: "Losartana"}, {Name: "Metformina", Dosage: "850mg"}}, nil, nil, nil)

	require.Len(t, created, 1)
	assert.Equal(t, "Metformina", created[0].Name)
	assert.Equal(t, StatusLowStock, created[0].Status)
	assert.Len(t, repo.meds, 1)
}
