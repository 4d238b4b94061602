package prescription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medsys/clinic/internal/platform/events"
	"github.com/medsys/clinic/pkg/civil"
)

type staticOwners struct {
	ids []uuid.UUID
	err error
}

func (s staticOwners) ListOwners(context.Context) ([]uuid.UUID, error) { return s.ids, s.err }

func TestDigest_Run(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	p := f.patients.add("Maria", "12345678909")
	f.repo.items[uuid.New()] = &Prescription{PatientID: p.ID, Date: civil.NewDate(2024, 1, 1)}
	f.repo.items[uuid.New()] = &Prescription{PatientID: p.ID, Date: civil.NewDate(2024, 2, 28)}

	pub := &events.Memory{}
	d := NewDigest(f.svc, staticOwners{ids: []uuid.UUID{owner}}, pub, nil, zerolog.Nop())
	d.now = func() time.Time { return time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC) }

	require.NoError(t, d.Run(context.Background()))

	evs := pub.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.AlertsDigest, evs[0].Type)
	assert.Equal(t, owner.String(), evs[0].OwnerID)

	summary, ok := evs[0].Data.(DigestSummary)
	require.True(t, ok)
	assert.Equal(t, 1, summary.Expired)
	assert.Equal(t, 0, summary.Expiring)
	require.Len(t, summary.Alerts, 1)
	assert.Equal(t, "Maria", summary.Alerts[0].PatientLabel)
}

func TestDigest_Run_NoAlertsPublishesNothing(t *testing.T) {
	f := newFixture()
	pub := &events.Memory{}
	d := NewDigest(f.svc, staticOwners{ids: []uuid.UUID{uuid.New()}}, pub, nil, zerolog.Nop())

	require.NoError(t, d.Run(context.Background()))
	assert.Empty(t, pub.Events())
}

func TestDigest_Run_OwnerListFailure(t *testing.T) {
	f := newFixture()
	d := NewDigest(f.svc, staticOwners{err: errors.New("db down")}, &events.Memory{}, nil, zerolog.Nop())

	assert.Error(t, d.Run(context.Background()))
}

func TestDigest_StartRejectsBadTime(t *testing.T) {
	f := newFixture()
	d := NewDigest(f.svc, staticOwners{}, nil, nil, zerolog.Nop())
	defer d.Stop()

	assert.Error(t, d.Start("25:99"))
}
