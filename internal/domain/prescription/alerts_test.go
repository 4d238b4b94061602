package prescription

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medsys/clinic/internal/domain/patient"
	"github.com/medsys/clinic/pkg/civil"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeAlerts_ExpiredBoundary(t *testing.T) {
	pt := &patient.Patient{ID: uuid.New(), Name: "Maria"}
	rx := &Prescription{ID: uuid.New(), PatientID: pt.ID, Date: civil.NewDate(2024, 1, 1)}
	idx := patient.NewIndex([]*patient.Patient{pt})

	rows := ComputeAlerts([]*Prescription{rx}, idx, day(2024, 3, 2), DefaultAlertOptions())

	require.Len(t, rows, 1)
	assert.Equal(t, civil.NewDate(2024, 3, 1), rows[0].ExpiresOn)
	assert.Equal(t, -1, rows[0].DaysUntil)
	assert.Equal(t, StatusExpired, rows[0].Status)
	assert.True(t, rows[0].Expired())
	assert.Equal(t, "Maria", rows[0].PatientLabel)
	assert.Same(t, pt, rows[0].Patient)
}

func TestComputeAlerts_ExpiringSoon(t *testing.T) {
	rx := &Prescription{ID: uuid.New(), PatientID: uuid.New(), Date: civil.NewDate(2024, 1, 1)}

	rows := ComputeAlerts([]*Prescription{rx}, patient.Index{}, day(2024, 2, 24), DefaultAlertOptions())

	require.Len(t, rows, 1)
	assert.Equal(t, 6, rows[0].DaysUntil)
	assert.Equal(t, "EXPIRES IN 6 DAYS", rows[0].Status)
}

func TestComputeAlerts_Window(t *testing.T) {
	rx := &Prescription{ID: uuid.New(), Date: civil.NewDate(2024, 1, 1)}
	opts := DefaultAlertOptions()

	tests := []struct {
		now      time.Time
		included bool
		status   string
	}{
		{day(2024, 2, 22), false, ""},
		{day(2024, 2, 23), true, "EXPIRES IN 7 DAYS"},
		{day(2024, 3, 1), true, "EXPIRES IN 0 DAYS"},
		{day(2024, 5, 1), true, StatusExpired},
	}
	for _, tt := range tests {
		rows := ComputeAlerts([]*Prescription{rx}, nil, tt.now, opts)
		if !tt.included {
			assert.Empty(t, rows, tt.now.String())
			continue
		}
		require.Len(t, rows, 1, tt.now.String())
		assert.Equal(t, tt.status, rows[0].Status)
	}
}

func TestComputeAlerts_UnknownPatient(t *testing.T) {
	rx := &Prescription{ID: uuid.New(), PatientID: uuid.New(), Date: civil.NewDate(2024, 1, 1)}

	rows := ComputeAlerts([]*Prescription{rx}, patient.Index{}, day(2024, 6, 1), DefaultAlertOptions())

	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Patient)
	assert.Equal(t, patient.UnknownLabel, rows[0].PatientLabel)
}

func TestComputeAlerts_SkipsUndatedAndSortsByIssueDate(t *testing.T) {
	a := &Prescription{ID: uuid.New(), Date: civil.NewDate(2024, 1, 5)}
	b := &Prescription{ID: uuid.New(), Date: civil.NewDate(2024, 1, 1)}
	c := &Prescription{ID: uuid.New(), Date: civil.NewDate(2024, 1, 3)}
	undated := &Prescription{ID: uuid.New()}
	d := &Prescription{ID: uuid.New(), Date: civil.NewDate(2024, 1, 3)}

	rows := ComputeAlerts([]*Prescription{a, undated, b, c, d}, nil, day(2024, 6, 1), DefaultAlertOptions())

	require.Len(t, rows, 4)
	assert.Equal(t, b.ID, rows[0].Prescription.ID)
	assert.Equal(t, c.ID, rows[1].Prescription.ID)
	assert.Equal(t, d.ID, rows[2].Prescription.ID, "equal dates keep input order")
	assert.Equal(t, a.ID, rows[3].Prescription.ID)
}

func TestComputeAlerts_TruncatesPartialDays(t *testing.T) {
	rx := &Prescription{ID: uuid.New(), Date: civil.NewDate(2024, 1, 1)}

	now := time.Date(2024, 2, 22, 12, 0, 0, 0, time.UTC)
	rows := ComputeAlerts([]*Prescription{rx}, nil, now, DefaultAlertOptions())

	require.Len(t, rows, 1, "7.5 days truncates to 7")
	assert.Equal(t, 7, rows[0].DaysUntil)
}

func TestComputeAlerts_CustomOptions(t *testing.T) {
	rx := &Prescription{ID: uuid.New(), Date: civil.NewDate(2024, 1, 1)}

	rows := ComputeAlerts([]*Prescription{rx}, nil, day(2024, 1, 20), AlertOptions{ValidityDays: 30, WarningDays: 14})

	require.Len(t, rows, 1)
	assert.Equal(t, 11, rows[0].DaysUntil)
}

func TestComputeAlerts_ZeroOptionsUseDefaults(t *testing.T) {
	rx := &Prescription{ID: uuid.New(), Date: civil.NewDate(2024, 1, 1)}

	rows := ComputeAlerts([]*Prescription{rx}, nil, day(2024, 2, 24), AlertOptions{})

	require.Len(t, rows, 1)
	assert.Equal(t, 6, rows[0].DaysUntil)
	assert.Equal(t, DefaultAlertOptions(), AlertOptions{}.withDefaults())
}

func TestComputeAlerts_ExpiryDayIsNotYetExpired(t *testing.T) {
	rx := &Prescription{ID: uuid.New(), Date: civil.NewDate(2024, 1, 1)}

	rows := ComputeAlerts([]*Prescription{rx}, nil, day(2024, 3, 1).Add(20*time.Hour), DefaultAlertOptions())

	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].DaysUntil)
	assert.Equal(t, "EXPIRES IN 0 DAYS", rows[0].Status)
	assert.False(t, rows[0].Expired())
}
