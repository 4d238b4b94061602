package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore struct {
	values map[string]string
	err    error
}

func newMapStore() *mapStore { return &mapStore{values: map[string]string{}} }

func (m *mapStore) Get(_ context.Context, key string) (string, error) {
	return m.values[key], m.err
}

func (m *mapStore) Set(_ context.Context, key, value string) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func (m *mapStore) All(_ context.Context) (map[string]string, error) {
	return m.values, m.err
}

func TestDoctorDefaults(t *testing.T) {
	s := newMapStore()
	s.values[KeyDoctorName] = "Dr. Ana Lima"
	s.values[KeyDoctorLicense] = "CRM-SP 12345"

	d, err := DoctorDefaults(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, Doctor{Name: "Dr. Ana Lima", License: "CRM-SP 12345"}, d)

	d, err = DoctorDefaults(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Doctor{}, d)

	s.err = errors.New("disk full")
	_, err = DoctorDefaults(context.Background(), s)
	assert.Error(t, err)
}

func TestDoctor_Fill(t *testing.T) {
	d := Doctor{Name: "Dr. Ana", License: "CRM 1"}

	name, license := "", "CRM 9"
	d.Fill(&name, &license)
	assert.Equal(t, "Dr. Ana", name)
	assert.Equal(t, "CRM 9", license, "explicit license kept")
}

func TestHandler_PutPreferences(t *testing.T) {
	s := newMapStore()
	h := NewHandler(s)
	e := echo.New()

	body := `{"doctor_name":" Dr. Ana ","doctor_license":"CRM 1"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/preferences", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	require.NoError(t, h.PutPreferences(e.NewContext(req, rec)))
	assert.Equal(t, "Dr. Ana", s.values[KeyDoctorName])

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "CRM 1", out[KeyDoctorLicense])
	assert.NotContains(t, out, KeySession)
}

func TestHandler_PutPreferences_RejectsDeviceKeys(t *testing.T) {
	s := newMapStore()
	h := NewHandler(s)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/preferences", strings.NewReader(`{"session":"x"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := h.PutPreferences(e.NewContext(req, rec))
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
	assert.Empty(t, s.values)
}
