package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medsys/clinic/internal/platform/auth"
)

type mockRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (m *mockRecorder) RecordAccess(entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return m.err
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func newAuditContext(method, target, userID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	if userID != "" {
		req = req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, userID))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAudit_PatientRead(t *testing.T) {
	rec := &mockRecorder{}
	patientID := uuid.NewString()
	userID := uuid.NewString()
	c, _ := newAuditContext(http.MethodGet, "/api/v1/patients/"+patientID+"/timeline", userID)
	c.Set("request_id", "rid-7")

	if err := Audit(zerolog.Nop(), rec)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.count() != 1 {
		t.Fatalf("expected 1 entry, got %d", rec.count())
	}
	entry := rec.entries[0]
	if entry.Resource != "patients" || entry.Action != "read" {
		t.Errorf("unexpected resource/action: %s/%s", entry.Resource, entry.Action)
	}
	if entry.PatientID != patientID {
		t.Errorf("expected patient %s, got %s", patientID, entry.PatientID)
	}
	if entry.UserID != userID || entry.RequestID != "rid-7" {
		t.Errorf("unexpected user/request: %s/%s", entry.UserID, entry.RequestID)
	}
	if entry.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", entry.StatusCode)
	}
}

func TestAudit_PatientIDFromQuery(t *testing.T) {
	rec := &mockRecorder{}
	c, _ := newAuditContext(http.MethodPost, "/api/v1/evolutions?patient_id=abc", "")

	_ = Audit(zerolog.Nop(), rec)(okHandler)(c)

	if rec.entries[0].PatientID != "abc" || rec.entries[0].Action != "create" {
		t.Errorf("unexpected entry: %+v", rec.entries[0])
	}
}

func TestAudit_SkipsNonPHIRoutes(t *testing.T) {
	rec := &mockRecorder{}
	for _, path := range []string{"/health", "/metrics", "/api/v1/medications", "/api/v1/auth/login"} {
		c, _ := newAuditContext(http.MethodGet, path, "")
		_ = Audit(zerolog.Nop(), rec)(okHandler)(c)
	}
	if rec.count() != 0 {
		t.Errorf("expected no audit entries, got %d", rec.count())
	}
}

func TestAudit_RecordsHandlerErrorStatus(t *testing.T) {
	rec := &mockRecorder{}
	c, _ := newAuditContext(http.MethodDelete, "/api/v1/patients/"+uuid.NewString(), "")

	err := Audit(zerolog.Nop(), rec)(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	})(c)
	if err == nil {
		t.Fatal("expected handler error to propagate")
	}
	if rec.entries[0].StatusCode != http.StatusNotFound || rec.entries[0].Action != "delete" {
		t.Errorf("unexpected entry: %+v", rec.entries[0])
	}
}

func TestAudit_RecorderFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	rec := &mockRecorder{err: errors.New("sink down")}
	c, _ := newAuditContext(http.MethodGet, "/api/v1/prescriptions", "")

	if err := Audit(zerolog.New(&buf), rec)(okHandler)(c); err != nil {
		t.Fatalf("recorder failure must not fail the request: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("failed to record audit entry")) {
		t.Errorf("expected recorder failure to be logged, got %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"message":"phi_access"`)) {
		t.Errorf("expected phi_access line, got %s", buf.String())
	}
}

func TestExtractResource(t *testing.T) {
	tests := map[string]string{
		"/api/v1/patients":             "patients",
		"/api/v1/patients/123":         "patients",
		"/api/v1/prescriptions/alerts": "prescriptions",
		"/health":                      "",
		"/api/v2/patients":             "",
	}
	for path, want := range tests {
		if got := extractResource(path); got != want {
			t.Errorf("extractResource(%q) = %q, want %q", path, got, want)
		}
	}
}
