package patient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medsys/clinic/internal/domain"
	"github.com/medsys/clinic/internal/platform/db"
	"github.com/medsys/clinic/internal/platform/events"
)

// -- Mock Repository --

type mockRepo struct {
	patients map[uuid.UUID]*Patient
	order    []uuid.UUID
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.patients[p.ID] = p
	m.order = append(m.order, p.ID)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, domain.NotFound("patient")
	}
	return p, nil
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return domain.NotFound("patient")
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.patients[id]; !ok {
		return domain.NotFound("patient")
	}
	delete(m.patients, id)
	return nil
}

func (m *mockRepo) List(_ context.Context) ([]*Patient, error) {
	var out []*Patient
	for i := len(m.order) - 1; i >= 0; i-- {
		if p, ok := m.patients[m.order[i]]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockRepo) FindByCPF(_ context.Context, digits string) (*Patient, error) {
	for _, id := range m.order {
		if p, ok := m.patients[id]; ok && NormalizeCPF(p.CPF) == digits {
			return p, nil
		}
	}
	return nil, domain.NotFound("patient")
}

func newTestService() (*Service, *events.Memory) {
	pub := &events.Memory{}
	return NewService(newMockRepo(), pub, nil), pub
}

func TestService_Create(t *testing.T) {
	svc, _ := newTestService()

	p := &Patient{Name: "  Maria Souza ", CPF: "123.456.789-09"}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if p.Name != "Maria Souza" {
		t.Errorf("expected trimmed name, got %q", p.Name)
	}
}

func TestService_Create_Validation(t *testing.T) {
	svc, _ := newTestService()

	tests := []struct {
		name string
		in   Patient
		want string
	}{
		{"missing name", Patient{CPF: "12345678909"}, "name is required"},
		{"blank name", Patient{Name: "   ", CPF: "12345678909"}, "name is required"},
		{"missing cpf", Patient{Name: "Maria"}, "cpf is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in
			err := svc.Create(context.Background(), &p)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if err.Error() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestService_Update_NotFound(t *testing.T) {
	svc, _ := newTestService()

	err := svc.Update(context.Background(), &Patient{ID: uuid.New(), Name: "Ana", CPF: "1"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_Delete_EmitsEvent(t *testing.T) {
	svc, pub := newTestService()
	owner := uuid.New()
	ctx := db.WithOwner(context.Background(), owner)

	p := &Patient{Name: "Ana", CPF: "98765432100"}
	if err := svc.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	evs := pub.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	if evs[0].Type != events.PatientDeleted {
		t.Errorf("expected %s, got %s", events.PatientDeleted, evs[0].Type)
	}
	if evs[0].OwnerID != owner.String() || evs[0].SubjectID != p.ID.String() {
		t.Errorf("unexpected event ids: %+v", evs[0])
	}
}

func TestService_Delete_MissingDoesNotEmit(t *testing.T) {
	svc, pub := newTestService()

	if err := svc.Delete(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error")
	}
	if n := len(pub.Events()); n != 0 {
		t.Errorf("expected no events, got %d", n)
	}
}

func TestService_List_Filters(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, p := range []*Patient{
		{Name: "José Álvares", CPF: "111.111.111-11"},
		{Name: "Maria Souza", CPF: "222.222.222-22"},
		{Name: "Joana Lima", CPF: "333.333.333-33"},
	} {
		if err := svc.Create(ctx, p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, _ := svc.List(ctx, "")
	if len(all) != 3 || all[0].Name != "Joana Lima" {
		t.Fatalf("expected newest first, got %v", all)
	}

	got, _ := svc.List(ctx, "jose alv")
	if len(got) != 1 || got[0].Name != "José Álvares" {
		t.Errorf("expected accent-insensitive match, got %v", got)
	}

	got, _ = svc.List(ctx, "222")
	if len(got) != 1 || got[0].Name != "Maria Souza" {
		t.Errorf("expected cpf match, got %v", got)
	}
}

func TestService_FindByCPF(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	p := &Patient{Name: "Ana", CPF: "123.456.789-09"}
	svc.Create(ctx, p)

	got, err := svc.FindByCPF(ctx, "12345678909")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("expected %s, got %s", p.ID, got.ID)
	}

	if _, err := svc.FindByCPF(ctx, "123.456"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for short cpf, got %v", err)
	}
	if _, err := svc.FindByCPF(ctx, "99999999999"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
