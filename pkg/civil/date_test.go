package civil

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	d, err := Parse("2024-01-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2024-01-01" {
		t.Errorf("expected 2024-01-01, got %s", d)
	}

	d, err = Parse("2024-03-02T15:04:05Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2024-03-02" {
		t.Errorf("expected 2024-03-02, got %s", d)
	}

	d, err = Parse("  ")
	if err != nil || !d.IsZero() {
		t.Errorf("expected zero date for blank input, got %v (%v)", d, err)
	}

	if _, err := Parse("02/03/2024"); err == nil {
		t.Error("expected error for unsupported layout")
	}
}

func TestAddDays(t *testing.T) {
	d := NewDate(2024, time.January, 1).AddDays(60)
	if d.String() != "2024-03-01" {
		t.Errorf("expected 2024-03-01 (leap year), got %s", d)
	}
	if !(Date{}).AddDays(10).IsZero() {
		t.Error("expected zero date to stay zero")
	}
}

func TestYearsSince(t *testing.T) {
	birth := NewDate(1990, time.June, 15)
	if got := birth.YearsSince(NewDate(2024, time.June, 14)); got != 33 {
		t.Errorf("expected 33 the day before the birthday, got %d", got)
	}
	if got := birth.YearsSince(NewDate(2024, time.June, 15)); got != 34 {
		t.Errorf("expected 34 on the birthday, got %d", got)
	}
}

func TestJSON_EmptyStringIsNull(t *testing.T) {
	var payload struct {
		BirthDate Date `json:"birth_date"`
	}
	if err := json.Unmarshal([]byte(`{"birth_date":""}`), &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !payload.BirthDate.IsZero() {
		t.Error("expected empty string to decode as no value")
	}

	out, _ := json.Marshal(payload)
	if string(out) != `{"birth_date":null}` {
		t.Errorf("expected null encoding, got %s", out)
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	d := NewDate(2024, time.February, 24)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `"2024-02-24"` {
		t.Errorf("unexpected encoding %s", b)
	}
}

func TestValueAndScan(t *testing.T) {
	v, err := (Date{}).Value()
	if err != nil || v != nil {
		t.Errorf("expected NULL for zero date, got %v (%v)", v, err)
	}

	var d Date
	if err := d.Scan(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("scan time: %v", err)
	}
	if d.String() != "2024-05-06" {
		t.Errorf("expected 2024-05-06, got %s", d)
	}
	if err := d.Scan(nil); err != nil || !d.IsZero() {
		t.Errorf("expected zero after scanning NULL, got %v (%v)", d, err)
	}
	if err := d.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}
