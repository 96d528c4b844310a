package compliance

import (
	"errors"
	"strings"
	"testing"
)

func TestModeValidate(t *testing.T) {
	for _, m := range []Mode{None, PDFA, PDFUA} {
		if err := m.Validate(); err != nil {
			t.Errorf("%s: %v", m, err)
		}
	}
	for _, m := range []Mode{-1, 3, 42} {
		if err := m.Validate(); !errors.Is(err, ErrInvalidMode) {
			t.Errorf("Mode(%d).Validate() = %v", int(m), err)
		}
	}
}

func TestReport(t *testing.T) {
	r := NewReport("PDF/UA-1")
	if !r.Compliant || r.Err() != nil {
		t.Fatal("empty report not compliant")
	}
	r.Add("UA001", "Document title is required", "Info")
	r.Add("UA002", "Document language is required", "Catalog")
	if r.Compliant {
		t.Fatal("report with violations is compliant")
	}
	err := r.Err()
	if err == nil || !strings.Contains(err.Error(), "UA001") || !strings.Contains(err.Error(), "2 violation") {
		t.Fatalf("Err() = %v", err)
	}
	if got := strings.Join(r.Codes(), ","); got != "UA001,UA002" {
		t.Fatalf("codes = %s", got)
	}
}
