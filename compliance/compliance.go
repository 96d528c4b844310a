// Package compliance defines the output modes a document can be written in
// and the reports their validators produce.
package compliance

import (
	"errors"
	"fmt"
)

var ErrInvalidMode = errors.New("compliance: invalid mode")

// Mode selects extra output requirements for a document.
type Mode int

const (
	None  Mode = iota
	PDFA       // archival: embedded fonts, XMP metadata, output intent
	PDFUA      // accessible: tagged structure, title, language
)

func (m Mode) String() string {
	switch m {
	case None:
		return "none"
	case PDFA:
		return "PDF/A-1b"
	case PDFUA:
		return "PDF/UA-1"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func (m Mode) Validate() error {
	if m < None || m > PDFUA {
		return fmt.Errorf("%w: %d", ErrInvalidMode, int(m))
	}
	return nil
}

type Violation struct {
	Code        string
	Description string
	Location    string
}

// Report details compliance status.
type Report struct {
	Compliant  bool
	Standard   string
	Violations []Violation
}

func NewReport(standard string) *Report {
	return &Report{Compliant: true, Standard: standard, Violations: []Violation{}}
}

// Add records a violation and marks the report non-compliant.
func (r *Report) Add(code, description, location string) {
	r.Violations = append(r.Violations, Violation{Code: code, Description: description, Location: location})
	r.Compliant = false
}

// Codes lists the violation codes in the order they were found.
func (r *Report) Codes() []string {
	out := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		out[i] = v.Code
	}
	return out
}

// Err is nil for a compliant report and otherwise names the first
// violation.
func (r *Report) Err() error {
	if r.Compliant {
		return nil
	}
	v := r.Violations[0]
	return fmt.Errorf("%s: %s %s (%s), %d violation(s)", r.Standard, v.Code, v.Description, v.Location, len(r.Violations))
}

// FontUse is a font as a validator sees it.
type FontUse struct {
	Name     string
	Embedded bool
}

// ImageUse is a drawn image and the alternate text given for it.
type ImageUse struct {
	Name string
	Page int
	Alt  string
}

// Summary is what a document exposes to validators at close.
type Summary struct {
	Title           string
	Language        string
	HasMetadata     bool
	HasOutputIntent bool
	HasStructTree   bool
	Fonts           []FontUse
	Images          []ImageUse
}

// Validator checks a document summary against one standard.
type Validator interface {
	Validate(s Summary) *Report
}
