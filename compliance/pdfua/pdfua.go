// Package pdfua validates accessible (tagged) output.
package pdfua

import (
	"fmt"

	"github.com/wudi/pdfcore/compliance"
)

type Level int

const (
	PDFUA1 Level = iota
)

func (l Level) String() string {
	switch l {
	case PDFUA1:
		return "PDF/UA-1"
	default:
		return "Unknown"
	}
}

type validator struct{ level Level }

func NewValidator(level Level) compliance.Validator { return validator{level: level} }

func (v validator) Validate(s compliance.Summary) *compliance.Report {
	r := compliance.NewReport(v.level.String())
	if s.Title == "" {
		r.Add("UA001", "Document title is required", "Info")
	}
	if s.Language == "" {
		r.Add("UA002", "Document language is required", "Catalog")
	}
	for _, img := range s.Images {
		if img.Alt == "" {
			r.Add("UA003", "Image requires alternate text", fmt.Sprintf("Page %d %s", img.Page, img.Name))
		}
	}
	if !s.HasStructTree {
		r.Add("UA004", "Structure tree is required", "Catalog")
	}
	return r
}

// Validate checks s against PDF/UA-1.
func Validate(s compliance.Summary) *compliance.Report {
	return NewValidator(PDFUA1).Validate(s)
}
