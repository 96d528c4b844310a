package recovery_test

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/wudi/pdfcore/observability"
	"github.com/wudi/pdfcore/parser"
	"github.com/wudi/pdfcore/recovery"
)

var errBroken = errors.New("broken")

func TestStrategies(t *testing.T) {
	loc := recovery.Location{ByteOffset: 120, ObjectNum: 7, Component: "parser"}

	if got := recovery.NewStrictStrategy().OnError(errBroken, loc); got != recovery.ActionFail {
		t.Fatalf("strict action = %s", got)
	}

	var logs bytes.Buffer
	lenient := recovery.NewLenientStrategy()
	lenient.Logger = observability.NewSlogLogger(slog.New(slog.NewTextHandler(&logs, nil)))
	if got := lenient.OnError(errBroken, loc); got != recovery.ActionSkip {
		t.Fatalf("lenient action = %s", got)
	}
	if len(lenient.Errors) != 1 || !errors.Is(lenient.Errors[0], errBroken) {
		t.Fatalf("recorded errors = %v", lenient.Errors)
	}
	if !strings.Contains(lenient.Errors[0].Error(), "object 7 offset 120") {
		t.Fatalf("error text = %q", lenient.Errors[0])
	}
	if !strings.Contains(logs.String(), "object=7") {
		t.Fatalf("log output = %q", logs.String())
	}
}

// brokenCatalog returns a file whose catalog is missing its closing ">>"
// and whose page dictionary has a stray "]".
func brokenCatalog() []byte {
	bodies := []string{
		"<< /Type /Catalog /Pages 2 0 R",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /MediaBox ] >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	offsets := make([]int, len(bodies))
	for i, b := range bodies {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, b)
	}
	start := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(bodies)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(bodies)+1, start)
	return buf.Bytes()
}

func TestParserRecovery(t *testing.T) {
	data := brokenCatalog()

	t.Run("strict", func(t *testing.T) {
		_, err := parser.Parse(data, parser.Config{Recovery: recovery.NewStrictStrategy()})
		if err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("lenient", func(t *testing.T) {
		rec := recovery.NewLenientStrategy()
		f, err := parser.Parse(data, parser.Config{Recovery: rec})
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if len(rec.Errors) != 2 {
			t.Fatalf("recorded %d errors, want 2: %v", len(rec.Errors), rec.Errors)
		}
		cat, ok := f.Catalog()
		if !ok {
			t.Fatal("catalog not recovered")
		}
		if ref, ok := cat.Ref("Pages"); !ok || ref.Num != 2 {
			t.Fatalf("catalog /Pages = %v, %v", ref, ok)
		}
		if _, ok := f.Object(3); ok {
			t.Fatal("unparseable page kept")
		}
	})
}
