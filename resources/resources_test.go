package resources_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wudi/pdfcore/ir/raw"
	"github.com/wudi/pdfcore/resources"
	"github.com/wudi/pdfcore/writer"
)

func alpha(a float64) *raw.DictObj {
	gs := raw.Dict()
	gs.Set("Type", raw.NameLiteral("ExtGState"))
	gs.Set("CA", raw.NumberFloat(a))
	gs.Set("ca", raw.NumberFloat(a))
	return gs
}

func TestRegistryNames(t *testing.T) {
	r := resources.NewRegistry()
	got := []string{
		r.Font(4),
		r.XObject(7),
		r.Font(5),
		r.Font(4),
		r.ExtGState("0.5", alpha(0.5)),
		r.ExtGState("0.25", alpha(0.25)),
		r.ExtGState("0.5", alpha(0.5)),
	}
	want := []string{"F4", "Im7", "F5", "F4", "GS0", "GS1", "GS0"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if r.Len() != 5 {
		t.Fatalf("Len = %d, want 5", r.Len())
	}
	e, ok := r.Lookup(resources.CategoryXObject, "Im7")
	if !ok || e.Ref.R.Num != 7 {
		t.Fatalf("Lookup = %+v, %v", e, ok)
	}
	if _, ok := r.Lookup(resources.CategoryFont, "Im7"); ok {
		t.Fatal("lookup ignored the category")
	}
}

func TestRegistryDict(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *resources.Registry)
		want  string
	}{
		{
			name:  "empty",
			setup: func(*resources.Registry) {},
			want:  "<</ProcSet [/PDF /Text /ImageB /ImageC /ImageI]>>",
		},
		{
			name: "fonts only",
			setup: func(r *resources.Registry) {
				r.Font(3)
				r.Font(9)
			},
			want: "<</Font <</F3 3 0 R/F9 9 0 R>>/ProcSet [/PDF /Text /ImageB /ImageC /ImageI]>>",
		},
		{
			name: "all categories",
			setup: func(r *resources.Registry) {
				r.ExtGState("half", alpha(0.5))
				r.XObject(12)
				r.Font(3)
			},
			want: "<</Font <</F3 3 0 R>>/XObject <</Im12 12 0 R>>" +
				"/ExtGState <</GS0 <</Type /ExtGState/CA 0.5/ca 0.5>>>>" +
				"/ProcSet [/PDF /Text /ImageB /ImageC /ImageI]>>",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := resources.NewRegistry()
			tc.setup(r)
			if got := string(writer.Serialize(r.Dict())); got != tc.want {
				t.Fatalf("Dict =\n%s\nwant\n%s", got, tc.want)
			}
		})
	}
}
