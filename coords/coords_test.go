package coords

import (
	"errors"
	"math"
	"testing"
)

func near(a, b Point) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9
}

func TestMultiplyAppliesLeftFirst(t *testing.T) {
	m := Scale(2, 3).Multiply(Translate(10, 20))
	if got := m.Transform(Point{1, 1}); !near(got, Point{12, 23}) {
		t.Fatalf("got %+v", got)
	}
	r := Rotate(math.Pi / 2)
	if got := r.Transform(Point{1, 0}); !near(got, Point{0, 1}) {
		t.Fatalf("rotate got %+v", got)
	}
}

func TestInverse(t *testing.T) {
	m := Rotate(0.3).Multiply(Scale(2, 5)).Multiply(Translate(-4, 7))
	inv, err := m.Inverse()
	if err != nil {
		t.Fatal(err)
	}
	p := Point{3, -8}
	if got := inv.Transform(m.Transform(p)); !near(got, p) {
		t.Fatalf("round trip got %+v", got)
	}
	if _, err := Scale(0, 1).Inverse(); !errors.Is(err, ErrSingular) {
		t.Fatalf("singular error = %v", err)
	}
}
