package contentstream

import (
	"github.com/wudi/pdfcore/coords"
	"github.com/wudi/pdfcore/ir/raw"
)

// Show is a text-showing operation and where its first glyph lands in
// default user space.
type Show struct {
	Op     int
	Font   string
	Size   float64
	Origin coords.Point
	Text   []byte
}

// Placement is an XObject drawn by Do, with the corners of the unit square
// mapped through the current transformation.
type Placement struct {
	Op                 int
	Name               string
	LLX, LLY, URX, URY float64
}

type graphicsState struct {
	ctm   coords.Matrix
	stack []coords.Matrix
}

type textState struct {
	font    string
	size    float64
	leading float64
	rise    float64
	tm, tlm coords.Matrix
}

// Trace follows the graphics and text state through ops. Origins do not
// include the advance of earlier strings in the same text object.
func Trace(ops []Operation) ([]Show, []Placement, error) {
	gs := graphicsState{ctm: coords.Identity()}
	ts := textState{tm: coords.Identity(), tlm: coords.Identity()}
	var shows []Show
	var placed []Placement

	for i, op := range ops {
		args := op.Operands
		switch op.Operator {
		case "q":
			gs.stack = append(gs.stack, gs.ctm)
		case "Q":
			n := len(gs.stack)
			if n == 0 {
				return shows, placed, ErrUnbalanced
			}
			gs.ctm, gs.stack = gs.stack[n-1], gs.stack[:n-1]
		case "cm":
			if m, ok := matrix(args); ok {
				gs.ctm = m.Multiply(gs.ctm)
			}
		case "BT":
			ts.tm, ts.tlm = coords.Identity(), coords.Identity()
		case "Tf":
			if len(args) == 2 {
				if name, ok := args[0].(raw.NameObj); ok {
					ts.font = name.Val
				}
				ts.size = number(args[1])
			}
		case "TL":
			if len(args) == 1 {
				ts.leading = number(args[0])
			}
		case "Ts":
			if len(args) == 1 {
				ts.rise = number(args[0])
			}
		case "Td", "TD":
			if len(args) == 2 {
				ty := number(args[1])
				if op.Operator == "TD" {
					ts.leading = -ty
				}
				ts.nextLine(number(args[0]), ty)
			}
		case "Tm":
			if m, ok := matrix(args); ok {
				ts.tm, ts.tlm = m, m
			}
		case "T*":
			ts.nextLine(0, -ts.leading)
		case "Tj", "TJ", "'", `"`:
			if op.Operator != "Tj" && op.Operator != "TJ" {
				ts.nextLine(0, -ts.leading)
			}
			if len(args) == 0 {
				continue
			}
			origin := ts.tm.Multiply(gs.ctm).Transform(coords.Point{Y: ts.rise})
			shows = append(shows, Show{Op: i, Font: ts.font, Size: ts.size, Origin: origin, Text: text(args[len(args)-1])})
		case "Do":
			if len(args) != 1 {
				continue
			}
			name, _ := args[0].(raw.NameObj)
			p := Placement{Op: i, Name: name.Val}
			a := gs.ctm.Transform(coords.Point{})
			b := gs.ctm.Transform(coords.Point{X: 1, Y: 1})
			p.LLX, p.URX = min(a.X, b.X), max(a.X, b.X)
			p.LLY, p.URY = min(a.Y, b.Y), max(a.Y, b.Y)
			placed = append(placed, p)
		}
	}
	return shows, placed, nil
}

func (ts *textState) nextLine(tx, ty float64) {
	ts.tlm = coords.Translate(tx, ty).Multiply(ts.tlm)
	ts.tm = ts.tlm
}

func number(o raw.Object) float64 {
	if n, ok := o.(raw.NumberObj); ok {
		return n.Float()
	}
	return 0
}

func matrix(args []raw.Object) (coords.Matrix, bool) {
	if len(args) != 6 {
		return coords.Matrix{}, false
	}
	var m coords.Matrix
	for i, a := range args {
		m[i] = number(a)
	}
	return m, true
}

// text joins the strings of a Tj operand or a TJ array.
func text(o raw.Object) []byte {
	switch v := o.(type) {
	case raw.StringObj:
		return v.Bytes
	case *raw.ArrayObj:
		var out []byte
		for _, item := range v.Items {
			if s, ok := item.(raw.StringObj); ok {
				out = append(out, s.Bytes...)
			}
		}
		return out
	}
	return nil
}
