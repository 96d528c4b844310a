package extractor

import (
	"unicode/utf16"

	"github.com/wudi/pdfcore/contentstream"
	"github.com/wudi/pdfcore/ir/raw"
)

// toUnicode maps character codes of one fixed length to text.
type toUnicode struct {
	codeLen int
	entries map[string]string
}

// parseToUnicode reads the bfchar and bfrange sections of a ToUnicode
// CMap. CMaps share the content stream token syntax, so each section ends
// up as the operands of its end operator.
func parseToUnicode(data []byte) (*toUnicode, error) {
	ops, err := contentstream.Parse(data)
	if err != nil {
		return nil, err
	}
	m := &toUnicode{codeLen: 2, entries: make(map[string]string)}
	for _, op := range ops {
		args := op.Operands
		switch op.Operator {
		case "endcodespacerange":
			if len(args) > 0 {
				if s, ok := args[0].(raw.StringObj); ok && len(s.Bytes) > 0 {
					m.codeLen = len(s.Bytes)
				}
			}
		case "endbfchar":
			for i := 0; i+1 < len(args); i += 2 {
				src, ok1 := args[i].(raw.StringObj)
				dst, ok2 := args[i+1].(raw.StringObj)
				if ok1 && ok2 {
					m.entries[string(src.Bytes)] = utf16BE(dst.Bytes)
				}
			}
		case "endbfrange":
			for i := 0; i+2 < len(args); i += 3 {
				lo, ok1 := args[i].(raw.StringObj)
				hi, ok2 := args[i+1].(raw.StringObj)
				if ok1 && ok2 {
					m.addRange(lo.Bytes, hi.Bytes, args[i+2])
				}
			}
		}
	}
	return m, nil
}

const maxRange = 1 << 16

func (m *toUnicode) addRange(lo, hi []byte, dst raw.Object) {
	if len(lo) != len(hi) || len(lo) == 0 {
		return
	}
	from, to := code(lo), code(hi)
	if to < from || to-from >= maxRange {
		return
	}
	for c := from; c <= to; c++ {
		key := string(codeBytes(c, len(lo)))
		switch d := dst.(type) {
		case raw.StringObj:
			if len(d.Bytes) == 0 {
				return
			}
			next := append([]byte(nil), d.Bytes...)
			next[len(next)-1] += byte(c - from)
			m.entries[key] = utf16BE(next)
		case *raw.ArrayObj:
			if c-from >= len(d.Items) {
				return
			}
			if s, ok := d.Items[c-from].(raw.StringObj); ok {
				m.entries[key] = utf16BE(s.Bytes)
			}
		}
	}
}

func (m *toUnicode) decode(b []byte) string {
	var out []byte
	for i := 0; i+m.codeLen <= len(b); i += m.codeLen {
		if s, ok := m.entries[string(b[i:i+m.codeLen])]; ok {
			out = append(out, s...)
		} else {
			out = append(out, "\uFFFD"...)
		}
	}
	return string(out)
}

func code(b []byte) int {
	n := 0
	for _, c := range b {
		n = n<<8 | int(c)
	}
	return n
}

func codeBytes(n, length int) []byte {
	b := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		b[i] = byte(n)
		n >>= 8
	}
	return b
}

func utf16BE(b []byte) string {
	u := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return string(utf16.Decode(u))
}
