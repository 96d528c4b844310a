package xref

import (
	"errors"
	"io"

	"github.com/wudi/pdfcore/scanner"
)

// Repair rebuilds a table by scanning the whole file for "<num> <gen> obj"
// headers. Later definitions of the same number win, as they would in an
// incrementally updated file. The last "trailer" keyword sets TrailerOffset.
func Repair(data []byte) (*Table, error) {
	s := scanner.New(data, scanner.Config{})
	t := NewTable()

	var prev [2]scanner.Token
	var have int
	for {
		tok, err := s.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// skip one byte past whatever could not be tokenized
			if seekErr := s.Seek(s.Position() + 1); seekErr != nil {
				break
			}
			have = 0
			continue
		}
		switch {
		case tok.Type == scanner.TokenKeyword && tok.Str == "obj" && have == 2 &&
			prev[0].Type == scanner.TokenNumber && prev[0].IsInt &&
			prev[1].Type == scanner.TokenNumber && prev[1].IsInt:
			t.Set(int(prev[0].Int), prev[0].Pos, int(prev[1].Int))
		case tok.Type == scanner.TokenKeyword && tok.Str == "trailer":
			t.TrailerOffset = s.Position()
		}
		prev[0], prev[1] = prev[1], tok
		if have < 2 {
			have++
		}
	}

	if t.Len() == 0 {
		return nil, errors.New("repair failed: no objects found")
	}
	return t, nil
}
