package optimize

import (
	"github.com/wudi/pdfcore/filters"
	"github.com/wudi/pdfcore/ir/raw"
	"github.com/wudi/pdfcore/parser"
)

// CompressStreams Flate-encodes every unfiltered stream where that makes
// it smaller. Metadata streams stay readable as plain XML.
func CompressStreams(f *parser.File, level int) (int, error) {
	n := 0
	for _, num := range f.Numbers() {
		obj := f.Objects[num]
		s, ok := obj.Body.(*raw.StreamObj)
		if !ok || s.Dict == nil {
			continue
		}
		if _, filtered := s.Dict.Get("Filter"); filtered {
			continue
		}
		switch t, _ := s.Dict.Name("Type"); t {
		case "Metadata", "XRef", "ObjStm":
			continue
		}
		packed, err := filters.FlateEncode(s.Data, level)
		if err != nil {
			return n, err
		}
		if len(packed) >= len(s.Data) {
			continue
		}
		s.Data = packed
		s.Dict.Set("Filter", raw.NameLiteral("FlateDecode"))
		s.Dict.Delete("DecodeParms")
		n++
	}
	return n, nil
}
