package fonts

import "fmt"

type cjkInfo struct {
	encoding   string
	ordering   string
	supplement int
}

var cjkFonts = map[string]cjkInfo{
	"AdobeMingStd-Light":     {encoding: "UniCNS-UCS2-H", ordering: "CNS1", supplement: 4},
	"AdobeSongStd-Light":     {encoding: "UniGB-UCS2-H", ordering: "GB1", supplement: 4},
	"KozMinProVI-Regular":    {encoding: "UniJIS-UCS2-H", ordering: "Japan1", supplement: 4},
	"AdobeMyungjoStd-Medium": {encoding: "UniKS-UCS2-H", ordering: "Korea1", supplement: 1},
}

// NewCJKFont returns one of the predefined CJK fonts. The font program is
// not embedded; every character is one em wide.
func NewCJKFont(name string) (*Font, error) {
	info, ok := cjkFonts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCJK, name)
	}
	return &Font{
		kind:               CJK,
		name:               name,
		size:               defaultSize,
		unitsPerEm:         1000,
		ascent:             1000,
		descent:            -250,
		capHeight:          1000,
		bbox:               [4]int{0, -250, 1000, 1000},
		stemV:              80,
		flags:              flagSymbolic,
		underlinePosition:  -100,
		underlineThickness: 50,
		cjk:                &info,
	}, nil
}

// Encoding is the predefined CMap name of a CJK font.
func (f *Font) Encoding() string {
	if f.cjk == nil {
		return ""
	}
	return f.cjk.encoding
}

// CIDSystemInfo returns registry, ordering and supplement for a CJK font.
func (f *Font) CIDSystemInfo() (registry, ordering string, supplement int) {
	if f.cjk == nil {
		return "Adobe", "Identity", 0
	}
	return "Adobe", f.cjk.ordering, f.cjk.supplement
}
