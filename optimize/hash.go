package optimize

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"sort"

	"github.com/wudi/pdfcore/ir/raw"
)

// hashObject digests o with dictionary keys sorted, so that equal objects
// hash equally whatever order their keys were set in.
func hashObject(o raw.Object) [sha256.Size]byte {
	h := sha256.New()
	writeHash(h, o)
	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

func writeHash(h hash.Hash, o raw.Object) {
	switch v := o.(type) {
	case raw.NameObj:
		fmt.Fprintf(h, "n%q", v.Val)
	case raw.NumberObj:
		if v.IsInteger() {
			fmt.Fprintf(h, "i%d", v.Int())
		} else {
			fmt.Fprintf(h, "f%g", v.Float())
		}
	case raw.BoolObj:
		fmt.Fprintf(h, "b%t", v.V)
	case raw.StringObj:
		fmt.Fprintf(h, "s%q", v.Bytes)
	case raw.RefObj:
		fmt.Fprintf(h, "r%d.%d", v.R.Num, v.R.Gen)
	case *raw.ArrayObj:
		fmt.Fprint(h, "[")
		for _, item := range v.Items {
			writeHash(h, item)
			fmt.Fprint(h, ",")
		}
		fmt.Fprint(h, "]")
	case *raw.DictObj:
		writeDict(h, v)
	case *raw.StreamObj:
		fmt.Fprint(h, "S")
		if v.Dict != nil {
			writeDict(h, v.Dict)
		}
		fmt.Fprintf(h, "%d:", len(v.Data))
		h.Write(v.Data)
	default:
		fmt.Fprint(h, "null")
	}
}

func writeDict(h hash.Hash, d *raw.DictObj) {
	keys := d.Keys()
	sort.Strings(keys)
	fmt.Fprint(h, "<<")
	for _, k := range keys {
		if k == "Length" {
			continue
		}
		v, _ := d.Get(k)
		fmt.Fprintf(h, "%q", k)
		writeHash(h, v)
	}
	fmt.Fprint(h, ">>")
}
