package optimize

import (
	"crypto/sha256"

	"github.com/wudi/pdfcore/ir/raw"
	"github.com/wudi/pdfcore/parser"
)

// Deduplicate merges indirect objects with identical content into the one
// with the lowest number and rewrites references to match. It repeats
// until no merge happens, since merging children can make parents equal.
// Page tree nodes and cross-reference machinery are never merged.
func Deduplicate(f *parser.File) int {
	merged := 0
	for {
		seen := make(map[[sha256.Size]byte]raw.ObjectRef)
		repl := make(map[raw.ObjectRef]raw.ObjectRef)
		for _, num := range f.Numbers() {
			obj := f.Objects[num]
			if !mergeable(obj) {
				continue
			}
			sum := hashObject(obj.Body)
			if first, ok := seen[sum]; ok {
				repl[obj.Reference().R] = first
				continue
			}
			seen[sum] = obj.Reference().R
		}
		if len(repl) == 0 {
			return merged
		}
		for _, obj := range f.Objects {
			obj.Body = replaceRefs(obj.Body, repl)
		}
		if f.Trailer != nil {
			replaceRefs(f.Trailer, repl)
		}
		for ref := range repl {
			delete(f.Objects, ref.Num)
		}
		merged += len(repl)
	}
}

func mergeable(obj *parser.Object) bool {
	switch t, _ := obj.Name("Type"); t {
	case "Page", "Pages", "Catalog", "ObjStm", "XRef":
		return false
	}
	return true
}

// replaceRefs rewrites references in o, changing containers in place.
func replaceRefs(o raw.Object, repl map[raw.ObjectRef]raw.ObjectRef) raw.Object {
	switch v := o.(type) {
	case raw.RefObj:
		if to, ok := repl[v.R]; ok {
			return raw.RefObj{R: to}
		}
	case *raw.ArrayObj:
		for i, item := range v.Items {
			v.Items[i] = replaceRefs(item, repl)
		}
	case *raw.DictObj:
		for _, k := range v.Keys() {
			val, _ := v.Get(k)
			v.Set(k, replaceRefs(val, repl))
		}
	case *raw.StreamObj:
		if v.Dict != nil {
			replaceRefs(v.Dict, repl)
		}
	}
	return o
}
