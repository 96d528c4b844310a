package optimize

import (
	"github.com/wudi/pdfcore/ir/raw"
	"github.com/wudi/pdfcore/parser"
)

// Prune deletes objects that no reference chain from the trailer reaches.
// A file without a trailer is left alone.
func Prune(f *parser.File) int {
	if f.Trailer == nil {
		return 0
	}
	live := make(map[int]bool)
	var mark func(o raw.Object)
	mark = func(o raw.Object) {
		switch v := o.(type) {
		case raw.RefObj:
			if live[v.R.Num] {
				return
			}
			obj, ok := f.Objects[v.R.Num]
			if !ok {
				return
			}
			live[v.R.Num] = true
			mark(obj.Body)
		case *raw.ArrayObj:
			for _, item := range v.Items {
				mark(item)
			}
		case *raw.DictObj:
			for _, k := range v.Keys() {
				val, _ := v.Get(k)
				mark(val)
			}
		case *raw.StreamObj:
			if v.Dict != nil {
				mark(v.Dict)
			}
		}
	}
	mark(f.Trailer)

	pruned := 0
	for num := range f.Objects {
		if !live[num] {
			delete(f.Objects, num)
			pruned++
		}
	}
	return pruned
}
