package filters

import "github.com/wudi/pdfcore/ir/raw"

// chain reads the /Filter names of a stream dictionary and their
// /DecodeParms, which may be a single dictionary or an array aligned with
// the filter array. A missing entry in that array is a nil parameter.
func chain(dict *raw.DictObj) ([]string, []*raw.DictObj) {
	var names []string
	filter, _ := dict.Get("Filter")
	switch f := filter.(type) {
	case raw.NameObj:
		names = []string{f.Val}
	case *raw.ArrayObj:
		for _, item := range f.Items {
			if n, ok := item.(raw.NameObj); ok {
				names = append(names, n.Val)
			}
		}
	}
	if len(names) == 0 {
		return nil, nil
	}
	var params []*raw.DictObj
	parms, _ := dict.Get("DecodeParms")
	switch p := parms.(type) {
	case *raw.DictObj:
		params = []*raw.DictObj{p}
	case *raw.ArrayObj:
		params = make([]*raw.DictObj, len(p.Items))
		for i, item := range p.Items {
			params[i], _ = item.(*raw.DictObj)
		}
	}
	return names, params
}
