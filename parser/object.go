package parser

import (
	"github.com/wudi/pdfcore/ir/raw"
	"github.com/wudi/pdfcore/writer"
)

// Object is one indirect object. Offset is -1 for objects that came out of
// an object stream.
type Object struct {
	Num    int
	Gen    int
	Body   raw.Object
	Offset int64
}

// Reference is an indirect reference to o.
func (o *Object) Reference() raw.RefObj { return raw.Ref(o.Num, o.Gen) }

// Dict returns the object's dictionary, or a stream's dictionary.
func (o *Object) Dict() (*raw.DictObj, bool) {
	switch v := o.Body.(type) {
	case *raw.DictObj:
		return v, true
	case *raw.StreamObj:
		return v.Dict, v.Dict != nil
	}
	return nil, false
}

// Stream returns the body when it is a stream.
func (o *Object) Stream() (*raw.StreamObj, bool) {
	s, ok := o.Body.(*raw.StreamObj)
	return s, ok
}

// Value looks key up in the object's dictionary.
func (o *Object) Value(key string) (raw.Object, bool) {
	d, ok := o.Dict()
	if !ok {
		return nil, false
	}
	return d.Get(key)
}

func (o *Object) Name(key string) (string, bool) {
	d, ok := o.Dict()
	if !ok {
		return "", false
	}
	return d.Name(key)
}

func (o *Object) Int(key string) (int64, bool) {
	d, ok := o.Dict()
	if !ok {
		return 0, false
	}
	return d.Int(key)
}

func (o *Object) Ref(key string) (raw.ObjectRef, bool) {
	d, ok := o.Dict()
	if !ok {
		return raw.ObjectRef{}, false
	}
	return d.Ref(key)
}

// Text returns the value under key in PDF syntax, for example "/Page" or
// "<</F1 4 0 R>>".
func (o *Object) Text(key string) (string, bool) {
	v, ok := o.Value(key)
	if !ok {
		return "", false
	}
	return string(writer.Serialize(v)), true
}
