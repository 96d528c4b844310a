package raw

import "fmt"

// ObjectRef uniquely identifies an indirect PDF object.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is the base interface for all raw PDF objects. The concrete types
// form a tagged tree: scalars (NameObj, NumberObj, BoolObj, NullObj,
// StringObj, RefObj) and containers (*ArrayObj, *DictObj, *StreamObj).
type Object interface {
	Type() string
	IsIndirect() bool
}

// Resolver follows indirect references.
type Resolver interface {
	Resolve(o Object) Object
}

// DocumentMetadata contains common PDF info fields.
type DocumentMetadata struct {
	Producer string
	Creator  string
	Title    string
	Author   string
	Subject  string
	Keywords string
}
