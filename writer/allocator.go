package writer

import (
	"errors"
	"fmt"

	"github.com/wudi/pdfcore/ir/raw"
)

var (
	// ErrSlotMismatch means a reserved slot was claimed out of order or past
	// the end of its reservation.
	ErrSlotMismatch = errors.New("writer: reserved slot mismatch")
	// ErrUnclaimedSlot means a reservation was not fully written before Finish.
	ErrUnclaimedSlot = errors.New("writer: reserved slot never written")
)

// Reservation is a block of consecutive object numbers handed out before
// the objects are written. Slots are redeemed in order with Claim.
type Reservation struct {
	id    int
	first int
	count int
}

// First is the number of slot 0.
func (r Reservation) First() int { return r.first }

// Len is the number of slots.
func (r Reservation) Len() int { return r.count }

// Number is the object number of slot i.
func (r Reservation) Number(i int) int { return r.first + i }

// Ref is a reference to slot i.
func (r Reservation) Ref(i int) raw.RefObj { return raw.Ref(r.first+i, 0) }

type slotState struct {
	res  Reservation
	next int
}

// Allocator assigns object numbers. NewObject numbers objects in write
// order; Reserve sets numbers aside for objects that must be referenced
// before they are written.
type Allocator struct {
	w     *Writer
	next  int
	slots []*slotState
}

// NewAllocator starts numbering at 1.
func NewAllocator(w *Writer) *Allocator {
	return &Allocator{w: w, next: 1}
}

// StartAt makes the next number n. It is used when appending to a file
// that already has objects.
func (a *Allocator) StartAt(n int) {
	if n > a.next {
		a.next = n
	}
}

// Next is the number NewObject would return.
func (a *Allocator) Next() int { return a.next }

// Writer returns the underlying sink.
func (a *Allocator) Writer() *Writer { return a.w }

// NewObject opens the next sequential object and returns its number.
func (a *Allocator) NewObject() (int, error) {
	num := a.next
	if err := a.w.Begin(num, 0); err != nil {
		return 0, err
	}
	a.next++
	return num, nil
}

// EndObject closes the open object.
func (a *Allocator) EndObject() error { return a.w.End() }

// Put writes o as the next sequential object.
func (a *Allocator) Put(o raw.Object) (int, error) {
	num, err := a.NewObject()
	if err != nil {
		return 0, err
	}
	if err := a.w.WriteValue(o); err != nil {
		return 0, err
	}
	return num, a.EndObject()
}

// Reserve sets aside n consecutive numbers.
func (a *Allocator) Reserve(n int) Reservation {
	res := Reservation{id: len(a.slots), first: a.next, count: n}
	a.next += n
	a.slots = append(a.slots, &slotState{res: res})
	return res
}

// Claim opens the object at slot i of res. Slots must be claimed in order.
func (a *Allocator) Claim(res Reservation, i int) error {
	if res.id < 0 || res.id >= len(a.slots) || a.slots[res.id].res != res {
		return fmt.Errorf("%w: unknown reservation", ErrSlotMismatch)
	}
	st := a.slots[res.id]
	if i != st.next || i >= res.count {
		return fmt.Errorf("%w: slot %d claimed, expected %d of %d", ErrSlotMismatch, i, st.next, res.count)
	}
	if err := a.w.Begin(res.first+i, 0); err != nil {
		return err
	}
	st.next++
	return nil
}

// PutAt writes o into slot i of res.
func (a *Allocator) PutAt(res Reservation, i int, o raw.Object) error {
	if err := a.Claim(res, i); err != nil {
		return err
	}
	if err := a.w.WriteValue(o); err != nil {
		return err
	}
	return a.EndObject()
}

// Remaining reports how many slots of res are still unwritten.
func (a *Allocator) Remaining(res Reservation) int {
	if res.id < 0 || res.id >= len(a.slots) {
		return 0
	}
	st := a.slots[res.id]
	return st.res.count - st.next
}

// Finish checks every reservation was redeemed and writes xref and trailer.
func (a *Allocator) Finish(trailer *raw.DictObj) error {
	for _, st := range a.slots {
		if st.next != st.res.count {
			return fmt.Errorf("%w: objects %d..%d, %d written", ErrUnclaimedSlot,
				st.res.first, st.res.first+st.res.count-1, st.next)
		}
	}
	return a.w.Finish(trailer)
}
