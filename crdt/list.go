package crdt

import (
	"sort"

	"github.com/google/uuid"
)

// ListElement is one member of a List: a value at a stable Position,
// identified by a UUID that survives merges and never collides between
// independently-generated elements (spec.md §3.3).
type ListElement struct {
	ID       string
	Position Position
	Value    Value
}

// List is an ordered collection supporting arbitrary insertion between any
// two existing elements without renumbering. Elements are merged by UUID;
// public iteration order is by Position, tiebroken by UUID on collision.
type List struct {
	elements map[string]*ListElement
}

// NewList returns an empty List.
func NewList() *List {
	return &List{elements: make(map[string]*ListElement)}
}

// Len returns the number of elements, including tombstoned ones.
func (l *List) Len() int { return len(l.elements) }

// ordered returns elements sorted by (Position, ID).
func (l *List) ordered() []*ListElement {
	out := make([]*ListElement, 0, len(l.elements))
	for _, e := range l.elements {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Position.Compare(out[j].Position); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Visible returns the ordered, non-tombstoned elements (the public view).
func (l *List) Visible() []*ListElement {
	all := l.ordered()
	out := make([]*ListElement, 0, len(all))
	for _, e := range all {
		if !e.Value.IsDeleted() {
			out = append(out, e)
		}
	}
	return out
}

// Get returns the element with the given id, including tombstoned ones.
func (l *List) Get(id string) (*ListElement, bool) {
	e, ok := l.elements[id]
	return e, ok
}

func (l *List) neighbors(afterID, beforeID string) (left, right *Position) {
	ord := l.ordered()
	findIdx := func(id string) int {
		for i, e := range ord {
			if e.ID == id {
				return i
			}
		}
		return -1
	}
	if afterID != "" {
		if i := findIdx(afterID); i >= 0 {
			left = &ord[i].Position
			if i+1 < len(ord) {
				right = &ord[i+1].Position
			}
			return
		}
	}
	if beforeID != "" {
		if i := findIdx(beforeID); i >= 0 {
			right = &ord[i].Position
			if i > 0 {
				left = &ord[i-1].Position
			}
			return
		}
	}
	return nil, nil
}

func (l *List) insertAt(pos Position, value Value) *ListElement {
	// Increase precision on collision with an existing position, per
	// spec.md §3.3's "precision is increased by doubling the common
	// denominator on collision".
	for {
		collides := false
		for _, e := range l.elements {
			if e.Position.Compare(pos) == 0 {
				collides = true
				break
			}
		}
		if !collides {
			break
		}
		next := Between(&pos, nil)
		pos = next
	}
	el := &ListElement{ID: uuid.NewString(), Position: pos, Value: value}
	l.elements[el.ID] = el
	return el
}

// InsertAfter inserts value immediately after the element with id afterID
// ("" means at the start).
func (l *List) InsertAfter(afterID string, value Value) *ListElement {
	left, right := l.neighbors(afterID, "")
	if afterID == "" {
		if ord := l.ordered(); len(ord) > 0 {
			right = &ord[0].Position
		}
	}
	return l.insertAt(Between(left, right), value)
}

// InsertBefore inserts value immediately before the element with id
// beforeID ("" means at the end).
func (l *List) InsertBefore(beforeID string, value Value) *ListElement {
	left, right := l.neighbors("", beforeID)
	if beforeID == "" {
		if ord := l.ordered(); len(ord) > 0 {
			left = &ord[len(ord)-1].Position
		}
	}
	return l.insertAt(Between(left, right), value)
}

// InsertAtPosition inserts value at an explicit, already-computed position
// (used when replaying a remote delta that already carries a position).
func (l *List) InsertAtPosition(id string, pos Position, value Value) {
	l.elements[id] = &ListElement{ID: id, Position: pos, Value: value}
}

// Remove tombstones the element with the given id, if present.
func (l *List) Remove(id string) {
	if e, ok := l.elements[id]; ok {
		e.Value = Deleted()
	}
}

// Clone deep-copies l.
func (l *List) Clone() *List {
	out := NewList()
	for id, e := range l.elements {
		out.elements[id] = &ListElement{ID: e.ID, Position: e.Position, Value: cloneValue(e.Value)}
	}
	return out
}

// Merge unions elements by UUID; an element present on both sides resolves
// its value (including tombstone dominance) via the same rule as Doc
// values, and keeps self's position unless only other defines one.
func (l *List) Merge(other *List) *List {
	out := l.Clone()
	for id, oe := range other.elements {
		if se, ok := out.elements[id]; ok {
			out.elements[id] = &ListElement{ID: id, Position: se.Position, Value: merge(se.Value, oe.Value)}
		} else {
			out.elements[id] = &ListElement{ID: id, Position: oe.Position, Value: cloneValue(oe.Value)}
		}
	}
	return out
}
