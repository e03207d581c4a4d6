package crdt

import (
	"bytes"
	"encoding/base64"
	"sort"
)

// YDoc is an opaque Y-CRDT-backed value. Eidetica's core engine does not
// inspect Y-CRDT contents (spec.md §9): it only accumulates binary updates
// and can extract the updates added since a marker, so a transaction commit
// serializes just its own diff instead of the full state (spec.md §4.6).
type YDoc struct {
	updates [][]byte
}

// NewYDoc returns an empty YDoc.
func NewYDoc() *YDoc {
	return &YDoc{}
}

// ApplyUpdate appends a binary Y-CRDT update to the log.
func (y *YDoc) ApplyUpdate(update []byte) {
	cp := make([]byte, len(update))
	copy(cp, update)
	y.updates = append(y.updates, cp)
}

// Marker returns a position in the update log that DiffSince can later use
// to extract only the updates applied after this point.
func (y *YDoc) Marker() int {
	return len(y.updates)
}

// DiffSince returns the updates appended after marker, in order.
func (y *YDoc) DiffSince(marker int) [][]byte {
	if marker >= len(y.updates) {
		return nil
	}
	out := make([][]byte, len(y.updates)-marker)
	copy(out, y.updates[marker:])
	return out
}

// Updates returns the full update log, in order.
func (y *YDoc) Updates() [][]byte {
	out := make([][]byte, len(y.updates))
	copy(out, y.updates)
	return out
}

// Clone deep-copies y.
func (y *YDoc) Clone() *YDoc {
	out := NewYDoc()
	for _, u := range y.updates {
		out.ApplyUpdate(u)
	}
	return out
}

// Merge combines two update logs by applying each side's updates to a fresh
// state (spec.md §3.3): the merged log is the union of both sides' update
// bytes, deduplicated and placed in a stable (content-sorted) order so
// merge is commutative regardless of which side is "self".
func (y *YDoc) Merge(other *YDoc) *YDoc {
	seen := make(map[string]struct{})
	var all [][]byte
	for _, u := range y.updates {
		key := string(u)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		all = append(all, u)
	}
	for _, u := range other.updates {
		key := string(u)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return bytes.Compare(all[i], all[j]) < 0 })
	out := NewYDoc()
	out.updates = all
	return out
}

// wireYDoc is the canonical JSON shape for a YDoc value: base64-url
// update blobs, in log order.
type wireYDoc struct {
	Updates []string `json:"updates"`
}

func (y *YDoc) toWire() wireYDoc {
	w := wireYDoc{Updates: make([]string, len(y.updates))}
	for i, u := range y.updates {
		w.Updates[i] = base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(u)
	}
	return w
}

func ydocFromWire(w wireYDoc) (*YDoc, error) {
	y := NewYDoc()
	for _, s := range w.Updates {
		raw, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(s)
		if err != nil {
			return nil, err
		}
		y.ApplyUpdate(raw)
	}
	return y, nil
}
