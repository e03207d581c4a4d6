package crdt

// Doc is a recursive map[string]Value (spec.md §3.3). Canonical JSON
// serialization sorts keys, so Doc does not need to track insertion order
// separately to stay deterministic.
type Doc struct {
	fields map[string]Value
}

// NewDoc returns an empty Doc.
func NewDoc() *Doc {
	return &Doc{fields: make(map[string]Value)}
}

// Get returns the value at key and whether the key is present. A tombstoned
// key reports present=true with a Deleted value; callers wanting the public
// view should use ContainsKey/Get together, or GetVisible.
func (d *Doc) Get(key string) (Value, bool) {
	v, ok := d.fields[key]
	return v, ok
}

// GetVisible returns the value at key, treating tombstones as absent (the
// public read view: "suppressed from public reads").
func (d *Doc) GetVisible(key string) (Value, bool) {
	v, ok := d.fields[key]
	if !ok || v.IsDeleted() {
		return Value{}, false
	}
	return v, true
}

// ContainsKey reports whether key has a non-tombstoned value.
func (d *Doc) ContainsKey(key string) bool {
	_, ok := d.GetVisible(key)
	return ok
}

// Set stages key = value at this level.
func (d *Doc) Set(key string, value Value) {
	d.fields[key] = value
}

// Delete tombstones key. The key keeps participating in merges until an
// explicit Compact.
func (d *Doc) Delete(key string) {
	d.fields[key] = Deleted()
}

// Keys returns all keys with any value (including tombstoned), sorted.
func (d *Doc) Keys() []string {
	out := make([]string, 0, len(d.fields))
	for k := range d.fields {
		out = append(out, k)
	}
	sortStrings(out)
	return out
}

// GetPath walks a dotted key path through nested Docs. A tombstoned value
// anywhere along the path reports absent, as GetVisible does.
func (d *Doc) GetPath(path []string) (Value, bool) {
	if len(path) == 0 {
		return Value{}, false
	}
	cur := d
	for i, key := range path {
		v, ok := cur.fields[key]
		if !ok || v.IsDeleted() {
			return Value{}, false
		}
		if i == len(path)-1 {
			return v, true
		}
		sub, isDoc := v.AsDoc()
		if !isDoc {
			return Value{}, false
		}
		cur = sub
	}
	return Value{}, false
}

// SetPath walks/creates nested Docs along path and sets the final key,
// mirroring ValueEditor's auto-vivification rule.
func (d *Doc) SetPath(path []string, value Value) error {
	if len(path) == 0 {
		return ErrEmptyPath
	}
	cur := d
	for _, key := range path[:len(path)-1] {
		v, ok := cur.fields[key]
		if !ok || v.Kind() != KindDoc {
			next := NewDoc()
			cur.fields[key] = FromDoc(next)
			cur = next
			continue
		}
		sub, _ := v.AsDoc()
		cur = sub
	}
	cur.fields[path[len(path)-1]] = value
	return nil
}

// DeletePath tombstones the value at the end of path.
func (d *Doc) DeletePath(path []string) error {
	if len(path) == 0 {
		return ErrEmptyPath
	}
	cur := d
	for _, key := range path[:len(path)-1] {
		v, ok := cur.fields[key]
		if !ok {
			return nil // nothing to delete
		}
		sub, isDoc := v.AsDoc()
		if !isDoc {
			return ErrNotADoc
		}
		cur = sub
	}
	cur.Delete(path[len(path)-1])
	return nil
}

// Clone deep-copies d.
func (d *Doc) Clone() *Doc {
	out := NewDoc()
	for k, v := range d.fields {
		out.fields[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v Value) Value {
	switch v.kind {
	case KindDoc:
		return FromDoc(v.doc.Clone())
	case KindList:
		return FromList(v.list.Clone())
	case KindYDoc:
		return FromYDoc(v.ydoc.Clone())
	case KindBytes:
		return Bytes(v.bytes)
	default:
		return v
	}
}

// Merge combines self and other, with other treated as the DAG-later
// operand, per spec.md §3.3: keys unique to either side are copied/retained,
// both-Doc recurses, tombstones dominate on conflict, and any other
// conflict (including both-scalar) resolves to other. Merge is used to
// combine two independently-materialized Doc states at a DAG fan-in; see
// Apply for sequential delta application along a single chain.
func (d *Doc) Merge(other *Doc) *Doc {
	out := NewDoc()
	for k, v := range d.fields {
		out.fields[k] = cloneValue(v)
	}
	for k, ov := range other.fields {
		if sv, ok := out.fields[k]; ok {
			out.fields[k] = merge(sv, ov)
		} else {
			out.fields[k] = cloneValue(ov)
		}
	}
	return out
}

// Apply applies delta on top of d as a sequential, intentional write: every
// key delta touches (at any depth) replaces d's prior value outright,
// including resurrecting a previously tombstoned key (spec.md §3.3's
// resurrection note). Keys d has that delta doesn't touch are retained.
// Used by the store read-path when folding a single entry's delta onto the
// materialized state of its (already-merged, if more than one) store
// parents.
func (d *Doc) Apply(delta *Doc) *Doc {
	out := NewDoc()
	for k, v := range d.fields {
		out.fields[k] = cloneValue(v)
	}
	for k, dv := range delta.fields {
		if dv.Kind() == KindDoc {
			if existing, ok := out.fields[k]; ok && existing.Kind() == KindDoc {
				sub, _ := existing.AsDoc()
				out.fields[k] = FromDoc(sub.Apply(dv.doc))
				continue
			}
		}
		out.fields[k] = cloneValue(dv)
	}
	return out
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
