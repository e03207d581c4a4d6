package crdt

// ValueEditor is a chained navigation cursor over a Doc: GetValueMut walks
// to (creating, if missing) a nested Doc level without mutating until Set
// or Delete is actually called (spec.md §4.3).
type ValueEditor struct {
	root *Doc
	path []string
}

// NewValueEditor returns a cursor rooted at d.
func NewValueEditor(d *Doc) *ValueEditor {
	return &ValueEditor{root: d}
}

// GetValueMut returns a cursor one level deeper at key. It does not modify
// the document until a terminal operation (Set/Delete) is called on the
// returned cursor.
func (e *ValueEditor) GetValueMut(key string) *ValueEditor {
	path := make([]string, len(e.path)+1)
	copy(path, e.path)
	path[len(path)-1] = key
	return &ValueEditor{root: e.root, path: path}
}

// Get returns the value at this cursor's path.
func (e *ValueEditor) Get() (Value, bool) {
	if len(e.path) == 0 {
		return FromDoc(e.root), true
	}
	return e.root.GetPath(e.path)
}

// Set stages value at this cursor's path, auto-creating any missing
// intermediate Doc levels. Setting a non-Doc value at the document root is
// rejected (ErrRootNotDoc); setting a non-Doc value at any internal path
// simply overwrites whatever was there, consistent with last-writer-wins.
func (e *ValueEditor) Set(value Value) error {
	if len(e.path) == 0 {
		d, ok := value.AsDoc()
		if !ok {
			return ErrRootNotDoc
		}
		*e.root = *d
		return nil
	}
	return e.root.SetPath(e.path, value)
}

// Delete tombstones the value at this cursor's path.
func (e *ValueEditor) Delete() error {
	if len(e.path) == 0 {
		return ErrRootNotDoc
	}
	return e.root.DeletePath(e.path)
}
