// Package crdt implements Eidetica's recursive CRDT document value (Doc),
// its positional List variant, an opaque YDoc variant, and their merge
// semantics (spec.md §3.3, §4.3).
package crdt

// Kind discriminates the variants of Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindText
	KindBytes
	KindDeleted
	KindDoc
	KindList
	KindYDoc
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindDeleted:
		return "deleted"
	case KindDoc:
		return "doc"
	case KindList:
		return "list"
	case KindYDoc:
		return "ydoc"
	default:
		return "unknown"
	}
}

// Value is the sum type stored at every Doc key and List element
// (spec.md §3.3). The zero Value is Null. Construct with the New*
// functions; Value is safe to copy by value (composite kinds hold pointers
// to their own state).
type Value struct {
	kind  Kind
	b     bool
	i     int64
	text  string
	bytes []byte
	doc   *Doc
	list  *List
	ydoc  *YDoc
}

// Null returns the Null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean leaf value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Int wraps an integer leaf value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Text wraps a string leaf value.
func Text(v string) Value { return Value{kind: KindText, text: v} }

// Bytes wraps a raw byte-slice leaf value. The slice is copied.
func Bytes(v []byte) Value {
	cp := make([]byte, len(v))
	copy(cp, v)
	return Value{kind: KindBytes, bytes: cp}
}

// Deleted returns a tombstone value: suppressed from public reads but
// participates in merges (spec.md §3.3).
func Deleted() Value { return Value{kind: KindDeleted} }

// FromDoc wraps a *Doc as a Value.
func FromDoc(d *Doc) Value { return Value{kind: KindDoc, doc: d} }

// FromList wraps a *List as a Value.
func FromList(l *List) Value { return Value{kind: KindList, list: l} }

// FromYDoc wraps a *YDoc as a Value.
func FromYDoc(y *YDoc) Value { return Value{kind: KindYDoc, ydoc: y} }

// Kind returns the value's variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsDeleted reports whether this is a tombstone.
func (v Value) IsDeleted() bool { return v.kind == KindDeleted }

// IsNull reports whether this is the Null leaf.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload and whether v is a Bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer payload and whether v is an Int.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsText returns the string payload and whether v is Text.
func (v Value) AsText() (string, bool) { return v.text, v.kind == KindText }

// AsBytes returns the byte payload and whether v is Bytes.
func (v Value) AsBytes() ([]byte, bool) { return v.bytes, v.kind == KindBytes }

// AsDoc returns the *Doc payload and whether v is a Doc.
func (v Value) AsDoc() (*Doc, bool) { return v.doc, v.kind == KindDoc }

// AsList returns the *List payload and whether v is a List.
func (v Value) AsList() (*List, bool) { return v.list, v.kind == KindList }

// AsYDoc returns the *YDoc payload and whether v is a YDoc.
func (v Value) AsYDoc() (*YDoc, bool) { return v.ydoc, v.kind == KindYDoc }

// isComposite reports whether v is Doc, List, or YDoc (recurses on merge
// rather than using plain LWW).
func (v Value) isComposite() bool {
	return v.kind == KindDoc || v.kind == KindList || v.kind == KindYDoc
}

// merge combines self (earlier/base) and other (later, per DAG order) at a
// single value position, per spec.md §3.3's bullet list. Composite kinds
// recurse; everything else (including Deleted) is resolved by the
// tombstone-dominant rule: if either side is Deleted, Deleted wins,
// otherwise the later side (other) wins outright. Mismatched composite
// kinds (e.g. a Doc colliding with a List) fall back to LWW since there is
// no structural merge between different composite shapes.
func merge(self, other Value) Value {
	if self.kind == KindDeleted || other.kind == KindDeleted {
		return Deleted()
	}
	if self.kind == KindDoc && other.kind == KindDoc {
		return FromDoc(self.doc.Merge(other.doc))
	}
	if self.kind == KindList && other.kind == KindList {
		return FromList(self.list.Merge(other.list))
	}
	if self.kind == KindYDoc && other.kind == KindYDoc {
		return FromYDoc(self.ydoc.Merge(other.ydoc))
	}
	return other
}
