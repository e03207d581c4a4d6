package crdt

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/eidetica/eidetica/id"
)

// Encode canonical-JSON-encodes v. This is what Builder.SetStoreData and
// Entry metadata ultimately consume: every CRDT delta travels through the
// DAG as this canonical string (spec.md §3.2, §4.1).
func Encode(v Value) (string, error) {
	data, err := id.Canonicalize(valueToTree(v))
	if err != nil {
		return "", fmt.Errorf("crdt: encode: %w", err)
	}
	return string(data), nil
}

// EncodeDoc is a convenience for the common case of encoding a *Doc.
func EncodeDoc(d *Doc) (string, error) {
	return Encode(FromDoc(d))
}

// Decode parses a canonical-JSON string produced by Encode back into a
// Value. Round-tripping through Encode/Decode is exact (spec.md §4.3).
func Decode(data string) (Value, error) {
	tree, err := id.DecodeCanonical([]byte(data))
	if err != nil {
		return Value{}, fmt.Errorf("crdt: decode: %w", err)
	}
	return treeToValue(tree)
}

// DecodeDoc is a convenience for the common case of decoding a *Doc.
func DecodeDoc(data string) (*Doc, error) {
	if data == "" {
		return NewDoc(), nil
	}
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	d, ok := v.AsDoc()
	if !ok {
		return nil, ErrNotADoc
	}
	return d, nil
}

func valueToTree(v Value) any {
	switch v.kind {
	case KindNull:
		return map[string]any{"kind": "null"}
	case KindBool:
		return map[string]any{"kind": "bool", "value": v.b}
	case KindInt:
		return map[string]any{"kind": "int", "value": v.i}
	case KindText:
		return map[string]any{"kind": "text", "value": v.text}
	case KindBytes:
		return map[string]any{"kind": "bytes", "value": base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(v.bytes)}
	case KindDeleted:
		return map[string]any{"kind": "deleted"}
	case KindDoc:
		fields := make(map[string]any, len(v.doc.fields))
		for k, fv := range v.doc.fields {
			fields[k] = valueToTree(fv)
		}
		return map[string]any{"kind": "doc", "fields": fields}
	case KindList:
		elems := v.list.ordered()
		arr := make([]any, len(elems))
		for i, e := range elems {
			arr[i] = map[string]any{
				"id":    e.ID,
				"num":   e.Position.Num,
				"den":   e.Position.Den,
				"value": valueToTree(e.Value),
			}
		}
		return map[string]any{"kind": "list", "elements": arr}
	case KindYDoc:
		w := v.ydoc.toWire()
		updates := make([]any, len(w.Updates))
		for i, u := range w.Updates {
			updates[i] = u
		}
		return map[string]any{"kind": "ydoc", "updates": updates}
	default:
		return map[string]any{"kind": "null"}
	}
}

func treeToValue(tree any) (Value, error) {
	m, ok := tree.(map[string]any)
	if !ok {
		return Value{}, fmt.Errorf("crdt: expected object, got %T", tree)
	}
	kind, _ := m["kind"].(string)
	switch kind {
	case "null":
		return Null(), nil
	case "bool":
		b, _ := m["value"].(bool)
		return Bool(b), nil
	case "int":
		n, err := jsonNumberToInt64(m["value"])
		if err != nil {
			return Value{}, err
		}
		return Int(n), nil
	case "text":
		s, _ := m["value"].(string)
		return Text(s), nil
	case "bytes":
		s, _ := m["value"].(string)
		raw, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(s)
		if err != nil {
			return Value{}, err
		}
		return Bytes(raw), nil
	case "deleted":
		return Deleted(), nil
	case "doc":
		fields, _ := m["fields"].(map[string]any)
		d := NewDoc()
		for k, fv := range fields {
			child, err := treeToValue(fv)
			if err != nil {
				return Value{}, err
			}
			d.Set(k, child)
		}
		return FromDoc(d), nil
	case "list":
		elems, _ := m["elements"].([]any)
		l := NewList()
		for _, raw := range elems {
			em, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			elID, _ := em["id"].(string)
			num, err := jsonNumberToInt64(em["num"])
			if err != nil {
				return Value{}, err
			}
			den, err := jsonNumberToInt64(em["den"])
			if err != nil {
				return Value{}, err
			}
			child, err := treeToValue(em["value"])
			if err != nil {
				return Value{}, err
			}
			l.InsertAtPosition(elID, Position{Num: num, Den: uint64(den)}, child)
		}
		return FromList(l), nil
	case "ydoc":
		updatesRaw, _ := m["updates"].([]any)
		w := wireYDoc{Updates: make([]string, len(updatesRaw))}
		for i, u := range updatesRaw {
			w.Updates[i], _ = u.(string)
		}
		y, err := ydocFromWire(w)
		if err != nil {
			return Value{}, err
		}
		return FromYDoc(y), nil
	default:
		return Value{}, fmt.Errorf("crdt: unknown value kind %q", kind)
	}
}

func jsonNumberToInt64(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Int64()
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("crdt: expected integer, got %T", v)
	}
}
