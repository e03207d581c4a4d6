package transaction

import (
	"fmt"

	"github.com/eidetica/eidetica/backend"
	"github.com/eidetica/eidetica/crdt"
	"github.com/eidetica/eidetica/id"
)

// MaterializeYDoc folds a YDoc store's ancestor set into a single YDoc
// value. Unlike Doc folding, this needs no DAG-order sensitivity: YDoc.Merge
// is commutative, associative, and idempotent (it dedups update bytes and
// sorts them into a stable order), so entries can be merged in any order
// (spec.md §3.3's YDoc variant, §9's "opaque update log" treatment).
func MaterializeYDoc(b backend.Backend, root id.ID, store string, tips id.Set) (*crdt.YDoc, error) {
	if len(tips) == 0 {
		return crdt.NewYDoc(), nil
	}
	ids, err := b.GetStoreFromTips(root, store, tips)
	if err != nil {
		return nil, fmt.Errorf("transaction: materialize ydoc: %w", err)
	}
	result := crdt.NewYDoc()
	for _, eid := range ids {
		e, err := b.Get(eid)
		if err != nil {
			return nil, fmt.Errorf("transaction: materialize ydoc: load %s: %w", eid, err)
		}
		data, ok := e.Data(store)
		if !ok || data == "" {
			continue
		}
		v, err := crdt.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("transaction: materialize ydoc: decode %s: %w", eid, err)
		}
		y, ok := v.AsYDoc()
		if !ok {
			continue
		}
		result = result.Merge(y)
	}
	return result, nil
}
