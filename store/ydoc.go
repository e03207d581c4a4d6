package store

import (
	"github.com/eidetica/eidetica/crdt"
	"github.com/eidetica/eidetica/transaction"
)

// YDoc exposes a Y-CRDT-backed store: accumulated binary updates folded
// over the store's committed history plus this transaction's own staged
// updates (spec.md §3.3, §4.6). Eidetica never inspects update contents.
type YDoc struct {
	tx   *transaction.Transaction
	name string
}

// NewYDoc opens a YDoc view named name against tx.
func NewYDoc(tx *transaction.Transaction, name string) *YDoc {
	return &YDoc{tx: tx, name: name}
}

// ApplyUpdate stages a binary Y-CRDT update into the transaction's delta
// for this store.
func (y *YDoc) ApplyUpdate(update []byte) error {
	delta, err := y.tx.DeltaYDoc(y.name)
	if err != nil {
		return err
	}
	if delta == nil {
		return ErrNotAYDocStore
	}
	delta.ApplyUpdate(update)
	return nil
}

// Materialized returns the store's full update log: committed history
// merged with this transaction's own staged updates.
func (y *YDoc) Materialized() (*crdt.YDoc, error) {
	base, err := y.tx.BaseYDoc(y.name)
	if err != nil {
		return nil, err
	}
	if delta := y.tx.PeekYDoc(y.name); delta != nil {
		return base.Merge(delta), nil
	}
	return base, nil
}
