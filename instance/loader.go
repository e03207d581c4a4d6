package instance

import (
	"github.com/eidetica/eidetica/backend"
	"github.com/eidetica/eidetica/crdt"
	"github.com/eidetica/eidetica/entry"
	"github.com/eidetica/eidetica/id"
	"github.com/eidetica/eidetica/transaction"
)

// treeLoader adapts a backend+materializer pair to auth.DelegatedTreeLoader,
// so the Instance's single Resolver can follow delegation paths into other
// databases it hosts (spec.md §4.5's cross-database delegation).
type treeLoader struct {
	backend backend.Backend
	mat     *transaction.Materializer
}

func (l *treeLoader) SettingsAtTips(tree id.ID, tips id.Set) (*crdt.Doc, error) {
	return l.mat.Doc(tree, entry.SettingsStore, tips)
}

func (l *treeLoader) CurrentTips(tree id.ID) (id.Set, error) {
	return l.backend.GetTips(tree)
}

// IsRelatedTips reports whether claimed and current are the same set, or
// one is reachable from the other by following main-tree ancestry — the
// relation a delegation step's pinned tips must satisfy against the
// delegated tree's live tips (spec.md §4.5).
func (l *treeLoader) IsRelatedTips(tree id.ID, claimed, current id.Set) (bool, error) {
	if sameSet(claimed, current) {
		return true, nil
	}
	ancOfCurrent, err := l.backend.GetTreeFromTips(tree, current)
	if err != nil {
		return false, err
	}
	if containsAll(ancOfCurrent, claimed) {
		return true, nil
	}
	ancOfClaimed, err := l.backend.GetTreeFromTips(tree, claimed)
	if err != nil {
		return false, err
	}
	return containsAll(ancOfClaimed, current), nil
}

func sameSet(a, b id.Set) bool {
	if len(a) != len(b) {
		return false
	}
	for _, v := range a {
		if !b.Contains(v) {
			return false
		}
	}
	return true
}

func containsAll(haystack []id.ID, needles id.Set) bool {
	set := make(map[id.ID]struct{}, len(haystack))
	for _, h := range haystack {
		set[h] = struct{}{}
	}
	for _, n := range needles {
		if _, ok := set[n]; !ok {
			return false
		}
	}
	return true
}
