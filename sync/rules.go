package sync

import "path/filepath"

// Rules is a glob-based allow/deny list over database names that answers
// whether a name may sync (supplemented feature: spec.md §4.9.1 only models
// per-database tracking, not a pattern-based policy layer; glob rules
// mirror beads' config-driven include/exclude lists). It carries no peer
// and no permission, and Engine does not consult it: tracking still takes
// one Track call per (database, peer) pair.
type Rules struct {
	allow []string
	deny  []string
}

// NewRules builds a Rules set from glob patterns matched against database
// names (not ids): deny patterns take precedence over allow patterns.
func NewRules(allow, deny []string) *Rules {
	return &Rules{allow: allow, deny: deny}
}

// Allows reports whether name is permitted to sync under these rules. An
// empty allow list means "allow everything not denied".
func (r *Rules) Allows(name string) bool {
	for _, pat := range r.deny {
		if matchGlob(pat, name) {
			return false
		}
	}
	if len(r.allow) == 0 {
		return true
	}
	for _, pat := range r.allow {
		if matchGlob(pat, name) {
			return true
		}
	}
	return false
}

func matchGlob(pattern, name string) bool {
	ok, err := filepath.Match(pattern, name)
	return err == nil && ok
}
