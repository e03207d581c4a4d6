package entry

import "github.com/eidetica/eidetica/id"

// computeID builds the canonical JSON tree for e's public, non-signature
// fields (spec.md §3.1: "signature bytes excluded from the digest") and
// hashes it. sig.key and sig.pubkey ARE covered by the digest: a signer
// commits to its own identity before producing the signature bytes that
// cover the resulting id.
func computeID(e *Entry) id.ID {
	tree := map[string]any{
		"root":    string(e.root),
		"parents": e.parents.Strings(),
		"stores":  storesToCanonical(e.stores),
		"sig":     sigToCanonical(e.sig),
	}
	if e.metadata != "" {
		tree["metadata"] = e.metadata
	}
	hashed, err := id.HashValue(tree)
	if err != nil {
		// Build already validated store data and metadata as canonical JSON
		// strings; the only remaining way Canonicalize can fail here is a
		// float slipping into parents/store names, which cannot happen since
		// those are always strings.
		panic("entry: unreachable canonicalization failure: " + err.Error())
	}
	return hashed
}

func storesToCanonical(stores map[string]StoreData) map[string]any {
	out := make(map[string]any, len(stores))
	for name, sd := range stores {
		out[name] = map[string]any{
			"data":    sd.Data,
			"parents": sd.Parents.Strings(),
		}
	}
	return out
}

func sigToCanonical(s Sig) map[string]any {
	out := map[string]any{
		"key": sigKeyToCanonical(s.Key),
	}
	if s.PubKey != "" {
		out["pubkey"] = s.PubKey
	}
	return out
}

func sigKeyToCanonical(k SigKey) map[string]any {
	if k.IsDelegated() {
		steps := make([]any, len(k.Delegation))
		for i, step := range k.Delegation {
			m := map[string]any{}
			if step.Tree != "" {
				m["tree"] = string(step.Tree)
			}
			if len(step.Tips) > 0 {
				m["tips"] = step.Tips.Strings()
			}
			if step.Key != "" {
				m["key"] = step.Key
			}
			steps[i] = m
		}
		return map[string]any{"delegation": steps}
	}
	return map[string]any{"direct": k.Direct}
}
