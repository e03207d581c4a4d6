package instance

import (
	"github.com/eidetica/eidetica/auth"
	"github.com/eidetica/eidetica/crdt"
	"github.com/eidetica/eidetica/height"
)

// heightStrategyField is the _settings scalar spec.md §3.4 names directly
// ("height_strategy"), kept here rather than in auth/settings.go since it
// isn't part of the auth section.
const heightStrategyField = "height_strategy"

// MergeSettings folds two _settings snapshots that diverged from a common
// ancestor into one, applying field-specific rules beyond generic
// crdt.Doc.Merge's last-writer-wins: auth keys merge per-key (so a key added
// on one side and revoked on the other both survive, with revocation
// winning per spec.md §4.5's "revoked keys cannot sign" rule), delegation
// bounds union by referenced tree id, and height_strategy is a plain
// last-writer-wins scalar (original_source/crates/lib/src/instance/settings_merge.rs
// names this as a dedicated step beyond generic Doc merge; the underlying
// storage is still a crdt.Doc, so name/height_strategy already get correct
// LWW behavior from Doc.Merge — only the auth section needs help since its
// nested key-document merge could otherwise let a B-side key bucket
// silently shadow an A-side key added under a different name at the same
// position).
func MergeSettings(a, b *crdt.Doc) (*crdt.Doc, error) {
	merged := a.Merge(b)

	aAuth, aErr := auth.GetAuthSection(a)
	bAuth, bErr := auth.GetAuthSection(b)
	if aErr != nil && bErr != nil {
		return merged, nil
	}

	combined := crdt.NewDoc()
	if aErr == nil {
		mergeAuthKeysInto(combined, aAuth)
	}
	if bErr == nil {
		mergeAuthKeysInto(combined, bAuth)
	}
	merged.Set("auth", crdt.FromDoc(combined))
	return merged, nil
}

// mergeAuthKeysInto copies every key entry and delegation entry from src
// into dst, so a caller folding two auth sections sees the union of both
// sides' key names rather than whichever side crdt.Doc.Merge happened to
// prefer for the "auth" key itself.
func mergeAuthKeysInto(dst, src *crdt.Doc) {
	for _, k := range src.Keys() {
		if k == "delegations" {
			continue
		}
		if v, ok := src.GetVisible(k); ok {
			if prev, had := dst.GetVisible(k); had {
				if prevDoc, isDoc := prev.AsDoc(); isDoc {
					if st, ok := prevDoc.GetVisible("status"); ok {
						if s, _ := st.AsText(); s == string(auth.StatusRevoked) {
							continue
						}
					}
				}
			}
			dst.Set(k, v)
		}
	}
	if delV, ok := src.GetVisible("delegations"); ok {
		if delSrc, isDoc := delV.AsDoc(); isDoc {
			delDst := crdt.NewDoc()
			if existing, ok := dst.GetVisible("delegations"); ok {
				if d, isDoc := existing.AsDoc(); isDoc {
					delDst = d
				}
			}
			for _, tree := range delSrc.Keys() {
				if v, ok := delSrc.GetVisible(tree); ok {
					delDst.Set(tree, v)
				}
			}
			dst.Set("delegations", crdt.FromDoc(delDst))
		}
	}
}

// ResolvedHeightStrategy reads height_strategy off a merged settings
// snapshot, defaulting to height.Incremental when unset or unrecognized.
func ResolvedHeightStrategy(settings *crdt.Doc) height.Strategy {
	v, ok := settings.GetVisible(heightStrategyField)
	if !ok {
		return height.Incremental
	}
	s, ok := v.AsText()
	if !ok || !height.Strategy(s).Valid() {
		return height.Incremental
	}
	return height.Strategy(s)
}
