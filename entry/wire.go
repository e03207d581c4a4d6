package entry

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/eidetica/eidetica/id"
)

// wireStoreEntry mirrors spec.md §3.2's stores[name] shape.
type wireStoreEntry struct {
	Data    string   `json:"data"`
	Parents []string `json:"parents,omitempty"`
}

type wireDelegationStep struct {
	Tree string   `json:"tree,omitempty"`
	Tips []string `json:"tips,omitempty"`
	Key  string   `json:"key,omitempty"`
}

type wireSigKey struct {
	Direct     string               `json:"direct,omitempty"`
	Delegation []wireDelegationStep `json:"delegation,omitempty"`
}

type wireSig struct {
	Signature string     `json:"signature,omitempty"` // base64
	Key       wireSigKey `json:"key"`
	PubKey    string     `json:"pubkey,omitempty"`
}

type wireEntry struct {
	Root     string                    `json:"root"`
	Parents  []string                  `json:"parents,omitempty"`
	Stores   map[string]wireStoreEntry `json:"stores,omitempty"`
	Sig      wireSig                   `json:"sig"`
	Metadata string                    `json:"metadata,omitempty"`
}

// MarshalJSON implements json.Marshaler with the wire shape of spec.md §6.1
// (canonical field set, id absent since it is derived).
func (e *Entry) MarshalJSON() ([]byte, error) {
	w := wireEntry{
		Root:     string(e.root),
		Parents:  e.parents.Strings(),
		Metadata: e.metadata,
	}
	if len(e.stores) > 0 {
		w.Stores = make(map[string]wireStoreEntry, len(e.stores))
		for name, sd := range e.stores {
			w.Stores[name] = wireStoreEntry{Data: sd.Data, Parents: sd.Parents.Strings()}
		}
	}
	w.Sig.PubKey = e.sig.PubKey
	if len(e.sig.Signature) > 0 {
		w.Sig.Signature = base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(e.sig.Signature)
	}
	if e.sig.Key.IsDelegated() {
		steps := make([]wireDelegationStep, len(e.sig.Key.Delegation))
		for i, s := range e.sig.Key.Delegation {
			steps[i] = wireDelegationStep{Tree: string(s.Tree), Tips: s.Tips.Strings(), Key: s.Key}
		}
		w.Sig.Key.Delegation = steps
	} else {
		w.Sig.Key.Direct = e.sig.Key.Direct
	}
	return json.Marshal(w)
}

// UnmarshalEntry parses wire JSON into a validated, id-recomputed Entry.
// Per spec.md §8's "id integrity" property, callers that received this over
// the network should compare the result's ID() against whatever identifier
// they expected before trusting it.
func UnmarshalEntry(data []byte) (*Entry, error) {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("entry: unmarshal: %w", err)
	}

	var b *Builder
	if w.Root == "" {
		b = RootBuilder()
	} else {
		b = NewBuilder(id.ID(w.Root))
	}

	parents := make([]id.ID, len(w.Parents))
	for i, p := range w.Parents {
		parents[i] = id.ID(p)
	}
	b.AddParents(parents...)

	for name, sd := range w.Stores {
		b.SetStoreData(name, sd.Data)
		sp := make([]id.ID, len(sd.Parents))
		for i, p := range sd.Parents {
			sp[i] = id.ID(p)
		}
		b.AddStoreParents(name, sp...)
	}

	var key SigKey
	if len(w.Sig.Key.Delegation) > 0 {
		steps := make([]DelegationStep, len(w.Sig.Key.Delegation))
		for i, s := range w.Sig.Key.Delegation {
			tips := make(id.Set, len(s.Tips))
			for j, t := range s.Tips {
				tips[j] = id.ID(t)
			}
			steps[i] = DelegationStep{Tree: id.ID(s.Tree), Tips: tips, Key: s.Key}
		}
		key.Delegation = steps
	} else {
		key.Direct = w.Sig.Key.Direct
	}
	b.SetSigKey(key)
	if w.Sig.PubKey != "" {
		b.SetPubKey(w.Sig.PubKey)
	}
	if w.Metadata != "" {
		b.SetMetadata(w.Metadata)
	}

	e, err := b.Build()
	if err != nil {
		return nil, err
	}

	if w.Sig.Signature != "" {
		sigBytes, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(w.Sig.Signature)
		if err != nil {
			return nil, fmt.Errorf("entry: decode signature: %w", err)
		}
		e = e.WithSignature(sigBytes)
	}

	return e, nil
}
