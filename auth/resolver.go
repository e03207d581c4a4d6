package auth

import (
	"fmt"

	"github.com/eidetica/eidetica/crdt"
	"github.com/eidetica/eidetica/entry"
	"github.com/eidetica/eidetica/id"
)

// MaxDelegationDepth bounds delegation chains to preclude cycles and
// runaway resolution (spec.md §4.5).
const MaxDelegationDepth = 10

// DelegatedTreeLoader is the narrow view of a backend that delegation
// resolution needs: loading a delegated database's settings snapshot as of
// a claimed tip set, and its current tips (to validate that the claimed
// tips are ancestor-or-equal-or-descendant of them). Defined here, rather
// than depending on the backend package, to keep auth free of a backend
// import cycle; backend.Backend satisfies this interface structurally.
type DelegatedTreeLoader interface {
	SettingsAtTips(tree id.ID, tips id.Set) (*crdt.Doc, error)
	CurrentTips(tree id.ID) (id.Set, error)
	IsRelatedTips(tree id.ID, claimed, current id.Set) (bool, error)
}

// Resolver resolves a SigKey against a settings snapshot, following
// delegation paths as needed.
type Resolver struct {
	loader DelegatedTreeLoader
}

// NewResolver returns a Resolver. loader may be nil if only Direct SigKeys
// will ever be resolved; resolving a DelegationPath without a loader
// returns ErrDelegatedTreeLoaderRequired.
func NewResolver(loader DelegatedTreeLoader) *Resolver {
	return &Resolver{loader: loader}
}

// Resolve resolves sigKey against settings. pubkeyOverride is the signer's
// actual public key from the entry's sig.pubkey field, used only when the
// resolution bottoms out at the wildcard "*" key.
func (r *Resolver) Resolve(sigKey entry.SigKey, settings *crdt.Doc, pubkeyOverride string) (ResolvedAuth, error) {
	if !sigKey.IsDelegated() {
		return r.resolveDirect(sigKey.Direct, settings, pubkeyOverride)
	}
	return r.resolveDelegation(sigKey.Delegation, settings, pubkeyOverride)
}

func (r *Resolver) resolveDirect(keyName string, settings *crdt.Doc, pubkeyOverride string) (ResolvedAuth, error) {
	key, err := LookupAuthKey(settings, keyName)
	if err != nil {
		return ResolvedAuth{}, err
	}

	pubkey := key.Pubkey
	if keyName == Wildcard && key.Pubkey == Wildcard {
		if pubkeyOverride == "" {
			return ResolvedAuth{}, ErrWildcardRequiresPubkey
		}
		pubkey = pubkeyOverride
	}

	return ResolvedAuth{
		PublicKey:           pubkey,
		EffectivePermission: key.Permissions,
		KeyStatus:           key.Status,
	}, nil
}

// resolveDelegation walks steps[:len-1] (each naming a delegated tree and
// the tips it was claimed at), accumulating permission Bounds from that
// tree's delegation grant in the *current* settings snapshot, then resolves
// the terminal step's key name in the last tree's auth settings and clamps
// its permission to the accumulated bounds.
func (r *Resolver) resolveDelegation(steps []entry.DelegationStep, settings *crdt.Doc, pubkeyOverride string) (ResolvedAuth, error) {
	if len(steps) == 0 {
		return ResolvedAuth{}, ErrEmptyDelegationPath
	}
	if r.loader == nil {
		return ResolvedAuth{}, ErrDelegatedTreeLoaderRequired
	}

	bounds := Bounds{Max: Admin(0)}
	curSettings := settings
	visited := make(map[id.ID]struct{}, len(steps))

	for i, step := range steps[:len(steps)-1] {
		if _, dup := visited[step.Tree]; dup {
			return ResolvedAuth{}, fmt.Errorf("%w: tree %s revisited at delegation step %d", ErrDelegationCycle, step.Tree, i)
		}
		visited[step.Tree] = struct{}{}
		if len(visited) > MaxDelegationDepth {
			return ResolvedAuth{}, fmt.Errorf("%w: max depth %d", ErrDelegationDepthExceeded, MaxDelegationDepth)
		}

		grant, err := LookupDelegation(curSettings, step.Tree)
		if err != nil {
			return ResolvedAuth{}, fmt.Errorf("auth: delegation step %d: %w", i, err)
		}
		bounds = Narrow(bounds, grant)

		current, err := r.loader.CurrentTips(step.Tree)
		if err != nil {
			return ResolvedAuth{}, fmt.Errorf("auth: delegation step %d: %w", i, err)
		}
		related, err := r.loader.IsRelatedTips(step.Tree, step.Tips, current)
		if err != nil {
			return ResolvedAuth{}, fmt.Errorf("auth: delegation step %d: %w", i, err)
		}
		if !related {
			return ResolvedAuth{}, fmt.Errorf("auth: delegation step %d: %w", i, ErrTipsNotAncestor)
		}

		curSettings, err = r.loader.SettingsAtTips(step.Tree, step.Tips)
		if err != nil {
			return ResolvedAuth{}, fmt.Errorf("auth: delegation step %d: %w", i, err)
		}
	}

	final := steps[len(steps)-1]
	terminal, err := r.resolveDirect(final.Key, curSettings, pubkeyOverride)
	if err != nil {
		return ResolvedAuth{}, err
	}
	terminal.EffectivePermission = terminal.EffectivePermission.Clamp(bounds)
	return terminal, nil
}
