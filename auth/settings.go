package auth

import (
	"fmt"

	"github.com/eidetica/eidetica/crdt"
	"github.com/eidetica/eidetica/id"
)

const (
	authSection       = "auth"
	delegationSection = "delegations"
	fieldPubkey       = "pubkey"
	fieldPerm         = "permissions"
	fieldTier         = "tier"
	fieldPrio         = "priority"
	fieldStatus       = "status"
	fieldMax          = "max"
	fieldMin          = "min"
)

// GetAuthSection returns the "auth" sub-Doc of a _settings snapshot.
func GetAuthSection(settings *crdt.Doc) (*crdt.Doc, error) {
	v, ok := settings.GetVisible(authSection)
	if !ok {
		return nil, ErrNoAuthConfiguration
	}
	d, ok := v.AsDoc()
	if !ok {
		return nil, fmt.Errorf("%w: auth section must be a document", ErrInvalidAuthConfiguration)
	}
	return d, nil
}

// LookupAuthKey resolves keyName within a settings snapshot's auth section.
func LookupAuthKey(settings *crdt.Doc, keyName string) (AuthKey, error) {
	auth, err := GetAuthSection(settings)
	if err != nil {
		return AuthKey{}, err
	}
	v, ok := auth.GetVisible(keyName)
	if !ok {
		return AuthKey{}, fmt.Errorf("%w: %q", ErrKeyNotFound, keyName)
	}
	d, ok := v.AsDoc()
	if !ok {
		return AuthKey{}, fmt.Errorf("%w: key %q is not a document", ErrInvalidAuthConfiguration, keyName)
	}
	return authKeyFromDoc(d)
}

// PutAuthKey stages key under keyName in settings' auth section,
// creating the section if absent.
func PutAuthKey(settings *crdt.Doc, keyName string, key AuthKey) {
	authDoc := authSectionDoc(settings)
	authDoc.Set(keyName, crdt.FromDoc(authKeyToDoc(key)))
	settings.Set(authSection, crdt.FromDoc(authDoc))
}

// LookupDelegation resolves the PermissionBounds granted to a delegated
// tree, as recorded under settings.auth.delegations[tree].
func LookupDelegation(settings *crdt.Doc, tree id.ID) (Bounds, error) {
	auth, err := GetAuthSection(settings)
	if err != nil {
		return Bounds{}, err
	}
	delV, ok := auth.GetVisible(delegationSection)
	if !ok {
		return Bounds{}, fmt.Errorf("%w: %q has no delegation entry", ErrKeyNotFound, tree)
	}
	delDoc, ok := delV.AsDoc()
	if !ok {
		return Bounds{}, fmt.Errorf("%w: delegations section must be a document", ErrInvalidAuthConfiguration)
	}
	entryV, ok := delDoc.GetVisible(string(tree))
	if !ok {
		return Bounds{}, fmt.Errorf("%w: %q has no delegation entry", ErrKeyNotFound, tree)
	}
	entryDoc, ok := entryV.AsDoc()
	if !ok {
		return Bounds{}, fmt.Errorf("%w: delegation entry must be a document", ErrInvalidAuthConfiguration)
	}
	return boundsFromDoc(entryDoc)
}

// PutDelegation stages a delegation grant for tree with the given bounds.
func PutDelegation(settings *crdt.Doc, tree id.ID, bounds Bounds) {
	authDoc := authSectionDoc(settings)
	delV, ok := authDoc.GetVisible(delegationSection)
	var delDoc *crdt.Doc
	if ok {
		delDoc, ok = delV.AsDoc()
	}
	if !ok || delDoc == nil {
		delDoc = crdt.NewDoc()
	}
	delDoc.Set(string(tree), crdt.FromDoc(boundsToDoc(bounds)))
	authDoc.Set(delegationSection, crdt.FromDoc(delDoc))
	settings.Set(authSection, crdt.FromDoc(authDoc))
}

func authSectionDoc(settings *crdt.Doc) *crdt.Doc {
	v, ok := settings.GetVisible(authSection)
	var d *crdt.Doc
	if ok {
		d, ok = v.AsDoc()
	}
	if !ok || d == nil {
		d = crdt.NewDoc()
	}
	return d
}

func authKeyToDoc(k AuthKey) *crdt.Doc {
	d := crdt.NewDoc()
	d.Set(fieldPubkey, crdt.Text(k.Pubkey))
	d.Set(fieldPerm, crdt.FromDoc(permissionToDoc(k.Permissions)))
	d.Set(fieldStatus, crdt.Text(string(k.Status)))
	return d
}

func authKeyFromDoc(d *crdt.Doc) (AuthKey, error) {
	pubV, ok := d.GetVisible(fieldPubkey)
	if !ok {
		return AuthKey{}, fmt.Errorf("%w: missing pubkey", ErrInvalidAuthConfiguration)
	}
	pubkey, _ := pubV.AsText()

	permV, ok := d.GetVisible(fieldPerm)
	if !ok {
		return AuthKey{}, fmt.Errorf("%w: missing permissions", ErrInvalidAuthConfiguration)
	}
	permDoc, ok := permV.AsDoc()
	if !ok {
		return AuthKey{}, fmt.Errorf("%w: permissions must be a document", ErrInvalidAuthConfiguration)
	}
	perm, err := permissionFromDoc(permDoc)
	if err != nil {
		return AuthKey{}, err
	}

	statusV, ok := d.GetVisible(fieldStatus)
	status := StatusActive
	if ok {
		s, _ := statusV.AsText()
		status = KeyStatus(s)
	}

	return AuthKey{Pubkey: pubkey, Permissions: perm, Status: status}, nil
}

func permissionToDoc(p Permission) *crdt.Doc {
	d := crdt.NewDoc()
	d.Set(fieldTier, crdt.Text(p.Tier.String()))
	d.Set(fieldPrio, crdt.Int(int64(p.Priority)))
	return d
}

func permissionFromDoc(d *crdt.Doc) (Permission, error) {
	tierV, ok := d.GetVisible(fieldTier)
	if !ok {
		return Permission{}, fmt.Errorf("%w: missing permission tier", ErrInvalidAuthConfiguration)
	}
	tierStr, _ := tierV.AsText()

	var prio uint32
	if prioV, ok := d.GetVisible(fieldPrio); ok {
		n, _ := prioV.AsInt()
		prio = uint32(n)
	}

	switch tierStr {
	case TierRead.String():
		return Read(), nil
	case TierWrite.String():
		return Write(prio), nil
	case TierAdmin.String():
		return Admin(prio), nil
	default:
		return Permission{}, fmt.Errorf("%w: unknown permission tier %q", ErrInvalidAuthConfiguration, tierStr)
	}
}

func boundsToDoc(b Bounds) *crdt.Doc {
	d := crdt.NewDoc()
	d.Set(fieldMax, crdt.FromDoc(permissionToDoc(b.Max)))
	if b.Min != nil {
		d.Set(fieldMin, crdt.FromDoc(permissionToDoc(*b.Min)))
	}
	return d
}

func boundsFromDoc(d *crdt.Doc) (Bounds, error) {
	maxV, ok := d.GetVisible(fieldMax)
	if !ok {
		return Bounds{}, fmt.Errorf("%w: delegation bounds missing max", ErrInvalidAuthConfiguration)
	}
	maxDoc, ok := maxV.AsDoc()
	if !ok {
		return Bounds{}, fmt.Errorf("%w: delegation bounds max must be a document", ErrInvalidAuthConfiguration)
	}
	max, err := permissionFromDoc(maxDoc)
	if err != nil {
		return Bounds{}, err
	}
	b := Bounds{Max: max}
	if minV, ok := d.GetVisible(fieldMin); ok {
		minDoc, ok := minV.AsDoc()
		if !ok {
			return Bounds{}, fmt.Errorf("%w: delegation bounds min must be a document", ErrInvalidAuthConfiguration)
		}
		min, err := permissionFromDoc(minDoc)
		if err != nil {
			return Bounds{}, err
		}
		b.Min = &min
	}
	return b, nil
}
