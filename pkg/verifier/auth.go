package verifier

import (
	"fmt"

	"github.com/yourorg/satcity/pkg/kv"
	"github.com/yourorg/satcity/pkg/types"
)

// Authenticator is the access-control role of a gate.
type Authenticator interface {
	// Deploy records the controlling identity.
	Deploy(st kv.Writer, owner types.AssetID) error
	Deployed(st kv.Reader) (bool, error)
	// OnlyOwner fails with ErrNotOwner unless caller controls the gate.
	OnlyOwner(st kv.Reader, caller types.AssetID) error
}

// OwnerAuth keeps a single owner under <namespace>/owner.
type OwnerAuth struct {
	key []byte
}

func NewOwnerAuth(ns kv.Namespace) *OwnerAuth {
	return &OwnerAuth{key: ns.Key("/owner")}
}

func (a *OwnerAuth) Deploy(st kv.Writer, owner types.AssetID) error {
	return st.Set(a.key, encodeAssetID(owner))
}

func (a *OwnerAuth) Deployed(st kv.Reader) (bool, error) {
	_, ok, err := st.Get(a.key)
	return ok, err
}

func (a *OwnerAuth) OnlyOwner(st kv.Reader, caller types.AssetID) error {
	raw, ok, err := st.Get(a.key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no owner recorded", ErrNotOwner)
	}
	owner, err := decodeAssetID(raw)
	if err != nil {
		return err
	}
	if owner != caller {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller)
	}
	return nil
}
