// Package verifier is the proof gate contract. It keeps the canonical state
// root and moves it forward only when a proof carried in the calling
// transaction's witness verifies.
package verifier

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"lukechampine.com/uint128"

	"github.com/yourorg/satcity/pkg/backend"
	"github.com/yourorg/satcity/pkg/kv"
	"github.com/yourorg/satcity/pkg/payload"
	"github.com/yourorg/satcity/pkg/types"
)

// Opcodes accepted by Call.
const (
	OpInitialize      = 0
	OpVerifyAndUpdate = 1
	OpGetStateRoot    = 97
)

// CallContext is what the host exposes to a call: the calling identity and
// the serialized transaction that carries the call.
type CallContext struct {
	Caller      types.AssetID
	Transaction []byte
}

type Option func(*Gate)

func WithAuthenticator(a Authenticator) Option {
	return func(g *Gate) { g.auth = a }
}

func WithLogger(l zerolog.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// Gate is the proof gate. Every call runs against a write overlay that is
// flushed to the store only when the call succeeds.
type Gate struct {
	mu       sync.Mutex
	store    kv.Store
	keys     keys
	auth     Authenticator
	verifier backend.Verifier
	logger   zerolog.Logger
	metrics  *Metrics
}

// New binds a gate to its storage namespace. The default role is OwnerAuth.
func New(store kv.Store, ns kv.Namespace, v backend.Verifier, opts ...Option) *Gate {
	g := &Gate{
		store:    store,
		keys:     newKeys(ns),
		auth:     NewOwnerAuth(ns),
		verifier: v,
		logger:   zerolog.Nop(),
		metrics:  NilMetrics(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) atomically(op string, fn func(o *kv.Overlay) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	o := kv.NewOverlay(g.store)
	if err := fn(o); err != nil {
		class := Classify(err)
		g.metrics.failed(class)
		g.logger.Warn().Err(err).Str("op", op).Stringer("class", class).Msg("call rejected")
		return err
	}
	return o.Flush(g.store)
}

// Deploy records the owner. It may run once per namespace.
func (g *Gate) Deploy(owner types.AssetID) error {
	return g.atomically("deploy", func(o *kv.Overlay) error {
		deployed, err := g.auth.Deployed(o)
		if err != nil {
			return err
		}
		if deployed {
			return ErrAlreadyDeployed
		}
		return g.auth.Deploy(o, owner)
	})
}

func (g *Gate) initialized(st kv.Reader) (bool, error) {
	v, ok, err := st.Get(g.keys.initialized)
	if err != nil {
		return false, err
	}
	return ok && len(v) == 1 && v[0] == 1, nil
}

// Initialize binds the gate to its bridge. Owner only, once.
func (g *Gate) Initialize(call CallContext, bridge types.AssetID) error {
	return g.atomically("initialize", func(o *kv.Overlay) error {
		if err := g.auth.OnlyOwner(o, call.Caller); err != nil {
			return err
		}
		done, err := g.initialized(o)
		if err != nil {
			return err
		}
		if done {
			return ErrAlreadyInitialized
		}

		if err := o.Set(g.keys.bridgeID, encodeAssetID(bridge)); err != nil {
			return err
		}
		if err := o.Set(g.keys.initialized, []byte{1}); err != nil {
			return err
		}
		g.logger.Info().Stringer("bridge", bridge).Msg("gate initialized")
		return nil
	})
}

// VerifyAndUpdate reads the payload from the first non-empty witness item of
// input 0, verifies the proof it carries and stores the new root and the
// variant. The new root is not checked against the stored one.
func (g *Gate) VerifyAndUpdate(call CallContext) error {
	return g.atomically("verify_and_update", func(o *kv.Overlay) error {
		if err := g.auth.OnlyOwner(o, call.Caller); err != nil {
			return err
		}
		done, err := g.initialized(o)
		if err != nil {
			return err
		}
		if !done {
			return ErrNotInitialized
		}

		raw, err := payload.FromTransaction(call.Transaction)
		if err != nil {
			return err
		}
		p, err := payload.Parse(raw)
		if err != nil {
			return err
		}

		proof, err := g.verifier.DeserializeProof(p.Elements)
		if err != nil {
			if errors.Is(err, backend.ErrBackendIO) {
				return err
			}
			return &backend.VerificationFailedError{Reason: err.Error()}
		}
		if err := g.verifier.Verify(proof, p.Variant); err != nil {
			return err
		}

		if err := o.Set(g.keys.stateRoot, p.NewRoot); err != nil {
			return err
		}
		if err := o.Set(g.keys.lastVariant, []byte{byte(p.Variant)}); err != nil {
			return err
		}

		g.metrics.updated()
		g.logger.Info().Hex("root", p.NewRoot).Stringer("variant", p.Variant).Msg("state root updated")
		return nil
	})
}

// GetStateRoot returns the stored root, or empty bytes when none was set.
func (g *Gate) GetStateRoot() ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	v, ok, err := g.store.Get(g.keys.stateRoot)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []byte{}, nil
	}
	return v, nil
}

// LastVariant returns the variant of the last accepted proof.
func (g *Gate) LastVariant() (backend.Variant, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	v, ok, err := g.store.Get(g.keys.lastVariant)
	if err != nil || !ok {
		return 0, false, err
	}
	if len(v) != 1 {
		return 0, false, fmt.Errorf("stored variant has %d bytes", len(v))
	}
	return backend.Variant(v[0]), true, nil
}

// BridgeID returns the bridge recorded by Initialize.
func (g *Gate) BridgeID() (types.AssetID, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	v, ok, err := g.store.Get(g.keys.bridgeID)
	if err != nil || !ok {
		return types.AssetID{}, false, err
	}
	id, err := decodeAssetID(v)
	return id, err == nil, err
}

// Call dispatches an opcode call. inputs[0] is the opcode; Initialize takes
// the bridge block and tx as inputs[1] and inputs[2].
func (g *Gate) Call(call CallContext, inputs []uint128.Uint128) ([]byte, error) {
	if len(inputs) == 0 {
		return nil, ErrMissingInputs
	}
	op := inputs[0]
	if op.Hi != 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOpcode, op)
	}

	switch op.Lo {
	case OpInitialize:
		if len(inputs) < 3 {
			return nil, fmt.Errorf("%w: initialize needs a bridge id", ErrMissingInputs)
		}
		return nil, g.Initialize(call, types.AssetID{Block: inputs[1], Tx: inputs[2]})
	case OpVerifyAndUpdate:
		return nil, g.VerifyAndUpdate(call)
	case OpGetStateRoot:
		return g.GetStateRoot()
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownOpcode, op.Lo)
	}
}
