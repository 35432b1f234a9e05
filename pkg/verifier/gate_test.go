package verifier

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"github.com/yourorg/satcity/pkg/backend"
	"github.com/yourorg/satcity/pkg/felt"
	"github.com/yourorg/satcity/pkg/kv"
	"github.com/yourorg/satcity/pkg/payload"
	"github.com/yourorg/satcity/pkg/types"
)

/* ---------- stub backend ---------- */

type stubProof []felt.Felt

func (p stubProof) Elements() []felt.Felt { return p }

type stubVerifier struct {
	reject   bool
	verified []backend.Variant
}

func (s *stubVerifier) DeserializeProof(elems []felt.Felt) (backend.Proof, error) {
	return stubProof(elems), nil
}

func (s *stubVerifier) Verify(_ backend.Proof, v backend.Variant) error {
	s.verified = append(s.verified, v)
	if s.reject {
		return &backend.VerificationFailedError{Reason: "stub says no"}
	}
	return nil
}

/* ---------- fixtures ---------- */

var (
	owner    = types.NewAssetID(2, 1)
	stranger = types.NewAssetID(2, 9)
	bridge   = types.NewAssetID(4, 7)
)

func witnessTx(t *testing.T, items ...[]byte) []byte {
	t.Helper()
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{9}, 1), nil, items))
	tx.AddTxOut(wire.NewTxOut(546, []byte{0x51}))

	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))
	return buf.Bytes()
}

func rootPayload() ([]byte, []byte) {
	root := bytes.Repeat([]byte{0x11}, 32)
	raw := []byte("SATC")
	raw = append(raw, 0x01, 0x00)
	raw = binary.BigEndian.AppendUint32(raw, 0)
	raw = binary.BigEndian.AppendUint32(raw, 32)
	return append(raw, root...), root
}

func newGate(t *testing.T, v backend.Verifier, opts ...Option) (*Gate, kv.Store) {
	t.Helper()
	store := kv.NewMemory()
	g := New(store, kv.ContractNamespace([]byte("verifier")), v, opts...)
	require.NoError(t, g.Deploy(owner))
	return g, store
}

/* ---------- lifecycle ---------- */

func TestInitializeOnce(t *testing.T) {
	g, _ := newGate(t, &stubVerifier{})

	require.NoError(t, g.Initialize(CallContext{Caller: owner}, bridge))
	got, ok, err := g.BridgeID()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, bridge, got)

	err = g.Initialize(CallContext{Caller: owner}, stranger)
	require.ErrorIs(t, err, ErrAlreadyInitialized)
	require.Equal(t, ClassAuth, Classify(err))

	got, _, _ = g.BridgeID()
	require.Equal(t, bridge, got)
}

func TestOwnerOnly(t *testing.T) {
	g, _ := newGate(t, &stubVerifier{})

	require.ErrorIs(t, g.Initialize(CallContext{Caller: stranger}, bridge), ErrNotOwner)
	require.NoError(t, g.Initialize(CallContext{Caller: owner}, bridge))

	raw, _ := rootPayload()
	err := g.VerifyAndUpdate(CallContext{Caller: stranger, Transaction: witnessTx(t, raw)})
	require.ErrorIs(t, err, ErrNotOwner)
}

func TestDeployOnce(t *testing.T) {
	g, _ := newGate(t, &stubVerifier{})
	require.ErrorIs(t, g.Deploy(stranger), ErrAlreadyDeployed)
}

func TestVerifyBeforeInitialize(t *testing.T) {
	g, _ := newGate(t, &stubVerifier{})

	raw, _ := rootPayload()
	err := g.VerifyAndUpdate(CallContext{Caller: owner, Transaction: witnessTx(t, raw)})
	require.ErrorIs(t, err, ErrNotInitialized)
}

/* ---------- verify and update ---------- */

func TestVerifyAndUpdate(t *testing.T) {
	v := &stubVerifier{}
	g, _ := newGate(t, v)
	require.NoError(t, g.Initialize(CallContext{Caller: owner}, bridge))

	root, err := g.GetStateRoot()
	require.NoError(t, err)
	require.Empty(t, root)
	require.NotNil(t, root)

	raw, want := rootPayload()
	tx := witnessTx(t, nil, raw, []byte("ignored"))
	require.NoError(t, g.VerifyAndUpdate(CallContext{Caller: owner, Transaction: tx}))

	root, err = g.GetStateRoot()
	require.NoError(t, err)
	require.Equal(t, want, root)

	variant, ok, err := g.LastVariant()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, backend.Canonical, variant)
	require.Equal(t, []backend.Variant{backend.Canonical}, v.verified)
}

func TestFailuresLeaveStorageUntouched(t *testing.T) {
	v := &stubVerifier{}
	g, _ := newGate(t, v)
	require.NoError(t, g.Initialize(CallContext{Caller: owner}, bridge))

	raw, first := rootPayload()
	require.NoError(t, g.VerifyAndUpdate(CallContext{Caller: owner, Transaction: witnessTx(t, raw)}))

	second := payload.Encode(backend.CanonicalWithoutPedersen, []felt.Felt{felt.FromUint64(3)}, []byte{0x22})

	cases := []struct {
		name  string
		tx    []byte
		setup func()
		class Class
	}{
		{"verification failed", witnessTx(t, second), func() { v.reject = true }, ClassBackend},
		{"bad magic", witnessTx(t, []byte("XXXX\x01\x00")), func() { v.reject = false }, ClassParse},
		{"no witness", witnessTx(t, []byte{}), func() {}, ClassParse},
		{"truncated root", witnessTx(t, second[:len(second)-1]), func() {}, ClassParse},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.setup()
			err := g.VerifyAndUpdate(CallContext{Caller: owner, Transaction: tc.tx})
			require.Error(t, err)
			require.Equal(t, tc.class, Classify(err))

			root, err := g.GetStateRoot()
			require.NoError(t, err)
			require.Equal(t, first, root)

			variant, _, _ := g.LastVariant()
			require.Equal(t, backend.Canonical, variant)
		})
	}

	var failed *backend.VerificationFailedError
	v.reject = true
	err := g.VerifyAndUpdate(CallContext{Caller: owner, Transaction: witnessTx(t, second)})
	require.True(t, errors.As(err, &failed))
}

/* ---------- dispatch ---------- */

func TestCallDispatch(t *testing.T) {
	g, _ := newGate(t, &stubVerifier{})
	call := CallContext{Caller: owner}

	_, err := g.Call(call, []uint128.Uint128{uint128.From64(OpInitialize), uint128.From64(4)})
	require.ErrorIs(t, err, ErrMissingInputs)

	_, err = g.Call(call, []uint128.Uint128{uint128.From64(OpInitialize), bridge.Block, bridge.Tx})
	require.NoError(t, err)

	raw, want := rootPayload()
	call.Transaction = witnessTx(t, raw)
	_, err = g.Call(call, []uint128.Uint128{uint128.From64(OpVerifyAndUpdate)})
	require.NoError(t, err)

	got, err := g.Call(CallContext{Caller: stranger}, []uint128.Uint128{uint128.From64(OpGetStateRoot)})
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, err = g.Call(call, []uint128.Uint128{uint128.From64(50)})
	require.ErrorIs(t, err, ErrUnknownOpcode)
	_, err = g.Call(call, nil)
	require.ErrorIs(t, err, ErrMissingInputs)
}

func TestMetrics(t *testing.T) {
	m, err := GetPrometheusMetrics("satcity")
	require.NoError(t, err)
	require.NoError(t, m.Register(prometheus.NewRegistry()))

	g, _ := newGate(t, &stubVerifier{}, WithMetrics(m))
	require.NoError(t, g.Initialize(CallContext{Caller: owner}, bridge))
	_ = g.Initialize(CallContext{Caller: owner}, bridge)

	raw, _ := rootPayload()
	require.NoError(t, g.VerifyAndUpdate(CallContext{Caller: owner, Transaction: witnessTx(t, raw)}))

	require.Equal(t, 1.0, testutil.ToFloat64(m.updates))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("auth")))
}
