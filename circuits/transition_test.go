package circuits_test

import (
	"testing"

	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/satcity/circuits"
	"github.com/yourorg/satcity/internal/mimc"
	"github.com/yourorg/satcity/pkg/felt"
)

/* ---------------- fixtures ---------------- */

func buffers() (in, out []felt.Felt) {
	for i := uint64(0); i < 10; i++ {
		in = append(in, felt.FromUint64(i*7+1))
	}
	for i := uint64(0); i < 6; i++ {
		out = append(out, felt.FromUint64(i*3))
	}
	// an element close to the STARK modulus
	var big felt.Felt
	big.SetOne()
	big.Neg(&big)
	in = append(in, big)
	return in, out
}

func assignment(t *testing.T, in, out []felt.Felt) *circuits.TransitionCircuit {
	t.Helper()
	inD, err := mimc.Digest(in)
	require.NoError(t, err)
	outD, err := mimc.Digest(out)
	require.NoError(t, err)

	return &circuits.TransitionCircuit{
		InDigest:  inD.String(),
		OutDigest: outD.String(),
		In:        mimc.Big(in),
		Out:       mimc.Big(out),
	}
}

/* ---------------- tests ------------------- */

func TestTransitionCircuitSolved(t *testing.T) {
	in, out := buffers()
	w := assignment(t, in, out)

	for _, pedersen := range []bool{false, true} {
		blue := circuits.NewTransitionCircuit(len(in), len(out), pedersen)
		require.NoError(t, test.IsSolved(blue, w, circuits.Curve().ScalarField()))
	}
}

func TestTransitionCircuitWrongDigest(t *testing.T) {
	in, out := buffers()
	w := assignment(t, in, out)

	// bind the output of a different run
	out[0] = felt.FromUint64(999)
	w.Out = mimc.Big(out)

	blue := circuits.NewTransitionCircuit(len(in), len(out), false)
	require.Error(t, test.IsSolved(blue, w, circuits.Curve().ScalarField()))
}

func TestTransitionCircuitGroth16(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 setup")
	}
	assert := test.NewAssert(t)

	in, out := buffers()
	good := assignment(t, in, out)

	bad := assignment(t, in, out)
	bad.InDigest = 1

	var blue frontend.Circuit = circuits.NewTransitionCircuit(len(in), len(out), true)
	assert.ProverSucceeded(blue, good, test.WithCurves(circuits.Curve()), test.WithBackends(backend.GROTH16))
	assert.ProverFailed(blue, bad, test.WithCurves(circuits.Curve()), test.WithBackends(backend.GROTH16))
}
