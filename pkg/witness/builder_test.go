package witness

import (
	"path/filepath"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/test"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/satcity/circuits"
	"github.com/yourorg/satcity/internal/mimc"
	"github.com/yourorg/satcity/pkg/backend"
	"github.com/yourorg/satcity/pkg/felt"
)

func TestFromFixtures(t *testing.T) {
	b, err := FromFixtures(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, backend.CanonicalWithoutPedersen, b.Variant)
	require.Len(t, b.Blueprint.In, 7)
	require.Len(t, b.Blueprint.Out, 7)
	require.False(t, b.Blueprint.Pedersen)

	// two public digests
	vec, ok := b.Public.Vector().(fr.Vector)
	require.True(t, ok)
	require.Len(t, vec, 2)
}

func TestFromFixtures_MissingFiles(t *testing.T) {
	_, err := FromFixtures("nonexistent")
	require.Error(t, err)
}

func TestBuildDigests(t *testing.T) {
	in := []felt.Felt{felt.FromUint64(0), felt.FromUint64(0), felt.FromUint64(0)}
	out := []felt.Felt{felt.FromUint64(0), felt.FromUint64(0), felt.FromUint64(0)}

	b, err := Build(backend.Canonical, in, out)
	require.NoError(t, err)
	require.True(t, b.Blueprint.Pedersen)

	want, err := mimc.Digest(in)
	require.NoError(t, err)
	require.Equal(t, want, b.Inputs.InDigest)

	pub, err := PublicWitness(b.Inputs)
	require.NoError(t, err)
	a, err := pub.MarshalBinary()
	require.NoError(t, err)
	c, err := b.Public.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, c, a)
}

func TestBuildSolves(t *testing.T) {
	in := []felt.Felt{felt.FromUint64(1), felt.FromUint64(2), felt.FromUint64(3)}
	out := []felt.Felt{felt.FromUint64(0), felt.FromUint64(5)}

	b, err := Build(backend.Canonical, in, out)
	require.NoError(t, err)

	assignment := &circuits.TransitionCircuit{
		InDigest:  b.Inputs.InDigest.String(),
		OutDigest: b.Inputs.OutDigest.String(),
		In:        mimc.Big(in),
		Out:       mimc.Big(out),
	}
	require.NoError(t, test.IsSolved(b.Blueprint, assignment, circuits.Curve().ScalarField()))
}

func TestBuildRejectsVariant(t *testing.T) {
	_, err := Build(backend.Variant(9), nil, nil)
	require.Error(t, err)
}
