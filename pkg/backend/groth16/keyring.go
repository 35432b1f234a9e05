package groth16

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/rs/zerolog"

	"github.com/yourorg/satcity/circuits"
	"github.com/yourorg/satcity/pkg/backend"
)

// Shape identifies one compiled instance of the transition circuit.
type Shape struct {
	Variant backend.Variant
	InLen   int
	OutLen  int
}

func (s Shape) String() string {
	return fmt.Sprintf("%s_%d_%d", s.Variant, s.InLen, s.OutLen)
}

// ErrUnknownShape is returned when no verifying key exists for a shape.
var ErrUnknownShape = errors.New("no verifying key for shape")

type setup struct {
	cs constraint.ConstraintSystem
	pk groth16.ProvingKey
	vk groth16.VerifyingKey
}

// Keyring compiles the transition circuit per shape and keeps its keys.
// With a directory set, keys are read from and written to
// <dir>/<shape>_pk.bin and <dir>/<shape>_vk.bin.
type Keyring struct {
	mu     sync.Mutex
	dir    string
	setups map[Shape]*setup
	vks    map[Shape]groth16.VerifyingKey
	logger zerolog.Logger
}

func NewKeyring(dir string, logger zerolog.Logger) *Keyring {
	return &Keyring{
		dir:    dir,
		setups: make(map[Shape]*setup),
		vks:    make(map[Shape]groth16.VerifyingKey),
		logger: logger,
	}
}

func (k *Keyring) get(s Shape) (*setup, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if st, ok := k.setups[s]; ok {
		return st, nil
	}

	blueprint := circuits.NewTransitionCircuit(s.InLen, s.OutLen, s.Variant == backend.Canonical)
	cs, err := frontend.Compile(circuits.Curve().ScalarField(), r1cs.NewBuilder, blueprint)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", s, err)
	}

	st := &setup{cs: cs}
	loaded, err := k.load(s, st)
	if err != nil {
		return nil, err
	}
	if !loaded {
		k.logger.Info().Stringer("shape", s).Int("constraints", cs.GetNbConstraints()).Msg("running groth16 setup")
		if st.pk, st.vk, err = groth16.Setup(cs); err != nil {
			return nil, fmt.Errorf("setup %s: %w", s, err)
		}
		if err := k.store(s, st); err != nil {
			return nil, err
		}
	}

	k.setups[s] = st
	return st, nil
}

// VerifyingKey returns the verifying key for s from memory or from
// <dir>/<shape>_vk.bin. It never compiles or runs setup: a shape no prover
// has produced keys for is ErrUnknownShape.
func (k *Keyring) VerifyingKey(s Shape) (groth16.VerifyingKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if st, ok := k.setups[s]; ok {
		return st.vk, nil
	}
	if vk, ok := k.vks[s]; ok {
		return vk, nil
	}
	if k.dir == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownShape, s)
	}

	_, vkPath := k.paths(s)
	raw, err := os.ReadFile(vkPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownShape, s)
	}
	if err != nil {
		return nil, err
	}
	vk := groth16.NewVerifyingKey(circuits.Curve())
	if _, err := vk.ReadFrom(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("read %s: %w", vkPath, err)
	}
	k.vks[s] = vk
	return vk, nil
}

func (k *Keyring) paths(s Shape) (pkPath, vkPath string) {
	return filepath.Join(k.dir, s.String()+"_pk.bin"), filepath.Join(k.dir, s.String()+"_vk.bin")
}

func (k *Keyring) load(s Shape, st *setup) (bool, error) {
	if k.dir == "" {
		return false, nil
	}
	pkPath, vkPath := k.paths(s)

	pkBytes, err := os.ReadFile(pkPath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	vkBytes, err := os.ReadFile(vkPath)
	if err != nil {
		return false, err
	}

	st.pk = groth16.NewProvingKey(circuits.Curve())
	if _, err := st.pk.ReadFrom(bytes.NewReader(pkBytes)); err != nil {
		return false, fmt.Errorf("read %s: %w", pkPath, err)
	}
	st.vk = groth16.NewVerifyingKey(circuits.Curve())
	if _, err := st.vk.ReadFrom(bytes.NewReader(vkBytes)); err != nil {
		return false, fmt.Errorf("read %s: %w", vkPath, err)
	}
	k.logger.Debug().Stringer("shape", s).Msg("loaded cached keys")
	return true, nil
}

func (k *Keyring) store(s Shape, st *setup) error {
	if k.dir == "" {
		return nil
	}
	if err := os.MkdirAll(k.dir, 0o755); err != nil {
		return err
	}
	pkPath, vkPath := k.paths(s)

	var b bytes.Buffer
	if _, err := st.pk.WriteTo(&b); err != nil {
		return err
	}
	if err := os.WriteFile(pkPath, b.Bytes(), 0o644); err != nil {
		return err
	}
	b.Reset()
	if _, err := st.vk.WriteTo(&b); err != nil {
		return err
	}
	return os.WriteFile(vkPath, b.Bytes(), 0o644)
}
