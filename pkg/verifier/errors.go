package verifier

import (
	"errors"

	"github.com/yourorg/satcity/pkg/backend"
	"github.com/yourorg/satcity/pkg/payload"
)

var (
	ErrNotOwner           = errors.New("caller is not the owner")
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNotInitialized     = errors.New("not initialized")
	ErrAlreadyDeployed    = errors.New("already deployed")
	ErrUnknownOpcode      = errors.New("unknown opcode")
	ErrMissingInputs      = errors.New("missing call inputs")
)

// Class groups call failures the way callers react to them.
type Class int

const (
	ClassNone Class = iota
	ClassParse
	ClassAuth
	ClassBackend
	ClassOther
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassParse:
		return "parse"
	case ClassAuth:
		return "auth"
	case ClassBackend:
		return "backend"
	default:
		return "other"
	}
}

var parseErrors = []error{
	payload.ErrPayloadTooShort,
	payload.ErrBadMagic,
	payload.ErrUnsupportedVersion,
	payload.ErrUnknownVariant,
	payload.ErrProofBytesTooShort,
	payload.ErrRootBytesTooShort,
	payload.ErrBadFelt,
	payload.ErrNoWitnessPayload,
}

// Classify reports the class of an error returned by a Gate call.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	for _, target := range parseErrors {
		if errors.Is(err, target) {
			return ClassParse
		}
	}
	if errors.Is(err, ErrNotOwner) || errors.Is(err, ErrAlreadyInitialized) || errors.Is(err, ErrNotInitialized) {
		return ClassAuth
	}

	var rejected *backend.TransitionRejectedError
	var failed *backend.VerificationFailedError
	if errors.As(err, &rejected) || errors.As(err, &failed) || errors.Is(err, backend.ErrBackendIO) {
		return ClassBackend
	}
	return ClassOther
}
