package backend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yourorg/satcity/pkg/felt"
)

// ErrBackendIO wraps failures of the backend itself (setup, key loading,
// serialization) as opposed to rejections of the input.
var ErrBackendIO = errors.New("backend i/o")

// TransitionRejectedError carries the panic payload raised by the transition
// program.
type TransitionRejectedError struct {
	Panic []felt.Felt
}

func (e *TransitionRejectedError) Error() string {
	return "transition rejected: [" + e.Diagnostics() + "]"
}

// Diagnostics renders each panic element as "<decimal> ('<text>')" when its
// bytes are UTF-8 and as "<decimal>" otherwise.
func (e *TransitionRejectedError) Diagnostics() string {
	parts := make([]string, len(e.Panic))
	for i := range e.Panic {
		dec := e.Panic[i].String()
		if txt, ok := felt.ShortString(&e.Panic[i]); ok {
			parts[i] = fmt.Sprintf("%s ('%s')", dec, txt)
		} else {
			parts[i] = dec
		}
	}
	return strings.Join(parts, ", ")
}

// Rejected builds a TransitionRejectedError from short-string messages.
// Messages longer than a field element are truncated.
func Rejected(msgs ...string) *TransitionRejectedError {
	e := &TransitionRejectedError{Panic: make([]felt.Felt, 0, len(msgs))}
	for _, m := range msgs {
		if len(m) > felt.Size-1 {
			m = m[:felt.Size-1]
		}
		f, _ := felt.FromShortString(m)
		e.Panic = append(e.Panic, f)
	}
	return e
}

type VerificationFailedError struct {
	Reason string
}

func (e *VerificationFailedError) Error() string {
	return "proof verification failed: " + e.Reason
}
