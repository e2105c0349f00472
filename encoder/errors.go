package encoder

import (
	"errors"
	"fmt"

	"wifski/models"
)

// Pass names one of the two ffmpeg invocations.
type Pass string

const (
	PassPalette Pass = "palette"
	PassEncode  Pass = "encode"
)

// kind maps a pass onto the error kind its failure is reported as.
func (p Pass) kind() error {
	if p == PassPalette {
		return models.ErrPaletteGenerationFailed
	}
	return models.ErrEncodeFailed
}

// PassError describes a failed invocation. It unwraps to the failure kind and,
// when present, the underlying start or cancellation error.
type PassError struct {
	Pass     Pass
	ExitCode int
	Stderr   string
	Err      error
}

func (e *PassError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s pass: %v", e.Pass, e.Err)
	}
	return fmt.Sprintf("%s pass: exit status %d", e.Pass, e.ExitCode)
}

func (e *PassError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Pass.kind(), e.Err}
	}
	return []error{e.Pass.kind()}
}

// StderrOf returns the captured stderr of the PassError wrapped by err.
func StderrOf(err error) string {
	var pe *PassError
	if errors.As(err, &pe) {
		return pe.Stderr
	}
	return ""
}

// ErrInvalidTransition is returned when a job is driven out of order, such
// as running an already finished job a second time.
var ErrInvalidTransition = errors.New("invalid state transition")
