package identity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidKey is returned when the secret is empty or whitespace.
	ErrInvalidKey = errors.New("invalid key: secret must not be empty")

	// ErrInvalidIdentifier matches every *InvalidIdentifierError.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrAliasCycle matches every *AliasCycleError.
	ErrAliasCycle = errors.New("alias cycle")
)

// InvalidIdentifierError reports a SourceID that failed validation.
type InvalidIdentifierError struct {
	Value  string
	Reason string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %q: %s", e.Value, e.Reason)
}

func (e *InvalidIdentifierError) Is(target error) bool {
	return target == ErrInvalidIdentifier
}

// AliasCycleError carries the alias chain that loops back on itself.
// The last element of Chain repeats an earlier one.
type AliasCycleError struct {
	Chain []SourceID
}

func (e *AliasCycleError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, id := range e.Chain {
		parts[i] = string(id)
	}
	return fmt.Sprintf("alias cycle: %s", strings.Join(parts, " -> "))
}

func (e *AliasCycleError) Is(target error) bool {
	return target == ErrAliasCycle
}
