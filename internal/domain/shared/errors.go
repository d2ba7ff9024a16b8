package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common errors
var (
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrInvalidDocument = errors.New("document must be a CPF or CNPJ")
)

// MissingDataError reports every required field absent from an inbound
// payload. Validation aggregates the full list before failing.
type MissingDataError struct {
	Fields []string
}

func (e MissingDataError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

func (e MissingDataError) Is(target error) bool {
	_, ok := target.(MissingDataError)
	return ok
}

// NotFoundError indicates a referenced record does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e NotFoundError) Is(target error) bool {
	t, ok := target.(NotFoundError)
	if !ok {
		return false
	}
	return t.Resource == "" || t.Resource == e.Resource
}

// InvalidStateError indicates the entity exists but its current state is
// incompatible with the requested operation. No side effect was performed.
type InvalidStateError struct {
	Entity    string
	ID        string
	State     string
	Operation string
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s is in state %s, cannot %s", e.Entity, e.ID, e.State, e.Operation)
}

func (e InvalidStateError) Is(target error) bool {
	_, ok := target.(InvalidStateError)
	return ok
}

// RequireFields collects the names of required fields whose values are
// empty and returns a MissingDataError naming all of them, or nil.
func RequireFields(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	// Deterministic order for messages and tests.
	sort.Strings(missing)
	return MissingDataError{Fields: missing}
}
