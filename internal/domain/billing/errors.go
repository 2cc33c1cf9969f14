package billing

import "fmt"

type Kind string

const (
	KindEncounterNotFound  Kind = "encounter_not_found"
	KindFeeTableEmpty      Kind = "fee_table_empty"
	KindPersistenceFailure Kind = "persistence_failure"
	KindNotFound           Kind = "not_found"
)

// Error is a structural failure of a billing operation.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so callers can compare against the
// sentinel values below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrEncounterNotFound  = &Error{Kind: KindEncounterNotFound}
	ErrFeeTableEmpty      = &Error{Kind: KindFeeTableEmpty}
	ErrPersistenceFailure = &Error{Kind: KindPersistenceFailure}
	ErrNotFound           = &Error{Kind: KindNotFound}
)

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}
