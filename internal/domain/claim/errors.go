package claim

import "fmt"

type Kind string

const (
	KindNoPaidRows         Kind = "no_paid_rows"
	KindQueryFailure       Kind = "query_failure"
	KindInvalidMonth       Kind = "invalid_month"
	KindInvalidFormat      Kind = "invalid_format"
	KindPersistenceFailure Kind = "persistence_failure"
)

// Error is a structural failure of claim file generation.
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

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNoPaidRows         = &Error{Kind: KindNoPaidRows}
	ErrQueryFailure       = &Error{Kind: KindQueryFailure}
	ErrInvalidMonth       = &Error{Kind: KindInvalidMonth}
	ErrInvalidFormat      = &Error{Kind: KindInvalidFormat}
	ErrPersistenceFailure = &Error{Kind: KindPersistenceFailure}
)

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}
