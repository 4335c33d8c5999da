package server

import (
	"errors"
	"fmt"
)

// The two caller-visible failure classes. Precondition failures are
// expected race outcomes (wrong phase, wrong caller, stale index) and
// leave session state untouched; not-found failures mean the id simply
// does not exist. Anything else is a store or journal failure.
var (
	ErrNotFound     = errors.New("not found")
	ErrPrecondition = errors.New("precondition failed")
)

func errNotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func errPreconditionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}
