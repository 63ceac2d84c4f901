package session

import (
	"errors"
	"fmt"
)

var (
	// ErrConsistency marks a catalog/session desync. It ends the session.
	ErrConsistency = errors.New("session: inconsistent state")

	ErrUnknownItem    = fmt.Errorf("%w: unknown item", ErrConsistency)
	ErrPuzzleMismatch = fmt.Errorf("%w: puzzle changed", ErrConsistency)
	ErrSeedMismatch   = fmt.Errorf("%w: seed changed", ErrConsistency)
)
