package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("filing not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")

	// Per-stage terminal failures. The input document itself is the
	// obstacle, so none of these are retried automatically.
	ErrParseFailure          = errors.New("document unreadable")
	ErrClassificationFailure = errors.New("classification failed")
	ErrExtractionFailure     = errors.New("extraction failed")
	ErrPersistenceFailure    = errors.New("persistence failed")
	ErrIOFailure             = errors.New("local io failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
