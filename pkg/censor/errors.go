package censor

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTerm marks a banned term that can not be compiled into a useful
	// pattern (empty, or a wildcard without literal letters). Such terms are skipped.
	ErrInvalidTerm = errors.New("invalid banned term")
	ErrEmptyFill   = errors.New("fill value is empty")
	ErrInvalidFill = errors.New("fill value holds a letter, digit or reserved rune")
)

// PatternCompileError is returned when a banned term produces a pattern the
// regexp engine rejects. It is fatal for the operation that requested compilation.
type PatternCompileError struct {
	Index int
	Term  string
	Err   error
}

func (e *PatternCompileError) Error() string {
	return fmt.Sprintf("failed to compile pattern for term #%d %q: %v", e.Index, e.Term, e.Err)
}

func (e *PatternCompileError) Unwrap() error {
	return e.Err
}
