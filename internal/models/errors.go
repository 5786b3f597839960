package models

import (
	"errors"
	"fmt"
)

// Failure categories surfaced by the pipeline stages. Callers match them with
// errors.Is; the underlying cause stays reachable through the wrap chain.
var (
	ErrIO            = errors.New("io error")
	ErrParse         = errors.New("parse error")
	ErrInvalidConfig = errors.New("invalid config")
	ErrEmbedding     = errors.New("embedding error")
	ErrEmptyIndex    = errors.New("empty index")
	ErrExternalCall  = errors.New("external call error")
)

// StageError records which pipeline stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ParseFailure reports that a model answer was not a JSON object. It is a value,
// not a fatal error: Text holds the answer exactly as received.
type ParseFailure struct {
	Text   string
	Reason string
}

func (f *ParseFailure) Error() string {
	return "answer is not a JSON object: " + f.Reason
}
