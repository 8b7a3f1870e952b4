package book

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when a user-supplied rating or genre does not
// parse. It is never returned for unknown ids; those are silent no-ops
// because the shell only hands out ids from freshly read lists.
var ErrInvalidInput = errors.New("invalid input")

// StoreError wraps any failure talking to the relational store. It is
// raised only by load and flush; in-memory operations never produce it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
