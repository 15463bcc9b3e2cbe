// Package apperr holds the sentinel errors shared by the service layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnknownKind   = errors.New("unknown resource kind")
	ErrInvalid       = errors.New("invalid input")
	ErrLinked        = errors.New("resource is library-linked")
)
