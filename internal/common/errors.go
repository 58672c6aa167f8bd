package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound         = errors.New("not found")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrPreconditionFailed = errors.New("precondition failed")
)
