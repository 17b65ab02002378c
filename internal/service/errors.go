package service

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrMalformedBatch   = errors.New("malformed batch request")
	ErrStorageDisabled  = errors.New("artifact storage is not configured")
)
