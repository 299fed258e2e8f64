package service

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrValidation       = errors.New("validation failed")
	ErrPersistence      = errors.New("persistence failed")
	ErrImport           = errors.New("import failed")
	ErrStaleWrite       = errors.New("stale write")
	ErrSessionState     = errors.New("operation not allowed in current session state")
)
