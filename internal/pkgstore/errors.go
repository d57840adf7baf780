package pkgstore

import "errors"

var (
	ErrNotFound          = errors.New("package you are trying to load is not found")
	ErrAlreadyExists     = errors.New("package with this id already exists")
	ErrIllegalTransition = errors.New("status transition is not allowed by the package lifecycle")
)
