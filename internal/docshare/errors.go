package docshare

import "errors"

var (
	ErrNotFound         = errors.New("docshare: document not found")
	ErrEmployeeNotFound = errors.New("docshare: employee not found")
	ErrInvalidInput     = errors.New("docshare: invalid input")
)
