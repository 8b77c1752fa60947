package activity

import "errors"

var (
	ErrInvalidInput     = errors.New("activity: invalid input")
	ErrEmployeeNotFound = errors.New("activity: employee not found")
)
