package attendance

import "errors"

var (
	// ErrEmployeeNotFound indicates an unknown employee id or email.
	ErrEmployeeNotFound = errors.New("attendance: employee not found")

	// ErrInvalidInput indicates a malformed request.
	ErrInvalidInput = errors.New("attendance: invalid input")

	// ErrNoRecord indicates no attendance row for the requested day.
	ErrNoRecord = errors.New("attendance: no record")

	// ErrNoMatch indicates the face matcher recognized nobody.
	ErrNoMatch = errors.New("attendance: no face match")
)
