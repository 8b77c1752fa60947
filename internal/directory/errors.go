package directory

import "errors"

var (
	ErrNotFound     = errors.New("directory: employee not found")
	ErrEmailTaken   = errors.New("directory: email already registered")
	ErrInvalidInput = errors.New("directory: invalid input")

	// ErrCredentialProvision reports that the employee row was written but the
	// linked users login row could not be created or updated. The employee
	// creation stands; callers must surface the partial failure.
	ErrCredentialProvision = errors.New("directory: login credential provisioning failed")
)
