package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Remote service errors. Every failure surfaced by the story service
	// client wraps exactly one of these.
	ErrAuth       = fmt.Errorf("authentication failed")
	ErrValidation = fmt.Errorf("validation failed")
	ErrNetwork    = fmt.Errorf("network request failed")

	// Session and synchronization errors
	ErrBusy             = fmt.Errorf("operation already in flight")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrStaleSession     = fmt.Errorf("session changed before response arrived")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
