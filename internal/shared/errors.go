package shared

import "fmt"

var (
	ErrNotSupported = fmt.Errorf("not supported")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Access errors
	ErrAccessDenied   = fmt.Errorf("access denied")
	ErrInvalidCode    = fmt.Errorf("invalid access code")
	ErrNotOwner       = fmt.Errorf("submission belongs to another member")
	ErrInvalidSession = fmt.Errorf("invalid session token")

	// Catalog errors
	ErrAuthConfig    = fmt.Errorf("catalog credentials are not configured")
	ErrTokenExchange = fmt.Errorf("catalog token exchange failed")
	ErrSearch        = fmt.Errorf("catalog search failed")

	// Persistence errors
	ErrConflict    = fmt.Errorf("submission already exists for this period")
	ErrPersistence = fmt.Errorf("persistence failure")
	ErrFetch       = fmt.Errorf("fetch failure")
	ErrNotFound    = fmt.Errorf("record not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
