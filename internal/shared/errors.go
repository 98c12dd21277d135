package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed = fmt.Errorf("authentication failed")
	ErrTimeout    = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Pipeline errors (fatal: the run aborts without persisting)
	ErrNoSnapshotData    = fmt.Errorf("no snapshot data")
	ErrNoWeeklyData      = fmt.Errorf("no weekly data")
	ErrNoIdentityMapping = fmt.Errorf("no identity mapping")
	ErrNoRecords         = fmt.Errorf("no records to upsert")
	ErrNoTracks          = fmt.Errorf("no tracks resolved")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidDate     = fmt.Errorf("invalid date")

	// Storage errors
	ErrNotFound = fmt.Errorf("record not found")
)
