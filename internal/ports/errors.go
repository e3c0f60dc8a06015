package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Aggregation Errors
	ErrMalformedFill = errors.New("malformed fill")
	ErrUnsortedInput = errors.New("fills are not sorted by time")
	ErrOrphanClose   = errors.New("closing fill without an open position")
	ErrEmptyTrade    = errors.New("trade closed with zero pnl and zero fees")
	ErrSourceFailed  = errors.New("fill source failed")
	ErrInvalidWallet = errors.New("wallet id is required")

	// Database Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
	ErrUpdateFailed = errors.New("database update failed")
)
