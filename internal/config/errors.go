package config

const (
	// Database errors
	ErrInitializeDatabaseFmt = "Failed to initialize database: %v"
	ErrOpenDatabaseFmt       = "Failed to open database: %v"

	// Auth errors
	ErrForbidden           = "Forbidden"
	ErrInternalServerError = "Internal server error"

	// Request errors
	ErrEmptyBody       = "Request body is empty"
	ErrUnparseableBody = "Request body is not valid JSON"
	ErrContentRequired = "Post content is required"
	ErrPostNotFound    = "Post not found"

	// Config errors
	ErrWriteConfigContentFmt = "Failed to write config content: %v"
)
