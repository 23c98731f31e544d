package logger

// Standard field names for consistent structured logging across ordermon.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldOrderID     = "order_id"
	FieldOrderNumber = "order_number"
	FieldCycleID     = "cycle_id"

	// Components
	FieldComponent = "component"
	FieldArtifact  = "artifact"

	// Operations
	FieldOperation = "operation"
	FieldPath      = "path"
	FieldURL       = "url"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors and outcomes
	FieldError   = "error"
	FieldOutcome = "outcome"
	FieldReason  = "reason"

	// Counts
	FieldCount   = "count"
	FieldPage    = "page"
	FieldAttempt = "attempt"
)
