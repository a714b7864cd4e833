package logger

// Standard field names for structured logging across ldx.
const (
	FieldComponent  = "component"
	FieldCommandID  = "command_id"
	FieldCommand    = "command"
	FieldClientID   = "client_id"
	FieldStrategy   = "strategy"
	FieldSource     = "source"
	FieldDurationMS = "duration_ms"
	FieldError      = "error"
	FieldAddress    = "address"
	FieldSubject    = "subject"
)
