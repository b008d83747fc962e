package logging

const (
	// FieldComponent is the structured logging key for component names.
	FieldComponent = "component"
	// FieldLoop names the polling loop (raw or trend) emitting the record.
	FieldLoop = "loop"
	// FieldRunID is the session identifier generated per supervisor run.
	FieldRunID = "run_id"
	// FieldDocumentID is the Documents row the run records into.
	FieldDocumentID = "document_id"
	// FieldTrendID is the Trends row owned by the trend loop.
	FieldTrendID = "trend_id"
	// FieldNode is the instrument address involved in a read.
	FieldNode = "node"
	// FieldEventType classifies a record for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the operator's next step.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
)
