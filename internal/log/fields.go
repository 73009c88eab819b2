package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldResultID  = "result_id"
	FieldRowCount  = "row_count"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldFile      = "file"
	FieldSheetsRef = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentProcessing = "processing"
	ComponentStats      = "stats"
	ComponentCache      = "cache"
	ComponentSheets     = "sheets"
)

// Operations defines standard operation names
const (
	OpProcess     = "process"
	OpRecalculate = "recalculate"
	OpStore       = "store"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithFile adds file path field
func (f LogFields) WithFile(path string) LogFields {
	f[FieldFile] = path
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithProcessing adds processing run fields
func (f LogFields) WithProcessing(file string, rowCount int, durationMs int64) LogFields {
	f[FieldFile] = file
	f[FieldRowCount] = rowCount
	f[FieldDuration] = durationMs
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
