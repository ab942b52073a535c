package domain

import "time"

// Fields holds the content of a stored document.
// Supported values: nil, string, bool, int, int64, float64, time.Time and ServerTimestamp.
type Fields map[string]any

// Document is an immutable entry of a store collection.
type Document struct {
	ID     string
	Fields Fields
}

// ServerTimestampValue is the type of the ServerTimestamp sentinel.
type ServerTimestampValue struct{}

// ServerTimestamp is replaced by the store clock when a document is written.
var ServerTimestamp = ServerTimestampValue{}

// Time returns the timestamp held by field, if any.
func (d Document) Time(field string) (time.Time, bool) {
	t, ok := d.Fields[field].(time.Time)
	return t, ok
}

// String returns the string held by field, if any.
func (d Document) String(field string) (string, bool) {
	s, ok := d.Fields[field].(string)
	return s, ok
}
