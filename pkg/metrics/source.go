package metrics

import "time"

// SourceMetrics observes the queries sent to the Smalltalk image.
type SourceMetrics interface {
	// RecordQuery records one completed query.
	//
	// Parameters:
	//   - selector: wire selector (e.g., "getClassComment:")
	//   - duration: time spent including reconnect attempts
	//   - outcome: "ok", "remote", "transport", "protocol", ...
	RecordQuery(selector string, duration time.Duration, outcome string)

	// RecordReconnect counts a dropped connection being re-dialed.
	RecordReconnect()

	// SetConnected reports whether a connection to the image is open.
	SetConnected(connected bool)
}

// NewNoopSourceMetrics returns a SourceMetrics that records nothing.
func NewNoopSourceMetrics() SourceMetrics {
	return noopSourceMetrics{}
}

type noopSourceMetrics struct{}

func (noopSourceMetrics) RecordQuery(string, time.Duration, string) {}
func (noopSourceMetrics) RecordReconnect()                          {}
func (noopSourceMetrics) SetConnected(bool)                         {}
