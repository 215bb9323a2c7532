package metrics

import "time"

// FSMetrics observes filesystem operations at the path-resolution boundary,
// independently of which adapter issued them.
type FSMetrics interface {
	// RecordOperation records one facade call.
	//
	// Parameters:
	//   - operation: "attributes", "list", "open" or "read"
	//   - view: first path segment ("flat", "hierarchy", "category", "root")
	//   - kind: resolved resource kind (e.g., "method", "illegal")
	//   - duration: time spent, including remote queries
	//   - outcome: "ok", "not_found" or "permission_denied"
	RecordOperation(operation, view, kind string, duration time.Duration, outcome string)

	// RecordBytesRead counts file content handed to readers.
	RecordBytesRead(bytes int)
}

// NewNoopFSMetrics returns an FSMetrics that records nothing.
func NewNoopFSMetrics() FSMetrics {
	return noopFSMetrics{}
}

type noopFSMetrics struct{}

func (noopFSMetrics) RecordOperation(string, string, string, time.Duration, string) {}
func (noopFSMetrics) RecordBytesRead(int)                                          {}
