package metrics

import "time"

// NFSMetrics provides observability for NFS adapter operations.
//
// This interface is optional - if not provided to the NFS adapter, a no-op
// implementation is used.
//
// Example usage:
//
//	// With metrics enabled
//	adapter := nfs.New(config, prometheus.NewNFSMetrics())
//
//	// Without metrics (no-op)
//	adapter := nfs.New(config, nil)
type NFSMetrics interface {
	// RecordRequest records a completed request.
	//
	// Parameters:
	//   - procedure: procedure name (e.g., "LOOKUP", "READ", "MNT")
	//   - duration: time taken to process the request
	//   - status: protocol status name ("NFS3_OK", "NFS3ERR_NOENT", ...)
	RecordRequest(procedure string, duration time.Duration, status string)

	// RecordRequestStart increments the in-flight request counter.
	RecordRequestStart(procedure string)

	// RecordRequestEnd decrements the in-flight request counter.
	RecordRequestEnd(procedure string)

	// RecordBytesRead records bytes returned by READ.
	RecordBytesRead(bytes int)

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	RecordConnectionAccepted()
	RecordConnectionClosed()
	RecordConnectionForceClosed()
}

// NewNoopNFSMetrics returns an NFSMetrics that records nothing.
func NewNoopNFSMetrics() NFSMetrics {
	return noopNFSMetrics{}
}

type noopNFSMetrics struct{}

func (noopNFSMetrics) RecordRequest(string, time.Duration, string) {}
func (noopNFSMetrics) RecordRequestStart(string)                   {}
func (noopNFSMetrics) RecordRequestEnd(string)                     {}
func (noopNFSMetrics) RecordBytesRead(int)                         {}
func (noopNFSMetrics) SetActiveConnections(int32)                  {}
func (noopNFSMetrics) RecordConnectionAccepted()                   {}
func (noopNFSMetrics) RecordConnectionClosed()                     {}
func (noopNFSMetrics) RecordConnectionForceClosed()                {}
