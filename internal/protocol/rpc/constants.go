package rpc

// RPC Program Numbers
const (
	// ProgramNFS is the NFS program number (RFC 1813)
	ProgramNFS = 100003

	// ProgramMount is the Mount protocol program number (RFC 1813 Appendix I)
	ProgramMount = 100005
)

// Program versions served.
const (
	NFSVersion3   = 3
	MountVersion3 = 3
)

// RPCVersion is the only ONC RPC version accepted (RFC 5531).
const RPCVersion = 2

// RPC Message Types
const (
	RPCCall  = 0
	RPCReply = 1
)

// RPC Reply States
const (
	RPCMsgAccepted = 0
	RPCMsgDenied   = 1
)

// RPC Accept Status
const (
	RPCSuccess      = 0
	RPCProgUnavail  = 1
	RPCProgMismatch = 2
	RPCProcUnavail  = 3
	RPCGarbageArgs  = 4
	RPCSystemErr    = 5
)

// RPC Reject Status
const (
	RPCMismatch = 0
	RPCAuthErr  = 1
)

// Authentication flavors
const (
	AuthNull = 0
	AuthUnix = 1
)

// Record marking (RFC 5531 Section 11).
const (
	// LastFragment is set in the header of the final fragment of a record.
	LastFragment = 0x80000000

	// MaxRecordSize bounds a reassembled record.
	MaxRecordSize = 1 << 20
)
