package rpc

// CallMessage is the header of an RPC call. The procedure arguments follow
// it in the record; see ReadCall.
type CallMessage struct {
	XID        uint32
	MsgType    uint32
	RPCVersion uint32
	Program    uint32
	Version    uint32
	Procedure  uint32
	Cred       OpaqueAuth
	Verf       OpaqueAuth
}

// OpaqueAuth is an authentication credential or verifier.
type OpaqueAuth struct {
	Flavor uint32
	Body   []byte `xdr:"opaque"`
}

// acceptedReply is the header of an accepted reply. The procedure results
// follow it when Stat is RPCSuccess.
type acceptedReply struct {
	XID        uint32
	MsgType    uint32
	ReplyState uint32
	Verf       OpaqueAuth
	Stat       uint32
}

// mismatchInfo follows an accepted reply with Stat RPCProgMismatch.
type mismatchInfo struct {
	Low  uint32
	High uint32
}

// deniedReply answers a call with an unsupported RPC version.
type deniedReply struct {
	XID        uint32
	MsgType    uint32
	ReplyState uint32
	RejectStat uint32
	Low        uint32
	High       uint32
}

// AuthFlavor returns the flavor of the call's credential.
func (c *CallMessage) AuthFlavor() uint32 {
	return c.Cred.Flavor
}

// UnixAuth is an AUTH_UNIX credential body (RFC 5531 Appendix A).
type UnixAuth struct {
	Stamp       uint32
	MachineName string
	UID         uint32
	GID         uint32
	GIDs        []uint32
}
