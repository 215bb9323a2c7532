package rpc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	xdr "github.com/rasky/go-xdr/xdr2"

	nfsxdr "github.com/marmos91/squeakfs/internal/protocol/xdr"
)

// ErrRecordTooLarge is returned by ReadRecord when a record exceeds
// MaxRecordSize.
var ErrRecordTooLarge = errors.New("rpc: record too large")

const (
	maxAuthBody    = 400
	maxMachineName = 255
	maxGIDs        = 16
)

// ReadRecord reads one record from r, joining its fragments.
func ReadRecord(r io.Reader) ([]byte, error) {
	var record []byte
	var header [4]byte

	for {
		if _, err := io.ReadFull(r, header[:]); err != nil {
			return nil, err
		}
		h := binary.BigEndian.Uint32(header[:])
		last := h&LastFragment != 0
		size := h &^ LastFragment

		if uint64(len(record))+uint64(size) > MaxRecordSize {
			return nil, fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, uint64(len(record))+uint64(size))
		}

		start := len(record)
		record = append(record, make([]byte, size)...)
		if _, err := io.ReadFull(r, record[start:]); err != nil {
			return nil, fmt.Errorf("read fragment: %w", err)
		}
		if last {
			return record, nil
		}
	}
}

// frame prepends a last-fragment header to a reply body.
func frame(body []byte) []byte {
	out := make([]byte, 4, 4+len(body))
	binary.BigEndian.PutUint32(out, LastFragment|uint32(len(body)))
	return append(out, body...)
}

// ReadCall decodes the call header at the start of record and returns it
// with the procedure arguments that follow.
func ReadCall(record []byte) (*CallMessage, []byte, error) {
	if err := checkAuthLengths(record); err != nil {
		return nil, nil, err
	}

	call := &CallMessage{}

	n, err := xdr.Unmarshal(bytes.NewReader(record), call)
	if err != nil {
		return nil, nil, fmt.Errorf("unmarshal RPC call: %w", err)
	}
	if call.MsgType != RPCCall {
		return nil, nil, fmt.Errorf("expected CALL (0), got %d", call.MsgType)
	}
	if n > len(record) {
		n = len(record)
	}

	return call, record[n:], nil
}

// checkAuthLengths bounds the credential and verifier lengths before the
// header is unmarshalled.
func checkAuthLengths(record []byte) error {
	offset := 24
	for _, what := range []string{"credential", "verifier"} {
		if len(record) < offset+8 {
			return fmt.Errorf("truncated %s", what)
		}
		n := binary.BigEndian.Uint32(record[offset+4:])
		if n > maxAuthBody {
			return fmt.Errorf("%s body of %d bytes exceeds %d", what, n, maxAuthBody)
		}
		offset += 8 + int(n+nfsxdr.Padding(n))
	}
	return nil
}

// ParseUnixAuth decodes an AUTH_UNIX credential body.
func ParseUnixAuth(body []byte) (*UnixAuth, error) {
	r := nfsxdr.NewReader(body)
	auth := &UnixAuth{}
	var err error

	if auth.Stamp, err = r.Uint32(); err != nil {
		return nil, fmt.Errorf("read stamp: %w", err)
	}
	if auth.MachineName, err = r.String(maxMachineName); err != nil {
		return nil, fmt.Errorf("read machine name: %w", err)
	}
	if auth.UID, err = r.Uint32(); err != nil {
		return nil, fmt.Errorf("read uid: %w", err)
	}
	if auth.GID, err = r.Uint32(); err != nil {
		return nil, fmt.Errorf("read gid: %w", err)
	}

	count, err := r.Uint32()
	if err != nil {
		return nil, fmt.Errorf("read gid count: %w", err)
	}
	if count > maxGIDs {
		return nil, fmt.Errorf("too many gids: %d", count)
	}
	auth.GIDs = make([]uint32, count)
	for i := range auth.GIDs {
		if auth.GIDs[i], err = r.Uint32(); err != nil {
			return nil, fmt.Errorf("read gid %d: %w", i, err)
		}
	}

	return auth, nil
}

func accepted(xid, stat uint32) acceptedReply {
	return acceptedReply{
		XID:        xid,
		MsgType:    RPCReply,
		ReplyState: RPCMsgAccepted,
		Verf:       OpaqueAuth{Flavor: AuthNull, Body: []byte{}},
		Stat:       stat,
	}
}

// MakeSuccessReply frames a successful reply carrying the encoded
// procedure results.
func MakeSuccessReply(xid uint32, results []byte) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 24+len(results)))

	reply := accepted(xid, RPCSuccess)
	if _, err := xdr.Marshal(buf, &reply); err != nil {
		return nil, fmt.Errorf("marshal reply: %w", err)
	}
	buf.Write(results)

	return frame(buf.Bytes()), nil
}

// MakeErrorReply frames an accepted reply with a non-success status such
// as RPCProgUnavail, RPCProcUnavail, RPCGarbageArgs or RPCSystemErr.
func MakeErrorReply(xid uint32, stat uint32) ([]byte, error) {
	var buf bytes.Buffer

	reply := accepted(xid, stat)
	if _, err := xdr.Marshal(&buf, &reply); err != nil {
		return nil, fmt.Errorf("marshal error reply: %w", err)
	}

	return frame(buf.Bytes()), nil
}

// MakeProgMismatchReply frames a PROG_MISMATCH reply naming the supported
// version range.
func MakeProgMismatchReply(xid, low, high uint32) ([]byte, error) {
	var buf bytes.Buffer

	reply := accepted(xid, RPCProgMismatch)
	if _, err := xdr.Marshal(&buf, &reply); err != nil {
		return nil, fmt.Errorf("marshal mismatch reply: %w", err)
	}
	if _, err := xdr.Marshal(&buf, &mismatchInfo{Low: low, High: high}); err != nil {
		return nil, fmt.Errorf("marshal mismatch info: %w", err)
	}

	return frame(buf.Bytes()), nil
}

// MakeRPCMismatchReply frames a denied reply for a call using an RPC
// version other than RPCVersion.
func MakeRPCMismatchReply(xid uint32) ([]byte, error) {
	var buf bytes.Buffer

	reply := deniedReply{
		XID:        xid,
		MsgType:    RPCReply,
		ReplyState: RPCMsgDenied,
		RejectStat: RPCMismatch,
		Low:        RPCVersion,
		High:       RPCVersion,
	}
	if _, err := xdr.Marshal(&buf, &reply); err != nil {
		return nil, fmt.Errorf("marshal denied reply: %w", err)
	}

	return frame(buf.Bytes()), nil
}
