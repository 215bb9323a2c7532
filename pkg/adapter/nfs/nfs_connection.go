package nfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/internal/protocol/mount"
	"github.com/marmos91/squeakfs/internal/protocol/nfs"
	"github.com/marmos91/squeakfs/internal/protocol/rpc"
)

// connection serves the RPC records of one client connection in order.
type connection struct {
	server *NFSAdapter
	conn   net.Conn
	addr   string
}

func newConnection(server *NFSAdapter, conn net.Conn) *connection {
	return &connection{server: server, conn: conn, addr: conn.RemoteAddr().String()}
}

// Serve reads and answers requests until the client disconnects, a
// deadline passes or ctx is cancelled. A panic while handling a request
// closes the connection without taking the server down.
func (c *connection) Serve(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in connection handler from %s: %v", c.addr, r)
		}
		_ = c.conn.Close()
	}()

	logger.Debug("New connection from %s", c.addr)

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Connection from %s closed due to context cancellation", c.addr)
			return
		default:
		}

		if c.server.config.IdleTimeout > 0 {
			if err := c.conn.SetDeadline(time.Now().Add(c.server.config.IdleTimeout)); err != nil {
				logger.Warn("Failed to set deadline for %s: %v", c.addr, err)
			}
		}

		if err := c.handleRequest(ctx); err != nil {
			var netErr net.Error
			switch {
			case errors.Is(err, io.EOF):
				logger.Debug("Connection from %s closed by client", c.addr)
			case errors.As(err, &netErr) && netErr.Timeout():
				logger.Debug("Connection from %s timed out: %v", c.addr, err)
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				logger.Debug("Connection from %s cancelled: %v", c.addr, err)
			default:
				logger.Debug("Error handling request from %s: %v", c.addr, err)
			}
			return
		}
	}
}

// handleRequest reads one record and writes its reply.
func (c *connection) handleRequest(ctx context.Context) error {
	if c.server.config.ReadTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.server.config.ReadTimeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
	}

	record, err := rpc.ReadRecord(c.conn)
	if err != nil {
		if errors.Is(err, rpc.ErrRecordTooLarge) {
			logger.Warn("Dropping connection from %s: %v", c.addr, err)
		}
		return err
	}

	call, args, err := rpc.ReadCall(record)
	if err != nil {
		// Without a parsed header there is no XID to answer.
		logger.Debug("Error parsing RPC call from %s: %v", c.addr, err)
		return nil
	}

	logger.Debug("RPC Call: XID=0x%x Program=%d Version=%d Procedure=%d",
		call.XID, call.Program, call.Version, call.Procedure)

	reply, err := c.handleRPCCall(ctx, call, args)
	if err != nil {
		return err
	}
	return c.sendReply(call.XID, reply)
}

// handleRPCCall routes a call to its program and builds the framed reply.
func (c *connection) handleRPCCall(ctx context.Context, call *rpc.CallMessage, args []byte) ([]byte, error) {
	if call.RPCVersion != rpc.RPCVersion {
		logger.Debug("Unsupported RPC version %d from %s", call.RPCVersion, c.addr)
		return rpc.MakeRPCMismatchReply(call.XID)
	}

	var (
		result *callResult
		err    error
	)

	switch call.Program {
	case rpc.ProgramNFS:
		if call.Version != rpc.NFSVersion3 {
			return rpc.MakeProgMismatchReply(call.XID, rpc.NFSVersion3, rpc.NFSVersion3)
		}
		result, err = c.handleNFSProcedure(ctx, call, args)
	case rpc.ProgramMount:
		if call.Version != rpc.MountVersion3 {
			return rpc.MakeProgMismatchReply(call.XID, rpc.MountVersion3, rpc.MountVersion3)
		}
		result, err = c.handleMountProcedure(ctx, call, args)
	default:
		logger.Debug("Unknown program %d from %s", call.Program, c.addr)
		return rpc.MakeErrorReply(call.XID, rpc.RPCProgUnavail)
	}

	switch {
	case err == nil:
		return rpc.MakeSuccessReply(call.XID, result.data)
	case errors.Is(err, rpc.ErrProcUnavail):
		return rpc.MakeErrorReply(call.XID, rpc.RPCProcUnavail)
	case errors.Is(err, rpc.ErrGarbageArgs):
		logger.Debug("Garbage arguments: program=%d procedure=%d client=%s: %v",
			call.Program, call.Procedure, c.addr, err)
		return rpc.MakeErrorReply(call.XID, rpc.RPCGarbageArgs)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		logger.Error("Handler error: program=%d procedure=%d client=%s: %v",
			call.Program, call.Procedure, c.addr, err)
		return rpc.MakeErrorReply(call.XID, rpc.RPCSystemErr)
	}
}

type callResult struct {
	data []byte
}

func (c *connection) handleNFSProcedure(ctx context.Context, call *rpc.CallMessage, args []byte) (*callResult, error) {
	name := nfs.ProcedureName(call.Procedure)
	nfsCtx := &nfs.Context{Context: ctx, ClientAddr: c.addr, AuthFlavor: call.AuthFlavor()}

	c.server.metrics.RecordRequestStart(name)
	defer c.server.metrics.RecordRequestEnd(name)

	start := time.Now()
	res, err := c.server.nfsHandler.Dispatch(nfsCtx, call.Procedure, args)
	duration := time.Since(start)

	if err != nil {
		c.server.metrics.RecordRequest(name, duration, errorStatus(err))
		return nil, err
	}

	c.server.metrics.RecordRequest(name, duration, nfs.StatusString(res.Status))
	if res.BytesRead > 0 {
		c.server.metrics.RecordBytesRead(res.BytesRead)
	}
	return &callResult{data: res.Data}, nil
}

func (c *connection) handleMountProcedure(ctx context.Context, call *rpc.CallMessage, args []byte) (*callResult, error) {
	name := "MOUNT_" + mount.ProcedureName(call.Procedure)
	mountCtx := &mount.Context{Context: ctx, ClientAddr: c.addr, AuthFlavor: call.AuthFlavor()}

	if call.AuthFlavor() == rpc.AuthUnix {
		auth, err := rpc.ParseUnixAuth(call.Cred.Body)
		if err != nil {
			logger.Warn("%s: failed to parse AUTH_UNIX credentials from %s: %v", name, c.addr, err)
		} else {
			mountCtx.UnixAuth = auth
		}
	}

	c.server.metrics.RecordRequestStart(name)
	defer c.server.metrics.RecordRequestEnd(name)

	start := time.Now()
	res, err := c.server.mountHandler.Dispatch(mountCtx, call.Procedure, args)
	duration := time.Since(start)

	if err != nil {
		c.server.metrics.RecordRequest(name, duration, errorStatus(err))
		return nil, err
	}

	c.server.metrics.RecordRequest(name, duration, mountStatusString(res.Status))
	return &callResult{data: res.Data}, nil
}

func (c *connection) sendReply(xid uint32, reply []byte) error {
	if c.server.config.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.server.config.WriteTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}

	if _, err := c.conn.Write(reply); err != nil {
		return fmt.Errorf("write reply: %w", err)
	}

	logger.Debug("Sent reply for XID=0x%x (%d bytes)", xid, len(reply))
	return nil
}

// errorStatus names the RPC-level outcome of a failed dispatch for metrics.
func errorStatus(err error) string {
	switch {
	case errors.Is(err, rpc.ErrProcUnavail):
		return "PROC_UNAVAIL"
	case errors.Is(err, rpc.ErrGarbageArgs):
		return "GARBAGE_ARGS"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CANCELLED"
	default:
		return "SYSTEM_ERR"
	}
}

func mountStatusString(status uint32) string {
	switch status {
	case mount.MountOK:
		return "MNT3_OK"
	case mount.MountErrNoEnt:
		return "MNT3ERR_NOENT"
	case mount.MountErrAccess:
		return "MNT3ERR_ACCES"
	case mount.MountErrServerFault:
		return "MNT3ERR_SERVERFAULT"
	default:
		return fmt.Sprintf("MNT3ERR_%d", status)
	}
}
