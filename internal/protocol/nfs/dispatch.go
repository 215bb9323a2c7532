package nfs

import (
	"fmt"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/internal/protocol/rpc"
)

// response is implemented by every procedure result.
type response interface {
	Encode() ([]byte, error)
	GetStatus() uint32
}

// Result is the outcome of a dispatched call.
type Result struct {
	Data   []byte
	Status uint32

	// BytesRead counts the file bytes a READ returned.
	BytesRead int
}

type procedureHandler func(h *Handler, ctx *Context, data []byte) (*Result, error)

type procedureInfo struct {
	Name    string
	Handler procedureHandler
}

var dispatchTable = map[uint32]*procedureInfo{
	NFSProcNull:        {"NULL", handleNull},
	NFSProcGetAttr:     {"GETATTR", handleGetAttr},
	NFSProcSetAttr:     {"SETATTR", readOnly(wccOnly)},
	NFSProcLookup:      {"LOOKUP", handleLookup},
	NFSProcAccess:      {"ACCESS", handleAccess},
	NFSProcReadLink:    {"READLINK", handleReadLink},
	NFSProcRead:        {"READ", handleRead},
	NFSProcWrite:       {"WRITE", readOnly(wccOnly)},
	NFSProcCreate:      {"CREATE", readOnly(wccOnly)},
	NFSProcMkdir:       {"MKDIR", readOnly(wccOnly)},
	NFSProcSymlink:     {"SYMLINK", readOnly(wccOnly)},
	NFSProcMknod:       {"MKNOD", readOnly(wccOnly)},
	NFSProcRemove:      {"REMOVE", readOnly(wccOnly)},
	NFSProcRmdir:       {"RMDIR", readOnly(wccOnly)},
	NFSProcRename:      {"RENAME", readOnly(twoWcc)},
	NFSProcLink:        {"LINK", readOnly(attrAndWcc)},
	NFSProcReadDir:     {"READDIR", handleReadDir},
	NFSProcReadDirPlus: {"READDIRPLUS", handleReadDirPlus},
	NFSProcFsStat:      {"FSSTAT", handleFsStat},
	NFSProcFsInfo:      {"FSINFO", handleFsInfo},
	NFSProcPathConf:    {"PATHCONF", handlePathConf},
	NFSProcCommit:      {"COMMIT", readOnly(wccOnly)},
}

// ProcedureName returns the name of an NFS procedure number.
func ProcedureName(procedure uint32) string {
	if info, ok := dispatchTable[procedure]; ok {
		return info.Name
	}
	return fmt.Sprintf("UNKNOWN_%d", procedure)
}

// Dispatch runs procedure with its XDR-encoded arguments and returns the
// XDR-encoded results. Unknown procedures yield rpc.ErrProcUnavail and
// undecodable arguments rpc.ErrGarbageArgs.
func (h *Handler) Dispatch(ctx *Context, procedure uint32, data []byte) (*Result, error) {
	info, ok := dispatchTable[procedure]
	if !ok {
		logger.Debug("NFS: unknown procedure %d client=%s", procedure, ctx.ClientAddr)
		return nil, rpc.ErrProcUnavail
	}
	return info.Handler(h, ctx, data)
}

// handleRequest decodes, runs and encodes one procedure call.
func handleRequest[Req any, Resp response](
	data []byte,
	decode func([]byte) (Req, error),
	handle func(Req) (Resp, error),
) (*Result, error) {
	req, err := decode(data)
	if err != nil {
		logger.Debug("Error decoding request: %v", err)
		return nil, fmt.Errorf("%w: %v", rpc.ErrGarbageArgs, err)
	}

	resp, err := handle(req)
	if err != nil {
		return nil, err
	}

	encoded, err := resp.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}

	result := &Result{Data: encoded, Status: resp.GetStatus()}
	if r, ok := any(resp).(interface{ bytesRead() int }); ok {
		result.BytesRead = r.bytesRead()
	}
	return result, nil
}

func handleNull(h *Handler, ctx *Context, data []byte) (*Result, error) {
	return &Result{Data: []byte{}, Status: NFS3OK}, nil
}

func handleGetAttr(h *Handler, ctx *Context, data []byte) (*Result, error) {
	return handleRequest(data, DecodeGetAttrRequest, func(req *GetAttrRequest) (*GetAttrResponse, error) {
		return h.GetAttr(ctx, req)
	})
}

func handleLookup(h *Handler, ctx *Context, data []byte) (*Result, error) {
	return handleRequest(data, DecodeLookupRequest, func(req *LookupRequest) (*LookupResponse, error) {
		return h.Lookup(ctx, req)
	})
}

func handleAccess(h *Handler, ctx *Context, data []byte) (*Result, error) {
	return handleRequest(data, DecodeAccessRequest, func(req *AccessRequest) (*AccessResponse, error) {
		return h.Access(ctx, req)
	})
}

func handleReadLink(h *Handler, ctx *Context, data []byte) (*Result, error) {
	return handleRequest(data, DecodeReadLinkRequest, func(req *ReadLinkRequest) (*ReadLinkResponse, error) {
		return h.ReadLink(ctx, req)
	})
}

func handleRead(h *Handler, ctx *Context, data []byte) (*Result, error) {
	return handleRequest(data, DecodeReadRequest, func(req *ReadRequest) (*ReadResponse, error) {
		return h.Read(ctx, req)
	})
}

func handleReadDir(h *Handler, ctx *Context, data []byte) (*Result, error) {
	return handleRequest(data, DecodeReadDirRequest, func(req *ReadDirRequest) (*ReadDirResponse, error) {
		return h.ReadDir(ctx, req)
	})
}

func handleReadDirPlus(h *Handler, ctx *Context, data []byte) (*Result, error) {
	return handleRequest(data, DecodeReadDirPlusRequest, func(req *ReadDirPlusRequest) (*ReadDirPlusResponse, error) {
		return h.ReadDirPlus(ctx, req)
	})
}

func handleFsStat(h *Handler, ctx *Context, data []byte) (*Result, error) {
	return handleRequest(data, DecodeFsRequest, func(req *FsRequest) (*FsStatResponse, error) {
		return h.FsStat(ctx, req)
	})
}

func handleFsInfo(h *Handler, ctx *Context, data []byte) (*Result, error) {
	return handleRequest(data, DecodeFsRequest, func(req *FsRequest) (*FsInfoResponse, error) {
		return h.FsInfo(ctx, req)
	})
}

func handlePathConf(h *Handler, ctx *Context, data []byte) (*Result, error) {
	return handleRequest(data, DecodeFsRequest, func(req *FsRequest) (*PathConfResponse, error) {
		return h.PathConf(ctx, req)
	})
}
