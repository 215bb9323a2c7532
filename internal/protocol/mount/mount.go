package mount

import (
	"fmt"
	"time"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/internal/protocol/rpc"
	"github.com/marmos91/squeakfs/internal/protocol/xdr"
)

// MountRequest represents a MNT request.
type MountRequest struct {
	DirPath string
}

// MountResponse represents a MNT response.
type MountResponse struct {
	Status      uint32
	FileHandle  []byte
	AuthFlavors []uint32
}

// Mount returns the root handle when the export is asked for.
func (h *Handler) Mount(ctx *Context, req *MountRequest) (*MountResponse, error) {
	client := clientIP(ctx.ClientAddr)

	if ctx.UnixAuth != nil {
		logger.Info("Mount request: path=%s client=%s auth=UNIX uid=%d gid=%d machine=%s",
			req.DirPath, client, ctx.UnixAuth.UID, ctx.UnixAuth.GID, ctx.UnixAuth.MachineName)
	} else {
		logger.Info("Mount request: path=%s client=%s auth=%d", req.DirPath, client, ctx.AuthFlavor)
	}

	if req.DirPath != ExportPath {
		logger.Warn("Mount denied: path=%s client=%s reason=not exported", req.DirPath, client)
		return &MountResponse{Status: MountErrNoEnt}, nil
	}

	handle, err := h.handles.Handle(ctx.Context, ExportPath)
	if err != nil {
		if ctx.Context.Err() != nil {
			return nil, ctx.Context.Err()
		}
		logger.Error("Mount failed: path=%s client=%s error=%v", req.DirPath, client, err)
		return &MountResponse{Status: MountErrServerFault}, nil
	}

	h.mu.Lock()
	h.mounts[client] = Entry{Client: client, Directory: req.DirPath, Since: time.Now()}
	h.mu.Unlock()

	logger.Info("Mount successful: path=%s client=%s", req.DirPath, client)

	return &MountResponse{
		Status:      MountOK,
		FileHandle:  handle,
		AuthFlavors: []uint32{rpc.AuthNull, rpc.AuthUnix},
	}, nil
}

func DecodeMountRequest(data []byte) (*MountRequest, error) {
	path, err := xdr.NewReader(data).String(MaxPathLen)
	if err != nil {
		return nil, fmt.Errorf("read dirpath: %w", err)
	}
	return &MountRequest{DirPath: path}, nil
}

func (resp *MountResponse) Encode() ([]byte, error) {
	w := xdr.NewWriter()
	w.Uint32(resp.Status)
	if resp.Status != MountOK {
		return w.Bytes(), nil
	}

	w.Opaque(resp.FileHandle)
	w.Uint32(uint32(len(resp.AuthFlavors)))
	for _, flavor := range resp.AuthFlavors {
		w.Uint32(flavor)
	}
	return w.Bytes(), nil
}

func handleMnt(h *Handler, ctx *Context, data []byte) (*Result, error) {
	req, err := DecodeMountRequest(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rpc.ErrGarbageArgs, err)
	}
	resp, err := h.Mount(ctx, req)
	if err != nil {
		return nil, err
	}
	encoded, err := resp.Encode()
	if err != nil {
		return nil, err
	}
	return &Result{Data: encoded, Status: resp.Status}, nil
}
