package nfs

import (
	"fmt"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/internal/protocol/xdr"
)

// LookupRequest represents a LOOKUP request (RFC 1813 Section 3.3.3).
type LookupRequest struct {
	DirHandle []byte
	Name      string
}

// LookupResponse represents a LOOKUP response.
type LookupResponse struct {
	Status  uint32
	Handle  []byte
	Attr    *xdr.FileAttr
	DirAttr *xdr.FileAttr
}

// Lookup resolves a name inside a directory and issues a handle for it.
// A handle is only issued when the image confirms the entry exists.
func (h *Handler) Lookup(ctx *Context, req *LookupRequest) (*LookupResponse, error) {
	client := clientIP(ctx.ClientAddr)
	logger.Debug("LOOKUP: dir=%x name=%q client=%s", req.DirHandle, req.Name, client)

	dir, status := h.pathOf(ctx, req.DirHandle, "LOOKUP")
	if status != NFS3OK {
		return &LookupResponse{Status: status}, nil
	}

	dirAttr, dirRes, err := h.attrOf(ctx, dir)
	if err != nil {
		if cancelled(err) {
			return nil, err
		}
		return &LookupResponse{Status: h.status(ctx, err, "LOOKUP "+dir)}, nil
	}
	if !dirRes.IsDir() {
		return &LookupResponse{Status: NFS3ErrNotDir, DirAttr: dirAttr}, nil
	}
	if status := validName(req.Name); status != NFS3OK {
		return &LookupResponse{Status: status, DirAttr: dirAttr}, nil
	}

	child := childPath(dir, req.Name)
	attr, _, err := h.attrOf(ctx, child)
	if err != nil {
		if cancelled(err) {
			return nil, err
		}
		return &LookupResponse{Status: h.status(ctx, err, "LOOKUP "+child), DirAttr: dirAttr}, nil
	}

	handle, err := h.handles.Handle(ctx.Context, child)
	if err != nil {
		if cancelled(err) {
			return nil, err
		}
		return &LookupResponse{Status: h.status(ctx, err, "LOOKUP "+child), DirAttr: dirAttr}, nil
	}

	return &LookupResponse{Status: NFS3OK, Handle: handle, Attr: attr, DirAttr: dirAttr}, nil
}

func DecodeLookupRequest(data []byte) (*LookupRequest, error) {
	r := xdr.NewReader(data)

	handle, err := decodeHandle(r)
	if err != nil {
		return nil, fmt.Errorf("read dir handle: %w", err)
	}
	// Longer names are read so they can be answered with NAMETOOLONG.
	name, err := r.String(4 * MaxNameLen)
	if err != nil {
		return nil, fmt.Errorf("read name: %w", err)
	}

	return &LookupRequest{DirHandle: handle, Name: name}, nil
}

func (resp *LookupResponse) GetStatus() uint32 { return resp.Status }

func (resp *LookupResponse) Encode() ([]byte, error) {
	w := xdr.NewWriter()
	w.Uint32(resp.Status)

	if resp.Status == NFS3OK {
		w.Opaque(resp.Handle)
		if err := w.WritePostOpAttr(resp.Attr); err != nil {
			return nil, err
		}
	}
	if err := w.WritePostOpAttr(resp.DirAttr); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}
