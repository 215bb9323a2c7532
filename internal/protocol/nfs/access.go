package nfs

import (
	"fmt"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/internal/protocol/xdr"
)

const (
	dirAccess  = AccessRead | AccessLookup | AccessExecute
	fileAccess = AccessRead
)

// AccessRequest represents an ACCESS request (RFC 1813 Section 3.3.4).
type AccessRequest struct {
	Handle []byte
	Access uint32
}

// AccessResponse represents an ACCESS response.
type AccessResponse struct {
	Status uint32
	Attr   *xdr.FileAttr
	Access uint32
}

// Access reports which of the requested permissions are granted. Nothing
// can be modified, extended or deleted; directories can be read, searched
// and traversed, files can only be read.
func (h *Handler) Access(ctx *Context, req *AccessRequest) (*AccessResponse, error) {
	logger.Debug("ACCESS: handle=%x access=%#x client=%s", req.Handle, req.Access, clientIP(ctx.ClientAddr))

	p, status := h.pathOf(ctx, req.Handle, "ACCESS")
	if status != NFS3OK {
		return &AccessResponse{Status: status}, nil
	}

	attr, res, err := h.attrOf(ctx, p)
	if err != nil {
		if cancelled(err) {
			return nil, err
		}
		return &AccessResponse{Status: h.status(ctx, err, "ACCESS "+p)}, nil
	}

	granted := uint32(fileAccess)
	if res.IsDir() {
		granted = dirAccess
	}

	return &AccessResponse{Status: NFS3OK, Attr: attr, Access: req.Access & granted}, nil
}

func DecodeAccessRequest(data []byte) (*AccessRequest, error) {
	r := xdr.NewReader(data)

	handle, err := decodeHandle(r)
	if err != nil {
		return nil, fmt.Errorf("read handle: %w", err)
	}
	access, err := r.Uint32()
	if err != nil {
		return nil, fmt.Errorf("read access: %w", err)
	}

	return &AccessRequest{Handle: handle, Access: access}, nil
}

func (resp *AccessResponse) GetStatus() uint32 { return resp.Status }

func (resp *AccessResponse) Encode() ([]byte, error) {
	w := xdr.NewWriter()
	w.Uint32(resp.Status)
	if err := w.WritePostOpAttr(resp.Attr); err != nil {
		return nil, err
	}
	if resp.Status == NFS3OK {
		w.Uint32(resp.Access)
	}
	return w.Bytes(), nil
}
