package nfs

import (
	"fmt"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/internal/protocol/xdr"
)

// GetAttrRequest represents a GETATTR request (RFC 1813 Section 3.3.1).
type GetAttrRequest struct {
	Handle []byte
}

// GetAttrResponse represents a GETATTR response.
type GetAttrResponse struct {
	Status uint32
	Attr   *xdr.FileAttr // only present if Status == NFS3OK
}

// GetAttr returns the attributes of the object a handle names. The image
// is asked again on every call.
func (h *Handler) GetAttr(ctx *Context, req *GetAttrRequest) (*GetAttrResponse, error) {
	logger.Debug("GETATTR: handle=%x client=%s", req.Handle, clientIP(ctx.ClientAddr))

	p, status := h.pathOf(ctx, req.Handle, "GETATTR")
	if status != NFS3OK {
		return &GetAttrResponse{Status: status}, nil
	}

	attr, _, err := h.attrOf(ctx, p)
	if err != nil {
		if cancelled(err) {
			return nil, err
		}
		return &GetAttrResponse{Status: h.status(ctx, err, "GETATTR "+p)}, nil
	}

	return &GetAttrResponse{Status: NFS3OK, Attr: attr}, nil
}

func DecodeGetAttrRequest(data []byte) (*GetAttrRequest, error) {
	handle, err := decodeHandle(xdr.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read handle: %w", err)
	}
	return &GetAttrRequest{Handle: handle}, nil
}

func (resp *GetAttrResponse) GetStatus() uint32 { return resp.Status }

func (resp *GetAttrResponse) Encode() ([]byte, error) {
	w := xdr.NewWriter()
	w.Uint32(resp.Status)
	if resp.Status != NFS3OK {
		return w.Bytes(), nil
	}
	if err := w.WriteFileAttr(resp.Attr); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
