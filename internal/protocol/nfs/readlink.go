package nfs

import (
	"fmt"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/internal/protocol/xdr"
)

// ReadLinkRequest represents a READLINK request (RFC 1813 Section 3.3.5).
type ReadLinkRequest struct {
	Handle []byte
}

// ReadLinkResponse represents a READLINK response. The filesystem has no
// symbolic links, so it is never successful.
type ReadLinkResponse struct {
	Status uint32
	Attr   *xdr.FileAttr
}

// ReadLink answers NFS3ERR_INVAL for every existing object.
func (h *Handler) ReadLink(ctx *Context, req *ReadLinkRequest) (*ReadLinkResponse, error) {
	logger.Debug("READLINK: handle=%x client=%s", req.Handle, clientIP(ctx.ClientAddr))

	p, status := h.pathOf(ctx, req.Handle, "READLINK")
	if status != NFS3OK {
		return &ReadLinkResponse{Status: status}, nil
	}

	return &ReadLinkResponse{Status: NFS3ErrInval, Attr: h.postOpAttr(ctx, p)}, nil
}

func DecodeReadLinkRequest(data []byte) (*ReadLinkRequest, error) {
	handle, err := decodeHandle(xdr.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read handle: %w", err)
	}
	return &ReadLinkRequest{Handle: handle}, nil
}

func (resp *ReadLinkResponse) GetStatus() uint32 { return resp.Status }

func (resp *ReadLinkResponse) Encode() ([]byte, error) {
	w := xdr.NewWriter()
	w.Uint32(resp.Status)
	if err := w.WritePostOpAttr(resp.Attr); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
