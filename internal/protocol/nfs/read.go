package nfs

import (
	"fmt"
	"math"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/internal/protocol/xdr"
)

// ReadRequest represents a READ request (RFC 1813 Section 3.3.6).
type ReadRequest struct {
	Handle []byte
	Offset uint64
	Count  uint32
}

// ReadResponse represents a READ response.
type ReadResponse struct {
	Status uint32
	Attr   *xdr.FileAttr
	Eof    bool
	Data   []byte
}

// Read returns a byte range of a file. The content is produced from the
// image for every call, so Eof is derived from what this call saw.
func (h *Handler) Read(ctx *Context, req *ReadRequest) (*ReadResponse, error) {
	client := clientIP(ctx.ClientAddr)
	logger.Debug("READ: handle=%x offset=%d count=%d client=%s", req.Handle, req.Offset, req.Count, client)

	p, status := h.pathOf(ctx, req.Handle, "READ")
	if status != NFS3OK {
		return &ReadResponse{Status: status}, nil
	}

	attr, res, err := h.attrOf(ctx, p)
	if err != nil {
		if cancelled(err) {
			return nil, err
		}
		return &ReadResponse{Status: h.status(ctx, err, "READ "+p)}, nil
	}
	if res.IsDir() {
		logger.Debug("READ failed: is a directory: path=%s client=%s", p, client)
		return &ReadResponse{Status: NFS3ErrIsDir, Attr: attr}, nil
	}

	if req.Offset >= res.Size || req.Offset > math.MaxInt64 {
		return &ReadResponse{Status: NFS3OK, Attr: attr, Eof: true, Data: []byte{}}, nil
	}

	count := min(req.Count, h.maxRead)
	data, err := h.fs.ReadRange(ctx.Context, p, int64(count), int64(req.Offset))
	if err != nil {
		if cancelled(err) {
			return nil, err
		}
		return &ReadResponse{Status: h.status(ctx, err, "READ "+p), Attr: attr}, nil
	}

	eof := uint32(len(data)) < count || req.Offset+uint64(len(data)) >= res.Size

	return &ReadResponse{Status: NFS3OK, Attr: attr, Eof: eof, Data: data}, nil
}

func DecodeReadRequest(data []byte) (*ReadRequest, error) {
	r := xdr.NewReader(data)

	handle, err := decodeHandle(r)
	if err != nil {
		return nil, fmt.Errorf("read handle: %w", err)
	}
	offset, err := r.Uint64()
	if err != nil {
		return nil, fmt.Errorf("read offset: %w", err)
	}
	count, err := r.Uint32()
	if err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}

	return &ReadRequest{Handle: handle, Offset: offset, Count: count}, nil
}

func (resp *ReadResponse) GetStatus() uint32 { return resp.Status }

func (resp *ReadResponse) bytesRead() int { return len(resp.Data) }

func (resp *ReadResponse) Encode() ([]byte, error) {
	w := xdr.NewWriter()
	w.Uint32(resp.Status)
	if err := w.WritePostOpAttr(resp.Attr); err != nil {
		return nil, err
	}
	if resp.Status != NFS3OK {
		return w.Bytes(), nil
	}

	w.Uint32(uint32(len(resp.Data)))
	w.Bool(resp.Eof)
	w.Opaque(resp.Data)

	return w.Bytes(), nil
}
