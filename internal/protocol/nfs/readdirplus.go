package nfs

import (
	"fmt"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/internal/protocol/xdr"
	"github.com/marmos91/squeakfs/pkg/handles"
)

// ReadDirPlusRequest represents a READDIRPLUS request (RFC 1813 Section 3.3.17).
type ReadDirPlusRequest struct {
	DirHandle  []byte
	Cookie     uint64
	CookieVerf uint64
	DirCount   uint32
	MaxCount   uint32
}

// DirEntryPlus is one entry of a READDIRPLUS reply. Attr and Handle are
// nil when the entry vanished between listing and lookup.
type DirEntryPlus struct {
	Fileid uint64
	Name   string
	Cookie uint64
	Attr   *xdr.FileAttr
	Handle []byte
}

// ReadDirPlusResponse represents a READDIRPLUS response.
type ReadDirPlusResponse struct {
	Status     uint32
	DirAttr    *xdr.FileAttr
	CookieVerf uint64
	Entries    []DirEntryPlus
	Eof        bool
}

// ReadDirPlus lists a directory together with the attributes and handles
// of its entries. Each entry costs one attribute query against the image.
func (h *Handler) ReadDirPlus(ctx *Context, req *ReadDirPlusRequest) (*ReadDirPlusResponse, error) {
	logger.Debug("READDIRPLUS: dir=%x cookie=%d dircount=%d maxcount=%d client=%s",
		req.DirHandle, req.Cookie, req.DirCount, req.MaxCount, clientIP(ctx.ClientAddr))

	listing, err := h.listDir(ctx, req.DirHandle, req.Cookie, req.CookieVerf, "READDIRPLUS")
	if err != nil {
		return nil, err
	}
	if listing.status != NFS3OK {
		return &ReadDirPlusResponse{Status: listing.status, DirAttr: listing.attr}, nil
	}

	resp := &ReadDirPlusResponse{Status: NFS3OK, DirAttr: listing.attr, CookieVerf: h.verifier, Eof: true}
	size := uint32(readDirOverhead)
	dirSize := uint32(0)

	for i := req.Cookie; i < uint64(len(listing.names)); i++ {
		if err := ctx.Context.Err(); err != nil {
			return nil, err
		}

		name := listing.names[i]
		// name_attributes and name_handle, both present
		size += entrySize(name) + postOpAttrSize + 4 + 4 + handles.Size
		dirSize += entrySize(name) - 4
		if size > req.MaxCount || dirSize > req.DirCount {
			resp.Eof = false
			break
		}

		p := listing.path(name)
		entry := DirEntryPlus{Fileid: handles.FileID(p), Name: name, Cookie: i + 1}
		if attr := h.postOpAttr(ctx, p); attr != nil {
			entry.Attr = attr
			if handle, err := h.handles.Handle(ctx.Context, p); err == nil {
				entry.Handle = handle
			} else {
				logger.Warn("READDIRPLUS: no handle for %s: %v", p, err)
			}
		}
		resp.Entries = append(resp.Entries, entry)
	}

	if len(resp.Entries) == 0 && !resp.Eof {
		return &ReadDirPlusResponse{Status: NFS3ErrTooSmall, DirAttr: listing.attr}, nil
	}

	return resp, nil
}

func DecodeReadDirPlusRequest(data []byte) (*ReadDirPlusRequest, error) {
	r := xdr.NewReader(data)

	handle, err := decodeHandle(r)
	if err != nil {
		return nil, fmt.Errorf("read dir handle: %w", err)
	}
	req := &ReadDirPlusRequest{DirHandle: handle}
	if req.Cookie, err = r.Uint64(); err != nil {
		return nil, fmt.Errorf("read cookie: %w", err)
	}
	if req.CookieVerf, err = r.Uint64(); err != nil {
		return nil, fmt.Errorf("read cookieverf: %w", err)
	}
	if req.DirCount, err = r.Uint32(); err != nil {
		return nil, fmt.Errorf("read dircount: %w", err)
	}
	if req.MaxCount, err = r.Uint32(); err != nil {
		return nil, fmt.Errorf("read maxcount: %w", err)
	}

	return req, nil
}

func (resp *ReadDirPlusResponse) GetStatus() uint32 { return resp.Status }

func (resp *ReadDirPlusResponse) Encode() ([]byte, error) {
	w := xdr.NewWriter()
	w.Uint32(resp.Status)
	if err := w.WritePostOpAttr(resp.DirAttr); err != nil {
		return nil, err
	}
	if resp.Status != NFS3OK {
		return w.Bytes(), nil
	}

	w.Uint64(resp.CookieVerf)
	for _, e := range resp.Entries {
		w.Bool(true)
		w.Uint64(e.Fileid)
		w.String(e.Name)
		w.Uint64(e.Cookie)
		if err := w.WritePostOpAttr(e.Attr); err != nil {
			return nil, err
		}
		if e.Handle == nil {
			w.Bool(false)
		} else {
			w.Bool(true)
			w.Opaque(e.Handle)
		}
	}
	w.Bool(false)
	w.Bool(resp.Eof)

	return w.Bytes(), nil
}
