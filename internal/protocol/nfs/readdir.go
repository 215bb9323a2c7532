package nfs

import (
	"fmt"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/internal/protocol/xdr"
	"github.com/marmos91/squeakfs/pkg/handles"
)

const (
	// postOpAttrSize is the encoded size of a present post_op_attr.
	postOpAttrSize = 4 + 84

	// readDirOverhead covers status, directory attributes, the cookie
	// verifier, the list terminator and the eof flag.
	readDirOverhead = 4 + postOpAttrSize + 8 + 4 + 4
)

// ReadDirRequest represents a READDIR request (RFC 1813 Section 3.3.16).
type ReadDirRequest struct {
	DirHandle  []byte
	Cookie     uint64
	CookieVerf uint64
	Count      uint32
}

// DirEntry is one entry of a READDIR reply.
type DirEntry struct {
	Fileid uint64
	Name   string
	Cookie uint64
}

// ReadDirResponse represents a READDIR response.
type ReadDirResponse struct {
	Status     uint32
	DirAttr    *xdr.FileAttr
	CookieVerf uint64
	Entries    []DirEntry
	Eof        bool
}

// dirListing is the entry sequence of a directory: ".", ".." and the
// names the filesystem lists. The cookie of entry i is i+1.
type dirListing struct {
	dir    string
	attr   *xdr.FileAttr
	names  []string
	status uint32
}

func (l *dirListing) path(name string) string {
	return childPath(l.dir, name)
}

// listDir resolves a directory handle and fetches its listing. A non-OK
// status is returned in the listing; err is only set for cancellation.
func (h *Handler) listDir(ctx *Context, fh []byte, cookie, verf uint64, operation string) (*dirListing, error) {
	dir, status := h.pathOf(ctx, fh, operation)
	if status != NFS3OK {
		return &dirListing{status: status}, nil
	}

	attr, res, err := h.attrOf(ctx, dir)
	if err != nil {
		if cancelled(err) {
			return nil, err
		}
		return &dirListing{status: h.status(ctx, err, operation+" "+dir)}, nil
	}
	if !res.IsDir() {
		return &dirListing{status: NFS3ErrNotDir, attr: attr}, nil
	}
	if cookie != 0 && verf != h.verifier {
		logger.Debug("%s: cookie verifier mismatch: got=%#x want=%#x", operation, verf, h.verifier)
		return &dirListing{status: NFS3ErrBadCookie, attr: attr}, nil
	}

	names, err := h.fs.ListDirectory(ctx.Context, dir, int64(cookie))
	if err != nil {
		if cancelled(err) {
			return nil, err
		}
		return &dirListing{status: h.status(ctx, err, operation+" "+dir), attr: attr}, nil
	}

	all := make([]string, 0, len(names)+2)
	all = append(all, ".", "..")
	all = append(all, names...)

	return &dirListing{dir: dir, attr: attr, names: all, status: NFS3OK}, nil
}

// entrySize is the encoded size of an entry3 carrying name.
func entrySize(name string) uint32 {
	n := uint32(len(name))
	return 4 + 8 + 4 + n + xdr.Padding(n) + 8
}

// ReadDir lists a directory, resuming after cookie and stopping before the
// reply would exceed the client's count.
func (h *Handler) ReadDir(ctx *Context, req *ReadDirRequest) (*ReadDirResponse, error) {
	logger.Debug("READDIR: dir=%x cookie=%d count=%d client=%s",
		req.DirHandle, req.Cookie, req.Count, clientIP(ctx.ClientAddr))

	listing, err := h.listDir(ctx, req.DirHandle, req.Cookie, req.CookieVerf, "READDIR")
	if err != nil {
		return nil, err
	}
	if listing.status != NFS3OK {
		return &ReadDirResponse{Status: listing.status, DirAttr: listing.attr}, nil
	}

	resp := &ReadDirResponse{Status: NFS3OK, DirAttr: listing.attr, CookieVerf: h.verifier, Eof: true}
	size := uint32(readDirOverhead)

	for i := req.Cookie; i < uint64(len(listing.names)); i++ {
		name := listing.names[i]
		size += entrySize(name)
		if size > req.Count {
			resp.Eof = false
			break
		}
		resp.Entries = append(resp.Entries, DirEntry{
			Fileid: handles.FileID(listing.path(name)),
			Name:   name,
			Cookie: i + 1,
		})
	}

	if len(resp.Entries) == 0 && !resp.Eof {
		return &ReadDirResponse{Status: NFS3ErrTooSmall, DirAttr: listing.attr}, nil
	}

	return resp, nil
}

func DecodeReadDirRequest(data []byte) (*ReadDirRequest, error) {
	r := xdr.NewReader(data)

	handle, err := decodeHandle(r)
	if err != nil {
		return nil, fmt.Errorf("read dir handle: %w", err)
	}
	cookie, err := r.Uint64()
	if err != nil {
		return nil, fmt.Errorf("read cookie: %w", err)
	}
	verf, err := r.Uint64()
	if err != nil {
		return nil, fmt.Errorf("read cookieverf: %w", err)
	}
	count, err := r.Uint32()
	if err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}

	return &ReadDirRequest{DirHandle: handle, Cookie: cookie, CookieVerf: verf, Count: count}, nil
}

func (resp *ReadDirResponse) GetStatus() uint32 { return resp.Status }

func (resp *ReadDirResponse) Encode() ([]byte, error) {
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
	}
	w.Bool(false)
	w.Bool(resp.Eof)

	return w.Bytes(), nil
}
