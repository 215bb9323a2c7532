package nfs

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/internal/protocol/xdr"
	"github.com/marmos91/squeakfs/pkg/handles"
	"github.com/marmos91/squeakfs/pkg/resource"
	"github.com/marmos91/squeakfs/pkg/vfs"
)

// Options configures a Handler.
type Options struct {
	// Owner is reported as the owner of every object.
	Owner xdr.Owner

	// MaxReadSize caps READ replies. Zero selects DefaultMaxReadSize.
	MaxReadSize uint32
}

// Context carries the per-call information every procedure receives.
type Context struct {
	// Context is cancelled when the connection or the server goes away.
	Context context.Context

	// ClientAddr is the remote address of the client connection.
	ClientAddr string

	// AuthFlavor is the RPC authentication flavor of the call.
	AuthFlavor uint32
}

// Handler serves NFSv3 procedures.
//
// Thread Safety:
// Handler holds no mutable state and is safe for concurrent use.
type Handler struct {
	fs      *vfs.FS
	handles handles.Store
	owner   xdr.Owner
	maxRead uint32

	// started stamps every object's times.
	started time.Time

	// verifier is the READDIR cookie verifier of this server instance.
	verifier uint64
}

// NewHandler creates a Handler serving fs with handles issued by store.
func NewHandler(fs *vfs.FS, store handles.Store, opts Options) *Handler {
	maxRead := opts.MaxReadSize
	if maxRead == 0 {
		maxRead = DefaultMaxReadSize
	}

	id := uuid.New()

	return &Handler{
		fs:       fs,
		handles:  store,
		owner:    opts.Owner,
		maxRead:  maxRead,
		started:  time.Now(),
		verifier: binary.BigEndian.Uint64(id[8:]),
	}
}

// pathOf returns the path a handle names.
func (h *Handler) pathOf(ctx *Context, fh []byte, operation string) (string, uint32) {
	p, err := h.handles.Path(ctx.Context, fh)
	if err != nil {
		return "", h.status(ctx, err, operation)
	}
	return p, NFS3OK
}

// attrOf fetches the wire attributes of path.
func (h *Handler) attrOf(ctx *Context, p string) (*xdr.FileAttr, resource.Attr, error) {
	a, err := h.fs.Attributes(ctx.Context, p)
	if err != nil {
		return nil, a, err
	}
	return xdr.NewFileAttr(a, handles.FileID(p), h.owner, h.started), a, nil
}

// postOpAttr returns the attributes of path for a post_op_attr, or nil when
// they cannot be fetched.
func (h *Handler) postOpAttr(ctx *Context, p string) *xdr.FileAttr {
	attr, _, err := h.attrOf(ctx, p)
	if err != nil {
		return nil
	}
	return attr
}

// status maps an error from the handle store or the filesystem to an NFS
// status code.
func (h *Handler) status(ctx *Context, err error, operation string) uint32 {
	client := clientIP(ctx.ClientAddr)

	switch {
	case err == nil:
		return NFS3OK
	case errors.Is(err, resource.ErrNotExist):
		logger.Debug("%s: %v client=%s", operation, err, client)
		return NFS3ErrNoEnt
	case errors.Is(err, resource.ErrPermission):
		logger.Warn("%s failed: %v client=%s", operation, err, client)
		return NFS3ErrAcces
	case errors.Is(err, handles.ErrStale):
		logger.Warn("%s failed: %v client=%s", operation, err, client)
		return NFS3ErrStale
	case errors.Is(err, handles.ErrBadHandle):
		logger.Warn("%s failed: %v client=%s", operation, err, client)
		return NFS3ErrBadHandle
	case errors.Is(err, handles.ErrCollision):
		logger.Error("%s failed: %v client=%s", operation, err, client)
		return NFS3ErrServerFault
	default:
		logger.Error("%s failed: %v client=%s", operation, err, client)
		return NFS3ErrIO
	}
}

// childPath returns the path of name inside dir. "." and ".." are
// resolved lexically; the parent of the root is the root.
func childPath(dir, name string) string {
	return path.Join(dir, name)
}

// validName reports whether name can be looked up inside a directory.
func validName(name string) uint32 {
	switch {
	case name == "" || strings.Contains(name, "/"):
		return NFS3ErrNoEnt
	case len(name) > MaxNameLen:
		return NFS3ErrNameTooLong
	}
	return NFS3OK
}

func clientIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func cancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func decodeHandle(r *xdr.Reader) ([]byte, error) {
	return r.Opaque(MaxHandleSize)
}
