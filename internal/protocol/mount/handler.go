// Package mount implements the MOUNT v3 protocol (RFC 1813 Appendix I).
// The server exports a single directory, the filesystem root.
package mount

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/internal/protocol/rpc"
	"github.com/marmos91/squeakfs/pkg/handles"
)

// Context carries the per-call information every procedure receives.
type Context struct {
	Context    context.Context
	ClientAddr string
	AuthFlavor uint32

	// UnixAuth is set for AUTH_UNIX calls whose credential parsed.
	UnixAuth *rpc.UnixAuth
}

// Result is the outcome of a dispatched call.
type Result struct {
	Data   []byte
	Status uint32
}

// Entry records a mount made by a client, as reported by DUMP.
type Entry struct {
	Client    string
	Directory string
	Since     time.Time
}

// Handler serves the MOUNT procedures and remembers which clients
// mounted the export.
type Handler struct {
	handles handles.Store

	mu     sync.Mutex
	mounts map[string]Entry
}

// NewHandler creates a Handler issuing the root handle from store.
func NewHandler(store handles.Store) *Handler {
	return &Handler{handles: store, mounts: make(map[string]Entry)}
}

// Mounts returns the recorded mounts ordered by client.
func (h *Handler) Mounts() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Entry, 0, len(h.mounts))
	for _, e := range h.mounts {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Client < out[j].Client })
	return out
}

type procedureHandler func(h *Handler, ctx *Context, data []byte) (*Result, error)

type procedureInfo struct {
	Name    string
	Handler procedureHandler
}

var dispatchTable = map[uint32]*procedureInfo{
	MountProcNull:    {"NULL", handleNull},
	MountProcMnt:     {"MNT", handleMnt},
	MountProcDump:    {"DUMP", handleDump},
	MountProcUmnt:    {"UMNT", handleUmnt},
	MountProcUmntAll: {"UMNTALL", handleUmntAll},
	MountProcExport:  {"EXPORT", handleExport},
}

// ProcedureName returns the name of a MOUNT procedure number.
func ProcedureName(procedure uint32) string {
	if info, ok := dispatchTable[procedure]; ok {
		return info.Name
	}
	return fmt.Sprintf("UNKNOWN_%d", procedure)
}

// Dispatch runs procedure with its XDR-encoded arguments.
func (h *Handler) Dispatch(ctx *Context, procedure uint32, data []byte) (*Result, error) {
	info, ok := dispatchTable[procedure]
	if !ok {
		logger.Debug("MOUNT: unknown procedure %d client=%s", procedure, ctx.ClientAddr)
		return nil, rpc.ErrProcUnavail
	}
	return info.Handler(h, ctx, data)
}

func clientIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func handleNull(h *Handler, ctx *Context, data []byte) (*Result, error) {
	return &Result{Data: []byte{}, Status: MountOK}, nil
}
