package mount

import (
	"fmt"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/internal/protocol/rpc"
	"github.com/marmos91/squeakfs/internal/protocol/xdr"
)

// Umount forgets the client's mount of path. Unknown mounts are ignored;
// UMNT has no failure result.
func (h *Handler) Umount(ctx *Context, path string) {
	client := clientIP(ctx.ClientAddr)

	h.mu.Lock()
	e, ok := h.mounts[client]
	if ok && e.Directory == path {
		delete(h.mounts, client)
	}
	h.mu.Unlock()

	logger.Info("Unmount: path=%s client=%s known=%t", path, client, ok)
}

// UmountAll forgets every mount of the client.
func (h *Handler) UmountAll(ctx *Context) {
	client := clientIP(ctx.ClientAddr)

	h.mu.Lock()
	delete(h.mounts, client)
	h.mu.Unlock()

	logger.Info("Unmount all: client=%s", client)
}

func handleUmnt(h *Handler, ctx *Context, data []byte) (*Result, error) {
	path, err := xdr.NewReader(data).String(MaxPathLen)
	if err != nil {
		return nil, fmt.Errorf("%w: read dirpath: %v", rpc.ErrGarbageArgs, err)
	}
	h.Umount(ctx, path)
	return &Result{Data: []byte{}, Status: MountOK}, nil
}

func handleUmntAll(h *Handler, ctx *Context, data []byte) (*Result, error) {
	h.UmountAll(ctx)
	return &Result{Data: []byte{}, Status: MountOK}, nil
}
