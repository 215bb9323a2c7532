package mount

import (
	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/internal/protocol/xdr"
)

// encodeDump writes a mountlist.
func encodeDump(entries []Entry) []byte {
	w := xdr.NewWriter()
	for _, e := range entries {
		w.Bool(true)
		w.String(e.Client)
		w.String(e.Directory)
	}
	w.Bool(false)
	return w.Bytes()
}

// encodeExports writes an exports list holding ExportPath with no group
// restrictions.
func encodeExports() []byte {
	w := xdr.NewWriter()
	w.Bool(true)
	w.String(ExportPath)
	w.Bool(false) // groups
	w.Bool(false)
	return w.Bytes()
}

func handleDump(h *Handler, ctx *Context, data []byte) (*Result, error) {
	entries := h.Mounts()
	logger.Debug("Dump request: client=%s returned=%d", clientIP(ctx.ClientAddr), len(entries))
	return &Result{Data: encodeDump(entries), Status: MountOK}, nil
}

func handleExport(h *Handler, ctx *Context, data []byte) (*Result, error) {
	logger.Debug("Export request: client=%s", clientIP(ctx.ClientAddr))
	return &Result{Data: encodeExports(), Status: MountOK}, nil
}
