package nfs

import (
	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/internal/protocol/xdr"
)

// failBody is the shape of a modifying procedure's failure results.
type failBody int

const (
	// wccOnly is a single wcc_data: SETATTR, WRITE, CREATE, MKDIR,
	// SYMLINK, MKNOD, REMOVE, RMDIR and COMMIT.
	wccOnly failBody = iota

	// twoWcc is fromdir_wcc and todir_wcc: RENAME.
	twoWcc

	// attrAndWcc is file_attributes and linkdir_wcc: LINK.
	attrAndWcc
)

// readOnly returns a handler that refuses a modifying procedure with
// NFS3ERR_ROFS. Its arguments are not decoded.
func readOnly(body failBody) procedureHandler {
	return func(h *Handler, ctx *Context, data []byte) (*Result, error) {
		logger.Debug("NFS: refusing modification on read-only filesystem client=%s", clientIP(ctx.ClientAddr))

		w := xdr.NewWriter()
		w.Uint32(NFS3ErrRofs)
		switch body {
		case wccOnly:
			w.WriteEmptyWcc()
		case twoWcc:
			w.WriteEmptyWcc()
			w.WriteEmptyWcc()
		case attrAndWcc:
			w.Bool(false)
			w.WriteEmptyWcc()
		}

		return &Result{Data: w.Bytes(), Status: NFS3ErrRofs}, nil
	}
}
