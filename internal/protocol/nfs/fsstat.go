package nfs

import (
	"fmt"
	"math"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/internal/protocol/xdr"
)

// FsRequest carries the file system root handle that FSSTAT, FSINFO and
// PATHCONF take as their only argument.
type FsRequest struct {
	Handle []byte
}

func DecodeFsRequest(data []byte) (*FsRequest, error) {
	handle, err := decodeHandle(xdr.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read handle: %w", err)
	}
	return &FsRequest{Handle: handle}, nil
}

// ============================================================================
// FSSTAT
// ============================================================================

// FsStat is the fixed part of a successful FSSTAT reply.
type FsStat struct {
	TotalBytes uint64
	FreeBytes  uint64
	AvailBytes uint64
	TotalFiles uint64
	FreeFiles  uint64
	AvailFiles uint64
	Invarsec   uint32
}

type FsStatResponse struct {
	Status uint32
	Attr   *xdr.FileAttr
	Stat   FsStat
}

// FsStat reports a filesystem with no free space. Totals are not known
// without walking the whole image, so they are reported as zero.
func (h *Handler) FsStat(ctx *Context, req *FsRequest) (*FsStatResponse, error) {
	logger.Debug("FSSTAT: handle=%x client=%s", req.Handle, clientIP(ctx.ClientAddr))

	attr, status, err := h.fsAttr(ctx, req.Handle, "FSSTAT")
	if err != nil {
		return nil, err
	}
	return &FsStatResponse{Status: status, Attr: attr}, nil
}

func (resp *FsStatResponse) GetStatus() uint32 { return resp.Status }

func (resp *FsStatResponse) Encode() ([]byte, error) {
	w := xdr.NewWriter()
	w.Uint32(resp.Status)
	if err := w.WritePostOpAttr(resp.Attr); err != nil {
		return nil, err
	}
	if resp.Status != NFS3OK {
		return w.Bytes(), nil
	}
	if err := w.Struct(&resp.Stat); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// ============================================================================
// FSINFO
// ============================================================================

// FsInfo is the fixed part of a successful FSINFO reply.
type FsInfo struct {
	RtMax       uint32
	RtPref      uint32
	RtMult      uint32
	WtMax       uint32
	WtPref      uint32
	WtMult      uint32
	DtPref      uint32
	MaxFileSize uint64
	TimeDelta   xdr.TimeVal
	Properties  uint32
}

type FsInfoResponse struct {
	Status uint32
	Attr   *xdr.FileAttr
	Info   FsInfo
}

func (h *Handler) FsInfo(ctx *Context, req *FsRequest) (*FsInfoResponse, error) {
	logger.Debug("FSINFO: handle=%x client=%s", req.Handle, clientIP(ctx.ClientAddr))

	attr, status, err := h.fsAttr(ctx, req.Handle, "FSINFO")
	if err != nil {
		return nil, err
	}

	return &FsInfoResponse{
		Status: status,
		Attr:   attr,
		Info: FsInfo{
			RtMax:       h.maxRead,
			RtPref:      h.maxRead,
			RtMult:      4096,
			WtMax:       h.maxRead,
			WtPref:      h.maxRead,
			WtMult:      4096,
			DtPref:      dirPrefSize,
			MaxFileSize: math.MaxInt64,
			TimeDelta:   xdr.TimeVal{Seconds: 0, Nseconds: 1},
			Properties:  FSFHomogeneous,
		},
	}, nil
}

func (resp *FsInfoResponse) GetStatus() uint32 { return resp.Status }

func (resp *FsInfoResponse) Encode() ([]byte, error) {
	w := xdr.NewWriter()
	w.Uint32(resp.Status)
	if err := w.WritePostOpAttr(resp.Attr); err != nil {
		return nil, err
	}
	if resp.Status != NFS3OK {
		return w.Bytes(), nil
	}
	if err := w.Struct(&resp.Info); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// ============================================================================
// PATHCONF
// ============================================================================

// PathConf is the fixed part of a successful PATHCONF reply.
type PathConf struct {
	LinkMax         uint32
	NameMax         uint32
	NoTrunc         bool
	ChownRestricted bool
	CaseInsensitive bool
	CasePreserving  bool
}

type PathConfResponse struct {
	Status uint32
	Attr   *xdr.FileAttr
	Conf   PathConf
}

func (h *Handler) PathConf(ctx *Context, req *FsRequest) (*PathConfResponse, error) {
	logger.Debug("PATHCONF: handle=%x client=%s", req.Handle, clientIP(ctx.ClientAddr))

	attr, status, err := h.fsAttr(ctx, req.Handle, "PATHCONF")
	if err != nil {
		return nil, err
	}

	return &PathConfResponse{
		Status: status,
		Attr:   attr,
		Conf: PathConf{
			LinkMax:         math.MaxUint32,
			NameMax:         MaxNameLen,
			NoTrunc:         true,
			ChownRestricted: true,
			CasePreserving:  true,
		},
	}, nil
}

func (resp *PathConfResponse) GetStatus() uint32 { return resp.Status }

func (resp *PathConfResponse) Encode() ([]byte, error) {
	w := xdr.NewWriter()
	w.Uint32(resp.Status)
	if err := w.WritePostOpAttr(resp.Attr); err != nil {
		return nil, err
	}
	if resp.Status != NFS3OK {
		return w.Bytes(), nil
	}
	if err := w.Struct(&resp.Conf); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// fsAttr resolves the handle of an FSSTAT, FSINFO or PATHCONF call.
func (h *Handler) fsAttr(ctx *Context, fh []byte, operation string) (*xdr.FileAttr, uint32, error) {
	p, status := h.pathOf(ctx, fh, operation)
	if status != NFS3OK {
		return nil, status, nil
	}
	attr, _, err := h.attrOf(ctx, p)
	if err != nil {
		if cancelled(err) {
			return nil, 0, err
		}
		return nil, h.status(ctx, err, operation+" "+p), nil
	}
	return attr, NFS3OK, nil
}
