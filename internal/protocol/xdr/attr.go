package xdr

import (
	"time"

	"github.com/marmos91/squeakfs/pkg/resource"
)

// ftype3 values (RFC 1813 Section 2.6).
const (
	FileTypeRegular   = 1
	FileTypeDirectory = 2
)

// FsID is the single filesystem identifier every object reports.
const FsID = 0x5351

type TimeVal struct {
	Seconds  uint32
	Nseconds uint32
}

type SpecData struct {
	Major uint32
	Minor uint32
}

// FileAttr is fattr3. Field order is wire order.
type FileAttr struct {
	Type   uint32
	Mode   uint32
	Nlink  uint32
	UID    uint32
	GID    uint32
	Size   uint64
	Used   uint64
	Rdev   SpecData
	Fsid   uint64
	Fileid uint64
	Atime  TimeVal
	Mtime  TimeVal
	Ctime  TimeVal
}

// Owner is reported as the owner of every object.
type Owner struct {
	UID uint32
	GID uint32
}

// NewTimeVal converts t to an nfstime3.
func NewTimeVal(t time.Time) TimeVal {
	return TimeVal{Seconds: uint32(t.Unix()), Nseconds: uint32(t.Nanosecond())}
}

// NewFileAttr builds the wire attributes of a resolved resource. All three
// timestamps are set to stamp.
func NewFileAttr(attr resource.Attr, fileid uint64, owner Owner, stamp time.Time) *FileAttr {
	ftype := uint32(FileTypeRegular)
	if attr.IsDir() {
		ftype = FileTypeDirectory
	}
	tv := NewTimeVal(stamp)
	return &FileAttr{
		Type:   ftype,
		Mode:   uint32(attr.Mode.Perm()),
		Nlink:  attr.Nlink,
		UID:    owner.UID,
		GID:    owner.GID,
		Size:   attr.Size,
		Used:   attr.Size,
		Fsid:   FsID,
		Fileid: fileid,
		Atime:  tv,
		Mtime:  tv,
		Ctime:  tv,
	}
}

// WriteFileAttr writes fattr3.
func (w *Writer) WriteFileAttr(attr *FileAttr) error {
	return w.Struct(attr)
}

// WritePostOpAttr writes post_op_attr: a present flag followed by the
// attributes when attr is not nil.
func (w *Writer) WritePostOpAttr(attr *FileAttr) error {
	if attr == nil {
		w.Bool(false)
		return nil
	}
	w.Bool(true)
	return w.WriteFileAttr(attr)
}

// WriteEmptyWcc writes a wcc_data with neither pre- nor post-operation
// attributes.
func (w *Writer) WriteEmptyWcc() {
	w.Bool(false)
	w.Bool(false)
}
