package nfs

// NFS v3 procedure numbers (RFC 1813 Section 3)
const (
	NFSProcNull        = 0
	NFSProcGetAttr     = 1
	NFSProcSetAttr     = 2
	NFSProcLookup      = 3
	NFSProcAccess      = 4
	NFSProcReadLink    = 5
	NFSProcRead        = 6
	NFSProcWrite       = 7
	NFSProcCreate      = 8
	NFSProcMkdir       = 9
	NFSProcSymlink     = 10
	NFSProcMknod       = 11
	NFSProcRemove      = 12
	NFSProcRmdir       = 13
	NFSProcRename      = 14
	NFSProcLink        = 15
	NFSProcReadDir     = 16
	NFSProcReadDirPlus = 17
	NFSProcFsStat      = 18
	NFSProcFsInfo      = 19
	NFSProcPathConf    = 20
	NFSProcCommit      = 21
)

// NFS v3 status codes (RFC 1813 Section 2.6)
const (
	NFS3OK             = 0
	NFS3ErrPerm        = 1
	NFS3ErrNoEnt       = 2
	NFS3ErrIO          = 5
	NFS3ErrAcces       = 13
	NFS3ErrNotDir      = 20
	NFS3ErrIsDir       = 21
	NFS3ErrInval       = 22
	NFS3ErrRofs        = 30
	NFS3ErrNameTooLong = 63
	NFS3ErrStale       = 70
	NFS3ErrBadHandle   = 10001
	NFS3ErrBadCookie   = 10003
	NFS3ErrNotSupp     = 10004
	NFS3ErrTooSmall    = 10005
	NFS3ErrServerFault = 10006
)

// ACCESS permission bits (RFC 1813 Section 3.3.4)
const (
	AccessRead    = 0x0001
	AccessLookup  = 0x0002
	AccessModify  = 0x0004
	AccessExtend  = 0x0008
	AccessDelete  = 0x0010
	AccessExecute = 0x0020
)

// FSINFO properties
const (
	FSFLink        = 0x0001
	FSFSymlink     = 0x0002
	FSFHomogeneous = 0x0008
	FSFCanSetTime  = 0x0010
)

const (
	// MaxHandleSize is NFS3_FHSIZE.
	MaxHandleSize = 64

	// MaxNameLen bounds a single path component.
	MaxNameLen = 255

	// DefaultMaxReadSize is the largest READ served unless configured.
	DefaultMaxReadSize = 64 << 10

	// dirPrefSize is the preferred READDIR request size.
	dirPrefSize = 8 << 10
)
