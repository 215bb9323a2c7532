package resource

import "os"

// FileType distinguishes the two node types the filesystem exposes.
type FileType int

const (
	TypeRegular FileType = iota
	TypeDirectory
)

const (
	dirMode  = 0755
	fileMode = 0644

	// fileLinks is the link count reported for every file.
	fileLinks = 2
)

// Attr holds the attributes of a resolved resource. Owner and timestamps
// are supplied by the adapter serving the request.
type Attr struct {
	Type  FileType
	Mode  os.FileMode
	Nlink uint32
	Size  uint64
}

// IsDir reports whether a is a directory.
func (a Attr) IsDir() bool {
	return a.Type == TypeDirectory
}

// DirAttr returns directory attributes with the given link count.
func DirAttr(nlink int) Attr {
	return Attr{Type: TypeDirectory, Mode: os.ModeDir | dirMode, Nlink: uint32(nlink)}
}

// FileAttr returns regular-file attributes for content of size bytes.
func FileAttr(size int) Attr {
	return Attr{Type: TypeRegular, Mode: fileMode, Nlink: fileLinks, Size: uint64(size)}
}

// Extract returns up to size bytes of data starting at offset. Offsets past
// the end yield an empty slice; negative arguments count as zero.
func Extract(data []byte, size, offset int64) []byte {
	if offset < 0 {
		offset = 0
	}
	if size < 0 {
		size = 0
	}
	n := int64(len(data))
	if offset >= n {
		return []byte{}
	}
	end := offset + size
	if end > n || end < offset {
		end = n
	}
	return data[offset:end]
}
