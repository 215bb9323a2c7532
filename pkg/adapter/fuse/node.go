package fuse

import (
	"context"
	"errors"
	"path"
	"syscall"

	gofs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/pkg/handles"
	"github.com/marmos91/squeakfs/pkg/resource"
)

// node is one entry of the mounted tree. It only remembers its path; every
// operation asks the filesystem again.
type node struct {
	gofs.Inode

	adapter *FUSEAdapter
	path    string
}

var (
	_ gofs.NodeGetattrer = (*node)(nil)
	_ gofs.NodeLookuper  = (*node)(nil)
	_ gofs.NodeReaddirer = (*node)(nil)
	_ gofs.NodeOpener    = (*node)(nil)
	_ gofs.NodeReader    = (*node)(nil)
)

func (a *FUSEAdapter) root() *node {
	return &node{adapter: a, path: "/"}
}

// toErrno maps a filesystem error to the errno returned to the kernel.
func toErrno(err error) syscall.Errno {
	switch {
	case err == nil:
		return gofs.OK
	case errors.Is(err, resource.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, resource.ErrPermission):
		return syscall.EACCES
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return syscall.EINTR
	default:
		return syscall.EIO
	}
}

func fileMode(attr resource.Attr) uint32 {
	mode := uint32(attr.Mode.Perm())
	if attr.IsDir() {
		return mode | syscall.S_IFDIR
	}
	return mode | syscall.S_IFREG
}

func (n *node) fill(p string, attr resource.Attr, out *fuse.Attr) {
	out.Ino = handles.FileID(p)
	out.Mode = fileMode(attr)
	out.Nlink = attr.Nlink
	out.Size = attr.Size
	out.Blocks = (attr.Size + 511) / 512
	out.Owner = fuse.Owner{Uid: n.adapter.config.UID, Gid: n.adapter.config.GID}
	out.SetTimes(&n.adapter.started, &n.adapter.started, &n.adapter.started)
}

func (n *node) Getattr(ctx context.Context, _ gofs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, err := n.adapter.fs.Attributes(ctx, n.path)
	if err != nil {
		return toErrno(err)
	}
	n.fill(n.path, attr, &out.Attr)
	return gofs.OK
}

// child resolves name below n and fills out with its attributes.
func (n *node) child(ctx context.Context, name string, out *fuse.Attr) (*node, gofs.StableAttr, syscall.Errno) {
	if name == "" || len(name) > 255 {
		return nil, gofs.StableAttr{}, syscall.ENOENT
	}

	p := path.Join(n.path, name)
	attr, err := n.adapter.fs.Attributes(ctx, p)
	if err != nil {
		return nil, gofs.StableAttr{}, toErrno(err)
	}
	n.fill(p, attr, out)

	stable := gofs.StableAttr{Mode: out.Mode & syscall.S_IFMT, Ino: out.Ino}
	return &node{adapter: n.adapter, path: p}, stable, gofs.OK
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofs.Inode, syscall.Errno) {
	child, stable, errno := n.child(ctx, name, &out.Attr)
	if errno != gofs.OK {
		return nil, errno
	}
	return n.NewInode(ctx, child, stable), gofs.OK
}

// entries lists the directory at n together with the type of each entry.
// Entries that vanish between the listing and their getattr are dropped.
func (n *node) entries(ctx context.Context) ([]fuse.DirEntry, syscall.Errno) {
	names, err := n.adapter.fs.ListDirectory(ctx, n.path, 0)
	if err != nil {
		return nil, toErrno(err)
	}

	out := make([]fuse.DirEntry, 0, len(names))
	for _, name := range names {
		p := path.Join(n.path, name)
		attr, err := n.adapter.fs.Attributes(ctx, p)
		if err != nil {
			logger.Debug("FUSE readdir %s: skipping %s: %v", n.path, name, err)
			continue
		}
		out = append(out, fuse.DirEntry{
			Name: name,
			Mode: fileMode(attr),
			Ino:  handles.FileID(p),
		})
	}
	return out, gofs.OK
}

func (n *node) Readdir(ctx context.Context) (gofs.DirStream, syscall.Errno) {
	entries, errno := n.entries(ctx)
	if errno != gofs.OK {
		return nil, errno
	}
	return gofs.NewListDirStream(entries), gofs.OK
}

// Open checks the access mode. Sizes change with the image, so the kernel
// page cache is bypassed.
func (n *node) Open(ctx context.Context, flags uint32) (gofs.FileHandle, uint32, syscall.Errno) {
	if err := n.adapter.fs.OpenForRead(ctx, n.path, int(flags)); err != nil {
		return nil, 0, toErrno(err)
	}
	return nil, fuse.FOPEN_DIRECT_IO, gofs.OK
}

func (n *node) Read(ctx context.Context, _ gofs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, err := n.adapter.fs.ReadRange(ctx, n.path, int64(len(dest)), off)
	if err != nil {
		return nil, toErrno(err)
	}
	return fuse.ReadResultData(data), gofs.OK
}
