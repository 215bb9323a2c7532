// Package nfs implements the NFSv3 procedures (RFC 1813) over a vfs.FS.
//
// The filesystem is read-only: procedures that would modify it answer
// NFS3ERR_ROFS without looking at their arguments. Object handles come from
// a handles.Store, so a handle names a path rather than an object and
// stays valid for as long as the store knows it, whatever happens in the
// image behind the path.
//
// Every procedure follows the same shape: DecodeXxxRequest parses the XDR
// arguments, Handler.Xxx does the work and XxxResponse.Encode produces the
// XDR results. Dispatch routes a procedure number to that pipeline.
package nfs
