// Package dberr is the single, non-conflated error taxonomy shared by the
// paged-file, buffer pool, heap file, catalog and query layers. A kind may
// be produced by more than one layer (UnixErr comes from pfile, buf and
// query alike) and propagates verbatim through the others (a HashNotFound
// from buf surfaces unchanged from a catalog lookup),
// so the sentinels live in one place instead of being redeclared per package
// and re-wrapped into a new kind at every boundary.
package dberr

import "errors"

var (
	ErrUnixErr        = errors.New("dberr: unix error")
	ErrBufferExceeded = errors.New("dberr: buffer exceeded, no frame to allocate")
	ErrHashTblError   = errors.New("dberr: frame index corruption")
	ErrHashNotFound   = errors.New("dberr: key not found in frame index")
	ErrPageNotPinned  = errors.New("dberr: unpin on frame with pin count 0")
	ErrPagePinned     = errors.New("dberr: frame still pinned")
	ErrBadBuffer      = errors.New("dberr: invalid frame claims to belong to a file")

	ErrInvalidRecLen = errors.New("dberr: record larger than a page")
	ErrNoSpace       = errors.New("dberr: no room on page")
	ErrEndOfPage     = errors.New("dberr: no more records on page")

	ErrFileEOF     = errors.New("dberr: scan reached end of file")
	ErrBadScanParm = errors.New("dberr: invalid startScan arguments")

	ErrBadCatParm  = errors.New("dberr: empty name or invalid catalog input")
	ErrNameTooLong = errors.New("dberr: name too long")
	ErrFileExists  = errors.New("dberr: file already exists")
	ErrRelExists   = errors.New("dberr: relation already exists")
	ErrRelNotFound = errors.New("dberr: relation not found")
	ErrInsufMem    = errors.New("dberr: allocation failure")
)
