// Package pfile is the external paged-file layer spec.md treats as an
// out-of-scope collaborator: openFile/createFile/closeFile/destroyFile plus
// per-file allocatePage/readPage/writePage/disposePage/getFirstPage. It is
// deliberately the thinnest package in the module — grounded on the
// teacher's internal/storage/pager.go (seek-and-read/write against a single
// *os.File) but without its mutex, since the engine is single-threaded by
// design (spec.md 5).
package pfile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tuannm99/novasql/internal/dberr"
	"github.com/tuannm99/novasql/internal/page"
)

// File is a FileHandle: an open paged file plus its page count. Its pointer
// identity is what internal/buf's FrameIndex keys frames by, per spec.md
// 4.2 ("key equality uses file-handle identity... not filename"). OpenFile
// below keeps a process-wide, reference-counted table so that two logical
// opens of the same name (as happens constantly: the query layer opens a
// fresh HeapFile per operation, the way heapfile.C's HeapFileScan does)
// resolve to the very same *File — otherwise the same
// on-disk page would end up cached under two different frames at once,
// violating "a page is present in at most one frame at any time" (spec.md
// 3).
type File struct {
	name      string
	f         *os.File
	pageCount int32
	refs      int
}

// CreateFile creates a brand-new, empty paged file. It fails with
// dberr.ErrFileExists if a file already exists at name, matching the
// external contract's createFile.
func CreateFile(name string) error {
	if _, err := os.Stat(name); err == nil {
		return dberr.ErrFileExists
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("pfile: stat %s: %w", name, err)
	}

	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", dberr.ErrUnixErr, name, err)
	}
	return f.Close()
}

// DestroyFile removes the file backing a heap file from disk.
func DestroyFile(name string) error {
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("%w: destroy %s: %v", dberr.ErrUnixErr, name, err)
	}
	return nil
}

// openFiles is the process-wide open-file table: one *File per name,
// reference-counted across OpenFile/Close pairs. Single-threaded by
// design (spec.md 5), so no locking is needed around it.
var openFiles = map[string]*File{}

// OpenFile opens a paged file for page-level access, or returns the
// already-open handle for name with its reference count bumped.
func OpenFile(name string) (*File, error) {
	if fh, ok := openFiles[name]; ok {
		fh.refs++
		return fh, nil
	}

	f, err := os.OpenFile(name, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", dberr.ErrUnixErr, name, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", dberr.ErrUnixErr, name, err)
	}
	fh := &File{
		name:      name,
		f:         f,
		pageCount: int32(info.Size() / page.PageSize),
		refs:      1,
	}
	openFiles[name] = fh
	return fh, nil
}

// Close drops one reference to the handle; the underlying OS file is only
// actually closed once every OpenFile caller has released it.
func (fh *File) Close() error {
	fh.refs--
	if fh.refs > 0 {
		return nil
	}
	delete(openFiles, fh.name)
	if err := fh.f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", dberr.ErrUnixErr, fh.name, err)
	}
	return nil
}

// Name reports the path this handle was opened from, for logging only —
// never for identity comparisons (see the FrameIndex contract above).
func (fh *File) Name() string { return fh.name }

// RefCount reports the number of outstanding OpenFile callers sharing this
// handle. Callers that must flush before the underlying OS file actually
// closes (heapfile.Close) use this to tell "this Close is the last one"
// from "another caller still has it open".
func (fh *File) RefCount() int { return fh.refs }

// PageCount reports how many pages have been allocated in this file.
func (fh *File) PageCount() int32 { return fh.pageCount }

// AllocatePage extends the file by one zero-filled page and returns its
// pageNo. Bytes are indeterminate to the caller until explicitly written.
func (fh *File) AllocatePage() (int32, error) {
	pageNo := fh.pageCount
	buf := make([]byte, page.PageSize)
	if err := fh.WritePage(pageNo, buf); err != nil {
		return 0, err
	}
	fh.pageCount++
	return pageNo, nil
}

// ReadPage copies the on-disk bytes of pageNo into buf, which must be
// exactly page.PageSize long.
func (fh *File) ReadPage(pageNo int32, buf []byte) error {
	if pageNo < 0 || pageNo >= fh.pageCount {
		return fmt.Errorf("%w: read invalid page %d", dberr.ErrUnixErr, pageNo)
	}
	off := int64(pageNo) * page.PageSize
	if _, err := fh.f.Seek(off, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek %s: %v", dberr.ErrUnixErr, fh.name, err)
	}
	if _, err := io.ReadFull(fh.f, buf); err != nil {
		return fmt.Errorf("%w: read %s: %v", dberr.ErrUnixErr, fh.name, err)
	}
	return nil
}

// WritePage writes buf (exactly page.PageSize bytes) to pageNo, extending
// the file if pageNo is beyond its current end.
func (fh *File) WritePage(pageNo int32, buf []byte) error {
	if pageNo < 0 {
		return fmt.Errorf("%w: write invalid page %d", dberr.ErrUnixErr, pageNo)
	}
	if len(buf) != page.PageSize {
		return fmt.Errorf("%w: write page %d: wrong buffer size %d", dberr.ErrUnixErr, pageNo, len(buf))
	}
	off := int64(pageNo) * page.PageSize
	if _, err := fh.f.WriteAt(buf, off); err != nil {
		return fmt.Errorf("%w: write %s: %v", dberr.ErrUnixErr, fh.name, err)
	}
	if pageNo >= fh.pageCount {
		fh.pageCount = pageNo + 1
	}
	return nil
}

// DisposePage releases pageNo back to the file layer. This simple,
// single-file implementation never reclaims disk space or reuses pageNos —
// matching the external contract's "OK" return with no further guarantee.
func (fh *File) DisposePage(pageNo int32) error {
	return nil
}

// GetFirstPage returns the first page id ever allocated in this file
// (always 0 — the header page of every heap file).
func (fh *File) GetFirstPage() (int32, error) {
	if fh.pageCount == 0 {
		return 0, fmt.Errorf("%w: getFirstPage on empty file %s", dberr.ErrUnixErr, fh.name)
	}
	return 0, nil
}
