// Package heapfile implements the heap file and scan layer: a logical
// sequence of variable-length records over a linked list of data pages
// behind a header page, plus filtered (HeapFileScan) and append-only
// (InsertFileScan) cursors over it. Ported from the Minibase C++
// HeapFile/HeapFileScan/InsertFileScan in _examples/original_source/
// Project4/heapfile.C, in the style of the teacher's internal/heap/table.go
// (closed atomic.Bool guard, Insert/Scan-shaped API).
package heapfile

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"go.uber.org/atomic"

	"github.com/tuannm99/novasql/internal/alias/bx"
	"github.com/tuannm99/novasql/internal/buf"
	"github.com/tuannm99/novasql/internal/dberr"
	"github.com/tuannm99/novasql/internal/page"
	"github.com/tuannm99/novasql/internal/pfile"
)

// MaxName bounds relation and attribute names across the heap file and
// catalog layers.
const MaxName = 32

// RID identifies a record by (pageNo, slotNo). NullRID is the scan-start
// sentinel ("before the first record").
type RID struct {
	PageNo int32
	SlotNo int32
}

// NullRID is the sentinel meaning "no record", both as a scan cursor and as
// the returned RID on error.
var NullRID = RID{PageNo: -1, SlotNo: -1}

// DataType names the three attribute types a filter predicate may compare.
type DataType int

const (
	STRING DataType = iota
	INTEGER
	FLOAT
)

// Operator names the comparison operators a filter predicate may use.
type Operator int

const (
	LT Operator = iota
	LTE
	EQ
	GTE
	GT
	NE
)

// fileHdr layout: fileName[MaxName] | recCnt int32 | pageCnt int32 |
// firstPage int32 | lastPage int32. This is page 0 of every heap file,
// read and written directly (not through the slotted page.Page format),
// per spec.md 3's FileHdrPage.
const (
	hdrOffFileName  = 0
	hdrOffRecCnt    = MaxName
	hdrOffPageCnt   = MaxName + 4
	hdrOffFirstPage = MaxName + 8
	hdrOffLastPage  = MaxName + 12
	hdrSize         = MaxName + 16
)

// HeapFile is a linked list of data pages addressed through a pinned
// header page. At most two pages are pinned at once: the header (for the
// HeapFile's whole lifetime) and the current data page (the scan/insert
// cursor's position).
type HeapFile struct {
	name   string
	file   *pfile.File
	pool   *buf.Pool
	closed atomic.Bool

	headerPageNo int32
	headerBuf    []byte
	hdrDirty     bool

	curPageNo int32
	curBuf    []byte
	curDirty  bool
	curSlot   int32 // -1 means NullRID: no record positioned on curBuf yet
}

func (h *HeapFile) hdrFileName() string {
	end := bytes.IndexByte(h.headerBuf[hdrOffFileName:hdrOffFileName+MaxName], 0)
	if end < 0 {
		end = MaxName
	}
	return string(h.headerBuf[hdrOffFileName : hdrOffFileName+end])
}

func (h *HeapFile) hdrRecCnt() int32     { return int32(bx.U32(h.headerBuf[hdrOffRecCnt:])) }
func (h *HeapFile) hdrPageCnt() int32    { return int32(bx.U32(h.headerBuf[hdrOffPageCnt:])) }
func (h *HeapFile) hdrFirstPage() int32  { return int32(bx.U32(h.headerBuf[hdrOffFirstPage:])) }
func (h *HeapFile) hdrLastPage() int32   { return int32(bx.U32(h.headerBuf[hdrOffLastPage:])) }
func (h *HeapFile) setHdrRecCnt(v int32) { bx.PutU32(h.headerBuf[hdrOffRecCnt:], uint32(v)) }
func (h *HeapFile) setHdrPageCnt(v int32) {
	bx.PutU32(h.headerBuf[hdrOffPageCnt:], uint32(v))
}
func (h *HeapFile) setHdrFirstPage(v int32) {
	bx.PutU32(h.headerBuf[hdrOffFirstPage:], uint32(v))
}
func (h *HeapFile) setHdrLastPage(v int32) {
	bx.PutU32(h.headerBuf[hdrOffLastPage:], uint32(v))
}

// Name returns the relation/file name this heap file was opened for.
func (h *HeapFile) Name() string { return h.name }

// GetRecCnt returns the live record count tracked in the header page.
func (h *HeapFile) GetRecCnt() int32 { return h.hdrRecCnt() }

// Open pins the header page and the first data page of an existing heap
// file, learning the header's location via the external file layer's
// getFirstPage.
func Open(pool *buf.Pool, name string) (*HeapFile, error) {
	f, err := pfile.OpenFile(name)
	if err != nil {
		return nil, err
	}
	headerPageNo, err := f.GetFirstPage()
	if err != nil {
		f.Close()
		return nil, err
	}
	headerBuf, err := pool.ReadPage(f, headerPageNo)
	if err != nil {
		f.Close()
		return nil, err
	}

	h := &HeapFile{
		name:         name,
		file:         f,
		pool:         pool,
		headerPageNo: headerPageNo,
		headerBuf:    headerBuf,
	}

	curBuf, err := pool.ReadPage(f, h.hdrFirstPage())
	if err != nil {
		pool.UnpinPage(f, headerPageNo, false)
		f.Close()
		return nil, err
	}
	h.curPageNo = h.hdrFirstPage()
	h.curBuf = curBuf
	h.curSlot = -1
	return h, nil
}

// CreateHeapFile creates a brand-new heap file: an allocated header page
// and a single, initialized data page, both written back, unpinned and
// flushed through the pool before the underlying file is closed. The
// flush matters: without it the header only reaches disk whenever the
// clock replacer happens to evict its frame, so a later Open of this same
// name — which, once this handle's refcount drops to zero, gets a fresh
// *pfile.File with a new identity the pool has never cached pages under —
// would read back a zero header instead of what was just written.
func CreateHeapFile(pool *buf.Pool, name string) error {
	if err := pfile.CreateFile(name); err != nil {
		return err
	}
	f, err := pfile.OpenFile(name)
	if err != nil {
		return err
	}
	defer f.Close()

	headerPageNo, headerBuf, err := pool.AllocPage(f)
	if err != nil {
		return err
	}
	dataPageNo, dataBuf, err := pool.AllocPage(f)
	if err != nil {
		return err
	}
	page.Wrap(dataBuf).Init()

	copy(headerBuf[hdrOffFileName:hdrOffFileName+MaxName], []byte(name))
	bx.PutU32(headerBuf[hdrOffRecCnt:], 0)
	bx.PutU32(headerBuf[hdrOffPageCnt:], 1)
	bx.PutU32(headerBuf[hdrOffFirstPage:], uint32(dataPageNo))
	bx.PutU32(headerBuf[hdrOffLastPage:], uint32(dataPageNo))

	if err := pool.UnpinPage(f, headerPageNo, true); err != nil {
		return err
	}
	if err := pool.UnpinPage(f, dataPageNo, true); err != nil {
		return err
	}
	return pool.FlushFile(f)
}

// DestroyHeapFile removes a heap file's backing file entirely.
func DestroyHeapFile(name string) error {
	return pfile.DestroyFile(name)
}

// Close unpins the current data page and the header page, then — if this
// is the last reference to the underlying file (pfile's refcounted open
// table is about to actually close the OS handle) — flushes every
// remaining dirty frame of this file through the pool first. Without
// this, a frame left dirty in the pool after the file's OS handle closes
// can only be written back by eviction reaching for f.File.WritePage on a
// now-closed handle, which fails with dberr.ErrUnixErr. Double-close is a
// no-op.
func (h *HeapFile) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	var first error
	if err := h.pool.UnpinPage(h.file, h.curPageNo, h.curDirty); err != nil && !errors.Is(err, dberr.ErrPageNotPinned) {
		first = err
	}
	if err := h.pool.UnpinPage(h.file, h.headerPageNo, h.hdrDirty); err != nil && !errors.Is(err, dberr.ErrPageNotPinned) && first == nil {
		first = err
	}
	if h.file.RefCount() == 1 {
		if err := h.pool.FlushFile(h.file); err != nil && first == nil {
			first = err
		}
	}
	if err := h.file.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// Rewind repositions the cursor to the heap file's first data page,
// unpinning wherever it currently sits. Callers that reuse a single
// long-lived HeapFile across multiple logical scans (the catalog's
// persistent relcat/attrcat handles, spec.md 4.6) call this at the start
// of each new scan instead of opening a fresh handle.
func (h *HeapFile) Rewind() error {
	first := h.hdrFirstPage()
	if h.curPageNo == first {
		h.curSlot = -1
		return nil
	}
	if err := h.pool.UnpinPage(h.file, h.curPageNo, h.curDirty); err != nil && !errors.Is(err, dberr.ErrPageNotPinned) {
		return err
	}
	h.curDirty = false
	pageBuf, err := h.pool.ReadPage(h.file, first)
	if err != nil {
		return err
	}
	h.curPageNo = first
	h.curBuf = pageBuf
	h.curSlot = -1
	return nil
}

// GetRecord fetches the record at rid, repositioning the current page
// pointer if rid lives on a different page than the one currently pinned.
func (h *HeapFile) GetRecord(rid RID) ([]byte, error) {
	if rid.PageNo != h.curPageNo {
		if err := h.pool.UnpinPage(h.file, h.curPageNo, h.curDirty); err != nil && !errors.Is(err, dberr.ErrPageNotPinned) {
			return nil, err
		}
		h.curDirty = false
		newBuf, err := h.pool.ReadPage(h.file, rid.PageNo)
		if err != nil {
			return nil, err
		}
		h.curPageNo = rid.PageNo
		h.curBuf = newBuf
	}
	rec, err := page.Wrap(h.curBuf).GetRecord(rid.SlotNo)
	if err != nil {
		return nil, err
	}
	h.curSlot = rid.SlotNo
	return rec, nil
}

// Predicate is a HeapFileScan's single filter condition: compare the
// length bytes at offset against filter using op.
type Predicate struct {
	Offset int32
	Length int32
	Type   DataType
	Filter []byte
	Op     Operator
}

// Scan is a HeapFileScan: a HeapFile plus an optional filter predicate and
// a mark/reset snapshot.
type Scan struct {
	*HeapFile
	pred       *Predicate
	markPageNo int32
	markSlot   int32
	owned      bool // true if this Scan opened hf itself and must close it
}

// NewScan opens relName for a filtered or unconditional scan. The
// returned Scan owns the HeapFile it opened: closing the Scan closes it.
func NewScan(pool *buf.Pool, relName string) (*Scan, error) {
	hf, err := Open(pool, relName)
	if err != nil {
		return nil, err
	}
	return &Scan{HeapFile: hf, owned: true}, nil
}

// ScanOn starts a scan over hf, a HeapFile the caller already has open and
// keeps open beyond this scan's lifetime (the catalog's persistent
// relcat/attrcat handles, spec.md 4.6). It rewinds hf to its first data
// page; closing the returned Scan leaves hf open.
func ScanOn(hf *HeapFile) (*Scan, error) {
	if err := hf.Rewind(); err != nil {
		return nil, err
	}
	return &Scan{HeapFile: hf}, nil
}

// Close closes the underlying HeapFile only if this Scan opened it
// itself; a Scan over a caller-owned HeapFile (ScanOn) leaves it open.
func (s *Scan) Close() error {
	if s.owned {
		return s.HeapFile.Close()
	}
	return nil
}

// StartScan validates and stores the filter predicate. A nil filter makes
// the scan unconditional (every record matches) and all other parameters
// are ignored. The scan does not reseek to page 0; it begins wherever the
// HeapFile's current page cursor already is.
func (s *Scan) StartScan(offset, length int32, typ DataType, filter []byte, op Operator) error {
	if filter == nil {
		s.pred = nil
		return nil
	}
	if offset < 0 || length < 1 {
		return dberr.ErrBadScanParm
	}
	switch typ {
	case STRING:
	case INTEGER:
		if length != 4 {
			return dberr.ErrBadScanParm
		}
	case FLOAT:
		if length != 4 {
			return dberr.ErrBadScanParm
		}
	default:
		return dberr.ErrBadScanParm
	}
	switch op {
	case LT, LTE, EQ, GTE, GT, NE:
	default:
		return dberr.ErrBadScanParm
	}
	s.pred = &Predicate{Offset: offset, Length: length, Type: typ, Filter: filter, Op: op}
	return nil
}

// ScanNext advances to the next matching record, crossing pages as needed,
// and returns its RID. Returns dberr.ErrFileEOF once lastPage is exhausted.
func (s *Scan) ScanNext() (RID, error) {
	for {
		var nextSlot int32
		var err error
		if s.curSlot < 0 {
			nextSlot, err = page.Wrap(s.curBuf).FirstRecord()
		} else {
			nextSlot, err = page.Wrap(s.curBuf).NextRecord(s.curSlot)
		}

		if err != nil {
			if !errors.Is(err, dberr.ErrEndOfPage) {
				return NullRID, err
			}
			nextSlot, err = s.crossToNextMatchablePage()
			if err != nil {
				return NullRID, err
			}
		}

		rec, err := page.Wrap(s.curBuf).GetRecord(nextSlot)
		if err != nil {
			return NullRID, err
		}
		s.curSlot = nextSlot

		ok, err := s.matchRec(rec)
		if err != nil {
			return NullRID, err
		}
		if ok {
			return RID{PageNo: s.curPageNo, SlotNo: nextSlot}, nil
		}
	}
}

// crossToNextMatchablePage implements scanNext's step 2: it keeps
// advancing pages until a non-empty one is found or lastPage is exhausted.
// An empty freshly-pinned page re-enters this same loop rather than
// returning a spurious error, resolving spec.md 9's open question the same
// way heapfile.C's "while(status == ENDOFPAGE)" loop does.
func (s *Scan) crossToNextMatchablePage() (int32, error) {
	for {
		if s.curPageNo == s.hdrLastPage() {
			return 0, dberr.ErrFileEOF
		}
		nextPageNo := page.Wrap(s.curBuf).GetNextPage()

		if err := s.pool.UnpinPage(s.file, s.curPageNo, s.curDirty); err != nil && !errors.Is(err, dberr.ErrPageNotPinned) {
			return 0, err
		}
		s.curDirty = false

		newBuf, err := s.pool.ReadPage(s.file, nextPageNo)
		if err != nil {
			return 0, err
		}
		s.curPageNo = nextPageNo
		s.curBuf = newBuf
		s.curSlot = -1

		first, err := page.Wrap(s.curBuf).FirstRecord()
		if err != nil {
			if errors.Is(err, dberr.ErrEndOfPage) {
				continue
			}
			return 0, err
		}
		return first, nil
	}
}

// matchRec evaluates the stored predicate against rec. With no predicate,
// every record matches.
func (s *Scan) matchRec(rec []byte) (bool, error) {
	p := s.pred
	if p == nil {
		return true, nil
	}
	if int(p.Offset)+int(p.Length) > len(rec) {
		return false, nil
	}
	attr := rec[p.Offset : int(p.Offset)+int(p.Length)]

	var diff float64
	switch p.Type {
	case STRING:
		diff = float64(bytes.Compare(attr, p.Filter))
	case INTEGER:
		diff = float64(int32(bx.U32(attr)) - int32(bx.U32(p.Filter)))
	case FLOAT:
		diff = float64(math.Float32frombits(bx.U32(attr)) - math.Float32frombits(bx.U32(p.Filter)))
	default:
		return false, nil
	}
	return compareOp(diff, p.Op), nil
}

func compareOp(diff float64, op Operator) bool {
	switch op {
	case LT:
		return diff < 0
	case LTE:
		return diff <= 0
	case EQ:
		return diff == 0
	case GTE:
		return diff >= 0
	case GT:
		return diff > 0
	case NE:
		return diff != 0
	default:
		return false
	}
}

// MarkScan snapshots the current (page, slot) cursor position.
func (s *Scan) MarkScan() {
	s.markPageNo = s.curPageNo
	s.markSlot = s.curSlot
}

// ResetScan restores the cursor to the last MarkScan snapshot.
func (s *Scan) ResetScan() error {
	if s.markPageNo != s.curPageNo {
		if err := s.pool.UnpinPage(s.file, s.curPageNo, s.curDirty); err != nil && !errors.Is(err, dberr.ErrPageNotPinned) {
			return err
		}
		s.curDirty = false
		newBuf, err := s.pool.ReadPage(s.file, s.markPageNo)
		if err != nil {
			return err
		}
		s.curPageNo = s.markPageNo
		s.curBuf = newBuf
	}
	s.curSlot = s.markSlot
	return nil
}

// DeleteRecord deletes the record at the current cursor. recCnt is
// decremented only after the page-level delete succeeds (spec.md 9's open
// question on this ordering). The cursor itself does not advance; the next
// ScanNext resumes from this slot via NextRecord, which skips the
// now-tombstoned entry.
func (s *Scan) DeleteRecord() error {
	if s.curSlot < 0 {
		return dberr.ErrEndOfPage
	}
	if err := page.Wrap(s.curBuf).DeleteRecord(s.curSlot); err != nil {
		return err
	}
	s.curDirty = true
	s.setHdrRecCnt(s.hdrRecCnt() - 1)
	s.hdrDirty = true
	return nil
}

// MarkDirty flags the current page dirty without otherwise modifying it.
func (s *Scan) MarkDirty() { s.curDirty = true }

// InsertScan is an InsertFileScan: an append-only cursor that always
// positions at the heap file's last page before inserting.
type InsertScan struct {
	*HeapFile
	owned bool // true if this InsertScan opened hf itself and must close it
}

// NewInsertScan opens relName for append-only inserts. The returned
// InsertScan owns the HeapFile it opened: closing it closes the HeapFile.
func NewInsertScan(pool *buf.Pool, relName string) (*InsertScan, error) {
	hf, err := Open(pool, relName)
	if err != nil {
		return nil, err
	}
	return &InsertScan{HeapFile: hf, owned: true}, nil
}

// InsertScanOn wraps hf, a HeapFile the caller already has open and keeps
// open beyond this InsertScan's lifetime (the catalog's persistent
// relcat/attrcat handles, spec.md 4.6); InsertRecord always seeks to the
// last page regardless of hf's current cursor, so no rewind is needed.
// Closing the returned InsertScan leaves hf open.
func InsertScanOn(hf *HeapFile) *InsertScan {
	return &InsertScan{HeapFile: hf}
}

// Close closes the underlying HeapFile only if this InsertScan opened it
// itself; an InsertScan over a caller-owned HeapFile (InsertScanOn) leaves
// it open.
func (s *InsertScan) Close() error {
	if s.owned {
		return s.HeapFile.Close()
	}
	return nil
}

// InsertRecord appends rec to the heap file's tail page, allocating and
// linking a new page if the tail is full.
func (s *InsertScan) InsertRecord(rec []byte) (RID, error) {
	if len(rec) > page.PageSize-page.DPFIXED {
		return NullRID, dberr.ErrInvalidRecLen
	}

	if err := s.pool.UnpinPage(s.file, s.curPageNo, s.curDirty); err != nil && !errors.Is(err, dberr.ErrPageNotPinned) {
		return NullRID, err
	}
	s.curDirty = false

	lastPage := s.hdrLastPage()
	tailBuf, err := s.pool.ReadPage(s.file, lastPage)
	if err != nil {
		return NullRID, err
	}
	s.curPageNo = lastPage
	s.curBuf = tailBuf

	slot, err := page.Wrap(s.curBuf).InsertRecord(rec)
	if err != nil {
		if !errors.Is(err, dberr.ErrNoSpace) {
			return NullRID, err
		}

		newPageNo, newBuf, err := s.pool.AllocPage(s.file)
		if err != nil {
			return NullRID, err
		}
		page.Wrap(newBuf).Init()
		page.Wrap(s.curBuf).SetNextPage(newPageNo)

		if err := s.pool.UnpinPage(s.file, s.curPageNo, true); err != nil {
			return NullRID, err
		}
		s.curPageNo = newPageNo
		s.curBuf = newBuf

		slot, err = page.Wrap(s.curBuf).InsertRecord(rec)
		if err != nil {
			return NullRID, fmt.Errorf("heapfile: insert after page alloc: %w", err)
		}

		s.setHdrPageCnt(s.hdrPageCnt() + 1)
		s.setHdrLastPage(newPageNo)
		s.hdrDirty = true
	}

	s.curDirty = true
	s.setHdrRecCnt(s.hdrRecCnt() + 1)
	s.hdrDirty = true
	s.curSlot = slot
	return RID{PageNo: s.curPageNo, SlotNo: slot}, nil
}
