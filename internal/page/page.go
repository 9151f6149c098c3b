// Package page implements the intra-page slot directory: the fixed-size
// byte layout a buffer frame holds, and the insert/get/delete/scan
// operations over it. Records are packed from the tail of the page
// backward; the slot directory grows forward from the header, mirroring
// the teacher's internal/storage/page.go layout (Lower/Upper boundary,
// slots as (offset, length) pairs) but returning errors instead of bools,
// to match the page.insertRecord(rec,&rid) -> OK|NoSpace contract this
// module's callers expect.
package page

import (
	"github.com/tuannm99/novasql/internal/alias/bx"
	"github.com/tuannm99/novasql/internal/dberr"
)

const (
	// PageSize is the fixed unit of I/O for every page in the engine.
	PageSize = 8192

	// header layout: nextPage int32 | lower int32 | upper int32
	offNextPage = 0
	offLower    = 4
	offUpper    = 8
	HeaderSize  = 12

	// slot layout: offset int32 | length int32
	SlotSize = 8

	// DPFIXED is the per-page overhead (header + one slot) that bounds the
	// largest record a page can ever hold, per spec.md 4.5 step 1.
	DPFIXED = HeaderSize + SlotSize

	tombstone = -1
)

// NullPageNo is the sentinel for "no next page".
const NullPageNo int32 = -1

// Page is a thin view over a frame's byte buffer. It never owns the bytes
// or copies them; the buffer pool hands out the underlying slice on
// readPage/allocPage, and Page just interprets it.
type Page struct {
	buf []byte
}

// Wrap interprets buf (exactly PageSize bytes, typically a frame's buffer)
// as a slotted page. It does not initialize the header — call Init for
// that, or Wrap an already-initialized page.
func Wrap(buf []byte) *Page {
	return &Page{buf: buf}
}

// Init resets the page to an empty slotted page with no next page.
func (p *Page) Init() {
	p.setNextPage(NullPageNo)
	p.setLower(HeaderSize)
	p.setUpper(PageSize)
}

func (p *Page) lower() int32        { return int32(bx.U32(p.buf[offLower:])) }
func (p *Page) setLower(v int32)    { bx.PutU32(p.buf[offLower:], uint32(v)) }
func (p *Page) upper() int32        { return int32(bx.U32(p.buf[offUpper:])) }
func (p *Page) setUpper(v int32)    { bx.PutU32(p.buf[offUpper:], uint32(v)) }
func (p *Page) setNextPage(v int32) { bx.PutU32(p.buf[offNextPage:], uint32(v)) }

// GetNextPage returns the pageNo of the next data page in the heap file's
// linked list, or NullPageNo.
func (p *Page) GetNextPage() int32 { return int32(bx.U32(p.buf[offNextPage:])) }

// SetNextPage links this page to the next one in the heap file's list.
func (p *Page) SetNextPage(pageNo int32) { p.setNextPage(pageNo) }

// NumSlots returns the number of slot-directory entries, live or deleted.
func (p *Page) NumSlots() int32 {
	return (p.lower() - HeaderSize) / SlotSize
}

func (p *Page) slotOff(slotNo int32) int {
	return HeaderSize + int(slotNo)*SlotSize
}

func (p *Page) getSlot(slotNo int32) (offset, length int32) {
	so := p.slotOff(slotNo)
	return int32(bx.U32(p.buf[so:])), int32(bx.U32(p.buf[so+4:]))
}

func (p *Page) putSlot(slotNo int32, offset, length int32) {
	so := p.slotOff(slotNo)
	bx.PutU32(p.buf[so:], uint32(offset))
	bx.PutU32(p.buf[so+4:], uint32(length))
}

// freeSpace returns the number of contiguous bytes available between the
// slot directory and the record area.
func (p *Page) freeSpace() int32 {
	return p.upper() - p.lower()
}

// InsertRecord appends rec into the page's free space and allocates a new
// slot for it. Returns dberr.ErrNoSpace if there isn't room for both the
// record bytes and a new slot-directory entry.
func (p *Page) InsertRecord(rec []byte) (slotNo int32, err error) {
	need := int32(len(rec)) + SlotSize
	if need > p.freeSpace() {
		return 0, dberr.ErrNoSpace
	}

	newUpper := p.upper() - int32(len(rec))
	copy(p.buf[newUpper:newUpper+int32(len(rec))], rec)
	p.setUpper(newUpper)

	slotNo = p.NumSlots()
	p.putSlot(slotNo, newUpper, int32(len(rec)))
	p.setLower(p.lower() + SlotSize)
	return slotNo, nil
}

// GetRecord returns a copy of the record stored at slotNo.
func (p *Page) GetRecord(slotNo int32) ([]byte, error) {
	if slotNo < 0 || slotNo >= p.NumSlots() {
		return nil, dberr.ErrEndOfPage
	}
	offset, length := p.getSlot(slotNo)
	if length == tombstone {
		return nil, dberr.ErrEndOfPage
	}
	out := make([]byte, length)
	copy(out, p.buf[offset:offset+length])
	return out, nil
}

// DeleteRecord tombstones the slot; the bytes are not reclaimed or
// compacted, matching the teacher's append-only slot style and keeping
// existing slot numbers (and thus RIDs) stable for other scans.
func (p *Page) DeleteRecord(slotNo int32) error {
	if slotNo < 0 || slotNo >= p.NumSlots() {
		return dberr.ErrEndOfPage
	}
	offset, length := p.getSlot(slotNo)
	if length == tombstone {
		return dberr.ErrEndOfPage
	}
	p.putSlot(slotNo, offset, tombstone)
	return nil
}

// FirstRecord returns the slot number of the first live record, or
// dberr.ErrEndOfPage if the page has none.
func (p *Page) FirstRecord() (int32, error) {
	n := p.NumSlots()
	for s := int32(0); s < n; s++ {
		if _, length := p.getSlot(s); length != tombstone {
			return s, nil
		}
	}
	return 0, dberr.ErrEndOfPage
}

// NextRecord returns the slot number of the first live record after
// slotNo, or dberr.ErrEndOfPage if there is none. It is what lets a
// deleteRecord-then-scanNext sequence skip the tombstoned slot and resume
// at the following surviving record.
func (p *Page) NextRecord(slotNo int32) (int32, error) {
	n := p.NumSlots()
	for s := slotNo + 1; s < n; s++ {
		if _, length := p.getSlot(s); length != tombstone {
			return s, nil
		}
	}
	return 0, dberr.ErrEndOfPage
}
