// Package buf implements the buffer pool: a fixed-size arena of page
// frames, a clock (second-chance) replacement policy, pin/unpin discipline,
// dirty-page writeback, and a FrameIndex mapping (file identity, pageNo) to
// frame slot. It is the hard part of this module (spec.md 4.1/4.2), ported
// from the Minibase C++ BufMgr::allocBuf (_examples/original_source/
// Project3/buf.C), with the hand/ref-bit/evictable bookkeeping delegated to
// the teacher's pkg/clockx.Clock rather than reimplemented here — allocBuf's
// own contribution on top is the exact round/tally termination rule buf.C
// uses for BufferExceeded, which clockx only exposes the raw hand/bit
// primitives (Advance/ClearRef) for, not a ready-made sweep.
package buf

import (
	"fmt"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/tuannm99/novasql/internal/dberr"
	"github.com/tuannm99/novasql/internal/page"
	"github.com/tuannm99/novasql/internal/pfile"
	"github.com/tuannm99/novasql/pkg/clockx"
)

const logDebugPrefix = "buf:"

// Frame is one slot of the buffer pool. Its reference bit and pin-derived
// evictability live in the pool's clockx.Clock, not here — Frame only
// carries the page-identity and content state the clock has no notion of.
type Frame struct {
	FrameNo int
	Valid   bool
	File    *pfile.File
	PageNo  int32
	PinCnt  int
	Dirty   bool
	Buf     []byte
}

type frameKey struct {
	file   *pfile.File
	pageNo int32
}

// Pool is the buffer manager: N frames, a FrameIndex, and a clock replacer.
type Pool struct {
	frames   []*Frame
	index    map[frameKey]int
	clock    *clockx.Clock
	capacity int
}

// NewPool allocates capacity frames and page buffers. The FrameIndex is
// given a capacity hint of int(1.2*capacity)+1 (spec.md 4.1's "slightly
// above 1.2*N" sizing, reproduced here as a map size hint rather than a
// literal hash-table size since Go maps grow dynamically anyway).
func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = 1
	}
	frames := make([]*Frame, capacity)
	for i := range frames {
		frames[i] = &Frame{FrameNo: i, Buf: make([]byte, page.PageSize)}
	}
	indexHint := (int(float64(capacity)*1.2) * 2 / 2) + 1
	return &Pool{
		frames:   frames,
		index:    make(map[frameKey]int, indexHint),
		clock:    clockx.New(capacity),
		capacity: capacity,
	}
}

// ReadPage pins pageNo of file, loading it from disk on a cache miss.
func (p *Pool) ReadPage(file *pfile.File, pageNo int32) ([]byte, error) {
	key := frameKey{file, pageNo}
	if idx, ok := p.index[key]; ok {
		f := p.frames[idx]
		f.PinCnt++
		p.clock.Touch(idx)
		p.clock.SetEvictable(idx, false)
		slog.Debug(logDebugPrefix+" hit", "file", file.Name(), "page", pageNo, "frame", idx)
		return f.Buf, nil
	}

	idx, err := p.allocBuf()
	if err != nil {
		return nil, err
	}
	f := p.frames[idx]
	if err := file.ReadPage(pageNo, f.Buf); err != nil {
		return nil, err
	}
	p.install(idx, file, pageNo)
	slog.Debug(logDebugPrefix+" load", "file", file.Name(), "page", pageNo, "frame", idx)
	return f.Buf, nil
}

// AllocPage asks the external file layer for a fresh page and pins it. The
// returned bytes are zero-filled; the caller must initialize them.
func (p *Pool) AllocPage(file *pfile.File) (int32, []byte, error) {
	pageNo, err := file.AllocatePage()
	if err != nil {
		return 0, nil, err
	}
	idx, err := p.allocBuf()
	if err != nil {
		return 0, nil, err
	}
	f := p.frames[idx]
	for i := range f.Buf {
		f.Buf[i] = 0
	}
	p.install(idx, file, pageNo)
	slog.Debug(logDebugPrefix+" alloc", "file", file.Name(), "page", pageNo, "frame", idx)
	return pageNo, f.Buf, nil
}

func (p *Pool) install(idx int, file *pfile.File, pageNo int32) {
	f := p.frames[idx]
	f.Valid = true
	f.File = file
	f.PageNo = pageNo
	f.PinCnt = 1
	f.Dirty = false
	p.clock.Touch(idx)
	p.clock.SetEvictable(idx, false)
	p.index[frameKey{file, pageNo}] = idx
}

// UnpinPage decrements the pin count on (file, pageNo). If dirty is true
// the frame's dirty bit is set (and never cleared by this call); it is
// monotone for the residency, per spec.md 3.
func (p *Pool) UnpinPage(file *pfile.File, pageNo int32, dirty bool) error {
	idx, ok := p.index[frameKey{file, pageNo}]
	if !ok {
		return dberr.ErrHashNotFound
	}
	f := p.frames[idx]
	if f.PinCnt == 0 {
		return dberr.ErrPageNotPinned
	}
	f.PinCnt--
	if dirty {
		f.Dirty = true
	}
	p.clock.SetEvictable(idx, f.PinCnt == 0)
	return nil
}

// DisposePage drops (file, pageNo) from the pool if buffered and tells the
// file layer to release it.
func (p *Pool) DisposePage(file *pfile.File, pageNo int32) error {
	key := frameKey{file, pageNo}
	if idx, ok := p.index[key]; ok {
		f := p.frames[idx]
		f.Valid = false
		f.PinCnt = 0
		f.Dirty = false
		f.File = nil
		p.clock.Remove(idx)
		delete(p.index, key)
	}
	return file.DisposePage(pageNo)
}

// FlushFile writes back every dirty frame belonging to file and removes
// them from the pool. Returns dberr.ErrPagePinned if any matching frame is
// still pinned, and dberr.ErrBadBuffer if pool bookkeeping is found
// inconsistent (an invalid frame still claims to belong to file).
func (p *Pool) FlushFile(file *pfile.File) error {
	for idx, f := range p.frames {
		if !f.Valid {
			if f.File == file {
				return dberr.ErrBadBuffer
			}
			continue
		}
		if f.File != file {
			continue
		}
		if f.PinCnt > 0 {
			return dberr.ErrPagePinned
		}
		if f.Dirty {
			if err := file.WritePage(f.PageNo, f.Buf); err != nil {
				return err
			}
			f.Dirty = false
		}
		delete(p.index, frameKey{file, f.PageNo})
		f.Valid = false
		f.File = nil
		p.clock.Remove(idx)
	}
	return nil
}

// Close tears the pool down: every valid, dirty frame is written back.
// Per spec.md 4.1's destructor semantics, failures are logged and swallowed
// rather than propagated — callers that want to inspect them still get the
// accumulated error back, they just aren't forced to handle it.
func (p *Pool) Close() error {
	var errs error
	for _, f := range p.frames {
		if !f.Valid || !f.Dirty {
			continue
		}
		if err := f.File.WritePage(f.PageNo, f.Buf); err != nil {
			slog.Error(logDebugPrefix+" writeback on close failed", "frame", f.FrameNo, "page", f.PageNo, "err", err)
			errs = multierr.Append(errs, err)
			continue
		}
		f.Dirty = false
	}
	return errs
}

// Stats is the structured-logging/test replacement for buf.C's printSelf:
// small counters instead of a stdout dump.
type Stats struct {
	Capacity int
	Occupied int
	Pinned   int
}

func (p *Pool) Stats() Stats {
	s := Stats{Capacity: p.capacity}
	for _, f := range p.frames {
		if !f.Valid {
			continue
		}
		s.Occupied++
		if f.PinCnt > 0 {
			s.Pinned++
		}
	}
	return s
}

// allocBuf finds a frame to (re)use: the clock algorithm, with the
// hand/ref-bit/evictable state sourced from p.clock.Advance(). A frame
// qualifies immediately if it's absent (never used, or most recently
// disposed/evicted), or if it's evictable with its reference bit already
// clear (second-chance victim, writing back first if dirty). Otherwise a
// set ref bit is cleared and the frame gets one more revolution; a pinned
// frame with a clear ref bit counts toward this round's "everything
// pinned" tally. Termination mirrors buf.C's allocBuf exactly: stop with
// BufferExceeded as soon as the tally reaches capacity, or after two full
// revolutions without progress, whichever comes first — this round/tally
// rule is allocBuf's own contribution on top of clockx's raw hand-stepping.
func (p *Pool) allocBuf() (int, error) {
	n := p.capacity
	initialHand := p.clock.Hand()
	round := 0
	pinnedTally := 0

	for {
		idx, present, evictable, ref := p.clock.Advance()
		f := p.frames[idx]

		if !present {
			return f.FrameNo, nil
		}

		if evictable && !ref {
			if f.Dirty {
				if err := f.File.WritePage(f.PageNo, f.Buf); err != nil {
					return 0, fmt.Errorf("%w: writeback frame %d: %v", dberr.ErrUnixErr, f.FrameNo, err)
				}
			}
			delete(p.index, frameKey{f.File, f.PageNo})
			p.clock.Remove(idx)
			return f.FrameNo, nil
		}

		if ref {
			p.clock.ClearRef(idx)
			if !evictable {
				pinnedTally++
			}
		} else {
			pinnedTally++
		}
		if pinnedTally >= n {
			return 0, dberr.ErrBufferExceeded
		}

		if idx == initialHand {
			round++
			pinnedTally = 0
			if round >= 2 {
				return 0, dberr.ErrBufferExceeded
			}
		}
	}
}
