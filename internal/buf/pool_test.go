package buf

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tuannm99/novasql/internal/dberr"
	"github.com/tuannm99/novasql/internal/pfile"
)

func newTestFile(t *testing.T) *pfile.File {
	t.Helper()
	name := filepath.Join(t.TempDir(), "t.heap")
	require.NoError(t, pfile.CreateFile(name))
	f, err := pfile.OpenFile(name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestAllocPageThenReadPageHits(t *testing.T) {
	f := newTestFile(t)
	p := NewPool(3)

	pageNo, buf, err := p.AllocPage(f)
	require.NoError(t, err)
	buf[0] = 42
	require.NoError(t, p.UnpinPage(f, pageNo, true))

	got, err := p.ReadPage(f, pageNo)
	require.NoError(t, err)
	require.Equal(t, byte(42), got[0])
	require.NoError(t, p.UnpinPage(f, pageNo, false))
}

func TestBufferExceededWhenAllPinned(t *testing.T) {
	f := newTestFile(t)
	p := NewPool(3)

	for i := 0; i < 3; i++ {
		_, _, err := p.AllocPage(f)
		require.NoError(t, err)
	}

	_, _, err := p.AllocPage(f)
	require.ErrorIs(t, err, dberr.ErrBufferExceeded)

	require.NoError(t, p.UnpinPage(f, 0, false))
	_, _, err = p.AllocPage(f)
	require.NoError(t, err)
}

func TestUnpinUnknownPageFailsHashNotFound(t *testing.T) {
	f := newTestFile(t)
	p := NewPool(2)
	err := p.UnpinPage(f, 5, false)
	require.ErrorIs(t, err, dberr.ErrHashNotFound)
}

func TestDoubleUnpinFailsPageNotPinned(t *testing.T) {
	f := newTestFile(t)
	p := NewPool(2)

	pageNo, _, err := p.AllocPage(f)
	require.NoError(t, err)
	require.NoError(t, p.UnpinPage(f, pageNo, false))
	require.ErrorIs(t, p.UnpinPage(f, pageNo, false), dberr.ErrPageNotPinned)
}

func TestEvictionWritesBackDirtyFrame(t *testing.T) {
	f := newTestFile(t)
	p := NewPool(1)

	pageA, bufA, err := p.AllocPage(f)
	require.NoError(t, err)
	bufA[0] = 7
	require.NoError(t, p.UnpinPage(f, pageA, true))

	pageB, _, err := p.AllocPage(f)
	require.NoError(t, err)
	require.NoError(t, p.UnpinPage(f, pageB, false))

	gotA, err := p.ReadPage(f, pageA)
	require.NoError(t, err)
	require.Equal(t, byte(7), gotA[0])
}

func TestFlushFileRejectsPinnedFrame(t *testing.T) {
	f := newTestFile(t)
	p := NewPool(2)

	pageNo, _, err := p.AllocPage(f)
	require.NoError(t, err)

	require.ErrorIs(t, p.FlushFile(f), dberr.ErrPagePinned)
	require.NoError(t, p.UnpinPage(f, pageNo, false))
	require.NoError(t, p.FlushFile(f))
}

func TestStatsReflectsOccupancyAndPins(t *testing.T) {
	f := newTestFile(t)
	p := NewPool(3)

	pageNo, _, err := p.AllocPage(f)
	require.NoError(t, err)

	s := p.Stats()
	require.Equal(t, 3, s.Capacity)
	require.Equal(t, 1, s.Occupied)
	require.Equal(t, 1, s.Pinned)

	require.NoError(t, p.UnpinPage(f, pageNo, false))
	s = p.Stats()
	require.Equal(t, 0, s.Pinned)
}
