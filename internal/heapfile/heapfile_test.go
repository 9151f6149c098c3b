package heapfile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tuannm99/novasql/internal/alias/bx"
	"github.com/tuannm99/novasql/internal/buf"
	"github.com/tuannm99/novasql/internal/dberr"
)

func newRel(t *testing.T, capacity int) (*buf.Pool, string) {
	t.Helper()
	pool := buf.NewPool(capacity)
	name := filepath.Join(t.TempDir(), "t.heap")
	require.NoError(t, CreateHeapFile(pool, name))
	return pool, name
}

func intRec(v int32) []byte {
	b := make([]byte, 4)
	bx.PutU32(b, uint32(v))
	return b
}

func TestInsertAndGetRecordRoundTrip(t *testing.T) {
	pool, name := newRel(t, 5)

	ins, err := NewInsertScan(pool, name)
	require.NoError(t, err)
	rid, err := ins.InsertRecord([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, ins.Close())

	hf, err := Open(pool, name)
	require.NoError(t, err)
	rec, err := hf.GetRecord(rid)
	require.NoError(t, err)
	require.Equal(t, []byte("hello world"), rec)
	require.NoError(t, hf.Close())
}

func TestInsertRecordTooLargeFails(t *testing.T) {
	pool, name := newRel(t, 5)
	ins, err := NewInsertScan(pool, name)
	require.NoError(t, err)
	defer ins.Close()

	big := make([]byte, 8192)
	_, err = ins.InsertRecord(big)
	require.ErrorIs(t, err, dberr.ErrInvalidRecLen)
}

func TestScanEmptyRelationReturnsFileEOF(t *testing.T) {
	pool, name := newRel(t, 5)
	scan, err := NewScan(pool, name)
	require.NoError(t, err)
	defer scan.Close()

	require.NoError(t, scan.StartScan(0, 0, STRING, nil, EQ))
	_, err = scan.ScanNext()
	require.ErrorIs(t, err, dberr.ErrFileEOF)
}

func TestUnconditionalScanVisitsAllInsertedRecords(t *testing.T) {
	pool, name := newRel(t, 5)

	ins, err := NewInsertScan(pool, name)
	require.NoError(t, err)
	for i := int32(0); i < 20; i++ {
		_, err := ins.InsertRecord(intRec(i))
		require.NoError(t, err)
	}
	require.NoError(t, ins.Close())

	scan, err := NewScan(pool, name)
	require.NoError(t, err)
	defer scan.Close()
	require.NoError(t, scan.StartScan(0, 0, STRING, nil, EQ))

	count := 0
	for {
		rid, err := scan.ScanNext()
		if err != nil {
			require.ErrorIs(t, err, dberr.ErrFileEOF)
			break
		}
		_, err = scan.GetRecord(rid)
		require.NoError(t, err)
		count++
	}
	require.Equal(t, 20, count)
}

func TestFilteredScanAndDeleteSkipsTombstone(t *testing.T) {
	pool, name := newRel(t, 5)

	ins, err := NewInsertScan(pool, name)
	require.NoError(t, err)
	var rids []RID
	for i := int32(0); i < 5; i++ {
		rid, err := ins.InsertRecord(intRec(i * 10))
		require.NoError(t, err)
		rids = append(rids, rid)
	}
	require.NoError(t, ins.Close())

	scan, err := NewScan(pool, name)
	require.NoError(t, err)
	require.NoError(t, scan.StartScan(0, 4, INTEGER, intRec(20), GTE))

	rid, err := scan.ScanNext()
	require.NoError(t, err)
	require.Equal(t, rids[2], rid)
	require.NoError(t, scan.DeleteRecord())

	rid, err = scan.ScanNext()
	require.NoError(t, err)
	require.Equal(t, rids[3], rid)
	require.NoError(t, scan.Close())

	hf, err := Open(pool, name)
	require.NoError(t, err)
	require.Equal(t, int32(4), hf.GetRecCnt())
	require.NoError(t, hf.Close())
}

func TestMarkAndResetScan(t *testing.T) {
	pool, name := newRel(t, 5)

	ins, err := NewInsertScan(pool, name)
	require.NoError(t, err)
	var rids []RID
	for i := int32(0); i < 50; i++ {
		rid, err := ins.InsertRecord(intRec(i))
		require.NoError(t, err)
		rids = append(rids, rid)
	}
	require.NoError(t, ins.Close())

	scan, err := NewScan(pool, name)
	require.NoError(t, err)
	defer scan.Close()
	require.NoError(t, scan.StartScan(0, 0, STRING, nil, EQ))

	var marked RID
	for i := 0; i < 10; i++ {
		r, err := scan.ScanNext()
		require.NoError(t, err)
		if i == 4 {
			marked = r
			scan.MarkScan()
		}
	}
	require.NoError(t, scan.ResetScan())
	next, err := scan.ScanNext()
	require.NoError(t, err)
	require.NotEqual(t, marked, next)
}

func TestBadScanParmRejectsInvalidPredicate(t *testing.T) {
	pool, name := newRel(t, 5)
	scan, err := NewScan(pool, name)
	require.NoError(t, err)
	defer scan.Close()

	err = scan.StartScan(-1, 4, INTEGER, intRec(1), EQ)
	require.ErrorIs(t, err, dberr.ErrBadScanParm)

	err = scan.StartScan(0, 3, INTEGER, intRec(1), EQ)
	require.ErrorIs(t, err, dberr.ErrBadScanParm)
}
