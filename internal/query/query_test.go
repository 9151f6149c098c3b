package query

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tuannm99/novasql/internal/buf"
	"github.com/tuannm99/novasql/internal/catalog"
	"github.com/tuannm99/novasql/internal/heapfile"
)

func newAttached(t *testing.T, capacity int) *catalog.Catalog {
	t.Helper()
	t.Chdir(t.TempDir())
	pool := buf.NewPool(capacity)
	cat, err := catalog.Attach(pool)
	require.NoError(t, err)
	return cat
}

func poolOf(t *testing.T, cat *catalog.Catalog) *buf.Pool {
	t.Helper()
	return cat.Pool()
}

func empSchema() []catalog.AttrInput {
	return []catalog.AttrInput{
		{Name: "id", Type: heapfile.INTEGER, Len: 4},
		{Name: "name", Type: heapfile.STRING, Len: 20},
		{Name: "salary", Type: heapfile.FLOAT, Len: 4},
	}
}

func insertEmp(t *testing.T, pool *buf.Pool, cat *catalog.Catalog, rel, id, name, salary string) {
	t.Helper()
	require.NoError(t, Insert(pool, cat, rel, []AttrValue{
		{RelName: rel, AttrName: "id", Value: id},
		{RelName: rel, AttrName: "name", Value: name},
		{RelName: rel, AttrName: "salary", Value: salary},
	}))
}

func TestInsertSelectRoundTrip(t *testing.T) {
	cat := newAttached(t, 10)
	pool := poolOf(t, cat)

	require.NoError(t, cat.CreateRel("emp", empSchema()))
	insertEmp(t, pool, cat, "emp", "1", "alice", "1000.000000")
	insertEmp(t, pool, cat, "emp", "2", "bob", "2000.000000")

	require.NoError(t, cat.CreateRel("emp_names", []catalog.AttrInput{
		{Name: "name", Type: heapfile.STRING, Len: 20},
	}))

	require.NoError(t, Select(pool, cat, "emp_names",
		[]AttrRef{{RelName: "emp", AttrName: "name"}}, nil))

	got := scanAll(t, pool, "emp_names", "name")
	require.ElementsMatch(t, []string{"alice", "bob"}, got)
}

func TestSelectWithFilter(t *testing.T) {
	cat := newAttached(t, 10)
	pool := poolOf(t, cat)

	require.NoError(t, cat.CreateRel("emp", empSchema()))
	insertEmp(t, pool, cat, "emp", "1", "alice", "1000.000000")
	insertEmp(t, pool, cat, "emp", "2", "bob", "2000.000000")

	require.NoError(t, cat.CreateRel("emp_highpay", []catalog.AttrInput{
		{Name: "name", Type: heapfile.STRING, Len: 20},
	}))

	require.NoError(t, Select(pool, cat, "emp_highpay",
		[]AttrRef{{RelName: "emp", AttrName: "name"}},
		&Filter{RelName: "emp", AttrName: "id", Op: heapfile.GT, Value: "1"}))

	got := scanAll(t, pool, "emp_highpay", "name")
	require.Equal(t, []string{"bob"}, got)
}

func TestDeleteRemovesMatchingRecords(t *testing.T) {
	cat := newAttached(t, 10)
	pool := poolOf(t, cat)

	require.NoError(t, cat.CreateRel("emp", empSchema()))
	insertEmp(t, pool, cat, "emp", "1", "alice", "1000.000000")
	insertEmp(t, pool, cat, "emp", "2", "bob", "2000.000000")
	insertEmp(t, pool, cat, "emp", "3", "carol", "3000.000000")

	require.NoError(t, Delete(pool, cat, "emp", "id", heapfile.LT, "2"))

	got := scanAll(t, pool, "emp", "name")
	require.ElementsMatch(t, []string{"bob", "carol"}, got)
}

func TestInsertRejectsMismatchedAttrCount(t *testing.T) {
	cat := newAttached(t, 10)
	pool := poolOf(t, cat)
	require.NoError(t, cat.CreateRel("emp", empSchema()))

	err := Insert(pool, cat, "emp", []AttrValue{
		{RelName: "emp", AttrName: "id", Value: "1"},
	})
	require.Error(t, err)
}

// scanAll is a minimal read-back helper: it returns attrName's values for
// every record of rel, reading the relation straight through heapfile
// rather than through Select, to avoid recursively depending on Select
// for verification.
func scanAll(t *testing.T, pool *buf.Pool, rel, attrName string) []string {
	t.Helper()
	cat, err := catalog.Attach(pool)
	require.NoError(t, err)
	ad, err := cat.GetAttrInfo(rel, attrName)
	require.NoError(t, err)

	scan, err := heapfile.NewScan(pool, rel)
	require.NoError(t, err)
	defer scan.Close()
	require.NoError(t, scan.StartScan(0, 0, heapfile.STRING, nil, heapfile.EQ))

	var out []string
	for {
		rid, err := scan.ScanNext()
		if err != nil {
			break
		}
		rec, err := scan.GetRecord(rid)
		require.NoError(t, err)
		out = append(out, decodeValue(ad.AttrType, rec[ad.AttrOffset:ad.AttrOffset+ad.AttrLen]))
	}
	return out
}
