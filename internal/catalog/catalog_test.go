package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tuannm99/novasql/internal/buf"
	"github.com/tuannm99/novasql/internal/dberr"
	"github.com/tuannm99/novasql/internal/heapfile"
)

// newCatalog attaches a fresh catalog rooted in its own temp directory,
// and detaches it when the test ends, so relcat/attrcat filenames
// ("relcat", "attrcat") never collide across test cases.
func newCatalog(t *testing.T, capacity int) *Catalog {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	pool := buf.NewPool(capacity)
	cat, err := Attach(pool)
	require.NoError(t, err)
	t.Cleanup(cat.Detach)
	return cat
}

func empAttrs() []AttrInput {
	return []AttrInput{
		{Name: "id", Type: heapfile.INTEGER, Len: 4},
		{Name: "name", Type: heapfile.STRING, Len: 20},
	}
}

func TestAttachBootstrapsSelfDescription(t *testing.T) {
	cat := newCatalog(t, 10)

	rd, err := cat.GetInfo(RelCatName)
	require.NoError(t, err)
	require.Equal(t, int32(2), rd.AttrCnt)

	rd, err = cat.GetInfo(AttrCatName)
	require.NoError(t, err)
	require.Equal(t, int32(5), rd.AttrCnt)

	attrs, err := cat.GetRelInfo(RelCatName)
	require.NoError(t, err)
	require.Len(t, attrs, 2)

	attrs, err = cat.GetRelInfo(AttrCatName)
	require.NoError(t, err)
	require.Len(t, attrs, 5)
}

func TestCreateRelThenGetInfo(t *testing.T) {
	cat := newCatalog(t, 10)

	require.NoError(t, cat.CreateRel("emp", empAttrs()))

	rd, err := cat.GetInfo("emp")
	require.NoError(t, err)
	require.Equal(t, "emp", rd.RelName)
	require.Equal(t, int32(2), rd.AttrCnt)

	attrs, err := cat.GetRelInfo("emp")
	require.NoError(t, err)
	require.Len(t, attrs, 2)

	idDesc, err := cat.GetAttrInfo("emp", "id")
	require.NoError(t, err)
	require.Equal(t, int32(0), idDesc.AttrOffset)

	nameDesc, err := cat.GetAttrInfo("emp", "name")
	require.NoError(t, err)
	require.Equal(t, int32(4), nameDesc.AttrOffset)
}

func TestCreateRelDuplicateFails(t *testing.T) {
	cat := newCatalog(t, 10)
	require.NoError(t, cat.CreateRel("emp", empAttrs()))
	require.ErrorIs(t, cat.CreateRel("emp", empAttrs()), dberr.ErrRelExists)
}

func TestCreateRelRejectsBadParams(t *testing.T) {
	cat := newCatalog(t, 10)
	require.ErrorIs(t, cat.CreateRel("", empAttrs()), dberr.ErrBadCatParm)
	require.ErrorIs(t, cat.CreateRel("emp", nil), dberr.ErrBadCatParm)

	long := make([]byte, 64)
	for i := range long {
		long[i] = 'a'
	}
	require.ErrorIs(t, cat.CreateRel(string(long), empAttrs()), dberr.ErrNameTooLong)
}

func TestDestroyRelRemovesEntriesAndFile(t *testing.T) {
	cat := newCatalog(t, 10)
	require.NoError(t, cat.CreateRel("emp", empAttrs()))

	require.NoError(t, cat.DestroyRel("emp"))

	_, err := cat.GetInfo("emp")
	require.ErrorIs(t, err, dberr.ErrRelNotFound)
	_, err = cat.GetAttrInfo("emp", "id")
	require.ErrorIs(t, err, dberr.ErrRelNotFound)

	// Recreating after a full destroy must succeed cleanly.
	require.NoError(t, cat.CreateRel("emp", empAttrs()))
}

func TestDestroyRelRejectsCatalogRelations(t *testing.T) {
	cat := newCatalog(t, 10)
	require.ErrorIs(t, cat.DestroyRel(RelCatName), dberr.ErrBadCatParm)
	require.ErrorIs(t, cat.DestroyRel(AttrCatName), dberr.ErrBadCatParm)
}

func TestStatsCountsRelations(t *testing.T) {
	cat := newCatalog(t, 10)
	require.NoError(t, cat.CreateRel("emp", empAttrs()))
	require.NoError(t, cat.CreateRel("dept", []AttrInput{{Name: "id", Type: heapfile.INTEGER, Len: 4}}))

	s, err := cat.Stats()
	require.NoError(t, err)
	// relcat, attrcat's own rows plus emp and dept.
	require.Equal(t, 4, s.RelationCount)
}

func TestGetRelInfoUnknownRelation(t *testing.T) {
	cat := newCatalog(t, 10)
	_, err := cat.GetRelInfo(filepath.Join("does", "not", "exist"))
	require.ErrorIs(t, err, dberr.ErrRelNotFound)
}
