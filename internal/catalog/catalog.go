// Package catalog implements the system catalog: two self-describing
// heap files, relcat and attrcat, that describe every relation's schema —
// including, after bootstrap, their own. Ported from the Minibase C++
// RelCatalog/AttrCatalog in _examples/original_source/Project5/catalog.C,
// create.C and destroy.C, keeping that split as unexported relcat.go /
// attrcat.go helpers the way the original keeps two classes sharing a
// HeapFile base (spec.md 13).
package catalog

import (
	"errors"
	"log/slog"

	"go.uber.org/atomic"

	"github.com/tuannm99/novasql/internal/buf"
	"github.com/tuannm99/novasql/internal/dberr"
	"github.com/tuannm99/novasql/internal/heapfile"
)

const logInfoPrefix = "catalog:"

// AttrInput is one attribute of a relation being created: name, type and
// byte length. CreateRel computes each attribute's offset from these, in
// declaration order.
type AttrInput struct {
	Name string
	Type heapfile.DataType
	Len  int32
}

// Catalog is the attach-scoped handle to relcat/attrcat. Per spec.md 4.6,
// relcat and attrcat are opened once, as persistent HeapFile instances,
// for the whole attach lifetime — not reopened per operation — so the
// buffer pool's frame index (keyed by *pfile.File pointer identity) never
// loses track of their dirty pages between catalog calls.
type Catalog struct {
	pool     *buf.Pool
	relHF    *heapfile.HeapFile
	attrHF   *heapfile.HeapFile
	attached atomic.Bool
}

// Attach bootstraps the catalog: relcat and attrcat are created if they
// don't already exist, opened as the persistent handles every later
// catalog operation reuses, and on a first-ever attach self-install the
// entries describing their own two and five attributes respectively,
// per spec.md 6 ("relcat and attrcat must be created with their own
// entries self-installed before any user operation").
func Attach(pool *buf.Pool) (*Catalog, error) {
	for _, name := range [2]string{RelCatName, AttrCatName} {
		if err := heapfile.CreateHeapFile(pool, name); err != nil {
			if errors.Is(err, dberr.ErrFileExists) {
				continue
			}
			return nil, err
		}
		slog.Info(logInfoPrefix+" created catalog heap file", "name", name)
	}

	relHF, err := heapfile.Open(pool, RelCatName)
	if err != nil {
		return nil, err
	}
	attrHF, err := heapfile.Open(pool, AttrCatName)
	if err != nil {
		relHF.Close()
		return nil, err
	}

	c := &Catalog{pool: pool, relHF: relHF, attrHF: attrHF}
	if err := c.bootstrap(); err != nil {
		attrHF.Close()
		relHF.Close()
		return nil, err
	}
	c.attached.Store(true)
	return c, nil
}

func (c *Catalog) bootstrap() error {
	_, err := relGetInfo(c.relHF, RelCatName)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dberr.ErrRelNotFound):
		slog.Info(logInfoPrefix + " installing self-description")
		return c.installSelfDescription()
	default:
		return err
	}
}

// installSelfDescription is how the catalog resolves its own bootstrap
// circularity: it does NOT read relcat/attrcat to discover their own
// schema (that would be circular); the layout is hard-coded here, once,
// matching spec.md 9's "hard-code the schema constants at compile time"
// resolution.
func (c *Catalog) installSelfDescription() error {
	if err := relAddInfo(c.relHF, RelDesc{RelName: RelCatName, AttrCnt: 2}); err != nil {
		return err
	}
	if err := relAddInfo(c.relHF, RelDesc{RelName: AttrCatName, AttrCnt: 5}); err != nil {
		return err
	}

	selfAttrs := []AttrDesc{
		{RelName: RelCatName, AttrName: "relName", AttrOffset: relOffRelName, AttrType: heapfile.STRING, AttrLen: heapfile.MaxName},
		{RelName: RelCatName, AttrName: "attrCnt", AttrOffset: relOffAttrCnt, AttrType: heapfile.INTEGER, AttrLen: 4},
		{RelName: AttrCatName, AttrName: "relName", AttrOffset: attrOffRelName, AttrType: heapfile.STRING, AttrLen: heapfile.MaxName},
		{RelName: AttrCatName, AttrName: "attrName", AttrOffset: attrOffAttrName, AttrType: heapfile.STRING, AttrLen: heapfile.MaxName},
		{RelName: AttrCatName, AttrName: "attrOffset", AttrOffset: attrOffOffset, AttrType: heapfile.INTEGER, AttrLen: 4},
		{RelName: AttrCatName, AttrName: "attrType", AttrOffset: attrOffType, AttrType: heapfile.INTEGER, AttrLen: 4},
		{RelName: AttrCatName, AttrName: "attrLen", AttrOffset: attrOffLen, AttrType: heapfile.INTEGER, AttrLen: 4},
	}
	for _, ad := range selfAttrs {
		if err := attrAddInfo(c.attrHF, ad); err != nil {
			return err
		}
	}
	return nil
}

// Pool returns the buffer pool this catalog is attached to, for callers
// (such as the query package) that need to open their own heap file
// scans against the same pool.
func (c *Catalog) Pool() *buf.Pool { return c.pool }

// Detach marks the catalog as no longer in use and closes its persistent
// relcat/attrcat handles, per spec.md 4.6 ("closed at detach").
func (c *Catalog) Detach() {
	c.attached.Store(false)
	c.attrHF.Close()
	c.relHF.Close()
}

// CreateRel validates rel and attrs, installs relcat/attrcat entries, and
// creates the backing heap file, matching RelCatalog::createRel.
func (c *Catalog) CreateRel(rel string, attrs []AttrInput) error {
	if rel == "" || len(attrs) < 1 {
		return dberr.ErrBadCatParm
	}
	if len(rel) >= heapfile.MaxName {
		return dberr.ErrNameTooLong
	}

	if _, err := relGetInfo(c.relHF, rel); err == nil {
		return dberr.ErrRelExists
	} else if !errors.Is(err, dberr.ErrRelNotFound) {
		return err
	}

	if err := relAddInfo(c.relHF, RelDesc{RelName: rel, AttrCnt: int32(len(attrs))}); err != nil {
		return err
	}

	offset := int32(0)
	for _, a := range attrs {
		ad := AttrDesc{RelName: rel, AttrName: a.Name, AttrOffset: offset, AttrType: a.Type, AttrLen: a.Len}
		if err := attrAddInfo(c.attrHF, ad); err != nil {
			return err
		}
		offset += a.Len
	}

	return heapfile.CreateHeapFile(c.pool, rel)
}

// DestroyRel removes rel's attrcat and relcat entries and its backing
// heap file. relcat/attrcat themselves can never be destroyed this way,
// matching RelCatalog::destroyRel.
func (c *Catalog) DestroyRel(rel string) error {
	if rel == "" || rel == RelCatName || rel == AttrCatName {
		return dberr.ErrBadCatParm
	}

	attrs, err := attrGetRelInfo(c.relHF, c.attrHF, rel)
	if err != nil {
		return err
	}
	for _, a := range attrs {
		if err := attrRemoveInfo(c.attrHF, rel, a.AttrName); err != nil {
			return err
		}
	}
	if err := relRemoveInfo(c.relHF, rel); err != nil {
		return err
	}
	return heapfile.DestroyHeapFile(rel)
}

// GetInfo looks up a relation's relcat descriptor.
func (c *Catalog) GetInfo(rel string) (RelDesc, error) {
	return relGetInfo(c.relHF, rel)
}

// GetRelInfo returns every attribute descriptor of rel.
func (c *Catalog) GetRelInfo(rel string) ([]AttrDesc, error) {
	return attrGetRelInfo(c.relHF, c.attrHF, rel)
}

// GetAttrInfo looks up a single attribute's descriptor.
func (c *Catalog) GetAttrInfo(rel, attr string) (AttrDesc, error) {
	return attrGetInfo(c.attrHF, rel, attr)
}

// Stats is the structured-logging/test replacement for help.C's printing
// utilities: a relation count instead of a stdout dump.
type Stats struct {
	RelationCount int
}

func (c *Catalog) Stats() (Stats, error) {
	scan, err := heapfile.ScanOn(c.relHF)
	if err != nil {
		return Stats{}, err
	}
	defer scan.Close()
	if err := scan.StartScan(0, 0, heapfile.STRING, nil, heapfile.EQ); err != nil {
		return Stats{}, err
	}

	var s Stats
	for {
		if _, err := scan.ScanNext(); err != nil {
			if errors.Is(err, dberr.ErrFileEOF) {
				break
			}
			return Stats{}, err
		}
		s.RelationCount++
	}
	return s, nil
}
