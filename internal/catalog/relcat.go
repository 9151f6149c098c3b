package catalog

import (
	"errors"

	"github.com/tuannm99/novasql/internal/dberr"
	"github.com/tuannm99/novasql/internal/heapfile"
)

// RelCatName is the relation-metadata catalog's own relation name.
const RelCatName = "relcat"

// relGetInfo scans relcat for the first tuple whose relName matches rel,
// grounded on RelCatalog::getInfo (_examples/original_source/Project5/
// catalog.C). relHF is the catalog's persistent relcat handle (spec.md
// 4.6); relGetInfo rewinds and scans it rather than opening its own.
func relGetInfo(relHF *heapfile.HeapFile, rel string) (RelDesc, error) {
	scan, err := heapfile.ScanOn(relHF)
	if err != nil {
		return RelDesc{}, err
	}
	defer scan.Close()

	if err := scan.StartScan(relOffRelName, heapfile.MaxName, heapfile.STRING, fixedString(rel, heapfile.MaxName), heapfile.EQ); err != nil {
		return RelDesc{}, err
	}
	rid, err := scan.ScanNext()
	if err != nil {
		if errors.Is(err, dberr.ErrFileEOF) {
			return RelDesc{}, dberr.ErrRelNotFound
		}
		return RelDesc{}, err
	}
	rec, err := scan.GetRecord(rid)
	if err != nil {
		return RelDesc{}, err
	}
	return decodeRelDesc(rec), nil
}

// relAddInfo inserts rd with no duplicate check — the caller (CreateRel)
// is responsible for checking uniqueness first, matching
// RelCatalog::addInfo.
func relAddInfo(relHF *heapfile.HeapFile, rd RelDesc) error {
	ins := heapfile.InsertScanOn(relHF)
	defer ins.Close()
	_, err := ins.InsertRecord(encodeRelDesc(rd))
	return err
}

// relRemoveInfo deletes the first relcat tuple matching rel.
func relRemoveInfo(relHF *heapfile.HeapFile, rel string) error {
	scan, err := heapfile.ScanOn(relHF)
	if err != nil {
		return err
	}
	defer scan.Close()

	if err := scan.StartScan(relOffRelName, heapfile.MaxName, heapfile.STRING, fixedString(rel, heapfile.MaxName), heapfile.EQ); err != nil {
		return err
	}
	if _, err := scan.ScanNext(); err != nil {
		if errors.Is(err, dberr.ErrFileEOF) {
			return dberr.ErrRelNotFound
		}
		return err
	}
	return scan.DeleteRecord()
}
