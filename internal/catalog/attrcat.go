package catalog

import (
	"errors"

	"github.com/tuannm99/novasql/internal/dberr"
	"github.com/tuannm99/novasql/internal/heapfile"
)

// AttrCatName is the attribute-metadata catalog's own relation name.
const AttrCatName = "attrcat"

// attrGetInfo scans attrcat filtered to rel (the scan's single predicate
// slot can only carry one condition), then does a second, manual
// comparison against attrName inside the loop body — the attribute match
// is not itself expressible as the scan predicate. Grounded on
// AttrCatalog::getInfo (_examples/original_source/Project5/catalog.C),
// which does exactly this two-step filter. attrHF is the catalog's
// persistent attrcat handle (spec.md 4.6).
func attrGetInfo(attrHF *heapfile.HeapFile, rel, attr string) (AttrDesc, error) {
	scan, err := heapfile.ScanOn(attrHF)
	if err != nil {
		return AttrDesc{}, err
	}
	defer scan.Close()

	if err := scan.StartScan(attrOffRelName, heapfile.MaxName, heapfile.STRING, fixedString(rel, heapfile.MaxName), heapfile.EQ); err != nil {
		return AttrDesc{}, err
	}
	for {
		rid, err := scan.ScanNext()
		if err != nil {
			if errors.Is(err, dberr.ErrFileEOF) {
				return AttrDesc{}, dberr.ErrRelNotFound
			}
			return AttrDesc{}, err
		}
		rec, err := scan.GetRecord(rid)
		if err != nil {
			return AttrDesc{}, err
		}
		ad := decodeAttrDesc(rec)
		if ad.AttrName == attr {
			return ad, nil
		}
	}
}

// attrAddInfo inserts ad with no duplicate check, matching
// AttrCatalog::addInfo.
func attrAddInfo(attrHF *heapfile.HeapFile, ad AttrDesc) error {
	ins := heapfile.InsertScanOn(attrHF)
	defer ins.Close()
	_, err := ins.InsertRecord(encodeAttrDesc(ad))
	return err
}

// attrRemoveInfo deletes the attrcat tuple for (rel, attr).
func attrRemoveInfo(attrHF *heapfile.HeapFile, rel, attr string) error {
	scan, err := heapfile.ScanOn(attrHF)
	if err != nil {
		return err
	}
	defer scan.Close()

	if err := scan.StartScan(attrOffRelName, heapfile.MaxName, heapfile.STRING, fixedString(rel, heapfile.MaxName), heapfile.EQ); err != nil {
		return err
	}
	for {
		rid, err := scan.ScanNext()
		if err != nil {
			if errors.Is(err, dberr.ErrFileEOF) {
				return dberr.ErrRelNotFound
			}
			return err
		}
		rec, err := scan.GetRecord(rid)
		if err != nil {
			return err
		}
		if decodeAttrDesc(rec).AttrName == attr {
			return scan.DeleteRecord()
		}
	}
}

// attrGetRelInfo returns every attrcat tuple for rel. Per spec.md 9's
// scan-array ordering note, the result is in attrcat scan order, not
// schema (attrOffset) order — callers must key off AttrOffset, never
// slice index. It cross-checks the count found against relcat's attrCnt
// (catalog.C's getRelInfo does the same defensive check) and returns
// dberr.ErrRelNotFound on mismatch.
func attrGetRelInfo(relHF, attrHF *heapfile.HeapFile, rel string) ([]AttrDesc, error) {
	rd, err := relGetInfo(relHF, rel)
	if err != nil {
		return nil, err
	}

	scan, err := heapfile.ScanOn(attrHF)
	if err != nil {
		return nil, err
	}
	defer scan.Close()

	if err := scan.StartScan(attrOffRelName, heapfile.MaxName, heapfile.STRING, fixedString(rel, heapfile.MaxName), heapfile.EQ); err != nil {
		return nil, err
	}

	var attrs []AttrDesc
	for {
		rid, err := scan.ScanNext()
		if err != nil {
			if errors.Is(err, dberr.ErrFileEOF) {
				break
			}
			return nil, err
		}
		rec, err := scan.GetRecord(rid)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, decodeAttrDesc(rec))
	}

	if int32(len(attrs)) != rd.AttrCnt {
		return nil, dberr.ErrRelNotFound
	}
	return attrs, nil
}
