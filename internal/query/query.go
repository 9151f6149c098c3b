// Package query implements the three relational operators the original
// Minibase query layer exposes — QU_Insert, QU_Select and QU_Delete,
// ported from _examples/original_source/Project6/insert.C, select.C and
// FinalSubmission/delete.C. Attribute values travel as text the way the
// original's attrInfo.attrValue does, and are parsed/rendered through
// codec.go's per-type encodeValue/decodeValue.
package query

import (
	"errors"
	"fmt"

	"github.com/tuannm99/novasql/internal/buf"
	"github.com/tuannm99/novasql/internal/catalog"
	"github.com/tuannm99/novasql/internal/dberr"
	"github.com/tuannm99/novasql/internal/heapfile"
)

// AttrValue is one named attribute's textual value, used both to supply
// an insert and to carry a projected value out of a select.
type AttrValue struct {
	RelName  string
	AttrName string
	Value    string
}

// AttrRef names a projected attribute by its owning relation.
type AttrRef struct {
	RelName  string
	AttrName string
}

// Filter is an optional scan predicate: match AttrName of RelName against
// Value using Op. A nil *Filter means an unconditional scan.
type Filter struct {
	RelName  string
	AttrName string
	Op       heapfile.Operator
	Value    string
}

// Insert inserts one record into relation, built from attrs matched
// against the catalog schema by attribute name — exactly QU_Insert's
// attrFound loop. Every schema attribute must have a corresponding entry
// in attrs, or insertion fails with dberr.ErrUnixErr.
func Insert(pool *buf.Pool, cat *catalog.Catalog, relation string, attrs []AttrValue) error {
	schema, err := cat.GetRelInfo(relation)
	if err != nil {
		return err
	}
	if len(schema) != len(attrs) {
		return dberr.ErrUnixErr
	}

	reclen := int32(0)
	for _, a := range schema {
		reclen += a.AttrLen
	}
	rec := make([]byte, reclen)

	for _, a := range schema {
		found := false
		for _, in := range attrs {
			if in.AttrName != a.AttrName {
				continue
			}
			val, err := encodeValue(a.AttrType, a.AttrLen, in.Value)
			if err != nil {
				return err
			}
			copy(rec[a.AttrOffset:a.AttrOffset+a.AttrLen], val)
			found = true
			break
		}
		if !found {
			return dberr.ErrUnixErr
		}
	}

	ins, err := heapfile.NewInsertScan(pool, relation)
	if err != nil {
		return err
	}
	defer ins.Close()
	_, err = ins.InsertRecord(rec)
	return err
}

// Select scans the relation owning projections[0] (every projection must
// come from the same relation, matching ScanSelect's single HeapFileScan),
// applies filter if non-nil, and re-inserts each matching record's
// projected attributes into result — a materialized result relation,
// exactly as QU_Select does via its trailing QU_Insert call.
func Select(pool *buf.Pool, cat *catalog.Catalog, result string, projections []AttrRef, filter *Filter) error {
	if len(projections) == 0 {
		return dberr.ErrBadCatParm
	}

	projDescs := make([]catalog.AttrDesc, len(projections))
	for i, p := range projections {
		ad, err := cat.GetAttrInfo(p.RelName, p.AttrName)
		if err != nil {
			return err
		}
		projDescs[i] = ad
	}

	var filterDesc catalog.AttrDesc
	var filterBytes []byte
	haveFilter := filter != nil
	if haveFilter {
		ad, err := cat.GetAttrInfo(filter.RelName, filter.AttrName)
		if err != nil {
			return err
		}
		filterDesc = ad
		fb, err := encodeValue(ad.AttrType, ad.AttrLen, filter.Value)
		if err != nil {
			return err
		}
		filterBytes = fb
	}

	scan, err := heapfile.NewScan(pool, projections[0].RelName)
	if err != nil {
		return err
	}
	defer scan.Close()

	if !haveFilter {
		err = scan.StartScan(0, 0, heapfile.STRING, nil, heapfile.EQ)
	} else {
		err = scan.StartScan(filterDesc.AttrOffset, filterDesc.AttrLen, filterDesc.AttrType, filterBytes, filter.Op)
	}
	if err != nil {
		return err
	}

	for {
		rid, err := scan.ScanNext()
		if err != nil {
			if errors.Is(err, dberr.ErrFileEOF) {
				return nil
			}
			return err
		}
		rec, err := scan.GetRecord(rid)
		if err != nil {
			return err
		}

		out := make([]AttrValue, len(projDescs))
		for i, pd := range projDescs {
			if pd.AttrOffset+pd.AttrLen > int32(len(rec)) {
				return fmt.Errorf("%w: projection %s.%s out of record bounds", dberr.ErrUnixErr, pd.RelName, pd.AttrName)
			}
			out[i] = AttrValue{
				RelName:  pd.RelName,
				AttrName: pd.AttrName,
				Value:    decodeValue(pd.AttrType, rec[pd.AttrOffset:pd.AttrOffset+pd.AttrLen]),
			}
		}
		if err := Insert(pool, cat, result, out); err != nil {
			return err
		}
	}
}

// Delete removes every record of relation matching attrName op value,
// matching QU_Delete's scan-and-deleteRecord loop.
func Delete(pool *buf.Pool, cat *catalog.Catalog, relation, attrName string, op heapfile.Operator, value string) error {
	ad, err := cat.GetAttrInfo(relation, attrName)
	if err != nil {
		return err
	}
	filterBytes, err := encodeValue(ad.AttrType, ad.AttrLen, value)
	if err != nil {
		return err
	}

	scan, err := heapfile.NewScan(pool, relation)
	if err != nil {
		return err
	}
	defer scan.Close()

	if err := scan.StartScan(ad.AttrOffset, ad.AttrLen, ad.AttrType, filterBytes, op); err != nil {
		return err
	}

	for {
		if _, err := scan.ScanNext(); err != nil {
			if errors.Is(err, dberr.ErrFileEOF) {
				return nil
			}
			return err
		}
		if err := scan.DeleteRecord(); err != nil {
			return err
		}
	}
}
