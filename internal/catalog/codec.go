package catalog

import (
	"bytes"

	"github.com/tuannm99/novasql/internal/alias/bx"
	"github.com/tuannm99/novasql/internal/heapfile"
)

// RelDesc is a relcat tuple: a relation's name and attribute count.
type RelDesc struct {
	RelName string
	AttrCnt int32
}

// AttrDesc is an attrcat tuple: one attribute of one relation.
type AttrDesc struct {
	RelName    string
	AttrName   string
	AttrOffset int32
	AttrType   heapfile.DataType
	AttrLen    int32
}

// relDesc tuple layout: relName[MaxName] | attrCnt int32
const (
	relOffRelName = 0
	relOffAttrCnt = heapfile.MaxName
	relDescSize   = heapfile.MaxName + 4
)

// attrDesc tuple layout:
// relName[MaxName] | attrName[MaxName] | attrOffset int32 | attrType int32 | attrLen int32
const (
	attrOffRelName  = 0
	attrOffAttrName = heapfile.MaxName
	attrOffOffset   = 2 * heapfile.MaxName
	attrOffType     = 2*heapfile.MaxName + 4
	attrOffLen      = 2*heapfile.MaxName + 8
	attrDescSize    = 2*heapfile.MaxName + 12
)

func putFixedString(buf []byte, s string) {
	n := copy(buf, s)
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
}

func fixedString(s string, width int) []byte {
	b := make([]byte, width)
	putFixedString(b, s)
	return b
}

func getFixedString(buf []byte) string {
	if end := bytes.IndexByte(buf, 0); end >= 0 {
		return string(buf[:end])
	}
	return string(buf)
}

func encodeRelDesc(rd RelDesc) []byte {
	b := make([]byte, relDescSize)
	putFixedString(b[relOffRelName:relOffRelName+heapfile.MaxName], rd.RelName)
	bx.PutU32(b[relOffAttrCnt:], uint32(rd.AttrCnt))
	return b
}

func decodeRelDesc(b []byte) RelDesc {
	return RelDesc{
		RelName: getFixedString(b[relOffRelName : relOffRelName+heapfile.MaxName]),
		AttrCnt: int32(bx.U32(b[relOffAttrCnt:])),
	}
}

func encodeAttrDesc(ad AttrDesc) []byte {
	b := make([]byte, attrDescSize)
	putFixedString(b[attrOffRelName:attrOffRelName+heapfile.MaxName], ad.RelName)
	putFixedString(b[attrOffAttrName:attrOffAttrName+heapfile.MaxName], ad.AttrName)
	bx.PutU32(b[attrOffOffset:], uint32(ad.AttrOffset))
	bx.PutU32(b[attrOffType:], uint32(ad.AttrType))
	bx.PutU32(b[attrOffLen:], uint32(ad.AttrLen))
	return b
}

func decodeAttrDesc(b []byte) AttrDesc {
	return AttrDesc{
		RelName:    getFixedString(b[attrOffRelName : attrOffRelName+heapfile.MaxName]),
		AttrName:   getFixedString(b[attrOffAttrName : attrOffAttrName+heapfile.MaxName]),
		AttrOffset: int32(bx.U32(b[attrOffOffset:])),
		AttrType:   heapfile.DataType(bx.U32(b[attrOffType:])),
		AttrLen:    int32(bx.U32(b[attrOffLen:])),
	}
}
