package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tuannm99/novasql/internal/alias/bx"
	"github.com/tuannm99/novasql/internal/dberr"
	"github.com/tuannm99/novasql/internal/heapfile"
)

// encodeValue turns a textual attribute value into its fixed-length
// on-page encoding, matching QU_Insert's and ScanSelect's per-type
// atoi/atof/memcpy dispatch in _examples/original_source/Project6.
func encodeValue(typ heapfile.DataType, length int32, raw string) ([]byte, error) {
	b := make([]byte, length)
	switch typ {
	case heapfile.STRING:
		n := copy(b, raw)
		for i := n; i < len(b); i++ {
			b[i] = 0
		}
	case heapfile.INTEGER:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: parse integer %q: %v", dberr.ErrUnixErr, raw, err)
		}
		bx.PutU32(b, uint32(int32(v)))
	case heapfile.FLOAT:
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: parse float %q: %v", dberr.ErrUnixErr, raw, err)
		}
		bx.PutU32(b, math.Float32bits(float32(v)))
	default:
		return nil, fmt.Errorf("%w: unknown attribute type %d", dberr.ErrUnixErr, typ)
	}
	return b, nil
}

// decodeValue is encodeValue's inverse, used when projecting a matched
// record's attribute back out as text — ScanSelect's sprintf("%d")/
// sprintf("%f") equivalent.
func decodeValue(typ heapfile.DataType, b []byte) string {
	switch typ {
	case heapfile.STRING:
		return strings.TrimRight(string(b), "\x00")
	case heapfile.INTEGER:
		return strconv.Itoa(int(int32(bx.U32(b))))
	case heapfile.FLOAT:
		return strconv.FormatFloat(float64(math.Float32frombits(bx.U32(b))), 'f', 6, 32)
	default:
		return ""
	}
}
