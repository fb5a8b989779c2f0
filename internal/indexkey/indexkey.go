// Package indexkey encodes record field values into the byte strings
// stored as secondary-index keys (skey in internal/storage), using a
// byte-order-preserving representation so that SQLite's native BLOB
// comparison (used by CursorScan's range predicates) agrees with the
// field's natural ordering for numbers as well as strings.
package indexkey

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode converts a record field value into its secondary-index key bytes.
func Encode(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return []byte{}, nil
	case string:
		return []byte(t), nil
	case []byte:
		return t, nil
	case bool:
		if t {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case int:
		return encodeNumber(float64(t)), nil
	case int8:
		return encodeNumber(float64(t)), nil
	case int16:
		return encodeNumber(float64(t)), nil
	case int32:
		return encodeNumber(float64(t)), nil
	case int64:
		return encodeNumber(float64(t)), nil
	case uint:
		return encodeNumber(float64(t)), nil
	case uint8:
		return encodeNumber(float64(t)), nil
	case uint16:
		return encodeNumber(float64(t)), nil
	case uint32:
		return encodeNumber(float64(t)), nil
	case uint64:
		return encodeNumber(float64(t)), nil
	case float32:
		return encodeNumber(float64(t)), nil
	case float64:
		return encodeNumber(t), nil
	default:
		return nil, fmt.Errorf("indexkey: unsupported field value type %T", v)
	}
}

// encodeNumber is the single path every Go numeric kind funnels
// through, so the same logical number produces the same key bytes
// whether it arrived as an int64 (a literal clause value) or a
// float64 (what json.Unmarshal always produces for a saved record
// field). The two never diverge by static type, only by value.
func encodeNumber(f float64) []byte {
	return encodeFloat64(f)
}

// encodeFloat64 is the standard IEEE-754 byte-order-preserving trick:
// flip all bits for negatives, flip only the sign bit for non-negatives.
func encodeFloat64(f float64) []byte {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, bits)
	return buf
}
