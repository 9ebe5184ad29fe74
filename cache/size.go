package cache

import (
	"github.com/bytedance/sonic"
)

// Size estimation constants. Strings and serialized objects are counted at
// two bytes per character; primitives use fixed estimates. Values that fail
// to serialize (cyclic structures) fall back to a fixed footprint.
const (
	sizePerChar  = 2
	sizeNumeric  = 8
	sizeBool     = 4
	sizeNil      = 0
	sizeFallback = 1024
)

// estimateSize returns the approximate byte footprint of a value
func estimateSize(value interface{}) int64 {
	switch v := value.(type) {
	case nil:
		return sizeNil
	case string:
		return int64(len(v)) * sizePerChar
	case []byte:
		return int64(len(v))
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return sizeNumeric
	case bool:
		return sizeBool
	default:
		data, err := sonic.Marshal(v)
		if err != nil {
			return sizeFallback
		}
		return int64(len(data)) * sizePerChar
	}
}
