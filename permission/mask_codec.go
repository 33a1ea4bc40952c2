package permission

import (
	"encoding/binary"
	"errors"
)

// EncodeMask serializes a mask as 8 big-endian bytes.
func EncodeMask(mask Mask64) []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, uint64(mask))
	return out
}

// DecodeMask parses the output of [EncodeMask].
func DecodeMask(data []byte) (Mask64, error) {
	if len(data) != 8 {
		return 0, errors.New("invalid mask length")
	}
	return Mask64(binary.BigEndian.Uint64(data)), nil
}
