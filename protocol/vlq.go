package protocol

import "github.com/pkg/errors"

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("buffer too small for VLQ")
)

// AppendVLQ appends v in the variable length encoding, most significant
// group first. Values in [-32, 96) take one byte.
func AppendVLQ(dst []byte, v int32) []byte {
	if !(-(1<<26) <= v && v < (3<<26)) {
		dst = append(dst, byte((v>>28)&0x7F)|0x80)
	}
	if !(-(1<<19) <= v && v < (3<<19)) {
		dst = append(dst, byte((v>>21)&0x7F)|0x80)
	}
	if !(-(1<<12) <= v && v < (3<<12)) {
		dst = append(dst, byte((v>>14)&0x7F)|0x80)
	}
	if !(-(1<<5) <= v && v < (3<<5)) {
		dst = append(dst, byte((v>>7)&0x7F)|0x80)
	}
	return append(dst, byte(v&0x7F))
}

// AppendVLQUint appends an unsigned value
func AppendVLQUint(dst []byte, v uint32) []byte {
	return AppendVLQ(dst, int32(v))
}

// VLQLen returns the encoded size of v
func VLQLen(v uint32) int {
	var scratch [5]byte
	return len(AppendVLQUint(scratch[:0], v))
}

// DecodeVLQ decodes a value from the front of data and returns it with
// the number of bytes consumed
func DecodeVLQ(data []byte) (int32, int, error) {
	if len(data) == 0 {
		return 0, 0, ErrBufferTooSmall
	}

	c := uint32(data[0])
	used := 1
	v := c & 0x7F
	if (c & 0x60) == 0x60 {
		// negative, sign extend
		v |= ^uint32(0x1F)
	}

	for c&0x80 != 0 {
		if used >= len(data) {
			return 0, 0, ErrBufferTooSmall
		}
		if used == 5 {
			return 0, 0, ErrInvalidVLQ
		}
		c = uint32(data[used])
		used++
		v = (v << 7) | (c & 0x7F)
	}

	return int32(v), used, nil
}

// DecodeVLQUint decodes an unsigned value
func DecodeVLQUint(data []byte) (uint32, int, error) {
	v, n, err := DecodeVLQ(data)
	return uint32(v), n, err
}
