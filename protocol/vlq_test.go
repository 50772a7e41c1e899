package protocol

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
)

func TestVLQEncodeDecodeInt(t *testing.T) {
	testCases := []int32{
		0, 1, -1, 95, 96, -32, -33, 127, -127, 128, -128,
		1000, -1000, 65535, -65535, 1000000, -1000000,
		1<<31 - 1, -1 << 31,
	}

	for _, expected := range testCases {
		encoded := AppendVLQ(nil, expected)

		decoded, used, err := DecodeVLQ(encoded)
		if err != nil {
			t.Errorf("Failed to decode VLQ for value %d: %v", expected, err)
			continue
		}
		if decoded != expected {
			t.Errorf("VLQ mismatch: expected %d, got %d (encoded as %v)", expected, decoded, encoded)
		}
		if used != len(encoded) {
			t.Errorf("VLQ decode consumed %d of %d bytes for value %d", used, len(encoded), expected)
		}
	}
}

func TestVLQKnownEncodings(t *testing.T) {
	testCases := []struct {
		v    int32
		want []byte
	}{
		{0, []byte{0x00}},
		{95, []byte{0x5F}},
		{-1, []byte{0x7F}},
		{96, []byte{0x80, 0x60}},
	}

	for _, tc := range testCases {
		if got := AppendVLQ(nil, tc.v); !bytes.Equal(got, tc.want) {
			t.Errorf("Encoding %d: expected %v, got %v", tc.v, tc.want, got)
		}
	}
}

func TestVLQUintAndLen(t *testing.T) {
	for _, v := range []uint32{0, 5, 95, 96, 4000, 1 << 20} {
		encoded := AppendVLQUint([]byte{0xAA}, v)
		if encoded[0] != 0xAA {
			t.Errorf("AppendVLQUint overwrote the prefix")
		}
		if VLQLen(v) != len(encoded)-1 {
			t.Errorf("VLQLen(%d) = %d, encoded %d bytes", v, VLQLen(v), len(encoded)-1)
		}
		decoded, _, err := DecodeVLQUint(encoded[1:])
		if err != nil || decoded != v {
			t.Errorf("Expected %d, got %d (%v)", v, decoded, err)
		}
	}
}

func TestVLQBufferTooSmall(t *testing.T) {
	// Continuation byte but no following byte
	if _, _, err := DecodeVLQ([]byte{0x80}); !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("Expected ErrBufferTooSmall, got %v", err)
	}
	if _, _, err := DecodeVLQ(nil); !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("Expected ErrBufferTooSmall, got %v", err)
	}
}

func TestVLQTooLong(t *testing.T) {
	data := []byte{0x81, 0x81, 0x81, 0x81, 0x81, 0x01}
	if _, _, err := DecodeVLQ(data); !errors.Is(err, ErrInvalidVLQ) {
		t.Errorf("Expected ErrInvalidVLQ, got %v", err)
	}
}
