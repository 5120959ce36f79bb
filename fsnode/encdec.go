// encdec.go - handy wrappers for encoding/decoding the basic types used by
// the FsNode wire format.
//
// Licensing Terms: GPLv2
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.

package fsnode

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTooSmall is returned when a buffer being decoded is truncated.
var ErrTooSmall = errors.New("fsnode: buffer is not big enough")

func enc32[T ~int32 | ~uint32 | int](b []byte, n T) []byte {
	be := binary.BigEndian
	be.PutUint32(b, uint32(n))
	return b[4:]
}

func dec32[T ~int | ~int32 | ~uint | ~uint32](b []byte) ([]byte, T) {
	be := binary.BigEndian
	n := be.Uint32(b[:4])
	return b[4:], T(n)
}

func encbyte(b []byte, n byte) []byte {
	b[0] = n
	return b[1:]
}

func encstr(b []byte, s string) []byte {
	n := len(s)
	b = enc32(b, n)
	copy(b, []byte(s))
	return b[n:]
}

func decstr(b []byte) ([]byte, string, error) {
	if len(b) < 4 {
		return nil, "", fmt.Errorf("unmarshal: string len: %w", ErrTooSmall)
	}

	var n int
	b, n = dec32[int](b)
	if n <= len(b) {
		return b[n:], string(b[:n]), nil
	}
	return nil, "", fmt.Errorf("unmarshal: string: %w", ErrTooSmall)
}
