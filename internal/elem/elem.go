// Package elem defines the fixed-size record exchanged over a Ring: an
// 8-byte id plus a 128-byte NUL-padded payload, laid out bit-stably so that
// a producer and consumer in different processes on the same host agree on
// the bytes without any negotiation.
package elem

import "encoding/binary"

// DataSize is the fixed payload capacity in bytes.
const DataSize = 128

// Size is the total wire size of an Elem: 8 bytes of id plus DataSize bytes
// of payload, no alignment padding beyond the native uint64.
const Size = 8 + DataSize

// Elem is a trivially copyable record. It holds no pointers and no embedded
// length: Data is always DataSize bytes, NUL-padded.
type Elem struct {
	ID   uint64
	Data [DataSize]byte
}

// New builds an Elem, truncating data at DataSize-1 bytes and
// NUL-terminating it so the payload always fits the fixed slot.
func New(id uint64, data string) Elem {
	var e Elem
	e.ID = id
	n := len(data)
	if n > DataSize-1 {
		n = DataSize - 1
	}
	copy(e.Data[:n], data[:n])
	return e
}

// String returns the payload up to its first NUL byte.
func (e Elem) String() string {
	n := 0
	for n < DataSize && e.Data[n] != 0 {
		n++
	}
	return string(e.Data[:n])
}

// Marshal writes the bit-exact 136-byte wire form into dst, which must be at
// least Size bytes long.
func (e Elem) Marshal(dst []byte) {
	binary.NativeEndian.PutUint64(dst[0:8], e.ID)
	copy(dst[8:Size], e.Data[:])
}

// Unmarshal reads an Elem out of its bit-exact wire form. src must be at
// least Size bytes long.
func Unmarshal(src []byte) Elem {
	var e Elem
	e.ID = binary.NativeEndian.Uint64(src[0:8])
	copy(e.Data[:], src[8:Size])
	return e
}
