// Package bitstring provides a densely-packed, append-only bit sequence used
// to accumulate sifted key material.
package bitstring

import (
	"fmt"
	"math/bits"
)

const byteSize = 8

// A Dense is a bit string where every bit is explicitly represented, packed
// eight to a byte. The zero value is an empty string ready for appending.
type Dense struct {
	bits []byte
	len  int
}

// FromString converts a string of '1's and '0's to a Dense. Spaces are
// ignored.
func FromString(s string) (Dense, error) {
	d := Dense{}
	for _, c := range s {
		switch c {
		case '1':
			d.AppendBit(true)
		case '0':
			d.AppendBit(false)
		case ' ':
			continue
		default:
			return Dense{}, fmt.Errorf("invalid bit string rep: %s", s)
		}
	}
	return d, nil
}

// AppendBit adds a single bit to the end of d.
func (d *Dense) AppendBit(bit bool) {
	i, pos := d.len/byteSize, d.len%byteSize
	d.len++
	if pos == 0 {
		d.bits = append(d.bits, 0)
	}
	if bit {
		d.bits[i] |= 1 << pos
	}
}

// Get returns the i-th bit in this string, or false past the end.
func (d Dense) Get(i int) bool {
	if i >= d.len {
		return false
	}
	j, pos := i/byteSize, i%byteSize
	return 0 < d.bits[j]&(1<<pos)
}

// Size returns the number of bits in this string.
func (d Dense) Size() int {
	return d.len
}

// Data returns a view of the bytes underlying this string. Modifying the
// returned slice modifies the string.
func (d Dense) Data() []byte {
	return d.bits
}

// String renders d as a sequence of '0' and '1' runes in index order.
func (d Dense) String() string {
	buf := make([]byte, d.len)
	for i := 0; i < d.len; i++ {
		if d.Get(i) {
			buf[i] = '1'
		} else {
			buf[i] = '0'
		}
	}
	return string(buf)
}

// XOr returns the bitwise XOR of two bit strings. The result has the length
// of the longer argument, treating the shorter as zero-padded.
func XOr(a, b Dense) Dense {
	short, long := a, b
	if b.len < a.len {
		short, long = b, a
	}
	r := Dense{
		bits: make([]byte, 0, len(long.bits)),
		len:  long.len,
	}
	for i := range short.bits {
		r.bits = append(r.bits, a.bits[i]^b.bits[i])
	}
	for i := len(short.bits); i < len(long.bits); i++ {
		r.bits = append(r.bits, long.bits[i])
	}
	return r
}

// CountOnes returns the total number of bits set in d.
func CountOnes(d Dense) int {
	var sum int
	for _, b := range d.bits {
		sum += bits.OnesCount8(b)
	}
	return sum
}

// Equal returns true iff a and b have the same length and contents.
func Equal(a, b Dense) bool {
	return a.len == b.len && CountOnes(XOr(a, b)) == 0
}
