package codec

import (
	"fmt"
	"strings"
)

// ByteOrder names the memory layout of a 32-bit value spread over two
// registers. Letters are the value's bytes from most to least significant
// as they appear on the wire.
type ByteOrder string

const (
	// ABCD: big-endian words in big-endian order.
	ABCD ByteOrder = "ABCD"
	// CDAB: low word first, bytes inside each word unchanged.
	CDAB ByteOrder = "CDAB"
	// BADC: high word first, bytes inside each word swapped.
	BADC ByteOrder = "BADC"
	// DCBA: fully little-endian.
	DCBA ByteOrder = "DCBA"
)

// ParseByteOrder accepts any of the four layouts, case-insensitive.
func ParseByteOrder(s string) (ByteOrder, error) {
	o := ByteOrder(strings.ToUpper(strings.TrimSpace(s)))
	switch o {
	case ABCD, CDAB, BADC, DCBA:
		return o, nil
	}
	return "", fmt.Errorf("unknown byte order %q (want ABCD, CDAB, BADC or DCBA)", s)
}

// ParseStringOrder accepts the two layouts meaningful for strings:
// ABCD (high byte first) and BADC (low byte first).
func ParseStringOrder(s string) (ByteOrder, error) {
	o, err := ParseByteOrder(s)
	if err != nil {
		return "", err
	}
	if o != ABCD && o != BADC {
		return "", fmt.Errorf("byte order %s is not valid for strings (want ABCD or BADC)", o)
	}
	return o, nil
}

// ByteSwapped reports whether the two bytes of every register are swapped.
func (o ByteOrder) ByteSwapped() bool {
	return o == BADC || o == DCBA
}

// WordSwapped reports whether the low word is stored first.
func (o ByteOrder) WordSwapped() bool {
	return o == CDAB || o == DCBA
}

func swap(w uint16) uint16 {
	return w<<8 | w>>8
}
