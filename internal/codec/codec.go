// Package codec decodes raw Modbus register words into typed values and
// encodes typed values back into words. Every function is pure and
// offset-addressed over a zero-based word slice.
package codec

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrShortBuffer is returned when a decode reaches past the end of the
// supplied words.
var ErrShortBuffer = errors.New("codec: short buffer")

func need(data []uint16, offset, n int) error {
	if offset < 0 || n < 0 || offset+n > len(data) {
		return fmt.Errorf("%w: need %d words at offset %d, have %d", ErrShortBuffer, n, offset, len(data))
	}
	return nil
}

// DecodeShort reads a signed 16-bit value from one register.
func DecodeShort(data []uint16, offset int, order ByteOrder) (int16, error) {
	if err := need(data, offset, 1); err != nil {
		return 0, err
	}
	w := data[offset]
	if order.ByteSwapped() {
		w = swap(w)
	}
	return int16(w), nil
}

// DecodeUint32 assembles two registers at offset, offset+1.
func DecodeUint32(data []uint16, offset int, order ByteOrder) (uint32, error) {
	if err := need(data, offset, 2); err != nil {
		return 0, err
	}
	a, b := data[offset], data[offset+1]
	if order.ByteSwapped() {
		a, b = swap(a), swap(b)
	}
	hi, lo := a, b
	if order.WordSwapped() {
		hi, lo = b, a
	}
	return uint32(hi)<<16 | uint32(lo), nil
}

func DecodeInt32(data []uint16, offset int, order ByteOrder) (int32, error) {
	v, err := DecodeUint32(data, offset, order)
	return int32(v), err
}

// DecodeFloat32 reinterprets the assembled 32 bits as IEEE-754 single precision.
func DecodeFloat32(data []uint16, offset int, order ByteOrder) (float32, error) {
	v, err := DecodeUint32(data, offset, order)
	return math.Float32frombits(v), err
}

// DecodeString reads length registers as 2 ASCII bytes each. ABCD emits
// the high byte of each register first, BADC the low byte. Trailing NUL
// bytes are trimmed.
func DecodeString(data []uint16, offset, length int, order ByteOrder) (string, error) {
	if err := need(data, offset, length); err != nil {
		return "", err
	}
	buf := make([]byte, 0, length*2)
	for _, w := range data[offset : offset+length] {
		hi, lo := byte(w>>8), byte(w)
		if order.ByteSwapped() {
			buf = append(buf, lo, hi)
		} else {
			buf = append(buf, hi, lo)
		}
	}
	return strings.TrimRight(string(buf), "\x00"), nil
}

func DecodeShorts(data []uint16, offset, n int, order ByteOrder) ([]int16, error) {
	if err := need(data, offset, n); err != nil {
		return nil, err
	}
	out := make([]int16, n)
	for i := range out {
		out[i], _ = DecodeShort(data, offset+i, order)
	}
	return out, nil
}

func DecodeInt32s(data []uint16, offset, n int, order ByteOrder) ([]int32, error) {
	if err := need(data, offset, 2*n); err != nil {
		return nil, err
	}
	out := make([]int32, n)
	for i := range out {
		out[i], _ = DecodeInt32(data, offset+2*i, order)
	}
	return out, nil
}

func DecodeFloat32s(data []uint16, offset, n int, order ByteOrder) ([]float32, error) {
	if err := need(data, offset, 2*n); err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		out[i], _ = DecodeFloat32(data, offset+2*i, order)
	}
	return out, nil
}

// DecodeCoils copies n coil states starting at offset.
func DecodeCoils(bits []bool, offset, n int) ([]bool, error) {
	if offset < 0 || n < 0 || offset+n > len(bits) {
		return nil, fmt.Errorf("%w: need %d coils at offset %d, have %d", ErrShortBuffer, n, offset, len(bits))
	}
	out := make([]bool, n)
	copy(out, bits[offset:offset+n])
	return out, nil
}

// EncodeShort is the inverse of DecodeShort.
func EncodeShort(v int16, order ByteOrder) uint16 {
	w := uint16(v)
	if order.ByteSwapped() {
		w = swap(w)
	}
	return w
}

// EncodeUint32 is the inverse of DecodeUint32.
func EncodeUint32(v uint32, order ByteOrder) [2]uint16 {
	hi, lo := uint16(v>>16), uint16(v)
	a, b := hi, lo
	if order.WordSwapped() {
		a, b = lo, hi
	}
	if order.ByteSwapped() {
		a, b = swap(a), swap(b)
	}
	return [2]uint16{a, b}
}

func EncodeInt32(v int32, order ByteOrder) [2]uint16 {
	return EncodeUint32(uint32(v), order)
}

func EncodeFloat32(v float32, order ByteOrder) [2]uint16 {
	return EncodeUint32(math.Float32bits(v), order)
}

// EncodeString packs s into exactly length registers, NUL padded.
// Bytes beyond 2*length are dropped.
func EncodeString(s string, length int, order ByteOrder) []uint16 {
	buf := make([]byte, 2*length)
	copy(buf, s)
	out := make([]uint16, length)
	for i := range out {
		first, second := buf[2*i], buf[2*i+1]
		if order.ByteSwapped() {
			out[i] = uint16(second)<<8 | uint16(first)
		} else {
			out[i] = uint16(first)<<8 | uint16(second)
		}
	}
	return out
}
