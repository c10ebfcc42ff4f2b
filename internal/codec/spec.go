package codec

import (
	"fmt"

	"github.com/KevinKickass/pointc/internal/types"
)

// Spec is the decode descriptor attached to a tag inside a request block:
// what the tag is and which byte orders apply. Emitters render it as
// the matching parse call; Decode runs the same rule in Go.
type Spec struct {
	Type    types.PointType `json:"type"`
	Count   int             `json:"count"`
	Numeric ByteOrder       `json:"numeric_order"`
	String  ByteOrder       `json:"string_order"`
}

// SpecFor derives the decode descriptor of a tag.
func SpecFor(tag types.Tag, numeric, str ByteOrder) Spec {
	count := 1
	switch {
	case tag.Type.Array:
		count = tag.ArrayLength
	case tag.Type.Kind == types.KindString:
		count = tag.RegisterLength
	}
	return Spec{Type: tag.Type, Count: count, Numeric: numeric, String: str}
}

// Words is the number of registers (or coils) the value occupies.
func (s Spec) Words() int {
	if s.Type.Array {
		return s.Count * s.Type.ElementWidth()
	}
	if s.Type.Kind == types.KindString {
		return s.Count
	}
	return s.Type.ElementWidth()
}

// Decode applies the scalar rule of the element type at offset, repeated
// every ElementWidth registers for arrays.
func (s Spec) Decode(words []uint16, offset int) (any, error) {
	if s.Type.Kind == types.KindBool {
		return nil, fmt.Errorf("bool values are read from coils, not registers")
	}

	if !s.Type.Array {
		switch s.Type.Kind {
		case types.KindShort:
			return DecodeShort(words, offset, s.Numeric)
		case types.KindInt:
			return DecodeInt32(words, offset, s.Numeric)
		case types.KindFloat:
			return DecodeFloat32(words, offset, s.Numeric)
		case types.KindString:
			return DecodeString(words, offset, s.Count, s.String)
		}
		return nil, fmt.Errorf("unsupported kind %q", s.Type.Kind)
	}

	switch s.Type.Kind {
	case types.KindShort:
		return DecodeShorts(words, offset, s.Count, s.Numeric)
	case types.KindInt:
		return DecodeInt32s(words, offset, s.Count, s.Numeric)
	case types.KindFloat:
		return DecodeFloat32s(words, offset, s.Count, s.Numeric)
	case types.KindString:
		if err := need(words, offset, s.Count); err != nil {
			return nil, err
		}
		out := make([]string, s.Count)
		for i := range out {
			out[i], _ = DecodeString(words, offset+i, 1, s.String)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported kind %q", s.Type.Kind)
}

// DecodeCoils reads a bool or bool[] value from coil states.
func (s Spec) DecodeCoils(bits []bool, offset int) (any, error) {
	if s.Type.Kind != types.KindBool {
		return nil, fmt.Errorf("%s values are read from registers, not coils", s.Type)
	}
	if !s.Type.Array {
		v, err := DecodeCoils(bits, offset, 1)
		if err != nil {
			return nil, err
		}
		return v[0], nil
	}
	return DecodeCoils(bits, offset, s.Count)
}
