package codec

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/KevinKickass/pointc/internal/types"
	"github.com/google/go-cmp/cmp"
)

var allOrders = []ByteOrder{ABCD, CDAB, BADC, DCBA}

func TestDecodeUint32Layouts(t *testing.T) {
	tests := []struct {
		order ByteOrder
		words []uint16
	}{
		{ABCD, []uint16{0x1234, 0x5678}},
		{CDAB, []uint16{0x5678, 0x1234}},
		{BADC, []uint16{0x3412, 0x7856}},
		{DCBA, []uint16{0x7856, 0x3412}},
	}
	for _, tc := range tests {
		got, err := DecodeUint32(tc.words, 0, tc.order)
		if err != nil {
			t.Fatalf("DecodeUint32(%v, %s): %v", tc.words, tc.order, err)
		}
		if got != 0x12345678 {
			t.Errorf("DecodeUint32(%#04x, %s) = %#08x; want 0x12345678", tc.words, tc.order, got)
		}
	}
}

func TestDecodeWordSwappedScenario(t *testing.T) {
	// value 0x12345678 stored low word first
	words := []uint16{0x5678, 0x1234}
	got, err := DecodeInt32(words, 0, CDAB)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0x12345678 {
		t.Errorf("DecodeInt32 CDAB = %#x; want 0x12345678", got)
	}
}

func TestRoundTrip32(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	values := []uint32{0, 1, 0x12345678, 0xFFFFFFFF, 0x80000000}
	for i := 0; i < 200; i++ {
		values = append(values, r.Uint32())
	}

	for _, order := range allOrders {
		for _, v := range values {
			w := EncodeUint32(v, order)
			got, err := DecodeUint32(w[:], 0, order)
			if err != nil {
				t.Fatal(err)
			}
			if got != v {
				t.Fatalf("%s round trip of %#08x = %#08x (words %#04x)", order, v, got, w)
			}
		}
	}
}

func TestRoundTripInt32(t *testing.T) {
	values := []int32{0, 1, -1, math.MaxInt32, math.MinInt32, -123456}
	for _, order := range allOrders {
		for _, v := range values {
			w := EncodeInt32(v, order)
			got, err := DecodeInt32(w[:], 0, order)
			if err != nil {
				t.Fatal(err)
			}
			if got != v {
				t.Errorf("%s int round trip of %d = %d (words %#04x)", order, v, got, w)
			}
		}
	}

	if w := EncodeInt32(-2, CDAB); w != [2]uint16{0xFFFE, 0xFFFF} {
		t.Errorf("EncodeInt32(-2, CDAB) = %#04x", w)
	}
}

func TestRoundTripFloat32(t *testing.T) {
	values := []float32{0, 1, -1, 3.14159, math.MaxFloat32, -0.001}
	for _, order := range allOrders {
		for _, v := range values {
			w := EncodeFloat32(v, order)
			got, err := DecodeFloat32(w[:], 0, order)
			if err != nil {
				t.Fatal(err)
			}
			if got != v {
				t.Errorf("%s float round trip of %v = %v", order, v, got)
			}
		}
	}

	got, _ := DecodeFloat32([]uint16{0x3F80, 0x0000}, 0, ABCD)
	if got != 1.0 {
		t.Errorf("DecodeFloat32(0x3F800000) = %v; want 1", got)
	}
}

func TestDecodeShort(t *testing.T) {
	tests := []struct {
		word  uint16
		order ByteOrder
		want  int16
	}{
		{0xFFFE, ABCD, -2},
		{0xFFFE, CDAB, -2},
		{0xFEFF, BADC, -2},
		{0xFEFF, DCBA, -2},
		{0x0100, BADC, 1},
		{0x7FFF, ABCD, 32767},
	}
	for _, tc := range tests {
		got, err := DecodeShort([]uint16{tc.word}, 0, tc.order)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("DecodeShort(%#04x, %s) = %d; want %d", tc.word, tc.order, got, tc.want)
		}
		if back := EncodeShort(got, tc.order); back != tc.word {
			t.Errorf("EncodeShort(%d, %s) = %#04x; want %#04x", got, tc.order, back, tc.word)
		}
	}
}

func TestDecodeString(t *testing.T) {
	tests := []struct {
		name   string
		words  []uint16
		length int
		order  ByteOrder
		want   string
	}{
		{"high byte first", []uint16{0x4845, 0x4C4C, 0x4F00}, 3, ABCD, "HELLO"},
		{"low byte first", []uint16{0x4548, 0x4C4C, 0x004F}, 3, BADC, "HELLO"},
		{"trailing nul registers", []uint16{0x4142, 0x0000, 0x0000}, 3, ABCD, "AB"},
		{"partial read", []uint16{0x4142, 0x4344}, 1, ABCD, "AB"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeString(tc.words, 0, tc.length, tc.order)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("DecodeString = %q; want %q", got, tc.want)
			}
		})
	}

	for _, order := range []ByteOrder{ABCD, BADC} {
		w := EncodeString("PUMP-7", 5, order)
		got, err := DecodeString(w, 0, 5, order)
		if err != nil {
			t.Fatal(err)
		}
		if got != "PUMP-7" {
			t.Errorf("%s string round trip = %q", order, got)
		}
	}
}

func TestDecodeArrays(t *testing.T) {
	words := []uint16{0xAAAA, 0x0001, 0x0002, 0x0000, 0x0003, 0x0000, 0x0004}

	shorts, err := DecodeShorts(words, 1, 2, ABCD)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int16{1, 2}, shorts); diff != "" {
		t.Errorf("DecodeShorts mismatch (-want +got):\n%s", diff)
	}

	ints, err := DecodeInt32s(words, 3, 2, CDAB)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int32{3 << 16, 4 << 16}, ints); diff != "" {
		t.Errorf("DecodeInt32s mismatch (-want +got):\n%s", diff)
	}
}

func TestShortBuffer(t *testing.T) {
	words := []uint16{1, 2, 3}
	if _, err := DecodeUint32(words, 2, ABCD); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("DecodeUint32 past end: err = %v; want ErrShortBuffer", err)
	}
	if _, err := DecodeString(words, 1, 3, ABCD); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("DecodeString past end: err = %v; want ErrShortBuffer", err)
	}
	if _, err := DecodeFloat32s(words, 0, 2, ABCD); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("DecodeFloat32s past end: err = %v; want ErrShortBuffer", err)
	}
	if _, err := DecodeShort(words, -1, ABCD); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("DecodeShort negative offset: err = %v; want ErrShortBuffer", err)
	}
}

func TestSpecDecode(t *testing.T) {
	floatArr := types.Tag{
		Name:           "Temps_M1",
		Address:        10,
		RegisterLength: 4,
		Type:           types.PointType{Kind: types.KindFloat, Array: true},
		TypeClass:      types.ClassRegister,
		ArrayLength:    2,
	}
	spec := SpecFor(floatArr, ABCD, BADC)
	if spec.Words() != 4 {
		t.Errorf("Words() = %d; want 4", spec.Words())
	}

	one := EncodeFloat32(1.5, ABCD)
	two := EncodeFloat32(-2, ABCD)
	words := []uint16{0, one[0], one[1], two[0], two[1]}
	got, err := spec.Decode(words, 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float32{1.5, -2}, got); diff != "" {
		t.Errorf("Spec.Decode mismatch (-want +got):\n%s", diff)
	}

	str := SpecFor(types.Tag{Type: types.PointType{Kind: types.KindString}, RegisterLength: 2}, ABCD, BADC)
	s, err := str.Decode([]uint16{0x4241, 0x0043}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if s != "ABC" {
		t.Errorf("string Spec.Decode = %q; want ABC", s)
	}

	coil := SpecFor(types.Tag{Type: types.PointType{Kind: types.KindBool}, RegisterLength: 1}, ABCD, BADC)
	if _, err := coil.Decode([]uint16{1}, 0); err == nil {
		t.Error("bool Spec.Decode on registers: want error")
	}
	b, err := coil.DecodeCoils([]bool{false, true}, 1)
	if err != nil || b != true {
		t.Errorf("DecodeCoils = %v, %v; want true, nil", b, err)
	}
}

func TestParseByteOrder(t *testing.T) {
	for _, s := range []string{"abcd", " CDAB ", "badc", "DCBA"} {
		if _, err := ParseByteOrder(s); err != nil {
			t.Errorf("ParseByteOrder(%q): %v", s, err)
		}
	}
	if _, err := ParseByteOrder("ACBD"); err == nil {
		t.Error("ParseByteOrder(ACBD): want error")
	}
	if _, err := ParseStringOrder("CDAB"); err == nil {
		t.Error("ParseStringOrder(CDAB): want error")
	}
}
