package modbus

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/KevinKickass/pointc/internal/codec"
	"github.com/KevinKickass/pointc/internal/types"
	"github.com/google/go-cmp/cmp"
)

var device = types.DeviceEndpoint{Name: "Loader_M1", IP: "192.168.1.10", Port: 502}

func opts() Options {
	return Options{UnitID: DefaultUnitID, Numeric: codec.ABCD, String: codec.BADC}
}

func tag(name string, addr int, kind types.ValueKind, regs int) types.Tag {
	pt := types.PointType{Kind: kind}
	return types.Tag{Name: name, Address: addr, RegisterLength: regs, Type: pt, TypeClass: pt.Class(), ArrayLength: 1}
}

func TestReadHoldingRegistersFrame(t *testing.T) {
	got := ReadHoldingRegistersRequest(7, 1, 100, 6).Encode()
	want := []byte{0x00, 0x07, 0x00, 0x00, 0x00, 0x06, 0x01, 0x03, 0x00, 0x64, 0x00, 0x06}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeFrame(t *testing.T) {
	raw := []byte{0x00, 0x02, 0x00, 0x00, 0x00, 0x07, 0x01, 0x03, 0x04, 0x12, 0x34, 0x56, 0x78}
	f, err := DecodeFrame(raw)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	regs, err := f.ParseRegisterResponse()
	if err != nil {
		t.Fatalf("ParseRegisterResponse: %v", err)
	}
	if diff := cmp.Diff([]uint16{0x1234, 0x5678}, regs); diff != "" {
		t.Errorf("registers mismatch (-want +got):\n%s", diff)
	}

	if _, err := DecodeFrame(raw[:5]); err == nil {
		t.Error("short frame accepted")
	}
	bad := append([]byte(nil), raw...)
	bad[3] = 1
	if _, err := DecodeFrame(bad); err == nil {
		t.Error("non-zero protocol id accepted")
	}
	exc := []byte{0x00, 0x02, 0x00, 0x00, 0x00, 0x03, 0x01, 0x83, 0x02}
	if _, err := DecodeFrame(exc); err == nil || !strings.Contains(err.Error(), "0x02") {
		t.Errorf("exception response err = %v", err)
	}
}

func TestNewReadRequestRegisters(t *testing.T) {
	block := types.RequestBlock{
		StartAddress: 100,
		Length:       6,
		IncludedTags: []types.Tag{tag("Speed_M1", 100, types.KindInt, 2), tag("Torque_M1", 105, types.KindShort, 1)},
	}

	req, warnings := NewReadRequest("Loader_M1_Regs_0", device, block, 3, opts())
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if req.FunctionCode != FuncCodeReadHoldingRegisters || req.Endpoint != "192.168.1.10:502" {
		t.Errorf("request = %+v", req)
	}
	if req.Frame != "000300000006010300640006" {
		t.Errorf("frame = %s", req.Frame)
	}
	if req.Slots[1].Offset != 5 || req.Slots[1].Decode.Numeric != codec.ABCD {
		t.Errorf("slot = %+v", req.Slots[1])
	}
}

func TestRequestDecodeRoundTrip(t *testing.T) {
	str := tag("Label_M1", 12, types.KindString, 3)
	block := types.RequestBlock{
		StartAddress: 10,
		Length:       5,
		IncludedTags: []types.Tag{tag("Temp_M1", 10, types.KindFloat, 2), str},
	}
	req, _ := NewReadRequest("Oven_M1_Regs_0", device, block, 1, opts())

	f := codec.EncodeFloat32(21.5, codec.ABCD)
	words := append([]uint16{f[0], f[1]}, codec.EncodeString("OVEN1", 3, codec.BADC)...)

	resp := &Frame{FunctionCode: FuncCodeReadHoldingRegisters, Data: []byte{byte(2 * len(words))}}
	for _, w := range words {
		resp.Data = binary.BigEndian.AppendUint16(resp.Data, w)
	}

	got, err := req.Decode(resp)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := map[string]any{"Temp_M1": float32(21.5), "Label_M1": "OVEN1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestRequestDecodeCoils(t *testing.T) {
	block := types.RequestBlock{
		StartAddress: 1,
		Length:       10,
		IncludedTags: []types.Tag{tag("Run_M1", 1, types.KindBool, 1), tag("Jam_M1", 10, types.KindBool, 1)},
	}
	req, _ := NewReadRequest("Loader_M1_Coils_0", device, block, 1, opts())
	if req.FunctionCode != FuncCodeReadCoils {
		t.Fatalf("function = 0x%02X", req.FunctionCode)
	}

	// coil 1 (bit 0) and coil 10 (bit 9) set
	resp := &Frame{FunctionCode: FuncCodeReadCoils, Data: []byte{0x02, 0x01, 0x02}}
	got, err := req.Decode(resp)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"Run_M1": true, "Jam_M1": true}, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}

	if _, err := req.Decode(&Frame{FunctionCode: FuncCodeReadHoldingRegisters}); err == nil {
		t.Error("mismatched function accepted")
	}
}

func TestNewReadRequestWarnings(t *testing.T) {
	big := types.RequestBlock{
		StartAddress: 0,
		Length:       200,
		IncludedTags: []types.Tag{tag("Recipe_M1", 0, types.KindString, 200)},
	}
	_, warnings := NewReadRequest("Oven_M1_Regs_0", device, big, 1, opts())
	if len(warnings) != 1 || !strings.Contains(warnings[0], "limit of 125") {
		t.Errorf("warnings = %v", warnings)
	}

	far := types.RequestBlock{StartAddress: 70000, Length: 1, IncludedTags: []types.Tag{tag("X_M1", 70000, types.KindShort, 1)}}
	req, warnings := NewReadRequest("Oven_M1_Regs_1", device, far, 2, opts())
	if req.Frame != "" || len(warnings) != 1 {
		t.Errorf("frame = %q warnings = %v", req.Frame, warnings)
	}
}

func TestNewWrite(t *testing.T) {
	w, err := NewWrite("Scale_M1_Handshake_T200", "ack", 201, 11, 9, 1)
	if err != nil {
		t.Fatalf("NewWrite: %v", err)
	}
	raw, _ := hex.DecodeString(w.Frame)
	f, err := DecodeFrame(raw)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if f.FunctionCode != FuncCodeWriteSingleRegister || binary.BigEndian.Uint16(f.Data[0:2]) != 201 || binary.BigEndian.Uint16(f.Data[2:4]) != 11 {
		t.Errorf("write frame = %+v", f)
	}

	if _, err := NewWrite("t", "ack", 70000, 11, 1, 1); err == nil {
		t.Error("address out of range accepted")
	}
}
