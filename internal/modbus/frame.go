// Package modbus describes the Modbus/TCP requests a compiled program
// issues: function codes, MBAP frames and how responses map back onto
// tag values. It never opens a connection.
package modbus

import (
	"encoding/binary"
	"fmt"
)

// Frame is an MBAP header (7 bytes) followed by the PDU.
type Frame struct {
	TransactionID uint16
	ProtocolID    uint16
	Length        uint16 // bytes following the length field
	UnitID        uint8
	FunctionCode  uint8
	Data          []byte
}

const (
	FuncCodeReadCoils            = 0x01
	FuncCodeReadHoldingRegisters = 0x03
	FuncCodeWriteSingleRegister  = 0x06
)

// PDU quantity limits of the read function codes.
const (
	MaxReadRegisters = 125
	MaxReadCoils     = 2000
)

const mbapHeaderLen = 7

// Encode serializes the complete TCP frame and sets Length.
func (f *Frame) Encode() []byte {
	f.Length = uint16(len(f.Data) + 2)

	frame := make([]byte, mbapHeaderLen+1+len(f.Data))

	binary.BigEndian.PutUint16(frame[0:2], f.TransactionID)
	binary.BigEndian.PutUint16(frame[2:4], f.ProtocolID)
	binary.BigEndian.PutUint16(frame[4:6], f.Length)
	frame[6] = f.UnitID

	frame[7] = f.FunctionCode
	copy(frame[8:], f.Data)

	return frame
}

func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < mbapHeaderLen+1 {
		return nil, fmt.Errorf("frame too short: %d bytes", len(data))
	}

	frame := &Frame{
		TransactionID: binary.BigEndian.Uint16(data[0:2]),
		ProtocolID:    binary.BigEndian.Uint16(data[2:4]),
		Length:        binary.BigEndian.Uint16(data[4:6]),
		UnitID:        data[6],
		FunctionCode:  data[7],
	}

	if frame.ProtocolID != 0x0000 {
		return nil, fmt.Errorf("invalid protocol ID: 0x%04X", frame.ProtocolID)
	}
	if frame.FunctionCode&0x80 != 0 {
		code := byte(0)
		if len(data) > 8 {
			code = data[8]
		}
		return nil, fmt.Errorf("exception response to function 0x%02X: code 0x%02X", frame.FunctionCode&0x7F, code)
	}

	if len(data) > 8 {
		frame.Data = data[8:]
	}

	return frame, nil
}

func readRequest(function uint8, transactionID uint16, unitID uint8, startAddr, quantity uint16) *Frame {
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], startAddr)
	binary.BigEndian.PutUint16(data[2:4], quantity)

	return &Frame{
		TransactionID: transactionID,
		UnitID:        unitID,
		FunctionCode:  function,
		Data:          data,
	}
}

// ReadCoilsRequest builds a function 0x01 request.
func ReadCoilsRequest(transactionID uint16, unitID uint8, startAddr, quantity uint16) *Frame {
	return readRequest(FuncCodeReadCoils, transactionID, unitID, startAddr, quantity)
}

// ReadHoldingRegistersRequest builds a function 0x03 request.
func ReadHoldingRegistersRequest(transactionID uint16, unitID uint8, startAddr, quantity uint16) *Frame {
	return readRequest(FuncCodeReadHoldingRegisters, transactionID, unitID, startAddr, quantity)
}

// WriteSingleRegisterRequest builds a function 0x06 request. The handshake
// acknowledge write uses it.
func WriteSingleRegisterRequest(transactionID uint16, unitID uint8, addr, value uint16) *Frame {
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], addr)
	binary.BigEndian.PutUint16(data[2:4], value)

	return &Frame{
		TransactionID: transactionID,
		UnitID:        unitID,
		FunctionCode:  FuncCodeWriteSingleRegister,
		Data:          data,
	}
}

// ParseRegisterResponse reads the register values of a 0x03 response.
func (f *Frame) ParseRegisterResponse() ([]uint16, error) {
	if len(f.Data) < 1 {
		return nil, fmt.Errorf("response too short")
	}

	byteCount := int(f.Data[0])
	if len(f.Data) < byteCount+1 {
		return nil, fmt.Errorf("incomplete response data")
	}

	registers := make([]uint16, byteCount/2)
	for i := range registers {
		offset := 1 + i*2
		registers[i] = binary.BigEndian.Uint16(f.Data[offset : offset+2])
	}

	return registers, nil
}

// ParseCoilResponse unpacks quantity coil states of a 0x01 response,
// least significant bit first.
func (f *Frame) ParseCoilResponse(quantity int) ([]bool, error) {
	if len(f.Data) < 1 {
		return nil, fmt.Errorf("response too short")
	}

	byteCount := int(f.Data[0])
	if len(f.Data) < byteCount+1 || byteCount*8 < quantity {
		return nil, fmt.Errorf("incomplete response data")
	}

	bits := make([]bool, quantity)
	for i := range bits {
		bits[i] = f.Data[1+i/8]&(1<<(i%8)) != 0
	}
	return bits, nil
}
