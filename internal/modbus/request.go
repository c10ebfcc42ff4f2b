package modbus

import (
	"encoding/hex"
	"fmt"
	"math"

	"github.com/KevinKickass/pointc/internal/codec"
	"github.com/KevinKickass/pointc/internal/types"
)

const DefaultUnitID uint8 = 1

// Slot locates one tag inside the response of a read request.
type Slot struct {
	Tag    string     `json:"tag"`
	Offset int        `json:"offset"`
	Decode codec.Spec `json:"decode"`
}

// Request is the wire form of one optimized read block.
type Request struct {
	Task          string `json:"task"`
	Device        string `json:"device"`
	Endpoint      string `json:"endpoint"`
	UnitID        uint8  `json:"unit_id"`
	FunctionCode  uint8  `json:"function_code"`
	StartAddress  int    `json:"start_address"`
	Quantity      int    `json:"quantity"`
	TransactionID uint16 `json:"transaction_id"`
	// Frame is the hex-encoded MBAP request, empty when the block does
	// not fit the 16-bit address fields.
	Frame string `json:"frame,omitempty"`
	Slots []Slot `json:"slots"`
}

// Write is a single-register write issued by a handshake task.
type Write struct {
	Task    string `json:"task"`
	Purpose string `json:"purpose"`
	Address int    `json:"address"`
	Value   int    `json:"value"`
	Frame   string `json:"frame,omitempty"`
}

type Options struct {
	UnitID  uint8
	Numeric codec.ByteOrder
	String  codec.ByteOrder
	// MaxCoils lowers the coil warning threshold below MaxReadCoils.
	MaxCoils int
}

// FunctionCode returns the read function of an address space.
func FunctionCode(class types.TypeClass) uint8 {
	if class == types.ClassCoil {
		return FuncCodeReadCoils
	}
	return FuncCodeReadHoldingRegisters
}

// Limit returns the largest quantity one read of the class may request.
func Limit(class types.TypeClass) int {
	if class == types.ClassCoil {
		return MaxReadCoils
	}
	return MaxReadRegisters
}

// NewReadRequest describes the read of block for task. Problems that do
// not stop the build (PDU limit exceeded, address out of range) are
// returned as warnings.
func NewReadRequest(task string, device types.DeviceEndpoint, block types.RequestBlock, transactionID uint16, opts Options) (Request, []string) {
	class := block.Class()
	req := Request{
		Task:          task,
		Device:        device.Name,
		Endpoint:      device.Address(),
		UnitID:        opts.UnitID,
		FunctionCode:  FunctionCode(class),
		StartAddress:  block.StartAddress,
		Quantity:      block.Length,
		TransactionID: transactionID,
		Slots:         make([]Slot, 0, len(block.IncludedTags)),
	}

	for _, tag := range block.IncludedTags {
		req.Slots = append(req.Slots, Slot{
			Tag:    tag.Name,
			Offset: block.Offset(tag),
			Decode: codec.SpecFor(tag, opts.Numeric, opts.String),
		})
	}

	var warnings []string
	limit := Limit(class)
	if class == types.ClassCoil && opts.MaxCoils > 0 && opts.MaxCoils < limit {
		limit = opts.MaxCoils
	}
	if block.Length > limit {
		warnings = append(warnings, fmt.Sprintf("%s: %s read of %d at %d exceeds the Modbus limit of %d",
			task, class, block.Length, block.StartAddress, limit))
	}

	if !fitsUint16(block.StartAddress) || !fitsUint16(block.Length) {
		warnings = append(warnings, fmt.Sprintf("%s: block at %d length %d does not fit a Modbus address",
			task, block.StartAddress, block.Length))
		return req, warnings
	}

	var frame *Frame
	if class == types.ClassCoil {
		frame = ReadCoilsRequest(transactionID, opts.UnitID, uint16(block.StartAddress), uint16(block.Length))
	} else {
		frame = ReadHoldingRegistersRequest(transactionID, opts.UnitID, uint16(block.StartAddress), uint16(block.Length))
	}
	req.Frame = hex.EncodeToString(frame.Encode())

	return req, warnings
}

// NewWrite describes a single-register write of value to address.
func NewWrite(task, purpose string, address, value int, transactionID uint16, unitID uint8) (Write, error) {
	w := Write{Task: task, Purpose: purpose, Address: address, Value: value}
	if !fitsUint16(address) || value < math.MinInt16 || value > math.MaxUint16 {
		return w, fmt.Errorf("%s: cannot write %d to register %d", task, value, address)
	}
	frame := WriteSingleRegisterRequest(transactionID, unitID, uint16(address), uint16(value))
	w.Frame = hex.EncodeToString(frame.Encode())
	return w, nil
}

// Decode maps a response frame onto the request's tags.
func (r Request) Decode(resp *Frame) (map[string]any, error) {
	if resp.FunctionCode != r.FunctionCode {
		return nil, fmt.Errorf("response function 0x%02X does not match request 0x%02X", resp.FunctionCode, r.FunctionCode)
	}

	values := make(map[string]any, len(r.Slots))

	if r.FunctionCode == FuncCodeReadCoils {
		bits, err := resp.ParseCoilResponse(r.Quantity)
		if err != nil {
			return nil, err
		}
		for _, s := range r.Slots {
			v, err := s.Decode.DecodeCoils(bits, s.Offset)
			if err != nil {
				return nil, fmt.Errorf("tag %s: %w", s.Tag, err)
			}
			values[s.Tag] = v
		}
		return values, nil
	}

	words, err := resp.ParseRegisterResponse()
	if err != nil {
		return nil, err
	}
	for _, s := range r.Slots {
		v, err := s.Decode.Decode(words, s.Offset)
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", s.Tag, err)
		}
		values[s.Tag] = v
	}
	return values, nil
}

func fitsUint16(v int) bool {
	return v >= 0 && v <= math.MaxUint16
}
