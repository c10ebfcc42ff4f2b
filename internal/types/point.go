package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type ValueKind string

const (
	KindBool   ValueKind = "bool"
	KindShort  ValueKind = "short"
	KindInt    ValueKind = "int"
	KindFloat  ValueKind = "float"
	KindString ValueKind = "string"
)

// PointType is a scalar value kind, optionally as a fixed-length array ("int[]").
type PointType struct {
	Kind  ValueKind `json:"kind"`
	Array bool      `json:"array,omitempty"`
}

// ParsePointType accepts the Type column of a point table, case-insensitive.
func ParsePointType(s string) (PointType, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	var pt PointType
	if strings.HasSuffix(t, "[]") {
		pt.Array = true
		t = strings.TrimSpace(strings.TrimSuffix(t, "[]"))
	}

	switch ValueKind(t) {
	case KindBool, KindShort, KindInt, KindFloat, KindString:
		pt.Kind = ValueKind(t)
	default:
		return PointType{}, fmt.Errorf("unsupported point type %q", s)
	}
	return pt, nil
}

func (t PointType) String() string {
	if t.Array {
		return string(t.Kind) + "[]"
	}
	return string(t.Kind)
}

// ElementWidth is the number of registers (or coils) one element occupies.
func (t PointType) ElementWidth() int {
	switch t.Kind {
	case KindInt, KindFloat:
		return 2
	default:
		return 1
	}
}

// Class reports which address space the type is read from.
func (t PointType) Class() TypeClass {
	if t.Kind == KindBool {
		return ClassCoil
	}
	return ClassRegister
}

// Cell is a table cell that may arrive as a JSON string or number
// (spreadsheet exports put bare addresses like 100 in numeric cells).
type Cell string

// UnmarshalJSON accepts strings, numbers and null.
func (c *Cell) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case nil:
		*c = ""
	case string:
		*c = Cell(value)
	case float64:
		*c = Cell(strconv.FormatFloat(value, 'f', -1, 64))
	default:
		return fmt.Errorf("invalid cell type: %T", value)
	}
	return nil
}

func (c Cell) String() string { return string(c) }

// PointDefinition is one row of a point table.
type PointDefinition struct {
	PropertyName   string  `json:"PropertyName" yaml:"PropertyName"`
	DisplayName    string  `json:"KeyName,omitempty" yaml:"KeyName,omitempty"`
	ValueAddress   Cell    `json:"ValueAddress,omitempty" yaml:"ValueAddress,omitempty"`
	Type           string  `json:"Type" yaml:"Type"`
	Length         int     `json:"Length,omitempty" yaml:"Length,omitempty"`
	TriggerAddress Cell    `json:"TriggerAddress,omitempty" yaml:"TriggerAddress,omitempty"`
	ReturnAddress  Cell    `json:"ReturnAddress,omitempty" yaml:"ReturnAddress,omitempty"`
	Period         float64 `json:"Period" yaml:"Period"`
}

// SheetGroup is one point table. Point order is the source row order.
type SheetGroup struct {
	Name   string            `json:"name" yaml:"name"`
	Points []PointDefinition `json:"points" yaml:"points"`
}

// Workbook is one configuration snapshot: the device table plus every
// point table in source order. A nil Devices slice means the device
// table is missing from the source.
type Workbook struct {
	Devices []DeviceEndpoint `json:"IP_Port,omitempty" yaml:"IP_Port,omitempty"`
	Sheets  []SheetGroup     `json:"sheets" yaml:"sheets"`
}
