// Package ir turns a validated workbook into the intermediate
// representation every emitter reads: normalized points, per-module
// units, period groups and the derived persistence, binding and
// recording descriptors.
package ir

import (
	"github.com/KevinKickass/pointc/internal/types"
)

// Point is a point definition with its address resolved and its
// footprint computed. Raw cells are kept for display and recording.
type Point struct {
	PropertyName   string          `json:"property_name"`
	DisplayName    string          `json:"display_name,omitempty"`
	RawAddress     string          `json:"raw_address"`
	Address        int             `json:"address"`
	Type           types.PointType `json:"type"`
	RegisterLength int             `json:"register_length"`
	ArrayLength    int             `json:"array_length"`
	TriggerAddress string          `json:"trigger_address,omitempty"`
	ReturnAddress  string          `json:"return_address,omitempty"`
	Period         float64         `json:"period"`
}

// Tag qualifies the point for one module.
func (p Point) Tag(module int) types.Tag {
	return types.Tag{
		Name:           types.QualifiedName(p.PropertyName, module),
		Address:        p.Address,
		RegisterLength: p.RegisterLength,
		Type:           p.Type,
		TypeClass:      p.Type.Class(),
		ArrayLength:    p.ArrayLength,
	}
}

// Tags qualifies points for one module, keeping their order.
func Tags(points []Point, module int) []types.Tag {
	out := make([]types.Tag, 0, len(points))
	for _, p := range points {
		out = append(out, p.Tag(module))
	}
	return out
}

// TriggerGroup is the set of handshake points sharing one trigger register.
// The return register is taken from the first point of the group.
type TriggerGroup struct {
	Trigger       string  `json:"trigger"`
	ReturnAddress string  `json:"return_address"`
	Points        []Point `json:"points"`
}

// PeriodGroup collects the points of a sheet that are logged together.
// Points with a negative period are also split by trigger.
type PeriodGroup struct {
	Period    float64        `json:"period"`
	TableName string         `json:"table_name"`
	Points    []Point        `json:"points"`
	Triggers  []TriggerGroup `json:"triggers,omitempty"`
}

type Sheet struct {
	Name   string        `json:"name"`
	Points []Point       `json:"points"`
	Groups []PeriodGroup `json:"groups"`
}

// Unit is one sheet instantiated for one module: the connection the
// topology initializer opens and the tags read over it.
type Unit struct {
	Sheet       string               `json:"sheet"`
	Module      int                  `json:"module"`
	Device      string               `json:"device"`
	ServiceName string               `json:"service_name"`
	Endpoint    types.DeviceEndpoint `json:"endpoint"`
	Tags        []types.Tag          `json:"tags"`
}

// Column is one stored field of a persistence table.
type Column struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	JSON        bool   `json:"json,omitempty"`
}

// ModuleColumn is prepended to every persistence table.
const ModuleColumn = "ModuleNum"

type TableSchema struct {
	Name    string   `json:"name"`
	Sheet   string   `json:"sheet"`
	Period  float64  `json:"period"`
	Columns []Column `json:"columns"`
}

// Binding maps a current-module UI alias onto the module-qualified
// property: the alias resolves to Prefix + the selected module index.
type Binding struct {
	Alias       string `json:"alias"`
	Prefix      string `json:"prefix"`
	DisplayName string `json:"display_name,omitempty"`
	Type        string `json:"type"`
	Array       bool   `json:"array,omitempty"`
}

type Bindings struct {
	ModuleMin int       `json:"module_min"`
	ModuleMax int       `json:"module_max"`
	Points    []Binding `json:"points"`
}

// RecordingEntry is the header metadata of one recorded column.
type RecordingEntry struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Address     string `json:"address"`
	Type        string `json:"type"`
}

type Program struct {
	MaxModules int                    `json:"max_modules"`
	Devices    []types.DeviceEndpoint `json:"devices"`
	Sheets     []Sheet                `json:"sheets"`
	Units      []Unit                 `json:"units"`
	Tables     []TableSchema          `json:"tables"`
	Bindings   Bindings               `json:"bindings"`
	Recording  []RecordingEntry       `json:"recording"`
}

// Unit returns the unit of a sheet/module pair.
func (p *Program) Unit(sheet string, module int) (Unit, bool) {
	for _, u := range p.Units {
		if u.Sheet == sheet && u.Module == module {
			return u, true
		}
	}
	return Unit{}, false
}
