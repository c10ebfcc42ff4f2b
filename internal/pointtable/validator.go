package pointtable

import (
	"fmt"
	"math"
	"strings"

	"github.com/KevinKickass/pointc/internal/codec"
	"github.com/KevinKickass/pointc/internal/types"
)

// Validated is a workbook that passed every cross-table check. Devices
// are trimmed and defaulted, sheets keep their source order.
type Validated struct {
	MaxModules int
	Devices    []types.DeviceEndpoint
	Sheets     []types.SheetGroup

	byName map[string]types.DeviceEndpoint
}

// Device looks up an endpoint by name.
func (v *Validated) Device(name string) (types.DeviceEndpoint, bool) {
	d, ok := v.byName[name]
	return d, ok
}

// MaxTimingMs bounds the tick interval a period may produce.
const MaxTimingMs = math.MaxInt32

type Validator struct {
	maxModules     int
	handshakeScale float64
}

func NewValidator(maxModules int) *Validator {
	return &Validator{maxModules: maxModules, handshakeScale: 1000}
}

// WithHandshakeScale sets the factor that turns a negative period into the
// handshake tick interval in milliseconds.
func (v *Validator) WithHandshakeScale(scale float64) *Validator {
	v.handshakeScale = scale
	return v
}

// Validate runs the checks in a fixed order and stops at the first
// violation: device table presence, IP uniqueness, property-name
// uniqueness across all sheets, trigger/period consistency per sheet,
// device mapping completeness, point address and type syntax, then
// period range.
func (v *Validator) Validate(wb types.Workbook) (*Validated, error) {
	if v.maxModules < 1 || v.maxModules > types.MaxModulesLimit {
		return nil, fmt.Errorf("max modules must be 1-%d, got %d", types.MaxModulesLimit, v.maxModules)
	}

	if wb.Devices == nil {
		return nil, &SchemaError{Table: types.DeviceTableName}
	}

	out := &Validated{
		MaxModules: v.maxModules,
		Devices:    make([]types.DeviceEndpoint, 0, len(wb.Devices)),
		Sheets:     make([]types.SheetGroup, 0, len(wb.Sheets)),
		byName:     make(map[string]types.DeviceEndpoint, len(wb.Devices)),
	}

	for _, d := range wb.Devices {
		d = d.Normalized()
		if d.Name == "" {
			continue
		}
		out.Devices = append(out.Devices, d)
		if _, exists := out.byName[d.Name]; !exists {
			out.byName[d.Name] = d
		}
	}

	for _, s := range wb.Sheets {
		name := strings.TrimSpace(s.Name)
		if name == types.DeviceTableName {
			continue
		}
		out.Sheets = append(out.Sheets, types.SheetGroup{Name: name, Points: s.Points})
	}

	if err := checkUniqueIPs(out.Devices); err != nil {
		return nil, err
	}
	if err := checkUniqueProperties(out.Sheets); err != nil {
		return nil, err
	}
	for _, s := range out.Sheets {
		if err := checkTriggerPeriods(s); err != nil {
			return nil, err
		}
	}
	if err := v.checkDeviceMapping(out); err != nil {
		return nil, err
	}
	for _, s := range out.Sheets {
		if err := checkPointSyntax(s); err != nil {
			return nil, err
		}
	}
	for _, s := range out.Sheets {
		if err := v.checkPeriods(s); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func checkUniqueIPs(devices []types.DeviceEndpoint) error {
	seen := make(map[string]string, len(devices))
	for _, d := range devices {
		if first, dup := seen[d.IP]; dup {
			return &DuplicateIPError{IP: d.IP, First: first, Second: d.Name}
		}
		seen[d.IP] = d.Name
	}
	return nil
}

func checkUniqueProperties(sheets []types.SheetGroup) error {
	seen := make(map[string]struct{})
	for _, s := range sheets {
		for _, p := range s.Points {
			if _, dup := seen[p.PropertyName]; dup {
				return &DuplicatePropertyNameError{Property: p.PropertyName, Sheet: s.Name}
			}
			seen[p.PropertyName] = struct{}{}
		}
	}
	return nil
}

func checkTriggerPeriods(s types.SheetGroup) error {
	periods := make(map[string]float64)
	for _, p := range s.Points {
		if strings.TrimSpace(p.TriggerAddress.String()) == "" {
			continue
		}
		trigger := codec.NormalizeAddress(p.TriggerAddress.String())
		if first, ok := periods[trigger]; ok {
			if first != p.Period {
				return &TriggerPeriodConflictError{
					Trigger: p.TriggerAddress.String(),
					Sheet:   s.Name,
					Periods: [2]float64{first, p.Period},
				}
			}
			continue
		}
		periods[trigger] = p.Period
	}
	return nil
}

func (v *Validator) checkDeviceMapping(cfg *Validated) error {
	for m := 1; m <= v.maxModules; m++ {
		for _, s := range cfg.Sheets {
			name := types.DeviceName(s.Name, m)
			if _, ok := cfg.byName[name]; !ok {
				return &MissingDeviceMappingError{Device: name, Sheet: s.Name, Module: m}
			}
		}
	}
	return nil
}

func checkPointSyntax(s types.SheetGroup) error {
	for _, p := range s.Points {
		if _, err := types.ParsePointType(p.Type); err != nil {
			return &TypeError{Sheet: s.Name, Property: p.PropertyName, Type: p.Type}
		}

		fields := []struct {
			name     string
			value    types.Cell
			optional bool
		}{
			{"ValueAddress", p.ValueAddress, false},
			{"TriggerAddress", p.TriggerAddress, true},
			{"ReturnAddress", p.ReturnAddress, true},
		}
		for _, f := range fields {
			if f.optional && strings.TrimSpace(f.value.String()) == "" {
				continue
			}
			if _, err := codec.ParseAddress(f.value.String()); err != nil {
				return &AddressError{Sheet: s.Name, Property: p.PropertyName, Field: f.name, Value: f.value.String()}
			}
		}
	}
	return nil
}

// checkPeriods rejects periods whose tick interval does not round to a
// whole number of milliseconds in [1, MaxTimingMs]. Period 0 is monitor only.
func (v *Validator) checkPeriods(s types.SheetGroup) error {
	for _, p := range s.Points {
		var timing float64
		switch {
		case math.IsNaN(p.Period) || math.IsInf(p.Period, 0):
			return &PeriodError{Sheet: s.Name, Property: p.PropertyName, Period: p.Period}
		case p.Period == 0:
			continue
		case p.Period >= 1:
			timing = p.Period
		case p.Period > 0:
			timing = p.Period * 1000
		default:
			timing = math.Abs(p.Period) * v.handshakeScale
		}
		if r := math.Round(timing); r < 1 || r > MaxTimingMs {
			return &PeriodError{Sheet: s.Name, Property: p.PropertyName, Period: p.Period}
		}
	}
	return nil
}
