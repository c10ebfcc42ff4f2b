package pointtable

import (
	"fmt"
	"strconv"

	"github.com/KevinKickass/pointc/internal/types"
)

// BuildError is implemented by every error below. A build error aborts
// the whole compile and names the identifier the user has to fix.
type BuildError = types.CodedError

var (
	_ BuildError = (*SchemaError)(nil)
	_ BuildError = (*DuplicateIPError)(nil)
	_ BuildError = (*DuplicatePropertyNameError)(nil)
	_ BuildError = (*TriggerPeriodConflictError)(nil)
	_ BuildError = (*MissingDeviceMappingError)(nil)
	_ BuildError = (*AddressError)(nil)
	_ BuildError = (*TypeError)(nil)
	_ BuildError = (*PeriodError)(nil)
)

type SchemaError struct {
	Table string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("required table %q is missing", e.Table)
}
func (e *SchemaError) Code() string    { return "SCHEMA_001" }
func (e *SchemaError) Subject() string { return e.Table }

type DuplicateIPError struct {
	IP     string
	First  string
	Second string
}

func (e *DuplicateIPError) Error() string {
	return fmt.Sprintf("IP address %s is defined twice in %s (devices %q and %q); every device needs its own IP",
		e.IP, types.DeviceTableName, e.First, e.Second)
}
func (e *DuplicateIPError) Code() string    { return "DEVICE_002" }
func (e *DuplicateIPError) Subject() string { return e.IP }

type DuplicatePropertyNameError struct {
	Property string
	Sheet    string
}

func (e *DuplicatePropertyNameError) Error() string {
	return fmt.Sprintf("duplicate property name %q in sheet %s", e.Property, e.Sheet)
}
func (e *DuplicatePropertyNameError) Code() string    { return "POINT_003" }
func (e *DuplicatePropertyNameError) Subject() string { return e.Property }

type TriggerPeriodConflictError struct {
	Trigger string
	Sheet   string
	Periods [2]float64
}

func (e *TriggerPeriodConflictError) Error() string {
	return fmt.Sprintf("trigger %s in sheet %s is used with different periods (%s and %s)",
		e.Trigger, e.Sheet, formatPeriod(e.Periods[0]), formatPeriod(e.Periods[1]))
}
func (e *TriggerPeriodConflictError) Code() string    { return "TRIGGER_004" }
func (e *TriggerPeriodConflictError) Subject() string { return e.Trigger }

type MissingDeviceMappingError struct {
	Device string
	Sheet  string
	Module int
}

func (e *MissingDeviceMappingError) Error() string {
	return fmt.Sprintf("device %q not found in IP_Port (sheet %s, module %d)", e.Device, e.Sheet, e.Module)
}
func (e *MissingDeviceMappingError) Code() string    { return "MAPPING_005" }
func (e *MissingDeviceMappingError) Subject() string { return e.Device }

// AddressError reports a value, trigger or return address that is not a
// register number once its address-space letter is stripped.
type AddressError struct {
	Sheet    string
	Property string
	Field    string
	Value    string
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("%s %q of %s in sheet %s is not a register address", e.Field, e.Value, e.Property, e.Sheet)
}
func (e *AddressError) Code() string    { return "ADDRESS_006" }
func (e *AddressError) Subject() string { return e.Property }

type TypeError struct {
	Sheet    string
	Property string
	Type     string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type %q of %s in sheet %s is not one of bool, short, int, float, string (or an array of them)",
		e.Type, e.Property, e.Sheet)
}
func (e *TypeError) Code() string    { return "TYPE_007" }
func (e *TypeError) Subject() string { return e.Property }

// PeriodError reports a period whose tick interval is not a positive
// millisecond count that fits in 32 bits.
type PeriodError struct {
	Sheet    string
	Property string
	Period   float64
}

func (e *PeriodError) Error() string {
	return fmt.Sprintf("period %s of %s in sheet %s gives a tick interval outside 1..%d ms",
		formatPeriod(e.Period), e.Property, e.Sheet, MaxTimingMs)
}
func (e *PeriodError) Code() string    { return "PERIOD_008" }
func (e *PeriodError) Subject() string { return e.Property }

func formatPeriod(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
