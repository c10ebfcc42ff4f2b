package types

import (
	"fmt"
	"strings"
)

// DefaultPort is the Modbus/TCP port used when a device row leaves Port blank.
const DefaultPort = 502

// DeviceTableName is the name of the device table inside a workbook.
const DeviceTableName = "IP_Port"

// MaxModulesLimit caps the number of identical modules a build expands.
const MaxModulesLimit = 256

// DeviceEndpoint is one row of the device table.
// Names follow the convention "{SheetName}_M{ModuleIndex}".
type DeviceEndpoint struct {
	Name string `json:"Device" yaml:"Device"`
	IP   string `json:"IP" yaml:"IP"`
	Port int    `json:"Port,omitempty" yaml:"Port,omitempty"`
}

// Normalized trims name and IP and applies the default port.
func (d DeviceEndpoint) Normalized() DeviceEndpoint {
	d.Name = strings.TrimSpace(d.Name)
	d.IP = strings.TrimSpace(d.IP)
	if d.Port <= 0 {
		d.Port = DefaultPort
	}
	return d
}

// Address returns "ip:port".
func (d DeviceEndpoint) Address() string {
	return fmt.Sprintf("%s:%d", d.IP, d.Port)
}

// DeviceName returns the endpoint name expected for a sheet/module pair.
func DeviceName(sheet string, module int) string {
	return fmt.Sprintf("%s_M%d", sheet, module)
}

// ServiceName returns the connection identifier used by the topology
// initializer, e.g. "_1Loader".
func ServiceName(sheet string, module int) string {
	return fmt.Sprintf("_%d%s", module, sheet)
}
