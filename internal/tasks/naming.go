package tasks

import (
	"fmt"

	"github.com/KevinKickass/pointc/internal/ir"
)

func MonitorName(qualifiedName string) string {
	return "Monitor_" + qualifiedName
}

func CoilBlockName(sheet string, module, index int) string {
	return fmt.Sprintf("%s_M%d_Coils_%d", sheet, module, index)
}

func RegisterBlockName(sheet string, module, index int) string {
	return fmt.Sprintf("%s_M%d_Regs_%d", sheet, module, index)
}

func PeriodicName(sheet string, module int, period float64) string {
	return fmt.Sprintf("%s_M%d_Period_%s", sheet, module, ir.FormatPeriod(period))
}

func ChangeName(sheet string, module int, period float64) string {
	return fmt.Sprintf("%s_M%d_Change_%s", sheet, module, ir.FormatPeriod(period))
}

func HandshakeName(sheet string, module int, trigger string) string {
	return fmt.Sprintf("%s_M%d_Handshake_T%s", sheet, module, trigger)
}
