package ir

import (
	"fmt"
	"strings"

	"github.com/KevinKickass/pointc/internal/codec"
	"github.com/KevinKickass/pointc/internal/pointtable"
	"github.com/KevinKickass/pointc/internal/types"
)

const (
	DefaultStringLength = 10
	DefaultArrayLength  = 5
	DefaultHost         = "127.0.0.1"
)

// Options fill in what a point or device row leaves blank.
type Options struct {
	DefaultStringLength int
	DefaultArrayLength  int
	DefaultHost         string
}

func DefaultOptions() Options {
	return Options{
		DefaultStringLength: DefaultStringLength,
		DefaultArrayLength:  DefaultArrayLength,
		DefaultHost:         DefaultHost,
	}
}

// Build derives the program from a validated workbook. It is a pure
// function of its inputs: the same workbook and options always give an
// identical program.
func Build(v *pointtable.Validated, opts Options) (*Program, error) {
	if opts.DefaultStringLength < 1 || opts.DefaultArrayLength < 1 {
		return nil, fmt.Errorf("default string and array lengths must be >= 1")
	}

	prog := &Program{
		MaxModules: v.MaxModules,
		Devices:    v.Devices,
		Sheets:     make([]Sheet, 0, len(v.Sheets)),
	}

	for _, s := range v.Sheets {
		sheet, err := buildSheet(s, opts)
		if err != nil {
			return nil, err
		}
		prog.Sheets = append(prog.Sheets, sheet)
	}

	for m := 1; m <= v.MaxModules; m++ {
		for _, s := range prog.Sheets {
			prog.Units = append(prog.Units, buildUnit(v, s, m, opts))
		}
	}

	prog.Tables = buildTables(prog.Sheets)
	prog.Bindings = buildBindings(prog.Sheets, v.MaxModules)
	prog.Recording = buildRecording(prog.Sheets, v.MaxModules)

	return prog, nil
}

func buildSheet(s types.SheetGroup, opts Options) (Sheet, error) {
	sheet := Sheet{Name: s.Name, Points: make([]Point, 0, len(s.Points))}
	for _, def := range s.Points {
		p, err := normalizePoint(def, opts)
		if err != nil {
			return Sheet{}, fmt.Errorf("sheet %s: %w", s.Name, err)
		}
		sheet.Points = append(sheet.Points, p)
	}
	sheet.Groups = groupByPeriod(s.Name, sheet.Points)
	return sheet, nil
}

func normalizePoint(def types.PointDefinition, opts Options) (Point, error) {
	pt, err := types.ParsePointType(def.Type)
	if err != nil {
		return Point{}, fmt.Errorf("point %s: %w", def.PropertyName, err)
	}
	addr, err := codec.ParseAddress(def.ValueAddress.String())
	if err != nil {
		return Point{}, fmt.Errorf("point %s: %w", def.PropertyName, err)
	}

	regs, elems := footprint(pt, def.Length, opts)

	p := Point{
		PropertyName:   def.PropertyName,
		DisplayName:    def.DisplayName,
		RawAddress:     strings.TrimSpace(def.ValueAddress.String()),
		Address:        addr,
		Type:           pt,
		RegisterLength: regs,
		ArrayLength:    elems,
		Period:         def.Period,
	}
	if strings.TrimSpace(def.TriggerAddress.String()) != "" || def.Period < 0 {
		p.TriggerAddress = codec.NormalizeAddress(def.TriggerAddress.String())
	}
	if strings.TrimSpace(def.ReturnAddress.String()) != "" || def.Period < 0 {
		p.ReturnAddress = codec.NormalizeAddress(def.ReturnAddress.String())
	}
	return p, nil
}

// footprint returns the registers (or coils) a value occupies and its
// element count. Strings are one register per two characters of Length;
// arrays are Length elements of the element width.
func footprint(pt types.PointType, length int, opts Options) (registers, elements int) {
	if pt.Array {
		n := length
		if n <= 0 {
			n = opts.DefaultArrayLength
		}
		return n * pt.ElementWidth(), n
	}
	if pt.Kind == types.KindString {
		if length <= 0 {
			return opts.DefaultStringLength, 1
		}
		return length, 1
	}
	return pt.ElementWidth(), 1
}

// groupByPeriod groups points by period in order of first appearance.
// Period 0 is monitor-only and never grouped.
func groupByPeriod(sheet string, points []Point) []PeriodGroup {
	var groups []PeriodGroup
	index := make(map[float64]int)

	for _, p := range points {
		if p.Period == 0 {
			continue
		}
		i, ok := index[p.Period]
		if !ok {
			i = len(groups)
			index[p.Period] = i
			groups = append(groups, PeriodGroup{Period: p.Period, TableName: TableName(sheet, p.Period)})
		}
		groups[i].Points = append(groups[i].Points, p)
	}

	for i := range groups {
		if groups[i].Period < 0 {
			groups[i].Triggers = groupByTrigger(groups[i].Points)
		}
	}
	return groups
}

func groupByTrigger(points []Point) []TriggerGroup {
	var groups []TriggerGroup
	index := make(map[string]int)

	for _, p := range points {
		i, ok := index[p.TriggerAddress]
		if !ok {
			i = len(groups)
			index[p.TriggerAddress] = i
			groups = append(groups, TriggerGroup{Trigger: p.TriggerAddress, ReturnAddress: p.ReturnAddress})
		}
		groups[i].Points = append(groups[i].Points, p)
	}
	return groups
}

func buildUnit(v *pointtable.Validated, s Sheet, module int, opts Options) Unit {
	name := types.DeviceName(s.Name, module)
	endpoint, ok := v.Device(name)
	if !ok {
		endpoint = types.DeviceEndpoint{Name: name, IP: opts.DefaultHost, Port: types.DefaultPort}
	}
	return Unit{
		Sheet:       s.Name,
		Module:      module,
		Device:      name,
		ServiceName: types.ServiceName(s.Name, module),
		Endpoint:    endpoint,
		Tags:        Tags(s.Points, module),
	}
}

func buildTables(sheets []Sheet) []TableSchema {
	var tables []TableSchema
	seen := make(map[string]struct{})

	for _, s := range sheets {
		for _, g := range s.Groups {
			if _, dup := seen[g.TableName]; dup {
				continue
			}
			seen[g.TableName] = struct{}{}

			cols := make([]Column, 0, len(g.Points)+1)
			cols = append(cols, Column{Name: ModuleColumn, Type: string(types.KindInt)})
			for _, p := range g.Points {
				cols = append(cols, Column{
					Name:        p.PropertyName,
					Description: p.DisplayName,
					Type:        p.Type.String(),
					JSON:        p.Type.Array,
				})
			}
			tables = append(tables, TableSchema{Name: g.TableName, Sheet: s.Name, Period: g.Period, Columns: cols})
		}
	}
	return tables
}

func buildBindings(sheets []Sheet, maxModules int) Bindings {
	b := Bindings{ModuleMin: 1, ModuleMax: maxModules}
	for _, s := range sheets {
		for _, p := range s.Points {
			b.Points = append(b.Points, Binding{
				Alias:       BindingAlias(p.PropertyName),
				Prefix:      BindingPrefix(p.PropertyName),
				DisplayName: p.DisplayName,
				Type:        p.Type.String(),
				Array:       p.Type.Array,
			})
		}
	}
	return b
}

func buildRecording(sheets []Sheet, maxModules int) []RecordingEntry {
	var out []RecordingEntry
	for m := 1; m <= maxModules; m++ {
		for _, s := range sheets {
			for _, p := range s.Points {
				out = append(out, RecordingEntry{
					Name:        types.QualifiedName(p.PropertyName, m),
					DisplayName: p.DisplayName,
					Address:     p.RawAddress,
					Type:        p.Type.String(),
				})
			}
		}
	}
	return out
}
