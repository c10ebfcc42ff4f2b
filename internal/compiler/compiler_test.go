package compiler

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/KevinKickass/pointc/internal/codec"
	"github.com/KevinKickass/pointc/internal/config"
	"github.com/KevinKickass/pointc/internal/pointtable"
	"github.com/KevinKickass/pointc/internal/types"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Publish(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) kinds() []EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

func workbook() types.Workbook {
	handshake := types.PointDefinition{
		PropertyName:   "Weight",
		DisplayName:    "Net weight",
		ValueAddress:   "D210",
		Type:           "float",
		TriggerAddress: "D200",
		ReturnAddress:  "D201",
		Period:         -5,
	}
	return types.Workbook{
		Devices: []types.DeviceEndpoint{
			{Name: "Loader_M1", IP: "192.168.1.10"},
			{Name: "TempZone_M1", IP: "192.168.1.11"},
			{Name: "Loader_M2", IP: "192.168.1.12"},
			{Name: "TempZone_M2", IP: "192.168.1.13", Port: 5020},
		},
		Sheets: []types.SheetGroup{
			{Name: "Loader", Points: []types.PointDefinition{
				{PropertyName: "Speed", ValueAddress: "D100", Type: "int", Period: 1000},
				{PropertyName: "Running", ValueAddress: "M10", Type: "bool"},
				handshake,
			}},
			{Name: "TempZone", Points: []types.PointDefinition{
				{PropertyName: "Temp", ValueAddress: "D100", Type: "float", Period: 0.2},
				{PropertyName: "Profile", ValueAddress: "D110", Type: "short[]", Length: 8, Period: 0.2},
			}},
		},
	}
}

func find(t *testing.T, res *Result, name string) types.TaskDescriptor {
	t.Helper()
	for _, td := range res.Tasks {
		if td.Name == name {
			return td
		}
	}
	t.Fatalf("task %s not found", name)
	return types.TaskDescriptor{}
}

func TestBuildEndToEnd(t *testing.T) {
	sink := &recordingSink{}
	c := New(zap.NewNop(), sink)

	res, err := c.Build(context.Background(), workbook(), DefaultSettings())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if td := find(t, res, "Loader_M2_Handshake_T200"); td.TimingMs != 5000 || td.ReturnAddress != "201" {
		t.Errorf("handshake = %+v", td)
	}
	if td := find(t, res, "TempZone_M1_Change_0.2"); td.TimingMs != 200 || len(td.Tags) != 2 {
		t.Errorf("change = %+v", td)
	}
	if td := find(t, res, "Loader_M1_Period_1000"); td.Kind != types.TaskPeriodic || td.TimingMs != 1000 {
		t.Errorf("periodic = %+v", td)
	}

	var ack []string
	for _, w := range res.Writes {
		ack = append(ack, w.Task)
		if w.Address != 201 || w.Value != 11 {
			t.Errorf("write = %+v", w)
		}
	}
	if diff := cmp.Diff([]string{"Loader_M1_Handshake_T200", "Loader_M2_Handshake_T200"}, ack); diff != "" {
		t.Errorf("ack writes mismatch (-want +got):\n%s", diff)
	}

	var endpoints []string
	for _, r := range res.Requests {
		if r.Task == "TempZone_M2_Regs_0" {
			endpoints = append(endpoints, r.Endpoint)
		}
	}
	if diff := cmp.Diff([]string{"192.168.1.13:5020"}, endpoints); diff != "" {
		t.Errorf("endpoints mismatch (-want +got):\n%s", diff)
	}

	want := []EventType{EventBuildStarted, EventBuildLog, EventBuildLog, EventBuildCompleted}
	if diff := cmp.Diff(want, sink.kinds()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildTransactionIDsPerDevice(t *testing.T) {
	res, err := New(zap.NewNop(), nil).Build(context.Background(), workbook(), DefaultSettings())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	last := map[string]uint16{}
	for _, r := range res.Requests {
		if r.TransactionID <= last[r.Device] {
			t.Fatalf("%s: transaction %d after %d on %s", r.Task, r.TransactionID, last[r.Device], r.Device)
		}
		last[r.Device] = r.TransactionID
	}
}

func TestBuildMissingDeviceMapping(t *testing.T) {
	wb := workbook()
	wb.Devices = wb.Devices[:3]

	sink := &recordingSink{}
	_, err := New(zap.NewNop(), sink).Build(context.Background(), wb, DefaultSettings())

	var mapping *pointtable.MissingDeviceMappingError
	if !errors.As(err, &mapping) || mapping.Device != "TempZone_M2" {
		t.Fatalf("err = %v; want missing TempZone_M2", err)
	}

	events := sink.kinds()
	if events[len(events)-1] != EventBuildFailed {
		t.Errorf("events = %v; want build_failed last", events)
	}
	if code := sink.events[len(sink.events)-1].Code; code != "MAPPING_005" {
		t.Errorf("event code = %s", code)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	c := New(zap.NewNop(), nil)
	first, err := c.Build(context.Background(), workbook(), DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Build(context.Background(), workbook(), DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}

	if first.ID == second.ID {
		t.Error("builds share an ID")
	}
	if diff := cmp.Diff(first, second, cmpopts.IgnoreFields(Result{}, "ID", "CompiledAt")); diff != "" {
		t.Errorf("rebuild differs (-first +second):\n%s", diff)
	}
}

func TestBuildOversizedTagWarns(t *testing.T) {
	wb := workbook()
	wb.Sheets[1].Points = append(wb.Sheets[1].Points, types.PointDefinition{
		PropertyName: "Recipe", ValueAddress: "D400", Type: "string", Length: 130,
	})

	res, err := New(zap.NewNop(), nil).Build(context.Background(), wb, DefaultSettings())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// One batch-size and one Modbus-limit warning per module.
	if len(res.Warnings) != 4 {
		t.Errorf("warnings = %v", res.Warnings)
	}
	batch := 0
	for _, w := range res.Warnings {
		if strings.Contains(w, "tag Recipe_M") && strings.Contains(w, "spans 130 addresses") {
			batch++
		}
	}
	if batch != 2 {
		t.Errorf("batch-size warnings = %d; want 2 (%v)", batch, res.Warnings)
	}
}

func TestBuildNormalizesSettings(t *testing.T) {
	s := DefaultSettings()
	s.NumericByteOrder = "cdab"

	res, err := New(zap.NewNop(), nil).Build(context.Background(), workbook(), s)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Settings.NumericByteOrder != codec.CDAB || res.Requests[0].Slots[0].Decode.Numeric != codec.CDAB {
		t.Errorf("byte order not normalized: %s", res.Settings.NumericByteOrder)
	}

	s.StringByteOrder = "CDAB"
	if _, err := New(zap.NewNop(), nil).Build(context.Background(), workbook(), s); err == nil {
		t.Error("CDAB string order accepted")
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(zap.NewNop(), nil).Build(ctx, workbook(), DefaultSettings()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v; want context.Canceled", err)
	}
}

func TestSettingsFromConfig(t *testing.T) {
	cfg, err := config.Load("", nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := SettingsFromConfig(cfg.Compiler)
	if err != nil {
		t.Fatalf("SettingsFromConfig: %v", err)
	}
	if diff := cmp.Diff(DefaultSettings(), got); diff != "" {
		t.Errorf("config defaults differ from DefaultSettings (-want +got):\n%s", diff)
	}
}

func TestApplyOverrides(t *testing.T) {
	gap, order := 0, "DCBA"
	got := DefaultSettings().Apply(&Overrides{MaxGap: &gap, NumericByteOrder: &order})
	if got.MaxGap != 0 || got.NumericByteOrder != codec.DCBA || got.MaxBatchSize != 100 {
		t.Errorf("Apply = %+v", got)
	}
	if DefaultSettings().Apply(nil) != DefaultSettings() {
		t.Error("nil overrides changed settings")
	}
}

func TestCompiledAtUsesClock(t *testing.T) {
	c := New(zap.NewNop(), nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	res, err := c.Build(context.Background(), workbook(), DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	if !res.CompiledAt.Equal(fixed) {
		t.Errorf("CompiledAt = %v", res.CompiledAt)
	}
}

func TestBuildRejectsTooManyModules(t *testing.T) {
	s := DefaultSettings()
	s.MaxModules = math.MaxInt
	if err := s.Validate(); err == nil {
		t.Fatal("max modules math.MaxInt accepted")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := New(zap.NewNop(), nil).Build(ctx, types.Workbook{Devices: []types.DeviceEndpoint{}}, s); err == nil {
		t.Error("build with math.MaxInt modules succeeded")
	}
}

func TestBuildRejectsOutOfRangePeriod(t *testing.T) {
	sink := &recordingSink{}
	wb := workbook()
	wb.Sheets[0].Points[0].Period = 1e19

	_, err := New(zap.NewNop(), sink).Build(context.Background(), wb, DefaultSettings())
	var period *pointtable.PeriodError
	if !errors.As(err, &period) || period.Property != "Speed" {
		t.Fatalf("err = %v; want PeriodError for Speed", err)
	}
	if kinds := sink.kinds(); kinds[len(kinds)-1] != EventBuildFailed {
		t.Errorf("events = %v", kinds)
	}
}
