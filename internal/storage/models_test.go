package storage

import (
	"context"
	"testing"

	"github.com/KevinKickass/pointc/internal/compiler"
	"github.com/KevinKickass/pointc/internal/types"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap"
)

func build(t *testing.T) *compiler.Result {
	t.Helper()
	wb := types.Workbook{
		Devices: []types.DeviceEndpoint{{Name: "Press_M1", IP: "10.0.0.1"}},
		Sheets: []types.SheetGroup{{Name: "Press", Points: []types.PointDefinition{
			{PropertyName: "Force", ValueAddress: "D10", Type: "int", Period: 5},
			{PropertyName: "Open", ValueAddress: "M4", Type: "bool"},
		}}},
	}
	s := compiler.DefaultSettings()
	s.MaxModules = 1
	res, err := compiler.New(zap.NewNop(), nil).Build(context.Background(), wb, s)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return res
}

func TestNewBuildRecord(t *testing.T) {
	res := build(t)
	rec, err := newBuildRecord(res)
	if err != nil {
		t.Fatalf("newBuildRecord: %v", err)
	}

	want := BuildSummary{
		ID:         res.ID,
		CompiledAt: res.CompiledAt,
		MaxModules: 1,
		SheetCount: 1,
		TaskCount:  len(res.Tasks),
	}
	if diff := cmp.Diff(want, rec.Summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
	if len(rec.Tasks) != len(res.Tasks) || rec.Tasks[0].Name != "Monitor_Force_M1" {
		t.Errorf("task rows = %+v", rec.Tasks)
	}
}

func TestStoredResultRoundTrip(t *testing.T) {
	res := build(t)
	rec, err := newBuildRecord(res)
	if err != nil {
		t.Fatal(err)
	}

	got, err := decodeResult(rec.Result)
	if err != nil {
		t.Fatalf("decodeResult: %v", err)
	}
	if diff := cmp.Diff(res, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("stored result differs (-want +got):\n%s", diff)
	}
}

func TestNewBuildRecordRejectsEmpty(t *testing.T) {
	if _, err := newBuildRecord(nil); err == nil {
		t.Error("nil result accepted")
	}
}
