package csl

import (
	"os"
	"path/filepath"
	"testing"
)

const samplePackage = `EXPORT_NAME	Boeing 737-800

OBJ8_AIRCRAFT	B738_AAL
OBJ8 SOLID YES BB_Boeing:B738:B738_fuselage.obj
OBJ8 SOLID YES objects\B738_wing.obj
AIRLINE B738 AAL

OBJ8_AIRCRAFT	B738_broken
AIRLINE B738 UAL

OBJ8_AIRCRAFT	A320_DLH
OBJ8 SOLID YES A320.obj
LIVERY A320 DLH star
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xsb_aircraft.txt")
	if err := os.WriteFile(path, []byte(samplePackage), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParsePackage(t *testing.T) {
	var warnings []string
	models, err := ParsePackage(writeSample(t), func(m string) { warnings = append(warnings, m) })
	if err != nil {
		t.Fatal(err)
	}

	if len(models) != 2 {
		t.Fatalf("expected 2 usable models, got %d", len(models))
	}

	m := models[0]
	if m.Name != "B738_AAL" || m.AirlineCode != "AAL" {
		t.Errorf("first model: got name=%q code=%q", m.Name, m.AirlineCode)
	}
	if len(m.ObjFiles) != 2 {
		t.Fatalf("expected 2 OBJ files, got %v", m.ObjFiles)
	}
	if m.ObjFiles[0] != "B738_fuselage.obj" {
		t.Errorf("colon path not normalized: %q", m.ObjFiles[0])
	}
	if m.ObjFiles[1] != "B738_wing.obj" {
		t.Errorf("backslash path not normalized: %q", m.ObjFiles[1])
	}

	if models[1].AirlineCode != "star" {
		t.Errorf("LIVERY final token should win: %q", models[1].AirlineCode)
	}

	// The block with no OBJ8 lines is skipped with a warning.
	if len(warnings) != 1 {
		t.Errorf("expected 1 warning for the broken block, got %d: %v", len(warnings), warnings)
	}
}

func TestParsePackageMissing(t *testing.T) {
	if _, err := ParsePackage("/nonexistent/xsb_aircraft.txt", nil); err == nil {
		t.Fatal("expected error for missing package file")
	}
}
