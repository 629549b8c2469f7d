package geometry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadOverrideRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.json")
	const body = `{"center_x_px":512,"center_y_px":384,"radius_px":300,"rim_margin_px":20,"source":"manual"}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := LoadOverride(path)
	if err != nil {
		t.Fatalf("LoadOverride: %v", err)
	}
	want := Geometry{CenterX: 512, CenterY: 384, RadiusPx: 300, RimMarginPx: 20, Source: SourceManual}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("LoadOverride mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadOverrideDefaultsSourceToManual(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.json")
	const body = `{"center_x_px":100,"center_y_px":100,"radius_px":50,"rim_margin_px":5}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := LoadOverride(path)
	if err != nil {
		t.Fatalf("LoadOverride: %v", err)
	}
	want := Geometry{CenterX: 100, CenterY: 100, RadiusPx: 50, RimMarginPx: 5, Source: SourceManual}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("LoadOverride mismatch (-want +got):\n%s", diff)
	}
}

func TestEffectiveRadius(t *testing.T) {
	g := Geometry{RadiusPx: 200, RimMarginPx: 24}
	if got := g.EffectiveRadius(); got != 176 {
		t.Fatalf("EffectiveRadius() = %d, want 176", got)
	}
}

func TestValidateDegenerate(t *testing.T) {
	g := Geometry{RadiusPx: 10, RimMarginPx: 10, PxPerMM: 1}
	var gd *GeometryDegenerate
	if err := g.Validate(); err == nil {
		t.Fatal("expected GeometryDegenerate, got nil")
	} else if !errorsAs(err, &gd) {
		t.Fatalf("expected *GeometryDegenerate, got %T", err)
	}
}

func errorsAs(err error, target **GeometryDegenerate) bool {
	gd, ok := err.(*GeometryDegenerate)
	if ok {
		*target = gd
	}
	return ok
}

func TestCalibrationFromDiameter(t *testing.T) {
	got := CalibrationFromDiameter(200, 200)
	if got != 2.0 {
		t.Fatalf("CalibrationFromDiameter() = %f, want 2.0", got)
	}
}

func TestROIMaskShape(t *testing.T) {
	g := Geometry{CenterX: 250, CenterY: 250, RadiusPx: 200}
	m := g.ROIMask(500, 500)
	if m.H != 500 || m.W != 500 {
		t.Fatalf("mask shape = (%d,%d), want (500,500)", m.H, m.W)
	}
	if !m.At(250, 250) {
		t.Fatal("centre should be inside mask")
	}
	if m.At(0, 0) {
		t.Fatal("corner should be outside mask")
	}
}

func TestInnerROIMaskShrinks(t *testing.T) {
	g := Geometry{CenterX: 250, CenterY: 250, RadiusPx: 200}
	full := g.ROIMask(500, 500)
	inner := g.InnerROIMask(500, 500, 0.12)
	// A point just inside the full radius but outside the shrunk radius
	// must be excluded from the inner mask.
	x, y := 250+195, 250
	if !full.At(x, y) {
		t.Fatal("setup: point expected inside full mask")
	}
	if inner.At(x, y) {
		t.Fatal("point within rim margin should be excluded from inner mask")
	}
}

func TestIsInside(t *testing.T) {
	g := Geometry{CenterX: 250, CenterY: 250, RadiusPx: 200}
	if !g.IsInside(250, 250, 0.12) {
		t.Fatal("centre should be inside")
	}
	if g.IsInside(445, 250, 0.12) {
		t.Fatal("point at radius 195 from centre at 88% of 200=176 should be outside")
	}
}
