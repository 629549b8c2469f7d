package geometry

import (
	"encoding/json"
	"fmt"
	"os"
)

// overrideFile mirrors the JSON shape of spec §6's geometry override
// file: { center_x_px, center_y_px, radius_px, rim_margin_px, source? }.
type overrideFile struct {
	CenterXPx   int    `json:"center_x_px"`
	CenterYPx   int    `json:"center_y_px"`
	RadiusPx    int    `json:"radius_px"`
	RimMarginPx int    `json:"rim_margin_px"`
	Source      string `json:"source,omitempty"`
}

// LoadOverride reads a geometry override file. Its presence forces the
// Solver to skip detection entirely.
func LoadOverride(path string) (Geometry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Geometry{}, fmt.Errorf("geometry: could not read override %s: %w", path, err)
	}
	var of overrideFile
	if err := json.Unmarshal(raw, &of); err != nil {
		return Geometry{}, fmt.Errorf("geometry: could not parse override %s: %w", path, err)
	}
	src := SourceManual
	if of.Source != "" {
		src = Source(of.Source)
	}
	return Geometry{
		CenterX:     of.CenterXPx,
		CenterY:     of.CenterYPx,
		RadiusPx:    of.RadiusPx,
		RimMarginPx: of.RimMarginPx,
		Source:      src,
	}, nil
}

// Override carries caller-supplied values that win for their respective
// field, independent of one another, during Solve (spec §4.2).
type Override struct {
	PxPerMM  *float64 // calibration override
	CenterX  *int     // ROI override fields
	CenterY  *int
	RadiusPx *int
}
