/*
NAME
  geometry.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package geometry describes the drum's position and size in pixel space,
// and provides the pure ROI predicates and masks derived from it (spec
// §3 Geometry, §4.3 ROI & Geometry utilities).
package geometry

import "fmt"

// Source records how a Geometry was obtained.
type Source string

const (
	SourceAuto     Source = "auto"
	SourceCached   Source = "cached"
	SourceManual   Source = "manual"
	SourceFallback Source = "fallback"
)

// Geometry is the drum's position and calibration in pixel space. It is
// created once per video and never mutated afterwards.
type Geometry struct {
	CenterX     int
	CenterY     int
	RadiusPx    int
	PxPerMM     float64
	RimMarginPx int
	Source      Source
}

// GeometryDegenerate reports a Geometry whose effective radius collapsed
// to zero or below after the rim margin was applied.
type GeometryDegenerate struct {
	RadiusPx    int
	RimMarginPx int
}

func (e *GeometryDegenerate) Error() string {
	return fmt.Sprintf("geometry: effective radius non-positive (radius_px=%d rim_margin_px=%d)", e.RadiusPx, e.RimMarginPx)
}

// ShapeMismatch reports a mask/frame dimension mismatch.
type ShapeMismatch struct {
	Want, Got [2]int // [h, w]
}

func (e *ShapeMismatch) Error() string {
	return fmt.Sprintf("geometry: shape mismatch: want %v got %v", e.Want, e.Got)
}

// EffectiveRadius returns radius_px minus the rim margin, per spec §3's
// invariant effective_radius = radius_px - rim_margin_px >= 1.
func (g Geometry) EffectiveRadius() int {
	return g.RadiusPx - g.RimMarginPx
}

// Validate checks the invariants from spec §3.
func (g Geometry) Validate() error {
	if g.RadiusPx < 1 {
		return &GeometryDegenerate{g.RadiusPx, g.RimMarginPx}
	}
	if g.PxPerMM <= 0 {
		return fmt.Errorf("geometry: px_per_mm must be positive, got %f", g.PxPerMM)
	}
	if g.EffectiveRadius() < 1 {
		return &GeometryDegenerate{g.RadiusPx, g.RimMarginPx}
	}
	return nil
}

// CalibrationFromDiameter computes px_per_mm from a solved pixel radius
// and the physical drum diameter (spec §4.2): px_per_mm = radius_px / (diameter_mm/2).
func CalibrationFromDiameter(radiusPx int, diameterMM float64) float64 {
	return float64(radiusPx) / (diameterMM / 2)
}

// Mask is a binary 2-D mask with the same (h, w) shape as the frame it
// was derived from; 1 means inside the active region, 0 outside.
type Mask struct {
	H, W int
	bits []byte // row-major, 1 byte per pixel for simplicity; 0 or 1
}

// At reports whether (x, y) is set in the mask. Out-of-range coordinates
// report false.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return false
	}
	return m.bits[y*m.W+x] != 0
}

// ROIMask returns a mask that is 1 inside the drum circle of RadiusPx
// centred at (CenterX, CenterY), 0 elsewhere, sized (h, w).
func (g Geometry) ROIMask(h, w int) *Mask {
	return circleMask(h, w, g.CenterX, g.CenterY, g.RadiusPx)
}

// InnerROIMask returns a mask like ROIMask but with the radius scaled by
// (1 - marginRatio).
func (g Geometry) InnerROIMask(h, w int, marginRatio float64) *Mask {
	r := int(float64(g.RadiusPx) * (1 - marginRatio))
	return circleMask(h, w, g.CenterX, g.CenterY, r)
}

func circleMask(h, w, cx, cy, r int) *Mask {
	m := &Mask{H: h, W: w, bits: make([]byte, h*w)}
	if r <= 0 {
		return m
	}
	r2 := r * r
	for y := 0; y < h; y++ {
		dy := y - cy
		dy2 := dy * dy
		if dy2 > r2 {
			continue
		}
		for x := 0; x < w; x++ {
			dx := x - cx
			if dx*dx+dy2 <= r2 {
				m.bits[y*w+x] = 1
			}
		}
	}
	return m
}

// IsInside reports whether (x, y) lies within the drum circle shrunk by
// marginRatio, using squared-distance comparison (no square root), per
// spec §4.3.
func (g Geometry) IsInside(x, y int, marginRatio float64) bool {
	r := float64(g.RadiusPx) * (1 - marginRatio)
	dx := float64(x - g.CenterX)
	dy := float64(y - g.CenterY)
	return dx*dx+dy*dy <= r*r
}
