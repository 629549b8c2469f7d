/*
NAME
  detect.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package detect implements the dual-path Candidate Generator (spec
// §4.5): a Hough-accumulator circle detector and an edge-contour
// detector, merged without de-duplication.
package detect

import "math"

// Source identifies which path produced a Raw detection.
type Source string

const (
	SourceHough   Source = "hough"
	SourceContour Source = "contour"
)

// Raw is a candidate circle with no semantics beyond geometry.
type Raw struct {
	X, Y   int
	RPx    float64
	Source Source
}

// RadiusBounds computes (r_min, r_max) in pixels from calibration and
// configuration, per spec §4.5.
func RadiusBounds(pxPerMM, minBeadMM, maxBeadMM, marginLow, marginHigh float64) (rMin, rMax float64) {
	rMin = 0.5 * minBeadMM * pxPerMM * marginLow
	if rMin < 3 {
		rMin = 3
	}
	rMax = 0.5 * maxBeadMM * pxPerMM * marginHigh
	return rMin, rMax
}

// Param2 returns the resolution-adaptive Hough accumulator threshold
// (spec §4.5): param2 = max(base, base*sqrt(h/1080)).
func Param2(base float64, h int) float64 {
	return math.Max(base, base*math.Sqrt(float64(h)/1080.0))
}

// Circularity computes 4*pi*A/P^2 for a contour of area A and perimeter P.
func Circularity(area, perimeter float64) float64 {
	if perimeter <= 0 {
		return 0
	}
	return 4 * math.Pi * area / (perimeter * perimeter)
}
