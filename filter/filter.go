/*
NAME
  filter.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package filter implements the four-stage Cleanup Filter (spec §4.7):
// rim margin, brightness gate, annulus suppression, and confidence
// threshold + non-max suppression, applied in that fixed order.
package filter

import (
	"math"
	"sort"

	"github.com/ausocean/beadcount/geometry"
	"github.com/ausocean/beadcount/preprocess"
	"github.com/ausocean/beadcount/score"
)

// Filtered is a Scored detection that survived all cleanup stages. Same
// shape as Scored; downstream stages don't need the feature map.
type Filtered = score.Scored

// Counters records survivor counts at each stage, for reporting.
type Counters struct {
	Input              int
	AfterRimMargin     int
	AfterBrightness    int
	AfterAnnulus       int
	AfterConfidenceNMS int
}

// Params groups the filter's tunables (subset of config.Config).
type Params struct {
	RimMarginRatio      float64
	BrightnessThreshold float64
	BrightnessPatchSize int
	MinConfidence       float64
	NMSOverlapThreshold float64
}

// Run applies the four cleanup stages in order and returns the
// survivors plus stage counters.
func Run(scored []score.Scored, geo geometry.Geometry, pre *preprocess.Image, p Params) ([]Filtered, Counters) {
	var c Counters
	c.Input = len(scored)

	afterRim := rimMargin(scored, geo, p.RimMarginRatio)
	c.AfterRimMargin = len(afterRim)

	afterBrightness := brightnessGate(afterRim, pre, p.BrightnessThreshold, p.BrightnessPatchSize)
	c.AfterBrightness = len(afterBrightness)

	afterAnnulus := annulusSuppress(afterBrightness)
	c.AfterAnnulus = len(afterAnnulus)

	survivors := confidenceAndNMS(afterAnnulus, p.MinConfidence, p.NMSOverlapThreshold)
	c.AfterConfidenceNMS = len(survivors)

	return survivors, c
}

// rimMargin drops detections whose centre lies outside the inner drum
// circle of radius (1 - rimMarginRatio)*radius_px.
func rimMargin(in []score.Scored, geo geometry.Geometry, rimMarginRatio float64) []score.Scored {
	out := make([]score.Scored, 0, len(in))
	for _, d := range in {
		if geo.IsInside(d.X, d.Y, rimMarginRatio) {
			out = append(out, d)
		}
	}
	return out
}

// brightnessGate drops detections whose patch_size x patch_size mean
// intensity on the preprocessed image falls below threshold. Patches
// that cannot be sampled (off-image) survive.
func brightnessGate(in []score.Scored, pre *preprocess.Image, threshold float64, patchSize int) []score.Scored {
	half := patchSize / 2
	out := make([]score.Scored, 0, len(in))
	for _, d := range in {
		var sum float64
		n := 0
		for y := d.Y - half; y < d.Y-half+patchSize; y++ {
			for x := d.X - half; x < d.X-half+patchSize; x++ {
				if x >= 0 && y >= 0 && x < pre.W && y < pre.H {
					sum += float64(pre.At(x, y))
					n++
				}
			}
		}
		if n == 0 || sum/float64(n) >= threshold {
			out = append(out, d)
		}
	}
	return out
}

// annulusSuppress drops the inner-ring echo of hollow beads: for each
// larger detection A (processed in descending-radius order), any
// smaller survivor B with |centre(B)-centre(A)| < 0.5*r_A and
// r_B < 0.8*r_A is suppressed.
func annulusSuppress(in []score.Scored) []score.Scored {
	sorted := append([]score.Scored(nil), in...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].RPx > sorted[j].RPx })

	suppressed := make([]bool, len(sorted))
	for i := range sorted {
		if suppressed[i] {
			continue
		}
		a := sorted[i]
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] {
				continue
			}
			b := sorted[j]
			if b.RPx >= 0.8*a.RPx {
				continue
			}
			if centerDistance(a.X, a.Y, b.X, b.Y) < 0.5*a.RPx {
				suppressed[j] = true
			}
		}
	}

	out := make([]score.Scored, 0, len(sorted))
	for i, d := range sorted {
		if !suppressed[i] {
			out = append(out, d)
		}
	}
	return out
}

// confidenceAndNMS drops anything below minConfidence, then greedily
// accepts the remainder sorted by descending confidence, rejecting any
// candidate whose overlap with an already-accepted detection exceeds
// overlapThreshold.
func confidenceAndNMS(in []score.Scored, minConfidence, overlapThreshold float64) []Filtered {
	candidates := make([]score.Scored, 0, len(in))
	for _, d := range in {
		if d.Conf >= minConfidence {
			candidates = append(candidates, d)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Conf > candidates[j].Conf })

	var accepted []Filtered
	for _, cand := range candidates {
		overlapsAccepted := false
		for _, acc := range accepted {
			if circleOverlap(cand, acc) > overlapThreshold {
				overlapsAccepted = true
				break
			}
		}
		if !overlapsAccepted {
			accepted = append(accepted, cand)
		}
	}
	return accepted
}

func centerDistance(x1, y1, x2, y2 int) float64 {
	dx := float64(x1 - x2)
	dy := float64(y1 - y2)
	return math.Sqrt(dx*dx + dy*dy)
}

// circleOverlap returns 1 - d/(r1+r2), where d is the centre distance.
// Two circles whose centre distance equals the sum of their radii have
// overlap 0.
func circleOverlap(a, b score.Scored) float64 {
	d := centerDistance(a.X, a.Y, b.X, b.Y)
	denom := a.RPx + b.RPx
	if denom <= 0 {
		return 0
	}
	return 1 - d/denom
}
