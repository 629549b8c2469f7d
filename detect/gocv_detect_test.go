//go:build withcv
// +build withcv

/*
NAME
  gocv_detect_test.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package detect

import (
	"testing"

	"github.com/ausocean/beadcount/config"
	"github.com/ausocean/beadcount/geometry"
	"github.com/ausocean/beadcount/preprocess"
)

// discImage returns a single-channel image with a filled bright disc of
// radius r centred at (cx, cy) on a dark background, sharp enough for
// both the Hough and contour paths to key on.
func discImage(w, h, cx, cy, r int) *preprocess.Image {
	im := preprocess.NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			im.Set(x, y, 20)
		}
	}
	r2 := r * r
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r2 {
				continue
			}
			x, y := cx+dx, cy+dy
			if x >= 0 && y >= 0 && x < w && y < h {
				im.Set(x, y, 230)
			}
		}
	}
	return im
}

// TestGenerateBothPathsFire exercises Generate end-to-end against the
// real gocv Hough and contour search, confirming both paths can surface
// the same well-formed circle (the invariant the scorer and filter
// assume, regardless of which path a given bead was found by).
func TestGenerateBothPathsFire(t *testing.T) {
	const w, h = 400, 400
	im := discImage(w, h, 200, 200, 60)

	geo := geometry.Geometry{CenterX: 200, CenterY: 200, RadiusPx: 180, PxPerMM: 10}
	cfg := config.Default()
	cfg.MinBeadDiameterMM = 3
	cfg.MaxBeadDiameterMM = 12
	cfg.RadiusMarginLow = 0.5
	cfg.RadiusMarginHigh = 1.8
	cfg.ContourMinCircularity = 0.5

	raws := Generate(im, geo, cfg)
	if len(raws) == 0 {
		t.Fatal("Generate found no candidates for a well-formed disc")
	}

	var hough, contour bool
	for _, r := range raws {
		switch r.Source {
		case SourceHough:
			hough = true
		case SourceContour:
			contour = true
		}
	}
	if !hough {
		t.Error("Hough path did not fire")
	}
	if !contour {
		t.Error("contour path did not fire")
	}
}

// TestGenerateEmptyFrameNoCandidates confirms the blank-frame edge case:
// a flat image with no circle must yield no candidates from either path.
func TestGenerateEmptyFrameNoCandidates(t *testing.T) {
	const w, h = 200, 200
	im := preprocess.NewImage(w, h)
	for i := range im.Pix {
		im.Pix[i] = 40
	}

	geo := geometry.Geometry{CenterX: 100, CenterY: 100, RadiusPx: 90, PxPerMM: 10}
	cfg := config.Default()

	raws := Generate(im, geo, cfg)
	if len(raws) != 0 {
		t.Fatalf("Generate on a blank frame = %d candidates, want 0", len(raws))
	}
}
