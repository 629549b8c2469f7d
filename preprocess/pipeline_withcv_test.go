//go:build withcv
// +build withcv

/*
NAME
  pipeline_withcv_test.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package preprocess

import (
	"testing"

	"github.com/ausocean/beadcount/config"
	"github.com/ausocean/beadcount/decode"
	"github.com/ausocean/beadcount/geometry"
)

// rgbDisc builds a 3-byte-per-pixel RGB frame with a bright filled disc
// on a mid-grey background, for feeding to the real gocv-backed Run.
func rgbDisc(w, h, cx, cy, r int) decode.Frame {
	pix := make([]byte, w*h*3)
	for i := range pix {
		pix[i] = 80
	}
	r2 := r * r
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r2 {
				continue
			}
			x, y := cx+dx, cy+dy
			if x < 0 || y < 0 || x >= w || y >= h {
				continue
			}
			off := (y*w + x) * 3
			pix[off], pix[off+1], pix[off+2] = 220, 220, 220
		}
	}
	return decode.Frame{Width: w, Height: h, Pix: pix}
}

func TestRunNoiseModes(t *testing.T) {
	const w, h = 120, 120
	frame := rgbDisc(w, h, 60, 60, 30)
	geo := geometry.Geometry{CenterX: 60, CenterY: 60, RadiusPx: 55, PxPerMM: 5}
	roi := geo.ROIMask(h, w)

	for _, mode := range []string{"bilateral", "gaussian", "median"} {
		mode := mode
		t.Run(mode, func(t *testing.T) {
			cfg := config.Default()
			cfg.NoiseMode = mode
			cfg.BlurKsize = 7

			out, qm, err := Run(frame, roi, cfg)
			if err != nil {
				t.Fatalf("Run(%s) error: %v", mode, err)
			}
			if out.W != w || out.H != h {
				t.Fatalf("Run(%s) output shape = (%d,%d), want (%d,%d)", mode, out.W, out.H, w, h)
			}
			if qm.StdAfter < 0 {
				t.Fatalf("Run(%s) StdAfter = %f, want non-negative", mode, qm.StdAfter)
			}
			// Outside the ROI must be exactly 0.
			if v := out.At(0, 0); v != 0 {
				t.Fatalf("Run(%s) pixel outside ROI = %d, want 0", mode, v)
			}
		})
	}
}

func TestRunShapeMismatchRejected(t *testing.T) {
	frame := rgbDisc(50, 50, 25, 25, 10)
	badROI := geometry.Geometry{CenterX: 5, CenterY: 5, RadiusPx: 4, PxPerMM: 1}.ROIMask(10, 10)

	cfg := config.Default()
	_, _, err := Run(frame, badROI, cfg)
	if err == nil {
		t.Fatal("Run with mismatched ROI shape: want error, got nil")
	}
}
