//go:build withcv
// +build withcv

/*
NAME
  solve.go

DESCRIPTION
  Drum Solver (spec §4.2): locates the drum circle in the first frame via
  a single-circle Hough-accumulator search and computes px-per-mm
  calibration.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package geometry

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/ausocean/beadcount/internal/logging"
)

// SolveConfig groups the Solver's tunables (subset of config.Config,
// passed as plain values to keep this package independent of config).
type SolveConfig struct {
	DiameterMM      float64
	MinRadiusRatio  float64
	MaxRadiusRatio  float64
	BlurKsize       int
	RimMarginRatio  float64
	HoughDP         float64
	HoughParam1     float64
	HoughParam2Base float64
}

// marginFraction bounds how far a solved centre may fall outside the
// frame before it is rejected as a sanity-check failure and the solver
// falls back (supplement from original_source/src/drum.py's
// validate_geometry, see SPEC_FULL.md §12).
const marginFraction = 0.5

// Solve locates the drum circle in frame (RGB, row-major, 3 bytes/px)
// and returns a Geometry. On failure to find a circle, or a circle whose
// centre fails the sanity check, it falls back to a centred default
// circle rather than leaving the pipeline undefined.
func Solve(pixW, pixH int, rgb []byte, cfg SolveConfig, override Override, log logging.Logger) Geometry {
	if log == nil {
		log = logging.Discard
	}

	minDim := pixW
	if pixH < minDim {
		minDim = pixH
	}

	rimMarginPx := int(float64(minDim) * cfg.RimMarginRatio * 0.5) // rim margin in px derived from half-drum-radius scale; refined below once radius is known

	var g Geometry
	circle, ok := houghSingleCircle(pixW, pixH, rgb, minDim, cfg, log)
	if ok && sane(circle, pixW, pixH) {
		g = Geometry{
			CenterX:  circle.center.X,
			CenterY:  circle.center.Y,
			RadiusPx: circle.radius,
			Source:   SourceAuto,
		}
	} else {
		log.Warning("drum solve failed or centre insane, falling back to frame centre")
		g = Geometry{
			CenterX:  pixW / 2,
			CenterY:  pixH / 2,
			RadiusPx: int(0.42 * float64(minDim)),
			Source:   SourceFallback,
		}
	}

	g.RimMarginPx = int(float64(g.RadiusPx) * cfg.RimMarginRatio)
	if g.RimMarginPx < 1 {
		g.RimMarginPx = rimMarginPx
	}
	g.PxPerMM = CalibrationFromDiameter(g.RadiusPx, cfg.DiameterMM)

	if override.CenterX != nil {
		g.CenterX = *override.CenterX
	}
	if override.CenterY != nil {
		g.CenterY = *override.CenterY
	}
	if override.RadiusPx != nil {
		g.RadiusPx = *override.RadiusPx
	}
	if override.PxPerMM != nil {
		g.PxPerMM = *override.PxPerMM
	}
	if override.CenterX != nil || override.CenterY != nil || override.RadiusPx != nil || override.PxPerMM != nil {
		g.Source = SourceManual
	}

	return g
}

// sane applies the original_source validate_geometry check: the centre
// must lie within 50% of the frame dimensions.
func sane(c circleResult, w, h int) bool {
	marginW := float64(w) * marginFraction
	marginH := float64(h) * marginFraction
	if float64(c.center.X) < -marginW || float64(c.center.X) > float64(w)+marginW {
		return false
	}
	if float64(c.center.Y) < -marginH || float64(c.center.Y) > float64(h)+marginH {
		return false
	}
	return c.radius >= 1
}

type circleResult struct {
	center image.Point
	radius int
}

// houghSingleCircle runs a blur-to-grayscale + gradient Hough circle
// search constrained to at most one accepted circle, per spec §4.2.
func houghSingleCircle(w, h int, rgb []byte, minDim int, cfg SolveConfig, log logging.Logger) (circleResult, bool) {
	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, rgb)
	if err != nil {
		log.Error("could not build Mat from frame bytes", "err", err)
		return circleResult{}, false
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBToGray)

	ksize := cfg.BlurKsize
	if ksize < 1 {
		ksize = 9
	}
	if ksize%2 == 0 {
		ksize++
	}
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(ksize, ksize), 2, 2, gocv.BorderDefault)

	minR := int(cfg.MinRadiusRatio * float64(minDim))
	maxR := int(cfg.MaxRadiusRatio * float64(minDim))

	circles := gocv.NewMat()
	defer circles.Close()

	param2 := math.Max(cfg.HoughParam2Base, cfg.HoughParam2Base*math.Sqrt(float64(h)/1080.0))

	gocv.HoughCirclesWithParams(
		blurred,
		&circles,
		gocv.HoughGradient,
		cfg.HoughDP,
		float64(minDim), // minDist: one circle only
		cfg.HoughParam1,
		param2,
		minR,
		maxR,
	)

	if circles.Cols() == 0 {
		return circleResult{}, false
	}

	// Strongest candidate is the first column (OpenCV orders by
	// accumulator strength).
	v := circles.GetVecfAt(0, 0)
	return circleResult{
		center: image.Pt(int(v[0]+0.5), int(v[1]+0.5)),
		radius: int(v[2] + 0.5),
	}, true
}
