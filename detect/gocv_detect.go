//go:build withcv
// +build withcv

/*
NAME
  gocv_detect.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package detect

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/ausocean/beadcount/config"
	"github.com/ausocean/beadcount/geometry"
	"github.com/ausocean/beadcount/preprocess"
)

// Generate runs both candidate paths over pre and returns their
// concatenation in (Hough-first, contour-second) order, per spec §4.5.
func Generate(pre *preprocess.Image, geo geometry.Geometry, cfg config.Config) []Raw {
	rMin, rMax := RadiusBounds(geo.PxPerMM, cfg.MinBeadDiameterMM, cfg.MaxBeadDiameterMM, cfg.RadiusMarginLow, cfg.RadiusMarginHigh)

	mat, err := gocv.NewMatFromBytes(pre.H, pre.W, gocv.MatTypeCV8UC1, pre.Pix)
	if err != nil {
		return nil
	}
	defer mat.Close()

	var out []Raw
	out = append(out, houghPath(mat, rMin, rMax, cfg)...)
	out = append(out, contourPath(mat, rMin, rMax, cfg)...)
	return out
}

func houghPath(mat gocv.Mat, rMin, rMax float64, cfg config.Config) []Raw {
	circles := gocv.NewMat()
	defer circles.Close()

	minDist := cfg.MinDistRatio * rMin
	param2 := Param2(cfg.HoughParam2Base, mat.Rows())

	gocv.HoughCirclesWithParams(
		mat,
		&circles,
		gocv.HoughGradient,
		cfg.HoughDP,
		minDist,
		cfg.HoughParam1,
		param2,
		int(rMin),
		int(rMax),
	)

	var out []Raw
	for i := 0; i < circles.Cols(); i++ {
		v := circles.GetVecfAt(0, i)
		out = append(out, Raw{
			X:      int(v[0] + 0.5),
			Y:      int(v[1] + 0.5),
			RPx:    float64(v[2]),
			Source: SourceHough,
		})
	}
	return out
}

func contourPath(mat gocv.Mat, rMin, rMax float64, cfg config.Config) []Raw {
	// Adaptive Canny: high threshold = Otsu's binarisation threshold,
	// low = half that.
	otsu := gocv.NewMat()
	defer otsu.Close()
	high := gocv.Threshold(mat, &otsu, 0, 255, gocv.ThresholdBinary+gocv.ThresholdOtsu)
	low := high / 2

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(mat, &edges, float32(low), float32(high))

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(3, 3))
	defer kernel.Close()
	gocv.MorphologyEx(edges, &edges, gocv.MorphClose, kernel)

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)

	minCirc := cfg.ContourMinCircularity

	var out []Raw
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		area := gocv.ContourArea(c)
		if area < 10 {
			continue
		}
		perimeter := gocv.ArcLength(c, true)
		circ := Circularity(area, perimeter)
		if circ < minCirc {
			continue
		}
		center, radius := gocv.MinEnclosingCircle(c)
		if float64(radius) < rMin || float64(radius) > rMax {
			continue
		}
		out = append(out, Raw{
			X:      int(center.X + 0.5),
			Y:      int(center.Y + 0.5),
			RPx:    float64(radius),
			Source: SourceContour,
		})
	}
	return out
}
