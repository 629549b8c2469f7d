//go:build withcv
// +build withcv

/*
NAME
  gocv_gradient.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package score

import (
	"math"

	"gocv.io/x/gocv"

	"github.com/ausocean/beadcount/preprocess"
)

// ComputeGradient computes the Sobel gradient-magnitude field once for
// the frame, to be reused across every candidate scored in it.
func ComputeGradient(pre *preprocess.Image) (*GradientImage, error) {
	mat, err := gocv.NewMatFromBytes(pre.H, pre.W, gocv.MatTypeCV8UC1, pre.Pix)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	sx := gocv.NewMat()
	defer sx.Close()
	sy := gocv.NewMat()
	defer sy.Close()

	gocv.Sobel(mat, &sx, gocv.MatTypeCV64F, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(mat, &sy, gocv.MatTypeCV64F, 0, 1, 3, 1, 0, gocv.BorderDefault)

	g := &GradientImage{W: pre.W, H: pre.H, Mag: make([]float64, pre.W*pre.H)}
	for y := 0; y < pre.H; y++ {
		for x := 0; x < pre.W; x++ {
			gx := sx.GetDoubleAt(y, x)
			gy := sy.GetDoubleAt(y, x)
			g.Mag[y*pre.W+x] = math.Sqrt(gx*gx + gy*gy)
		}
	}
	return g, nil
}
