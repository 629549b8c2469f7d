/*
NAME
  image.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package preprocess implements the six-stage deterministic pipeline from
// a colour frame plus ROI mask to a single-channel image suitable for
// circle detection (spec §4.4).
package preprocess

import (
	"fmt"
	"math"
)

// Image is a single-channel, 8-bit, row-major pixel buffer: the common
// currency between preprocess, detect, score, and filter. It carries no
// dependency on gocv so that those downstream stages' pure logic can be
// tested without cgo/OpenCV.
type Image struct {
	W, H int
	Pix  []byte
}

// NewImage allocates a zeroed Image of the given shape.
func NewImage(w, h int) *Image {
	return &Image{W: w, H: h, Pix: make([]byte, w*h)}
}

// At returns the pixel at (x, y), or 0 if out of bounds.
func (im *Image) At(x, y int) byte {
	if x < 0 || y < 0 || x >= im.W || y >= im.H {
		return 0
	}
	return im.Pix[y*im.W+x]
}

// Set writes the pixel at (x, y) if in bounds.
func (im *Image) Set(x, y int, v byte) {
	if x < 0 || y < 0 || x >= im.W || y >= im.H {
		return
	}
	im.Pix[y*im.W+x] = v
}

// ShapeMismatch reports that a mask and frame (or two images) have
// differing dimensions.
type ShapeMismatch struct {
	Want, Got [2]int // [h, w]
}

func (e *ShapeMismatch) Error() string {
	return fmt.Sprintf("preprocess: shape mismatch: want %v got %v", e.Want, e.Got)
}

// PatchMean returns the mean intensity of the square patch of side
// 2*halfSide centred at (cx, cy), clipped to image bounds. ok is false
// for a degenerate (empty after clipping) patch.
func (im *Image) PatchMean(cx, cy, halfSide int) (mean float64, ok bool) {
	mean, _, ok = im.patchStats(cx, cy, halfSide)
	return mean, ok
}

// PatchMeanStd returns mean and population standard deviation of the
// square patch of side 2*halfSide centred at (cx, cy), clipped to image
// bounds.
func (im *Image) PatchMeanStd(cx, cy, halfSide int) (mean, std float64, ok bool) {
	return im.patchStats(cx, cy, halfSide)
}

func (im *Image) patchStats(cx, cy, halfSide int) (mean, std float64, ok bool) {
	x0, x1 := cx-halfSide, cx+halfSide
	y0, y1 := cy-halfSide, cy+halfSide
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > im.W {
		x1 = im.W
	}
	if y1 > im.H {
		y1 = im.H
	}
	if x1 <= x0 || y1 <= y0 {
		return 0, 0, false
	}

	n := 0
	sum := 0.0
	for y := y0; y < y1; y++ {
		row := im.Pix[y*im.W : y*im.W+im.W]
		for x := x0; x < x1; x++ {
			sum += float64(row[x])
			n++
		}
	}
	if n == 0 {
		return 0, 0, false
	}
	mean = sum / float64(n)

	var sq float64
	for y := y0; y < y1; y++ {
		row := im.Pix[y*im.W : y*im.W+im.W]
		for x := x0; x < x1; x++ {
			d := float64(row[x]) - mean
			sq += d * d
		}
	}
	std = math.Sqrt(sq / float64(n))
	return mean, std, true
}
