//go:build withcv
// +build withcv

/*
NAME
  pipeline.go

DESCRIPTION
  The six-stage preprocessing pipeline from spec §4.4, backed by gocv.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package preprocess

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/ausocean/beadcount/config"
	"github.com/ausocean/beadcount/decode"
	"github.com/ausocean/beadcount/geometry"
)

// Run executes the six preprocessing stages on frame, masked by roi, and
// returns the resulting single-channel Image plus its quality metrics.
// Output has the same (h, w) shape as frame; pixels outside roi are
// exactly 0.
func Run(frame decode.Frame, roi *geometry.Mask, cfg config.Config) (*Image, QualityMetrics, error) {
	if roi != nil && (roi.H != frame.Height || roi.W != frame.Width) {
		return nil, QualityMetrics{}, &ShapeMismatch{Want: [2]int{frame.Height, frame.Width}, Got: [2]int{roi.H, roi.W}}
	}

	src, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Pix)
	if err != nil {
		return nil, QualityMetrics{}, err
	}
	defer src.Close()

	// 1. Grayscale.
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorRGBToGray)

	mv := maskViewFrom(roi)

	glareBefore, roiTotal := glareCountAbove(matToImage(gray), mv, 245)

	// 2. ROI apply.
	applyMask(&gray, roi)

	stdBefore := stdDev(matToImage(gray), mv)

	// 3. Illumination normalisation (white top-hat, added back).
	ksize := cfg.TophatKsize
	if ksize < 1 {
		ksize = 1
	}
	if ksize%2 == 0 {
		ksize++
	}
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(ksize, ksize))
	defer kernel.Close()
	tophat := gocv.NewMat()
	defer tophat.Close()
	gocv.MorphologyEx(gray, &tophat, gocv.MorphTophat, kernel)
	lifted := gocv.NewMat()
	defer lifted.Close()
	gocv.Add(gray, tophat, &lifted)

	// 4. Local contrast (CLAHE).
	clahe := gocv.NewCLAHEWithParams(float32(cfg.ClaheClipLimit), image.Pt(cfg.ClaheTileSize, cfg.ClaheTileSize))
	defer clahe.Close()
	contrasted := gocv.NewMat()
	defer contrasted.Close()
	clahe.Apply(lifted, &contrasted)

	// 5. Noise reduction.
	denoised := gocv.NewMat()
	defer denoised.Close()
	denoise(contrasted, &denoised, cfg)

	// 6. Glare suppression (optional).
	final := denoised
	if cfg.GlareMode != "" && cfg.GlareMode != "none" {
		suppressed := gocv.NewMat()
		suppressGlare(denoised, &suppressed, cfg)
		defer suppressed.Close()
		final = suppressed
	}

	applyMask(&final, roi)

	out := matToImage(final)
	stdAfter := stdDev(out, mv)
	glareAfter, _ := glareCountAbove(out, mv, 245)

	mn, mx := minMax(out, mv)

	qm := QualityMetrics{
		LaplacianVariance: laplacianVariance(final),
		StdBefore:         stdBefore,
		StdAfter:          stdAfter,
		Min:               mn,
		Max:               mx,
		GlareFracBefore:   fraction(glareBefore, roiTotal),
		GlareFracAfter:    fraction(glareAfter, roiTotal),
	}
	return out, qm, nil
}

func fraction(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

func applyMask(m *gocv.Mat, roi *geometry.Mask) {
	if roi == nil {
		return
	}
	for y := 0; y < m.Rows(); y++ {
		for x := 0; x < m.Cols(); x++ {
			if !roi.At(x, y) {
				m.SetUCharAt(y, x, 0)
			}
		}
	}
}

// denoise applies the configured noise-reduction filter (spec §4.4 stage
// 5). Gaussian and median modes require an odd kernel size; an even
// BlurKsize is bumped up by one, mirroring the top-hat kernel handling
// above.
func denoise(src gocv.Mat, dst *gocv.Mat, cfg config.Config) {
	switch cfg.NoiseMode {
	case "gaussian":
		ksize := oddKsize(cfg.BlurKsize)
		gocv.GaussianBlur(src, dst, image.Pt(ksize, ksize), 0, 0, gocv.BorderDefault)
	case "median":
		gocv.MedianBlur(src, dst, oddKsize(cfg.BlurKsize))
	default: // "bilateral"
		gocv.BilateralFilter(src, dst, cfg.BilateralD, cfg.BilateralSigmaColor, cfg.BilateralSigmaSpace)
	}
}

func oddKsize(k int) int {
	if k < 1 {
		k = 1
	}
	if k%2 == 0 {
		k++
	}
	return k
}

func suppressGlare(src gocv.Mat, dst *gocv.Mat, cfg config.Config) {
	thresh := cfg.GlareThreshold
	switch cfg.GlareMode {
	case "inpaint":
		mask := gocv.NewMat()
		defer mask.Close()
		gocv.Threshold(src, &mask, float32(thresh), 255, gocv.ThresholdBinary)
		kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(3, 3))
		defer kernel.Close()
		gocv.Dilate(mask, &mask, kernel)
		gocv.Inpaint(src, mask, dst, 3, gocv.InpaintTelea)
	default: // "cap"
		gocv.Threshold(src, dst, float32(thresh), float32(thresh), gocv.ThresholdTrunc)
	}
}

func matToImage(m gocv.Mat) *Image {
	im := NewImage(m.Cols(), m.Rows())
	copy(im.Pix, m.ToBytes())
	return im
}

func maskViewFrom(roi *geometry.Mask) *maskView {
	if roi == nil {
		return nil
	}
	return &maskView{at: roi.At}
}

func stdDev(im *Image, mv *maskView) float64 {
	var sum, sumSq float64
	n := 0
	for y := 0; y < im.H; y++ {
		for x := 0; x < im.W; x++ {
			if mv != nil && !mv.At(x, y) {
				continue
			}
			v := float64(im.At(x, y))
			sum += v
			sumSq += v * v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	return math.Sqrt(sumSq/float64(n) - mean*mean)
}

func minMax(im *Image, mv *maskView) (int, int) {
	mn, mx := 255, 0
	any := false
	for y := 0; y < im.H; y++ {
		for x := 0; x < im.W; x++ {
			if mv != nil && !mv.At(x, y) {
				continue
			}
			v := int(im.At(x, y))
			if v < mn {
				mn = v
			}
			if v > mx {
				mx = v
			}
			any = true
		}
	}
	if !any {
		return 0, 0
	}
	return mn, mx
}

func laplacianVariance(m gocv.Mat) float64 {
	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(m, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)
	mean, std := gocv.NewMat(), gocv.NewMat()
	defer mean.Close()
	defer std.Close()
	gocv.MeanStdDev(lap, &mean, &std)
	v := std.GetDoubleAt(0, 0)
	return v * v
}
