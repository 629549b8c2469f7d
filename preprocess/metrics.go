package preprocess

// QualityMetrics is the side product of preprocessing described in spec
// §4.4: edge clarity, contrast, and glare statistics, all computed over
// the ROI only.
type QualityMetrics struct {
	LaplacianVariance float64
	StdBefore         float64
	StdAfter          float64
	Min, Max          int
	GlareFracBefore   float64 // fraction of ROI pixels above 245 before processing
	GlareFracAfter    float64
}

// glareCountAbove counts ROI pixels strictly above threshold.
func glareCountAbove(im *Image, mask *maskView, threshold byte) (count, total int) {
	for y := 0; y < im.H; y++ {
		for x := 0; x < im.W; x++ {
			if mask != nil && !mask.At(x, y) {
				continue
			}
			total++
			if im.At(x, y) > threshold {
				count++
			}
		}
	}
	return count, total
}

// maskView is the minimal mask accessor preprocess needs; it wraps a
// *geometry.Mask's At method (see maskViewFrom) so that this file need
// not import geometry (kept decoupled so preprocess's pure Image type
// has no upstream dependency).
type maskView struct {
	at func(x, y int) bool
}

func (m *maskView) At(x, y int) bool {
	if m == nil || m.at == nil {
		return true
	}
	return m.at(x, y)
}
