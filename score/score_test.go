package score

import (
	"math"
	"testing"

	"github.com/ausocean/beadcount/detect"
	"github.com/ausocean/beadcount/preprocess"
)

func uniformGradient(w, h int, v float64) *GradientImage {
	g := &GradientImage{W: w, H: h, Mag: make([]float64, w*h)}
	for i := range g.Mag {
		g.Mag[i] = v
	}
	return g
}

func TestEdgeStrengthClampsAt1(t *testing.T) {
	grad := uniformGradient(200, 200, 500)
	raw := detect.Raw{X: 100, Y: 100, RPx: 30}
	got := edgeStrength(raw, grad, 36)
	if got != 1 {
		t.Fatalf("edgeStrength = %f, want 1", got)
	}
}

func TestEdgeStrengthZeroWhenMostlyOutside(t *testing.T) {
	grad := uniformGradient(50, 50, 200)
	raw := detect.Raw{X: 5, Y: 5, RPx: 40} // circle mostly off-image
	got := edgeStrength(raw, grad, 36)
	if got != 0 {
		t.Fatalf("edgeStrength = %f, want 0 (insufficient in-bounds samples)", got)
	}
}

func TestCircularityFeaturePerfectUniformRing(t *testing.T) {
	grad := uniformGradient(200, 200, 80)
	raw := detect.Raw{X: 100, Y: 100, RPx: 30}
	got := circularityFeature(raw, grad, 36)
	if math.Abs(got-1) > 1e-9 {
		t.Fatalf("circularityFeature(uniform ring) = %f, want 1", got)
	}
}

func TestRadiusFitRamp(t *testing.T) {
	rMin, rMax := 10.0, 20.0
	cases := []struct {
		r    float64
		want float64
	}{
		{5, 0},   // t<0
		{10, 0},  // t=0
		{12, 1},  // t=0.2
		{15, 1},  // t=0.5
		{18, 1},  // t=0.8
		{20, 0},  // t=1
		{25, 0},  // t>1
	}
	for _, c := range cases {
		got := radiusFit(c.r, rMin, rMax)
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("radiusFit(%f) = %f, want %f", c.r, got, c.want)
		}
	}
}

func TestScoreWeightsClampAndSum(t *testing.T) {
	pre := preprocess.NewImage(200, 200)
	for i := range pre.Pix {
		pre.Pix[i] = 128
	}
	grad := uniformGradient(200, 200, 100)
	raw := detect.Raw{X: 100, Y: 100, RPx: 30}
	w := Weights{Edge: 0.35, Circ: 0.25, Interior: 0.20, Radius: 0.20}
	sc := Score(raw, pre, grad, 36, 0.7, 10, 50, w)
	if sc.Conf < 0 || sc.Conf > 1 {
		t.Fatalf("Conf = %f, want in [0,1]", sc.Conf)
	}
}

func TestInteriorFeatureDegeneratePatch(t *testing.T) {
	pre := preprocess.NewImage(10, 10)
	raw := detect.Raw{X: -100, Y: -100, RPx: 5}
	got := interiorFeature(raw, pre, 0.7)
	if got != 0 {
		t.Fatalf("interiorFeature(degenerate) = %f, want 0", got)
	}
}
