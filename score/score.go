/*
NAME
  score.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package score implements the Confidence Scorer (spec §4.6): a
// four-feature weighted confidence attached to each candidate, computed
// from a gradient-magnitude field shared across all candidates in a
// frame.
package score

import (
	"math"

	"github.com/ausocean/beadcount/detect"
	"github.com/ausocean/beadcount/preprocess"
)

// Features holds the four [0,1] feature values that compose Conf.
type Features struct {
	EdgeStrength float64
	Circularity  float64
	Interior     float64
	RadiusFit    float64
}

// Scored is a Raw detection extended with confidence and its features.
type Scored struct {
	detect.Raw
	Conf     float64
	Features Features
}

// GradientImage is a per-frame gradient-magnitude field, shared across
// all candidates scored in that frame and dropped at frame boundaries
// (spec §9, "Stateful scorer").
type GradientImage struct {
	W, H int
	Mag  []float64
}

// At returns the gradient magnitude at (x, y), or 0 if out of bounds.
func (g *GradientImage) At(x, y int) float64 {
	if x < 0 || y < 0 || x >= g.W || y >= g.H {
		return 0
	}
	return g.Mag[y*g.W+x]
}

// Weights holds the scorer's weighted-sum coefficients; callers must
// ensure they sum to 1 (config.Config.Validate enforces this).
type Weights struct {
	Edge, Circ, Interior, Radius float64
}

// Score computes a Scored detection for raw, sampling grad at
// samplePoints equiangular points on its circumference, and inspecting
// pre's interior patch.
func Score(raw detect.Raw, pre *preprocess.Image, grad *GradientImage, samplePoints int, interiorSampleRatio float64, rMin, rMax float64, w Weights) Scored {
	f := Features{
		EdgeStrength: edgeStrength(raw, grad, samplePoints),
		Circularity:  circularityFeature(raw, grad, samplePoints),
		Interior:     interiorFeature(raw, pre, interiorSampleRatio),
		RadiusFit:    radiusFit(raw.RPx, rMin, rMax),
	}
	conf := w.Edge*f.EdgeStrength + w.Circ*f.Circularity + w.Interior*f.Interior + w.Radius*f.RadiusFit
	conf = clamp01(conf)
	return Scored{Raw: raw, Conf: conf, Features: f}
}

// sampleCircumference returns the gradient samples at n equiangular
// points on the circle (x, y, r), and the count that fell inside the
// image bounds.
func sampleCircumference(x, y int, r float64, grad *GradientImage, n int) (samples []float64, insideCount int) {
	samples = make([]float64, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		sx := int(float64(x) + r*math.Cos(theta))
		sy := int(float64(y) + r*math.Sin(theta))
		if sx >= 0 && sy >= 0 && sx < grad.W && sy < grad.H {
			insideCount++
		}
		samples[i] = grad.At(sx, sy)
	}
	return samples, insideCount
}

func edgeStrength(raw detect.Raw, grad *GradientImage, n int) float64 {
	samples, inside := sampleCircumference(raw.X, raw.Y, raw.RPx, grad, n)
	if float64(inside) < 0.5*float64(n) {
		return 0
	}
	return clamp01(mean(samples) / 100.0)
}

func circularityFeature(raw detect.Raw, grad *GradientImage, n int) float64 {
	samples, _ := sampleCircumference(raw.X, raw.Y, raw.RPx, grad, n)
	m := mean(samples)
	if m <= 1e-9 {
		return 0
	}
	s := stddev(samples, m)
	v := 1 - s/m
	if v < 0 {
		return 0
	}
	return v
}

func interiorFeature(raw detect.Raw, pre *preprocess.Image, ratio float64) float64 {
	half := int(raw.RPx * ratio)
	mu, sigma, ok := pre.PatchMeanStd(raw.X, raw.Y, half)
	if !ok {
		return 0
	}
	brightness := math.Min(mu/128.0, 1) * math.Min((255-mu)/128.0, 1)
	uniformity := 1 - sigma/50.0
	if uniformity < 0 {
		uniformity = 0
	}
	return 0.6*brightness + 0.4*uniformity
}

// radiusFit implements the ramp from spec §4.6: 1 on [0.2,0.8] of the
// normalised range, ramping linearly to 0 at t=0 and t=1, 0 outside [0,1].
func radiusFit(r, rMin, rMax float64) float64 {
	if rMax <= rMin {
		return 0
	}
	t := (r - rMin) / (rMax - rMin)
	switch {
	case t < 0 || t > 1:
		return 0
	case t >= 0.2 && t <= 0.8:
		return 1
	case t < 0.2:
		return t / 0.2
	default: // t > 0.8
		return (1 - t) / 0.2
	}
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

func stddev(v []float64, m float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var s float64
	for _, x := range v {
		d := x - m
		s += d * d
	}
	return math.Sqrt(s / float64(len(v)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
