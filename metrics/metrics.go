/*
NAME
  metrics.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package metrics computes quality metrics over an already-produced
// cache: count stability, size-distribution stability, confidence
// distribution, and throughput. It is pure and side-effect-free — it
// never reads the clock or the filesystem; wall-clock timing for
// throughput is supplied by the caller.
package metrics

import (
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/ausocean/beadcount/cache"
	"github.com/ausocean/beadcount/classify"
)

// CountStability reports per-frame total-count consistency across a run.
type CountStability struct {
	FrameCounts []int
	Mean        float64
	StdDev      float64
	CV          float64 // coefficient of variation; lower is better
	Min         int
	Max         int
}

// Rating buckets CV per the original tool's thresholds: <0.10 excellent,
// <0.20 good, <0.35 acceptable, else poor.
func (c CountStability) Rating() string {
	switch {
	case c.CV < 0.10:
		return "excellent"
	case c.CV < 0.20:
		return "good"
	case c.CV < 0.35:
		return "acceptable"
	default:
		return "poor"
	}
}

// SizeDistribution reports, per class label, the mean and stdev of its
// proportion of each frame's total count. A class's proportion series
// holds only the frames in which that class appears; frames with zero
// detections, and frames whose detections are all of other classes, are
// left out of it rather than counted as zero.
type SizeDistribution struct {
	MeanProportion map[string]float64
	StdProportion  map[string]float64
}

// ClassCV returns the coefficient of variation for cls's proportion
// series, or 0 if its mean proportion is 0.
func (s SizeDistribution) ClassCV(cls string) float64 {
	mean := s.MeanProportion[cls]
	if mean <= 0 {
		return 0
	}
	return s.StdProportion[cls] / mean
}

// Rating buckets cls's proportion CV per the original tool's
// size-distribution thresholds: <0.15 stable, <0.30 moderate, else
// variable. These thresholds are distinct from CountStability.Rating's
// count-based ones.
func (s SizeDistribution) Rating(cls string) string {
	cv := s.ClassCV(cls)
	switch {
	case cv < 0.15:
		return "stable"
	case cv < 0.30:
		return "moderate"
	default:
		return "variable"
	}
}

// Confidence reports the distribution of detection confidences across
// a run, with a coarse histogram matching the original tool's bins.
type Confidence struct {
	N         int
	Mean      float64
	Median    float64
	StdDev    float64
	Min       float64
	Max       float64
	Histogram map[string]int // "0.5-0.6", "0.6-0.7", ..., "0.9-1.0"
}

// Rating flags a collapsed or suspiciously narrow confidence spread,
// per the original tool's heuristic.
func (c Confidence) Rating() string {
	switch {
	case c.N == 0:
		return "no detections"
	case c.Max-c.Min < 0.2:
		return "collapsed"
	case c.StdDev < 0.05:
		return "narrow"
	case c.StdDev > 0.25:
		return "wide"
	default:
		return "normal"
	}
}

// Report is the complete quality summary for a processed frame range.
type Report struct {
	NFrames         int
	TotalDetections int
	CountStability  CountStability
	SizeDist        SizeDistribution
	Confidence      Confidence
	ThroughputFPS   float64
}

// Summarize computes a Report over frameRange (all cached frame ids if
// omitted, else [frameRange[0], frameRange[1]] inclusive). elapsedS is
// the caller-measured wall-clock duration of the run; throughput is 0
// if elapsedS <= 0.
func Summarize(vc *cache.VideoCache, elapsedS float64, frameRange ...int) Report {
	ids := selectFrameIDs(vc, frameRange)

	counts := make([]int, 0, len(ids))
	classProportions := make(map[string][]float64)
	var allConf []float64
	total := 0

	for _, id := range ids {
		fd := vc.GetFrame(id)
		n := len(fd.Balls)
		counts = append(counts, n)
		total += n

		if n == 0 {
			continue
		}
		byClass := make(map[string]int)
		for _, b := range fd.Balls {
			byClass[classKey(b)]++
			allConf = append(allConf, b.Conf)
		}
		for cls, cnt := range byClass {
			classProportions[cls] = append(classProportions[cls], float64(cnt)/float64(n))
		}
	}

	return Report{
		NFrames:         len(ids),
		TotalDetections: total,
		CountStability:  countStability(counts),
		SizeDist:        sizeDistribution(classProportions),
		Confidence:      confidenceStats(allConf),
		ThroughputFPS:   throughput(len(ids), elapsedS),
	}
}

func selectFrameIDs(vc *cache.VideoCache, frameRange []int) []int {
	all := vc.FrameIDs()
	if len(frameRange) < 2 {
		return all
	}
	lo, hi := frameRange[0], frameRange[1]
	out := make([]int, 0, len(all))
	for _, id := range all {
		if id >= lo && id <= hi {
			out = append(out, id)
		}
	}
	return out
}

func countStability(counts []int) CountStability {
	if len(counts) == 0 {
		return CountStability{}
	}
	xs := make([]float64, len(counts))
	min, max := counts[0], counts[0]
	for i, c := range counts {
		xs[i] = float64(c)
		if c < min {
			min = c
		}
		if c > max {
			max = c
		}
	}
	mean := stat.Mean(xs, nil)
	var sd float64
	if len(xs) > 1 {
		sd = stat.StdDev(xs, nil)
	}
	cv := 0.0
	if mean > 0 {
		cv = sd / mean
	}
	return CountStability{FrameCounts: counts, Mean: mean, StdDev: sd, CV: cv, Min: min, Max: max}
}

func sizeDistribution(byClass map[string][]float64) SizeDistribution {
	mean := make(map[string]float64, len(byClass))
	std := make(map[string]float64, len(byClass))
	for cls, props := range byClass {
		mean[cls] = stat.Mean(props, nil)
		if len(props) > 1 {
			std[cls] = stat.StdDev(props, nil)
		}
	}
	return SizeDistribution{MeanProportion: mean, StdProportion: std}
}

func confidenceStats(xs []float64) Confidence {
	if len(xs) == 0 {
		return Confidence{Histogram: histogram(nil)}
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	mean := stat.Mean(xs, nil)
	var sd float64
	if len(xs) > 1 {
		sd = stat.StdDev(xs, nil)
	}
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)

	return Confidence{
		N:         len(xs),
		Mean:      mean,
		Median:    median,
		StdDev:    sd,
		Min:       sorted[0],
		Max:       sorted[len(sorted)-1],
		Histogram: histogram(xs),
	}
}

func histogram(xs []float64) map[string]int {
	h := map[string]int{"0.5-0.6": 0, "0.6-0.7": 0, "0.7-0.8": 0, "0.8-0.9": 0, "0.9-1.0": 0}
	for _, c := range xs {
		switch {
		case c < 0.6:
			h["0.5-0.6"]++
		case c < 0.7:
			h["0.6-0.7"]++
		case c < 0.8:
			h["0.7-0.8"]++
		case c < 0.9:
			h["0.8-0.9"]++
		default:
			h["0.9-1.0"]++
		}
	}
	return h
}

func throughput(nFrames int, elapsedS float64) float64 {
	if elapsedS <= 0 {
		return 0
	}
	return float64(nFrames) / elapsedS
}

func classKey(b classify.Ball) string {
	if b.Class == classify.UnknownClass {
		return "unknown"
	}
	return strconv.Itoa(b.Class) + "mm"
}
