/*
NAME
  classify.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package classify implements the Classifier (spec §4.8): a pure,
// side-effect-free mapping from radius and calibration to physical
// diameter and size class. Calibration decoupling — reclassifying with
// a new px_per_mm without re-running detection — is the critical
// invariant this package exists to preserve.
package classify

import "github.com/ausocean/beadcount/config"

// UnknownClass is the class label for a diameter outside every
// configured bin.
const UnknownClass = -1

// Ball is a classified detection (spec §3).
type Ball struct {
	X, Y       int
	RPx        float64
	Conf       float64
	DiameterMM float64
	Class      int // one of the configured SizeBin.Class values, or UnknownClass
	TrackID    int // 0 means absent
}

// HasTrackID reports whether TrackID has been assigned.
func (b Ball) HasTrackID() bool { return b.TrackID != 0 }

// Classified is the minimal shape Classify needs from an upstream
// Filtered detection, kept decoupled from the filter package's type so
// classify has no dependency on it.
type Classified struct {
	X, Y int
	RPx  float64
	Conf float64
}

// Classify maps a single detection to a Ball using pxPerMM and bins.
// diameter_mm = 2*r_px/px_per_mm; the class is whichever half-open bin
// [min,max) contains diameter_mm, or UnknownClass if none does.
func Classify(d Classified, pxPerMM float64, bins []config.SizeBin) Ball {
	diameter := 2 * d.RPx / pxPerMM
	return Ball{
		X:          d.X,
		Y:          d.Y,
		RPx:        d.RPx,
		Conf:       d.Conf,
		DiameterMM: diameter,
		Class:      classOf(diameter, bins),
	}
}

// ClassifyAll classifies a batch of detections, preserving order.
func ClassifyAll(ds []Classified, pxPerMM float64, bins []config.SizeBin) []Ball {
	out := make([]Ball, len(ds))
	for i, d := range ds {
		out[i] = Classify(d, pxPerMM, bins)
	}
	return out
}

// Reclassify recomputes DiameterMM and Class for already-produced Balls
// at a new calibration, leaving (X, Y, RPx, Conf, TrackID) untouched —
// the calibration-decoupling invariant from spec §8 item 1.
func Reclassify(balls []Ball, pxPerMM float64, bins []config.SizeBin) []Ball {
	out := make([]Ball, len(balls))
	for i, b := range balls {
		diameter := 2 * b.RPx / pxPerMM
		out[i] = Ball{
			X:          b.X,
			Y:          b.Y,
			RPx:        b.RPx,
			Conf:       b.Conf,
			DiameterMM: diameter,
			Class:      classOf(diameter, bins),
			TrackID:    b.TrackID,
		}
	}
	return out
}

func classOf(diameterMM float64, bins []config.SizeBin) int {
	for _, b := range bins {
		if diameterMM >= b.MinMM && diameterMM < b.MaxMM {
			return b.Class
		}
	}
	return UnknownClass
}
