/*
NAME
  track.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package track implements the Tracker (spec §4.9): persistent identity
// assignment across frames by class-matched greedy circle-IoU. The
// tracker mutates no shared state outside of the Tracker it's called
// on; Update returns a new slice of Balls with TrackID filled in,
// leaving the input untouched (spec §9, "Tracker graph").
package track

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ausocean/beadcount/classify"
	"github.com/ausocean/beadcount/config"
)

// track is the tracker's internal bookkeeping for one hypothesised
// persistent bead identity.
type track struct {
	id         int
	lastBall   classify.Ball
	lastFrame  int
	lostFrames int
}

// Tracker assigns persistent track ids to classified detections across
// frames. The zero value is not usable; construct with New.
type Tracker struct {
	nextID int
	tracks map[int]*track
	params config.Tracking
}

// New returns a Tracker configured with params, ready to process frame 0.
func New(params config.Tracking) *Tracker {
	return &Tracker{nextID: 1, tracks: make(map[int]*track), params: params}
}

// Reset clears all track state, starting id assignment over from 1.
func (t *Tracker) Reset() {
	t.nextID = 1
	t.tracks = make(map[int]*track)
}

// Update assigns track ids to balls observed in frameID, ages or prunes
// unmatched tracks, and returns a new slice of Balls with TrackID set.
//
// Per spec §9's documented open question, tracks are aged only when the
// frame contained at least one detection; a run of empty frames leaves
// existing tracks un-aged. This is intentional fidelity to observed,
// tested behaviour — not a bug to be "fixed" independently of the
// tracker's tests.
func (t *Tracker) Update(frameID int, balls []classify.Ball) []classify.Ball {
	if len(balls) == 0 {
		return balls
	}

	out := make([]classify.Ball, len(balls))
	copy(out, balls)

	// trackIDs fixes a column order for the scratch IoU matrix; iouMat
	// holds 0 for any (detection, track) pair that fails the class or
	// centre-distance gate, so only gated candidates ever reach the
	// threshold check below.
	trackIDs := make([]int, 0, len(t.tracks))
	for id := range t.tracks {
		trackIDs = append(trackIDs, id)
	}
	sort.Ints(trackIDs)

	type candidate struct {
		detIdx  int
		trackID int
		iou     float64
	}

	var candidates []candidate
	if len(trackIDs) > 0 {
		iouMat := mat.NewDense(len(out), len(trackIDs), nil)
		for di, b := range out {
			for tj, id := range trackIDs {
				tr := t.tracks[id]
				if tr.lastBall.Class != b.Class {
					continue
				}
				if centerDistance(b.X, b.Y, tr.lastBall.X, tr.lastBall.Y) > t.params.MaxCenterDistancePx {
					continue
				}
				iouMat.Set(di, tj, circleIoU(b.X, b.Y, b.RPx, tr.lastBall.X, tr.lastBall.Y, tr.lastBall.RPx))
			}
		}

		for di := 0; di < iouMat.RawMatrix().Rows; di++ {
			for tj, id := range trackIDs {
				iou := iouMat.At(di, tj)
				if iou >= t.params.IoUThreshold {
					candidates = append(candidates, candidate{di, id, iou})
				}
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].iou > candidates[j].iou })

	detTaken := make(map[int]bool, len(out))
	trackTaken := make(map[int]bool, len(t.tracks))

	for _, c := range candidates {
		if detTaken[c.detIdx] || trackTaken[c.trackID] {
			continue
		}
		detTaken[c.detIdx] = true
		trackTaken[c.trackID] = true

		tr := t.tracks[c.trackID]
		out[c.detIdx].TrackID = tr.id
		tr.lastBall = out[c.detIdx]
		tr.lastFrame = frameID
		tr.lostFrames = 0
	}

	for di := range out {
		if detTaken[di] {
			continue
		}
		id := t.nextID
		t.nextID++
		t.tracks[id] = &track{id: id, lastBall: out[di], lastFrame: frameID, lostFrames: 0}
		out[di].TrackID = id
	}

	for id, tr := range t.tracks {
		if trackTaken[id] {
			continue
		}
		tr.lostFrames++
		if tr.lostFrames > t.params.MaxLostFrames {
			delete(t.tracks, id)
		}
	}

	return out
}

func (t *Tracker) ageAndPrune() {
	for id, tr := range t.tracks {
		tr.lostFrames++
		if tr.lostFrames > t.params.MaxLostFrames {
			delete(t.tracks, id)
		}
	}
}

func centerDistance(x1, y1, x2, y2 int) float64 {
	dx := float64(x1 - x2)
	dy := float64(y1 - y2)
	return math.Sqrt(dx*dx + dy*dy)
}

// circleIoU computes the intersection-over-union of two discs using the
// standard two-circle lens-area formula; the fully-contained case
// returns (min_r/max_r)^2.
func circleIoU(x1, y1 int, r1 float64, x2, y2 int, r2 float64) float64 {
	d := centerDistance(x1, y1, x2, y2)

	if d >= r1+r2 {
		return 0
	}

	minR, maxR := r1, r2
	if minR > maxR {
		minR, maxR = maxR, minR
	}
	if d <= maxR-minR {
		ratio := minR / maxR
		return ratio * ratio
	}

	intersection := lensArea(r1, r2, d)
	union := math.Pi*r1*r1 + math.Pi*r2*r2 - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// lensArea computes the area of intersection of two circles of radii
// r1, r2 whose centres are distance d apart.
func lensArea(r1, r2, d float64) float64 {
	a1 := math.Acos(clamp(-1, 1, (d*d+r1*r1-r2*r2)/(2*d*r1)))
	a2 := math.Acos(clamp(-1, 1, (d*d+r2*r2-r1*r1)/(2*d*r2)))

	part1 := r1 * r1 * (a1 - math.Sin(2*a1)/2)
	part2 := r2 * r2 * (a2 - math.Sin(2*a2)/2)
	return part1 + part2
}

func clamp(lo, hi, v float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
