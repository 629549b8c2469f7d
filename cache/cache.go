/*
NAME
  cache.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package cache implements the Results Cache (spec §4.11): a hybrid
// append-JSONL-while-processing, finalise-to-random-access-JSON store
// that drives a separate playback/overlay viewer.
package cache

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ausocean/beadcount/config"
	"github.com/ausocean/beadcount/pipeline"
)

const schemaVersion = "2.0"

// CacheIO reports a disk write/flush/rename failure.
type CacheIO struct {
	Op   string
	Path string
	Err  error
}

func (e *CacheIO) Error() string {
	return fmt.Sprintf("cache: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CacheIO) Unwrap() error { return e.Err }

// Metadata carries the run's invariant video/calibration context.
type Metadata struct {
	VideoPath   string    `json:"video_path"`
	FPS         float64   `json:"fps"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	TotalFrames int       `json:"total_frames"`
	PxPerMM     float64   `json:"px_per_mm"`
	DrumCenter  [2]int    `json:"drum_center"`
	DrumRadius  int       `json:"drum_radius"`
	CreatedAt   time.Time `json:"created_at"`
	RunID       string    `json:"run_id"`
}

// ballJSON mirrors the on-disk Ball shape from spec §6, with r_px,
// diameter_mm, conf rounded to 2-3 decimals on write.
type ballJSON struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	RPx        float64 `json:"r_px"`
	DiameterMM float64 `json:"diameter_mm"`
	Cls        string  `json:"cls"`
	Conf       float64 `json:"conf"`
	TrackID    *int    `json:"track_id,omitempty"`
}

type frameJSON struct {
	FrameID   int        `json:"frame_id"`
	Timestamp float64    `json:"timestamp"`
	Balls     []ballJSON `json:"balls"`
}

type document struct {
	Version  string               `json:"version"`
	Metadata Metadata             `json:"metadata"`
	Config   config.Config        `json:"config"`
	Frames   map[string]frameJSON `json:"frames"`
}

// VideoCache is the read-side, random-access view of a finalised (or
// recovered-from-JSONL) cache.
type VideoCache struct {
	Metadata Metadata
	Config   config.Config
	frames   map[int]pipeline.FrameDetections
}

// GetFrame returns the cached detections for frameID, or an empty
// FrameDetections if the cache is sparse at that id — never an error.
func (vc *VideoCache) GetFrame(frameID int) pipeline.FrameDetections {
	if vc == nil {
		return pipeline.FrameDetections{FrameID: frameID}
	}
	fd, ok := vc.frames[frameID]
	if !ok {
		return pipeline.FrameDetections{FrameID: frameID}
	}
	return fd
}

// FrameIDs returns the sorted list of frame ids present in the cache.
func (vc *VideoCache) FrameIDs() []int {
	ids := make([]int, 0, len(vc.frames))
	for id := range vc.frames {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// IsReady reports whether the cache has at least one frame.
func (vc *VideoCache) IsReady() bool { return vc != nil && len(vc.frames) > 0 }

func round(v float64, places int) float64 {
	mul := math.Pow(10, float64(places))
	return math.Round(v*mul) / mul
}

func classLabel(class int) string {
	if class < 0 {
		return "unknown"
	}
	return fmt.Sprintf("%dmm", class)
}

func classFromLabel(s string) int {
	var n int
	if _, err := fmt.Sscanf(s, "%dmm", &n); err == nil {
		return n
	}
	return -1
}

func toBallJSON(b pipeline.FrameDetections) []ballJSON {
	out := make([]ballJSON, len(b.Balls))
	for i, ball := range b.Balls {
		bj := ballJSON{
			X:          ball.X,
			Y:          ball.Y,
			RPx:        round(ball.RPx, 2),
			DiameterMM: round(ball.DiameterMM, 2),
			Cls:        classLabel(ball.Class),
			Conf:       round(ball.Conf, 3),
		}
		if ball.HasTrackID() {
			id := ball.TrackID
			bj.TrackID = &id
		}
		out[i] = bj
	}
	return out
}

func genRunID() string {
	return uuid.NewString()
}
