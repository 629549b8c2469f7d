/*
NAME
  types.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pipeline drives the Orchestrator (spec §4.10): frames through
// preprocessing, candidate generation, scoring, cleanup, classification,
// and tracking, then hands results to the cache.
package pipeline

import (
	"fmt"

	"github.com/ausocean/beadcount/classify"
)

// FrameDetections is the per-frame output handed to the cache (spec §3).
type FrameDetections struct {
	FrameID    int
	TimestampS float64
	Balls      []classify.Ball
}

// TimestampFor computes timestamp_s = frame_id/fps when fps > 0, else 0.
func TimestampFor(frameID int, fps float64) float64 {
	if fps <= 0 {
		return 0
	}
	return float64(frameID) / fps
}

// Cancelled reports that the caller requested the run stop.
type Cancelled struct{}

func (Cancelled) Error() string { return "pipeline: cancelled" }

// ProgressFunc is called after every processed frame, including skipped
// ones, with (current_frame, total). It must not re-enter the
// orchestrator.
type ProgressFunc func(current, total int)

// DecodeSkipError wraps a per-frame decode failure that the orchestrator
// recovered from by writing an empty FrameDetections for that frame.
type DecodeSkipError struct {
	FrameID int
	Err     error
}

func (e *DecodeSkipError) Error() string {
	return fmt.Sprintf("pipeline: frame %d skipped after decode error: %v", e.FrameID, e.Err)
}

func (e *DecodeSkipError) Unwrap() error { return e.Err }
