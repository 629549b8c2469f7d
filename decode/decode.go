/*
NAME
  decode.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package decode provides sequential and seek-based frame delivery from a
// video container, with rotation normalisation, per spec §4.1.
package decode

import "fmt"

// Frame is a single decoded, rotation-normalised RGB frame. Width/Height
// reflect the rotated dimensions, i.e. what downstream code sees.
type Frame struct {
	ID     int // derived from presentation timestamp * fps, not a counter
	Width  int
	Height int
	Pix    []byte // row-major, 3 bytes per pixel (R, G, B)
}

// Metadata describes a decoder's container.
type Metadata struct {
	Width       int
	Height      int
	FPS         float64
	TotalFrames int
	DurationS   float64
	RotationDeg int // one of {0, 90, 180, 270}
}

// DecoderError reports that the container could not be opened or decoded.
type DecoderError struct {
	Path string
	Err  error
}

func (e *DecoderError) Error() string {
	return fmt.Sprintf("decode: %s: %v", e.Path, e.Err)
}

func (e *DecoderError) Unwrap() error { return e.Err }

// NotFound reports that a requested frame id is out of range.
type NotFound struct {
	ID int
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("decode: frame %d not found", e.ID)
}

// Decoder exposes sequential and seek-based frame delivery. A Decoder's
// sequence is finite and not restartable once closed; reopen to restart.
type Decoder interface {
	// Metadata returns the container's metadata.
	Metadata() Metadata

	// Frames returns a channel that yields frames starting at startFrame,
	// in ascending frame-id order, closing when the sequence is
	// exhausted or the decoder is closed. Errors decoding a single frame
	// are reported on errs without closing frames; the caller should
	// treat such frames as skipped.
	Frames(startFrame int) (frames <-chan Frame, errs <-chan error)

	// Frame returns a single frame by id. After a seek, the first
	// decoded frame with id >= target is returned (keyframe-safe).
	Frame(id int) (Frame, error)

	// Close releases the underlying container. Frames/Frame must not be
	// called afterwards.
	Close() error
}

// normaliseRotation maps an arbitrary container rotation hint to one of
// {0, 90, 180, 270}.
func normaliseRotation(deg int) int {
	deg = ((deg % 360) + 360) % 360
	switch {
	case deg < 45:
		return 0
	case deg < 135:
		return 90
	case deg < 225:
		return 180
	case deg < 315:
		return 270
	default:
		return 0
	}
}

// frameIDFromPTS derives a frame id from a presentation timestamp (in
// seconds) scaled by fps, so that seeks remain frame-accurate even when
// the underlying container does not expose a simple frame counter.
func frameIDFromPTS(ptsSeconds, fps float64) int {
	if fps <= 0 {
		return 0
	}
	return int(ptsSeconds*fps + 0.5)
}
