//go:build withcv
// +build withcv

/*
NAME
  gocv_decoder.go

DESCRIPTION
  gocv-backed implementation of the Decoder interface, reading a video
  container via OpenCV's VideoCapture.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package decode

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ausocean/beadcount/internal/logging"
)

// capOrientationMeta mirrors OpenCV's CAP_PROP_ORIENTATION_META, which
// gocv does not expose as a named constant.
const capOrientationMeta gocv.VideoCaptureProperties = 48

// videoDecoder is the gocv-backed Decoder.
type videoDecoder struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	path   string
	meta   Metadata
	log    logging.Logger
	closed bool
}

// Open opens path as a video container and returns a Decoder.
func Open(path string, log logging.Logger) (Decoder, error) {
	if log == nil {
		log = logging.Discard
	}
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, &DecoderError{Path: path, Err: err}
	}

	rot := normaliseRotation(int(vc.Get(capOrientationMeta)))
	w := int(vc.Get(gocv.VideoCaptureFrameWidth))
	h := int(vc.Get(gocv.VideoCaptureFrameHeight))
	if rot == 90 || rot == 270 {
		w, h = h, w
	}
	fps := vc.Get(gocv.VideoCaptureFPS)
	total := int(vc.Get(gocv.VideoCaptureFrameCount))
	dur := 0.0
	if fps > 0 {
		dur = float64(total) / fps
	}

	d := &videoDecoder{
		cap:  vc,
		path: path,
		log:  log,
		meta: Metadata{
			Width:       w,
			Height:      h,
			FPS:         fps,
			TotalFrames: total,
			DurationS:   dur,
			RotationDeg: rot,
		},
	}
	return d, nil
}

func (d *videoDecoder) Metadata() Metadata { return d.meta }

func (d *videoDecoder) Frames(startFrame int) (<-chan Frame, <-chan error) {
	frames := make(chan Frame)
	errs := make(chan error, 1)

	go func() {
		defer close(frames)
		defer close(errs)

		d.mu.Lock()
		d.cap.Set(gocv.VideoCapturePosFrames, float64(startFrame))
		d.mu.Unlock()

		mat := gocv.NewMat()
		defer mat.Close()

		for {
			d.mu.Lock()
			ok := d.cap.Read(&mat)
			posMsec := d.cap.Get(gocv.VideoCapturePosMsec)
			d.mu.Unlock()

			if !ok {
				return
			}
			if mat.Empty() {
				continue
			}

			id := frameIDFromPTS(posMsec/1000, d.meta.FPS)
			if id < startFrame {
				continue
			}

			f, err := matToFrame(mat, d.meta.RotationDeg)
			if err != nil {
				select {
				case errs <- fmt.Errorf("decode: frame %d: %w", id, err):
				default:
				}
				continue
			}
			f.ID = id
			frames <- f
		}
	}()

	return frames, errs
}

func (d *videoDecoder) Frame(id int) (Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id < 0 || (d.meta.TotalFrames > 0 && id >= d.meta.TotalFrames) {
		return Frame{}, &NotFound{ID: id}
	}

	d.cap.Set(gocv.VideoCapturePosFrames, float64(id))

	mat := gocv.NewMat()
	defer mat.Close()

	for {
		if ok := d.cap.Read(&mat); !ok {
			return Frame{}, &NotFound{ID: id}
		}
		if mat.Empty() {
			continue
		}
		posMsec := d.cap.Get(gocv.VideoCapturePosMsec)
		gotID := frameIDFromPTS(posMsec/1000, d.meta.FPS)
		if gotID < id {
			continue // keep reading until a frame at or after the seek target
		}
		f, err := matToFrame(mat, d.meta.RotationDeg)
		if err != nil {
			return Frame{}, fmt.Errorf("decode: frame %d: %w", id, err)
		}
		f.ID = gotID
		return f, nil
	}
}

// Close releases the underlying VideoCapture. Safe to call more than
// once; the second and subsequent calls are no-ops.
func (d *videoDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.cap.Close()
}

// matToFrame converts a BGR gocv.Mat to an upright RGB Frame, applying
// the container's rotation hint.
func matToFrame(mat gocv.Mat, rotationDeg int) (Frame, error) {
	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(mat, &rgb, gocv.ColorBGRToRGB)

	rotated := rgb
	switch rotationDeg {
	case 90:
		r := gocv.NewMat()
		gocv.Rotate(rgb, &r, gocv.Rotate90Clockwise)
		rotated = r
		defer r.Close()
	case 180:
		r := gocv.NewMat()
		gocv.Rotate(rgb, &r, gocv.Rotate180Clockwise)
		rotated = r
		defer r.Close()
	case 270:
		r := gocv.NewMat()
		gocv.Rotate(rgb, &r, gocv.Rotate90CounterClockwise)
		rotated = r
		defer r.Close()
	}

	buf := rotated.ToBytes()
	return Frame{
		Width:  rotated.Cols(),
		Height: rotated.Rows(),
		Pix:    buf,
	}, nil
}
