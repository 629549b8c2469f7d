//go:build withcv
// +build withcv

/*
NAME
  orchestrate.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pipeline

import (
	"github.com/ausocean/beadcount/cache"
	"github.com/ausocean/beadcount/classify"
	"github.com/ausocean/beadcount/config"
	"github.com/ausocean/beadcount/decode"
	"github.com/ausocean/beadcount/detect"
	"github.com/ausocean/beadcount/filter"
	"github.com/ausocean/beadcount/geometry"
	"github.com/ausocean/beadcount/internal/logging"
	"github.com/ausocean/beadcount/preprocess"
	"github.com/ausocean/beadcount/score"
	"github.com/ausocean/beadcount/track"
)

// Options groups the Orchestrator's run-time inputs (spec §4.10): a
// decoder, a solved geometry, an options bundle, an optional ROI
// override, an optional frame-count limit, progress reporting, and
// cancellation. The cache writer is passed to Run separately.
type Options struct {
	Decoder  decode.Decoder
	Geometry geometry.Geometry
	ROI      *geometry.Mask // nil means geo.ROIMask is derived per-frame from frame dims
	Config   config.Config
	Limit    int // 0 means no limit
	Progress ProgressFunc
	Cancel   func() bool // polled before each frame; nil means never cancel
	Logger   logging.Logger
}

// Run drives frames through preprocessing, candidate generation,
// scoring, cleanup, classification, and tracking, appending each
// frame's results to w. Run does not finalise w; all frames accumulated
// along the way are returned so the caller can finalise w without a
// second read of the cache.
func Run(w *cache.Writer, opt Options) (map[int]FrameDetections, error) {
	log := opt.Logger
	if log == nil {
		log = logging.Discard
	}

	tr := track.New(opt.Config.Tracking)
	weights := score.Weights{
		Edge:     opt.Config.WeightEdge,
		Circ:     opt.Config.WeightCirc,
		Interior: opt.Config.WeightInt,
		Radius:   opt.Config.WeightRad,
	}
	filterParams := filter.Params{
		RimMarginRatio:      opt.Config.RimMarginRatio,
		BrightnessThreshold: opt.Config.BrightnessThreshold,
		BrightnessPatchSize: opt.Config.BrightnessPatchSize,
		MinConfidence:       opt.Config.MinConfidence,
		NMSOverlapThreshold: opt.Config.NMSOverlapThreshold,
	}

	meta := opt.Decoder.Metadata()
	rMin, rMax := detect.RadiusBounds(opt.Geometry.PxPerMM, opt.Config.MinBeadDiameterMM, opt.Config.MaxBeadDiameterMM, opt.Config.RadiusMarginLow, opt.Config.RadiusMarginHigh)

	frames, errs := opt.Decoder.Frames(0)
	results := make(map[int]FrameDetections)

	total := meta.TotalFrames
	if opt.Limit > 0 && opt.Limit < total {
		total = opt.Limit
	}

	stoppedEarly := false
	cancelled := false
	for frame := range frames {
		if opt.Cancel != nil && opt.Cancel() {
			log.Info("orchestrator cancelled", "frame_id", frame.ID)
			stoppedEarly = true
			cancelled = true
			break
		}
		if opt.Limit > 0 && frame.ID >= opt.Limit {
			stoppedEarly = true
			break
		}

		fd, err := processFrame(frame, opt, meta, weights, filterParams, rMin, rMax, tr)
		if err != nil {
			log.Error("frame decode/processing failed, writing empty detections", "frame_id", frame.ID, "err", err)
			fd = FrameDetections{FrameID: frame.ID, TimestampS: TimestampFor(frame.ID, meta.FPS)}
		}

		if err := w.AppendFrame(fd); err != nil {
			return results, err
		}
		results[fd.FrameID] = fd

		if opt.Progress != nil {
			opt.Progress(frame.ID+1, total)
		}
	}

	if stoppedEarly {
		// The decoder's producer goroutine may be blocked sending its
		// next frame; drain it in the background so it can observe
		// Close() and exit rather than leak.
		go func() {
			for range frames {
			}
		}()
		if err := opt.Decoder.Close(); err != nil {
			return results, err
		}
		if cancelled {
			return results, Cancelled{}
		}
		return results, nil
	}

	// Drain any trailing per-frame decode errors the Frames channel
	// reported without terminating the frame stream. These are logged
	// only: a frame the decoder failed to deliver gets no FrameDetections
	// entry in w or in the returned map, and no progress call. Only
	// frames that fail in processFrame are written as empty detections.
	for err := range errs {
		log.Error("decoder reported a per-frame error", "err", err)
	}

	return results, nil
}

func processFrame(frame decode.Frame, opt Options, meta decode.Metadata, weights score.Weights, fp filter.Params, rMin, rMax float64, tr *track.Tracker) (FrameDetections, error) {
	roi := opt.ROI
	if roi == nil {
		roi = opt.Geometry.ROIMask(frame.Height, frame.Width)
	}

	pre, _, err := preprocess.Run(frame, roi, opt.Config)
	if err != nil {
		return FrameDetections{}, err
	}

	raw := detect.Generate(pre, opt.Geometry, opt.Config)

	grad, err := score.ComputeGradient(pre)
	if err != nil {
		return FrameDetections{}, err
	}

	scored := make([]score.Scored, len(raw))
	for i, r := range raw {
		scored[i] = score.Score(r, pre, grad, opt.Config.EdgeSamplePoints, opt.Config.InteriorSampleRatio, rMin, rMax, weights)
	}

	survivors, _ := filter.Run(scored, opt.Geometry, pre, fp)

	classified := make([]classify.Classified, len(survivors))
	for i, s := range survivors {
		classified[i] = classify.Classified{X: s.X, Y: s.Y, RPx: s.RPx, Conf: s.Conf}
	}
	balls := classify.ClassifyAll(classified, opt.Geometry.PxPerMM, opt.Config.SizeBins)
	balls = tr.Update(frame.ID, balls)

	return FrameDetections{
		FrameID:    frame.ID,
		TimestampS: TimestampFor(frame.ID, meta.FPS),
		Balls:      balls,
	}, nil
}
