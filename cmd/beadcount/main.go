//go:build withcv
// +build withcv

/*
NAME
  main.go

DESCRIPTION
  beadcount is the offline CLI front-end for the bead-counting pipeline:
  decodes a video of a rotating mill drum, solves its geometry, runs the
  full detection/scoring/cleanup/classification/tracking pipeline over
  every frame, and writes the results to a cache file for a separate
  playback/overlay viewer.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main is the beadcount CLI.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/beadcount/cache"
	"github.com/ausocean/beadcount/config"
	"github.com/ausocean/beadcount/decode"
	"github.com/ausocean/beadcount/geometry"
	"github.com/ausocean/beadcount/internal/logging"
	"github.com/ausocean/beadcount/pipeline"
)

// Exit codes, per spec §6.
const (
	exitOK             = 0
	exitMissingInput   = 1
	exitDecoderFailure = 2
	exitCacheFailure   = 3
	exitCancelled      = 4
)

// Logging configuration, mirroring the teacher CLI's lumberjack setup.
const (
	logMaxSizeMB = 50
	logMaxBackup = 5
	logMaxAgeDay = 28
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		videoPath    = pflag.String("video", "", "path to the input video (required)")
		cacheOut     = pflag.String("cache-out", "", "path to write the results cache (required)")
		configPath   = pflag.String("config", "", "path to a YAML configuration overlay")
		overridePath = pflag.String("geometry-override", "", "path to a geometry override JSON file")
		diameterMM   = pflag.Float64("diameter-mm", 0, "drum diameter in mm, overrides config and calibration")
		limit        = pflag.Int("limit", 0, "stop after this many frames (0 means no limit)")
		logPath      = pflag.String("log", "beadcount.log", "log file path")
		verbose      = pflag.BoolP("verbose", "v", false, "enable debug logging")
	)
	pflag.Parse()

	fileLog := &lumberjack.Logger{
		Filename:   *logPath,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAgeDay,
	}
	defer fileLog.Close()

	log := logging.New(io.MultiWriter(fileLog, os.Stderr))
	if *verbose {
		log.SetLevel(logging.Debug)
	}

	if *videoPath == "" || *cacheOut == "" {
		fmt.Fprintln(os.Stderr, "beadcount: --video and --cache-out are required")
		return exitMissingInput
	}
	if _, err := os.Stat(*videoPath); err != nil {
		log.Error("input video not found", "path", *videoPath, "err", err)
		return exitMissingInput
	}

	cfg := config.Default()
	if *configPath != "" {
		c, err := config.Load(*configPath)
		if err != nil {
			log.Error("could not load config", "path", *configPath, "err", err)
			return exitMissingInput
		}
		cfg = c
	}
	if *diameterMM > 0 {
		cfg.DrumDiameterMM = *diameterMM
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		return exitMissingInput
	}

	dec, err := decode.Open(*videoPath, log)
	if err != nil {
		log.Error("could not open video", "path", *videoPath, "err", err)
		return exitDecoderFailure
	}
	defer dec.Close()

	geo, err := solveGeometry(dec, *overridePath, cfg, log)
	if err != nil {
		log.Error("could not solve drum geometry", "err", err)
		return exitDecoderFailure
	}

	w, err := cache.StartProcessing(*cacheOut, dec.Metadata().TotalFrames, cache.Metadata{
		VideoPath:  *videoPath,
		FPS:        dec.Metadata().FPS,
		Width:      dec.Metadata().Width,
		Height:     dec.Metadata().Height,
		PxPerMM:    geo.PxPerMM,
		DrumCenter: [2]int{geo.CenterX, geo.CenterY},
		DrumRadius: geo.RadiusPx,
	}, cfg)
	if err != nil {
		log.Error("could not start cache", "path", *cacheOut, "err", err)
		return exitCacheFailure
	}

	var cancelled int32
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Warning("interrupt received, stopping after the current frame")
		atomic.StoreInt32(&cancelled, 1)
	}()

	frames, runErr := pipeline.Run(w, pipeline.Options{
		Decoder:  dec,
		Geometry: geo,
		Config:   cfg,
		Limit:    *limit,
		Logger:   log,
		Progress: func(current, total int) {
			if current%100 == 0 {
				log.Info("progress", "frame", current, "total", total)
			}
		},
		Cancel: func() bool { return atomic.LoadInt32(&cancelled) == 1 },
	})

	if finErr := w.Finalise(frames); finErr != nil {
		log.Error("could not finalise cache", "err", finErr)
		return exitCacheFailure
	}

	if runErr != nil {
		var c pipeline.Cancelled
		if errors.As(runErr, &c) {
			log.Warning("run cancelled", "frames_written", len(frames))
			return exitCancelled
		}
		log.Error("pipeline run failed", "err", runErr)
		return exitDecoderFailure
	}

	log.Info("done", "frames_written", len(frames), "cache", *cacheOut)
	return exitOK
}

func solveGeometry(dec decode.Decoder, overridePath string, cfg config.Config, log logging.Logger) (geometry.Geometry, error) {
	if overridePath != "" {
		g, err := geometry.LoadOverride(overridePath)
		if err != nil {
			return geometry.Geometry{}, err
		}
		if g.PxPerMM <= 0 {
			g.PxPerMM = geometry.CalibrationFromDiameter(g.RadiusPx, cfg.DrumDiameterMM)
		}
		return g, nil
	}

	first, err := dec.Frame(0)
	if err != nil {
		return geometry.Geometry{}, err
	}
	solveCfg := geometry.SolveConfig{
		DiameterMM:      cfg.DrumDiameterMM,
		MinRadiusRatio:  cfg.DrumMinRadiusRatio,
		MaxRadiusRatio:  cfg.DrumMaxRadiusRatio,
		BlurKsize:       9,
		RimMarginRatio:  cfg.RimMarginRatio,
		HoughDP:         cfg.HoughDP,
		HoughParam1:     cfg.HoughParam1,
		HoughParam2Base: cfg.HoughParam2Base,
	}
	return geometry.Solve(first.Width, first.Height, first.Pix, solveCfg, geometry.Override{}, log), nil
}

func init() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s --video INPUT --cache-out OUTPUT [flags]\n\n", filepath.Base(os.Args[0]))
		pflag.PrintDefaults()
	}
}
