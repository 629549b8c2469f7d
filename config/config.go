/*
NAME
  config.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config holds the immutable configuration bundle threaded through
// every stage of the bead-counting pipeline. A Config is built once per
// run, never mutated afterwards, and never read from a package-level
// global; loading from disk is a deliberate action performed by the
// caller, never an import side-effect.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigInvalid reports a configuration value that is out of its
// documented range, or a set of scorer weights that do not sum to 1.
type ConfigInvalid struct {
	Field  string
	Reason string
}

func (e *ConfigInvalid) Error() string {
	return fmt.Sprintf("config: invalid field %s: %s", e.Field, e.Reason)
}

// SizeBin is a half-open diameter interval [Min, Max) mapped to a class
// label, e.g. {4: [3,5)}.
type SizeBin struct {
	Class  int
	MinMM  float64
	MaxMM  float64
}

// Tracking groups the tracker's tunables (spec §4.9).
type Tracking struct {
	IoUThreshold        float64 `yaml:"iou_threshold"`
	MaxCenterDistancePx float64 `yaml:"max_center_distance_px"`
	MaxLostFrames       int     `yaml:"max_lost_frames"`
}

// Config is the immutable options bundle passed to every stage (spec §6).
type Config struct {
	DrumDiameterMM      float64 `yaml:"drum_diameter_mm"`
	DrumMinRadiusRatio  float64 `yaml:"drum_min_radius_ratio"`
	DrumMaxRadiusRatio  float64 `yaml:"drum_max_radius_ratio"`
	RimMarginRatio      float64 `yaml:"rim_margin_ratio"`

	TophatKsize int `yaml:"tophat_ksize"`

	ClaheClipLimit float64 `yaml:"clahe_clip_limit"`
	ClaheTileSize  int     `yaml:"clahe_tile_size"`

	NoiseMode           string  `yaml:"noise_mode"` // "bilateral", "gaussian", or "median"
	BlurKsize           int     `yaml:"blur_ksize"`
	BilateralD          int     `yaml:"bilateral_d"`
	BilateralSigmaColor float64 `yaml:"bilateral_sigma_color"`
	BilateralSigmaSpace float64 `yaml:"bilateral_sigma_space"`

	GlareThreshold   float64 `yaml:"glare_threshold"`
	GlareReplacement float64 `yaml:"glare_replacement"`
	GlareMode        string  `yaml:"glare_mode"` // "cap" or "inpaint"

	MinBeadDiameterMM float64 `yaml:"min_bead_diameter_mm"`
	MaxBeadDiameterMM float64 `yaml:"max_bead_diameter_mm"`
	RadiusMarginLow   float64 `yaml:"radius_margin_low"`
	RadiusMarginHigh  float64 `yaml:"radius_margin_high"`

	HoughDP         float64 `yaml:"hough_dp"`
	HoughParam1     float64 `yaml:"param1"`
	HoughParam2Base float64 `yaml:"param2_base"`
	MinDistRatio    float64 `yaml:"min_dist_ratio"`

	ContourMinCircularity float64 `yaml:"contour_min_circularity"`

	EdgeSamplePoints    int     `yaml:"edge_sample_points"`
	EdgeGradientSigma   float64 `yaml:"edge_gradient_sigma"`
	InteriorSampleRatio float64 `yaml:"interior_sample_ratio"`

	WeightEdge float64 `yaml:"weight_edge"`
	WeightCirc float64 `yaml:"weight_circ"`
	WeightInt  float64 `yaml:"weight_int"`
	WeightRad  float64 `yaml:"weight_rad"`

	BrightnessThreshold float64 `yaml:"brightness_threshold"`
	BrightnessPatchSize int     `yaml:"brightness_patch_size"`

	NMSOverlapThreshold float64 `yaml:"nms_overlap_threshold"`
	MinConfidence       float64 `yaml:"min_confidence"`

	SizeBins []SizeBin `yaml:"-"`

	Tracking Tracking `yaml:"tracking"`
}

// Default returns the configuration bundle with every field set to the
// defaults tabulated in spec.md §6.
func Default() Config {
	return Config{
		DrumDiameterMM:     200.0,
		DrumMinRadiusRatio: 0.35,
		DrumMaxRadiusRatio: 0.48,
		RimMarginRatio:     0.12,

		TophatKsize: 15,

		ClaheClipLimit: 2.0,
		ClaheTileSize:  8,

		NoiseMode:           "bilateral",
		BlurKsize:           7,
		BilateralD:          9,
		BilateralSigmaColor: 75,
		BilateralSigmaSpace: 75,

		GlareThreshold:   250,
		GlareReplacement: 200,
		GlareMode:        "cap",

		MinBeadDiameterMM: 3.0,
		MaxBeadDiameterMM: 12.0,
		RadiusMarginLow:   0.7,
		RadiusMarginHigh:  1.5,

		HoughDP:         1,
		HoughParam1:     50,
		HoughParam2Base: 25,
		MinDistRatio:    0.5,

		ContourMinCircularity: 0.65,

		EdgeSamplePoints:    36,
		EdgeGradientSigma:   1.0,
		InteriorSampleRatio: 0.7,

		WeightEdge: 0.35,
		WeightCirc: 0.25,
		WeightInt:  0.20,
		WeightRad:  0.20,

		BrightnessThreshold: 50,
		BrightnessPatchSize: 5,

		NMSOverlapThreshold: 0.5,
		MinConfidence:       0.5,

		SizeBins: DefaultSizeBins(),

		Tracking: Tracking{
			IoUThreshold:        0.30,
			MaxCenterDistancePx: 20,
			MaxLostFrames:       2,
		},
	}
}

// DefaultSizeBins returns the default class bins from spec.md §4.8.
func DefaultSizeBins() []SizeBin {
	return []SizeBin{
		{Class: 4, MinMM: 3, MaxMM: 5},
		{Class: 6, MinMM: 5, MaxMM: 7},
		{Class: 8, MinMM: 7, MaxMM: 9},
		{Class: 10, MinMM: 9, MaxMM: 12},
	}
}

// Load reads a YAML configuration file, overlaying it on Default().
func Load(path string) (Config, error) {
	c := Default()
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: could not read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(f, &c); err != nil {
		return Config{}, fmt.Errorf("config: could not parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks range and sum-to-one invariants, returning *ConfigInvalid
// on the first violation found.
func (c Config) Validate() error {
	if c.DrumDiameterMM <= 0 {
		return &ConfigInvalid{"DrumDiameterMM", "must be positive"}
	}
	if !(0 < c.DrumMinRadiusRatio && c.DrumMinRadiusRatio < c.DrumMaxRadiusRatio && c.DrumMaxRadiusRatio < 1) {
		return &ConfigInvalid{"DrumMinRadiusRatio/DrumMaxRadiusRatio", "must satisfy 0 < min < max < 1"}
	}
	if !(0 <= c.RimMarginRatio && c.RimMarginRatio < 1) {
		return &ConfigInvalid{"RimMarginRatio", "must be in [0,1)"}
	}
	if c.TophatKsize < 1 || c.TophatKsize%2 == 0 {
		return &ConfigInvalid{"TophatKsize", "must be a positive odd integer"}
	}
	switch c.NoiseMode {
	case "bilateral", "gaussian", "median":
	default:
		return &ConfigInvalid{"NoiseMode", `must be one of "bilateral", "gaussian", "median"`}
	}
	if c.BlurKsize < 1 {
		return &ConfigInvalid{"BlurKsize", "must be a positive integer"}
	}
	if c.MinBeadDiameterMM <= 0 || c.MaxBeadDiameterMM <= c.MinBeadDiameterMM {
		return &ConfigInvalid{"MinBeadDiameterMM/MaxBeadDiameterMM", "must satisfy 0 < min < max"}
	}
	sum := c.WeightEdge + c.WeightCirc + c.WeightInt + c.WeightRad
	if math.Abs(sum-1.0) > 1e-6 {
		return &ConfigInvalid{"WeightEdge+WeightCirc+WeightInt+WeightRad", fmt.Sprintf("must sum to 1, got %f", sum)}
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return &ConfigInvalid{"MinConfidence", "must be in [0,1]"}
	}
	if c.NMSOverlapThreshold < 0 || c.NMSOverlapThreshold > 1 {
		return &ConfigInvalid{"NMSOverlapThreshold", "must be in [0,1]"}
	}
	if c.Tracking.IoUThreshold < 0 || c.Tracking.IoUThreshold > 1 {
		return &ConfigInvalid{"Tracking.IoUThreshold", "must be in [0,1]"}
	}
	if c.Tracking.MaxLostFrames < 0 {
		return &ConfigInvalid{"Tracking.MaxLostFrames", "must be non-negative"}
	}
	if len(c.SizeBins) == 0 {
		return &ConfigInvalid{"SizeBins", "must be non-empty"}
	}
	return nil
}
