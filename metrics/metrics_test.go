package metrics

import (
	"path/filepath"
	"testing"

	"github.com/ausocean/beadcount/cache"
	"github.com/ausocean/beadcount/classify"
	"github.com/ausocean/beadcount/config"
	"github.com/ausocean/beadcount/pipeline"
)

func buildCache(t *testing.T, frames map[int]pipeline.FrameDetections) *cache.VideoCache {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")
	w, err := cache.StartProcessing(path, len(frames), cache.Metadata{FPS: 25}, config.Default())
	if err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}
	for id := 0; id < len(frames); id++ {
		if err := w.AppendFrame(frames[id]); err != nil {
			t.Fatalf("AppendFrame: %v", err)
		}
	}
	if err := w.Finalise(frames); err != nil {
		t.Fatalf("Finalise: %v", err)
	}
	vc, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return vc
}

func TestSummarizeCountStabilityConstantCount(t *testing.T) {
	frames := map[int]pipeline.FrameDetections{
		0: {FrameID: 0, Balls: []classify.Ball{{Conf: 0.8, Class: 6}, {Conf: 0.7, Class: 6}}},
		1: {FrameID: 1, Balls: []classify.Ball{{Conf: 0.9, Class: 6}, {Conf: 0.6, Class: 6}}},
		2: {FrameID: 2, Balls: []classify.Ball{{Conf: 0.85, Class: 6}, {Conf: 0.75, Class: 6}}},
	}
	vc := buildCache(t, frames)

	r := Summarize(vc, 1.0)
	if r.NFrames != 3 {
		t.Fatalf("NFrames = %d, want 3", r.NFrames)
	}
	if r.TotalDetections != 6 {
		t.Fatalf("TotalDetections = %d, want 6", r.TotalDetections)
	}
	if r.CountStability.CV != 0 {
		t.Fatalf("CV = %v, want 0 for constant counts", r.CountStability.CV)
	}
	if r.CountStability.Rating() != "excellent" {
		t.Fatalf("Rating = %q, want excellent", r.CountStability.Rating())
	}
}

func TestSummarizeSizeDistributionSingleClass(t *testing.T) {
	frames := map[int]pipeline.FrameDetections{
		0: {FrameID: 0, Balls: []classify.Ball{{Conf: 0.8, Class: 6}, {Conf: 0.7, Class: 6}}},
		1: {FrameID: 1, Balls: []classify.Ball{{Conf: 0.9, Class: 6}}},
	}
	vc := buildCache(t, frames)

	r := Summarize(vc, 1.0)
	if got := r.SizeDist.MeanProportion["6mm"]; got != 1.0 {
		t.Fatalf("mean proportion for sole class = %v, want 1.0", got)
	}
	if cv := r.SizeDist.ClassCV("6mm"); cv != 0 {
		t.Fatalf("class cv = %v, want 0", cv)
	}
	if got := r.SizeDist.Rating("6mm"); got != "stable" {
		t.Fatalf("rating = %q, want stable", got)
	}
}

func TestSizeDistributionRatingThresholds(t *testing.T) {
	cases := []struct {
		mean, std float64
		want      string
	}{
		{mean: 1.0, std: 0.10, want: "stable"},   // cv = 0.10
		{mean: 1.0, std: 0.20, want: "moderate"}, // cv = 0.20
		{mean: 1.0, std: 0.40, want: "variable"}, // cv = 0.40
	}
	for _, c := range cases {
		s := SizeDistribution{
			MeanProportion: map[string]float64{"6mm": c.mean},
			StdProportion:  map[string]float64{"6mm": c.std},
		}
		if got := s.Rating("6mm"); got != c.want {
			t.Fatalf("Rating(cv=%v) = %q, want %q", c.std/c.mean, got, c.want)
		}
	}
}

func TestSummarizeConfidenceRatingCollapsed(t *testing.T) {
	frames := map[int]pipeline.FrameDetections{
		0: {FrameID: 0, Balls: []classify.Ball{{Conf: 0.80, Class: 4}, {Conf: 0.81, Class: 4}}},
	}
	vc := buildCache(t, frames)

	r := Summarize(vc, 1.0)
	if r.Confidence.Rating() != "collapsed" {
		t.Fatalf("rating = %q, want collapsed", r.Confidence.Rating())
	}
}

func TestSummarizeFrameRangeFilters(t *testing.T) {
	frames := map[int]pipeline.FrameDetections{
		0: {FrameID: 0, Balls: []classify.Ball{{Conf: 0.8, Class: 4}}},
		1: {FrameID: 1, Balls: []classify.Ball{{Conf: 0.8, Class: 4}}},
		2: {FrameID: 2, Balls: []classify.Ball{{Conf: 0.8, Class: 4}}},
	}
	vc := buildCache(t, frames)

	r := Summarize(vc, 1.0, 1, 2)
	if r.NFrames != 2 {
		t.Fatalf("NFrames = %d, want 2", r.NFrames)
	}
}

func TestSummarizeEmptyFramesExcludedFromProportions(t *testing.T) {
	frames := map[int]pipeline.FrameDetections{
		0: {FrameID: 0, Balls: []classify.Ball{{Conf: 0.8, Class: 4}}},
		1: {FrameID: 1, Balls: nil},
	}
	vc := buildCache(t, frames)

	r := Summarize(vc, 1.0)
	if r.NFrames != 2 {
		t.Fatalf("NFrames = %d, want 2", r.NFrames)
	}
	if got := len(r.SizeDist.MeanProportion); got != 1 {
		t.Fatalf("proportions tracked = %d, want 1 (empty frame excluded)", got)
	}
}

func TestThroughputZeroWhenElapsedNonPositive(t *testing.T) {
	frames := map[int]pipeline.FrameDetections{0: {FrameID: 0}}
	vc := buildCache(t, frames)

	r := Summarize(vc, 0)
	if r.ThroughputFPS != 0 {
		t.Fatalf("throughput = %v, want 0", r.ThroughputFPS)
	}
}
