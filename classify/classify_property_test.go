package classify

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/ausocean/beadcount/config"
)

// TestReclassifyNeverTouchesDetectionFields checks the calibration
// decoupling invariant across random detections and calibrations:
// Reclassify may only change DiameterMM and Class.
func TestReclassifyNeverTouchesDetectionFields(t *testing.T) {
	bins := config.DefaultSizeBins()

	rapid.Check(t, func(t *rapid.T) {
		b := Ball{
			X:       rapid.IntRange(0, 4000).Draw(t, "x"),
			Y:       rapid.IntRange(0, 4000).Draw(t, "y"),
			RPx:     rapid.Float64Range(0.1, 500).Draw(t, "r_px"),
			Conf:    rapid.Float64Range(0, 1).Draw(t, "conf"),
			TrackID: rapid.IntRange(0, 1000).Draw(t, "track_id"),
		}
		pxPerMM := rapid.Float64Range(0.1, 50).Draw(t, "px_per_mm")

		out := Reclassify([]Ball{b}, pxPerMM, bins)[0]

		if out.X != b.X || out.Y != b.Y || out.RPx != b.RPx || out.Conf != b.Conf || out.TrackID != b.TrackID {
			t.Fatalf("Reclassify changed a detection field: got %+v, want same detection fields as %+v", out, b)
		}
	})
}

// TestClassOfIsConsistentWithBinBounds checks that whatever class
// Classify assigns, the diameter genuinely falls in that bin's
// half-open interval (or no bin claims it, giving UnknownClass).
func TestClassOfIsConsistentWithBinBounds(t *testing.T) {
	bins := config.DefaultSizeBins()

	rapid.Check(t, func(t *rapid.T) {
		rPx := rapid.Float64Range(0.1, 200).Draw(t, "r_px")
		pxPerMM := rapid.Float64Range(0.5, 20).Draw(t, "px_per_mm")

		b := Classify(Classified{RPx: rPx}, pxPerMM, bins)

		if b.Class == UnknownClass {
			for _, bin := range bins {
				if b.DiameterMM >= bin.MinMM && b.DiameterMM < bin.MaxMM {
					t.Fatalf("diameter %f falls in bin %d but Classify returned UnknownClass", b.DiameterMM, bin.Class)
				}
			}
			return
		}
		found := false
		for _, bin := range bins {
			if bin.Class == b.Class {
				found = true
				if b.DiameterMM < bin.MinMM || b.DiameterMM >= bin.MaxMM {
					t.Fatalf("diameter %f assigned class %d but falls outside [%f,%f)", b.DiameterMM, b.Class, bin.MinMM, bin.MaxMM)
				}
			}
		}
		if !found {
			t.Fatalf("Classify returned class %d which matches no configured bin", b.Class)
		}
	})
}
