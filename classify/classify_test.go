package classify

import (
	"testing"

	"github.com/ausocean/beadcount/config"
)

func TestClassifyE2E3CalibrationReclass(t *testing.T) {
	bins := config.DefaultSizeBins()
	ds := []Classified{
		{X: 1, Y: 1, RPx: 8},
		{X: 2, Y: 2, RPx: 13},
		{X: 3, Y: 3, RPx: 20},
	}
	balls := ClassifyAll(ds, 4.0, bins)
	wantClasses := []int{4, 6, 10}
	for i, b := range balls {
		if b.Class != wantClasses[i] {
			t.Errorf("ball %d: class = %d, want %d (diameter=%f)", i, b.Class, wantClasses[i], b.DiameterMM)
		}
	}

	reclassified := Reclassify(balls, 2.0, bins)
	for i, b := range reclassified {
		if b.Class != UnknownClass {
			t.Errorf("reclassified ball %d: class = %d, want unknown", i, b.Class)
		}
		if b.RPx != balls[i].RPx || b.X != balls[i].X || b.Y != balls[i].Y || b.Conf != balls[i].Conf {
			t.Errorf("reclassify must not change detection fields: got %+v, want detection fields from %+v", b, balls[i])
		}
	}
}

func TestReclassifyRoundTrip(t *testing.T) {
	bins := config.DefaultSizeBins()
	ds := []Classified{{X: 1, Y: 1, RPx: 8}}
	p1, p2 := 4.0, 2.0
	balls := ClassifyAll(ds, p1, bins)

	atP2 := Reclassify(balls, p2, bins)
	roundTrip := Reclassify(atP2, p1, bins)

	direct := Reclassify(balls, p1, bins)
	if roundTrip[0].Class != direct[0].Class || roundTrip[0].DiameterMM != direct[0].DiameterMM {
		t.Fatalf("round trip reclassify(reclassify(b,p2),p1) != reclassify(b,p1): got %+v, want %+v", roundTrip[0], direct[0])
	}
}

func TestClassifyOutsideAllBins(t *testing.T) {
	bins := config.DefaultSizeBins()
	d := Classified{RPx: 30}
	b := Classify(d, 2.0, bins) // diameter = 30mm, outside every bin
	if b.Class != UnknownClass {
		t.Fatalf("Class = %d, want UnknownClass", b.Class)
	}
}

func TestClassifyBinBoundaries(t *testing.T) {
	bins := config.DefaultSizeBins()
	// diameter exactly 5.0 belongs to [5,7) -> class 6, not [3,5) -> class 4.
	d := Classified{RPx: 2.5}
	b := Classify(d, 1.0, bins) // diameter = 2*2.5/1 = 5.0
	if b.Class != 6 {
		t.Fatalf("boundary diameter 5.0: Class = %d, want 6 (half-open bins)", b.Class)
	}
}
