package params

import (
	"testing"

	"github.com/notargets/amrbalance/box"
)

func mustDomainBox(t *testing.T) box.Box {
	t.Helper()
	b, err := box.NewBox(box.IntVector{0, 0}, box.IntVector{100, 100}, 0, box.BoxID{})
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	return b
}

func base() Params {
	return Params{
		Dim:                     2,
		MinSize:                 IntVec{4, 4},
		MaxSize:                 IntVec{100, 100},
		CutFactor:               IntVec{1, 1},
		BadInterval:             IntVec{0, 0},
		FlexTolerance:           0.05,
		MaxCycleSpreadRatio:     1000,
		SlendernessThreshold:    4,
		PreCutPenaltyMultiplier: 1,
		PenaltyWeights:          Weights{Balance: 1, Surface: 1, Slenderness: 1},
	}
}

func TestValidateAccepts(t *testing.T) {
	p := base()
	if err := p.Validate(); err != nil {
		t.Fatalf("expected valid params, got %v", err)
	}
}

func TestValidateRejectsMaxBelowMin(t *testing.T) {
	p := base()
	p.MaxSize[0] = 2
	if err := p.Validate(); err == nil {
		t.Fatal("expected error when max size < min size")
	}
}

func TestValidateRejectsBadFlexTolerance(t *testing.T) {
	p := base()
	p.FlexTolerance = 1.5
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for out-of-range flex tolerance")
	}
}

func TestCutAllowedRespectsCutFactor(t *testing.T) {
	p := base()
	p.CutFactor[0] = 5
	if p.CutAllowed(0, 3) {
		t.Error("index 3 is not a multiple of cut factor 5")
	}
	if !p.CutAllowed(0, 5) {
		t.Error("index 5 is a multiple of cut factor 5")
	}
}

func TestCutAllowedRespectsBadInterval(t *testing.T) {
	p := base()
	p.BadInterval[0] = 5
	domainBox := mustDomainBox(t)
	p.Domain = []box.Box{domainBox}
	for idx := int32(0); idx < 5; idx++ {
		if p.CutAllowed(0, idx) {
			t.Errorf("index %d should be forbidden (within bad interval of -x face)", idx)
		}
	}
	if !p.CutAllowed(0, 5) {
		t.Error("index 5 is the first admissible plane past the bad interval")
	}
}
