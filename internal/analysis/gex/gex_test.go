package gex

import (
	"math"
	"testing"
	"time"

	"github.com/kangrills/nifty-expiry-predictor/internal/models"
)

func testSnapshot(rows []models.StrikeRow) *models.OptionChainSnapshot {
	return &models.OptionChainSnapshot{
		Symbol:         "NIFTY",
		UnderlyingSpot: 19500,
		Timestamp:      time.Date(2024, 1, 18, 15, 30, 0, 0, time.UTC),
		ExpiryDate:     time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC),
		LotSize:        50,
		Rows:           rows,
	}
}

func TestChainGexDecomposition(t *testing.T) {
	snap := testSnapshot([]models.StrikeRow{
		{Strike: 19400, CallOI: 1000, PutOI: 2000, CallIV: 0.18, PutIV: 0.19},
		{Strike: 19500, CallOI: 1500, PutOI: 1500, CallIV: 0.17, PutIV: 0.17},
		{Strike: 19600, CallOI: 2000, PutOI: 1000, CallIV: 0.18, PutIV: 0.20},
	})

	calc := NewCalculator(0.07, DefaultMultiplier)
	levels, err := calc.ChainGex(snap, 7)
	if err != nil {
		t.Fatalf("ChainGex: %v", err)
	}
	if len(levels) != 3 {
		t.Fatalf("got %d levels, want 3", len(levels))
	}

	cumulative := 0.0
	for i, level := range levels {
		if level.Strike != snap.Rows[i].Strike {
			t.Errorf("level %d strike = %v, want %v", i, level.Strike, snap.Rows[i].Strike)
		}
		if level.Gamma <= 0 {
			t.Errorf("strike %v: gamma = %v, want positive", level.Strike, level.Gamma)
		}
		if level.CallGex < 0 {
			t.Errorf("strike %v: call GEX = %v, want non-negative", level.Strike, level.CallGex)
		}
		if level.PutGex > 0 {
			t.Errorf("strike %v: put GEX = %v, want non-positive", level.Strike, level.PutGex)
		}
		if got := level.CallGex + level.PutGex; math.Abs(got-level.NetGex) > 1e-9 {
			t.Errorf("strike %v: net GEX = %v, want call+put = %v", level.Strike, level.NetGex, got)
		}
		cumulative += level.NetGex
		if math.Abs(level.CumulativeGex-cumulative) > 1e-9 {
			t.Errorf("strike %v: cumulative = %v, want prefix sum %v", level.Strike, level.CumulativeGex, cumulative)
		}
	}
}

func TestChainGexMissingIV(t *testing.T) {
	snap := testSnapshot([]models.StrikeRow{
		{Strike: 19400, CallOI: 1000, PutOI: 1000},                        // no IV at all
		{Strike: 19500, CallOI: 1000, PutOI: 1000, PutIV: 0.20},           // put IV only
		{Strike: 19600, CallOI: 1000, PutOI: 1000, CallIV: 0.18, PutIV: 0.22}, // call IV wins
	})

	calc := NewCalculator(0.07, DefaultMultiplier)
	levels, err := calc.ChainGex(snap, 7)
	if err != nil {
		t.Fatalf("ChainGex: %v", err)
	}

	if levels[0].Gamma != 0 || levels[0].NetGex != 0 {
		t.Errorf("strike with no IV must contribute zero GEX, got gamma=%v net=%v",
			levels[0].Gamma, levels[0].NetGex)
	}
	if levels[1].Gamma == 0 {
		t.Error("put IV should be used when call IV is missing")
	}
	if levels[2].Gamma == 0 {
		t.Error("call IV strike should have gamma")
	}
}

func TestChainGexRejectsInvalidSnapshot(t *testing.T) {
	snap := testSnapshot([]models.StrikeRow{
		{Strike: 19500, CallOI: -5, PutOI: 0},
	})

	calc := NewCalculator(0.07, DefaultMultiplier)
	if _, err := calc.ChainGex(snap, 7); err == nil {
		t.Fatal("negative OI must fail validation")
	}
}

func TestLevelsRegimeClassification(t *testing.T) {
	calc := NewCalculator(0.07, DefaultMultiplier)

	positive := []models.GexLevel{
		{Strike: 19400, NetGex: 100, CumulativeGex: 100},
		{Strike: 19500, NetGex: 200, CumulativeGex: 300},
	}
	summary := calc.Levels(positive, 19450)
	if summary.Regime != models.RegimePositive {
		t.Errorf("regime = %v, want positive", summary.Regime)
	}
	if summary.NetGex != 300 {
		t.Errorf("net GEX = %v, want 300", summary.NetGex)
	}
	if summary.FlipLevel != nil {
		t.Errorf("flip level = %v, want none (curve never crosses zero)", *summary.FlipLevel)
	}
	if summary.Bias != models.BiasMeanReverting {
		t.Errorf("bias = %v, want mean_reverting", summary.Bias)
	}

	negative := []models.GexLevel{
		{Strike: 19400, NetGex: -100, CumulativeGex: -100},
		{Strike: 19500, NetGex: -50, CumulativeGex: -150},
	}
	summary = calc.Levels(negative, 19450)
	if summary.Regime != models.RegimeNegative {
		t.Errorf("regime = %v, want negative", summary.Regime)
	}
	if summary.Bias != models.BiasTrending {
		t.Errorf("bias = %v, want trending", summary.Bias)
	}
}

func TestLevelsFlipInterpolation(t *testing.T) {
	calc := NewCalculator(0.07, DefaultMultiplier)

	// Cumulative curve crosses zero between 19400 (-100) and 19500 (+300):
	// flip = 19400 + 100 * 100/400 = 19425
	levels := []models.GexLevel{
		{Strike: 19300, NetGex: -100, CumulativeGex: -100},
		{Strike: 19400, NetGex: 0, CumulativeGex: -100},
		{Strike: 19500, NetGex: 400, CumulativeGex: 300},
	}

	summary := calc.Levels(levels, 19500)
	if summary.FlipLevel == nil {
		t.Fatal("expected a flip level")
	}
	if math.Abs(*summary.FlipLevel-19425) > 1e-9 {
		t.Errorf("flip level = %v, want 19425", *summary.FlipLevel)
	}

	// Spot above the flip in a positive regime
	if summary.Regime != models.RegimePositive {
		t.Errorf("regime = %v, want positive", summary.Regime)
	}
	if summary.Bias != models.BiasMeanReverting {
		t.Errorf("bias = %v, want mean_reverting", summary.Bias)
	}

	// Spot below the flip flips the bias variant
	summary = calc.Levels(levels, 19350)
	if summary.Bias != models.BiasMeanRevertingSupported {
		t.Errorf("bias = %v, want mean_reverting_supported", summary.Bias)
	}
}

func TestLevelsLeadingZeroCumulative(t *testing.T) {
	calc := NewCalculator(0.07, DefaultMultiplier)

	// A dead wing strike pins the cumulative curve at exactly zero
	// before the first real contribution. The curve then stays
	// negative, so it never crosses and the flip level is undefined.
	snap := testSnapshot([]models.StrikeRow{
		{Strike: 19300},
		{Strike: 19400, CallOI: 100, PutOI: 2000, CallIV: 0.18, PutIV: 0.18},
		{Strike: 19500, CallOI: 100, PutOI: 1500, CallIV: 0.17, PutIV: 0.17},
	})

	levels, err := calc.ChainGex(snap, 7)
	if err != nil {
		t.Fatalf("ChainGex: %v", err)
	}
	if levels[0].CumulativeGex != 0 {
		t.Fatalf("dead wing strike should leave cumulative at 0, got %v", levels[0].CumulativeGex)
	}

	summary := calc.Levels(levels, snap.UnderlyingSpot)
	if summary.FlipLevel != nil {
		t.Errorf("flip level = %v, want none (curve never crosses zero)", *summary.FlipLevel)
	}
	if summary.Regime != models.RegimeNegative {
		t.Errorf("regime = %v, want negative", summary.Regime)
	}
	if summary.Bias != models.BiasTrending {
		t.Errorf("bias = %v, want trending", summary.Bias)
	}
}

func TestLevelsZeroTouchIsNotACrossing(t *testing.T) {
	calc := NewCalculator(0.07, DefaultMultiplier)

	// The curve dips to exactly zero and recovers with the same sign:
	// a touch, not a crossing.
	touch := []models.GexLevel{
		{Strike: 19300, NetGex: 100, CumulativeGex: 100},
		{Strike: 19400, NetGex: -100, CumulativeGex: 0},
		{Strike: 19500, NetGex: 300, CumulativeGex: 300},
	}
	summary := calc.Levels(touch, 19400)
	if summary.FlipLevel != nil {
		t.Errorf("flip level = %v, want none for a zero touch", *summary.FlipLevel)
	}

	// Ending on exactly zero without a sign change is no crossing either.
	trailing := []models.GexLevel{
		{Strike: 19300, NetGex: 200, CumulativeGex: 200},
		{Strike: 19400, NetGex: -200, CumulativeGex: 0},
	}
	summary = calc.Levels(trailing, 19400)
	if summary.FlipLevel != nil {
		t.Errorf("flip level = %v, want none for a trailing zero", *summary.FlipLevel)
	}
}

func TestLevelsZeroBetweenOppositeSignsIsACrossing(t *testing.T) {
	calc := NewCalculator(0.07, DefaultMultiplier)

	levels := []models.GexLevel{
		{Strike: 19300, NetGex: 200, CumulativeGex: 200},
		{Strike: 19400, NetGex: -200, CumulativeGex: 0},
		{Strike: 19500, NetGex: -300, CumulativeGex: -300},
	}
	summary := calc.Levels(levels, 19400)
	if summary.FlipLevel == nil {
		t.Fatal("expected a flip level where the curve sits at zero between opposite signs")
	}
	if *summary.FlipLevel != 19400 {
		t.Errorf("flip level = %v, want 19400", *summary.FlipLevel)
	}
}

func TestLevelsExtremeStrikes(t *testing.T) {
	calc := NewCalculator(0.07, DefaultMultiplier)

	levels := []models.GexLevel{
		{Strike: 19300, NetGex: -500, CumulativeGex: -500},
		{Strike: 19400, NetGex: 900, CumulativeGex: 400},
		{Strike: 19500, NetGex: 100, CumulativeGex: 500},
	}

	summary := calc.Levels(levels, 19400)
	if summary.MaxPositiveStrike != 19400 {
		t.Errorf("max positive strike = %v, want 19400", summary.MaxPositiveStrike)
	}
	if summary.MaxNegativeStrike != 19300 {
		t.Errorf("max negative strike = %v, want 19300", summary.MaxNegativeStrike)
	}
	if summary.GexBelowSpot != -500 {
		t.Errorf("GEX below spot = %v, want -500", summary.GexBelowSpot)
	}
	if summary.GexAboveSpot != 100 {
		t.Errorf("GEX above spot = %v, want 100", summary.GexAboveSpot)
	}
}

func TestLevelsEmptyProfile(t *testing.T) {
	calc := NewCalculator(0.07, DefaultMultiplier)
	summary := calc.Levels(nil, 19500)
	if summary.Regime != models.RegimeNeutral || summary.Bias != models.BiasNeutral {
		t.Errorf("empty profile should be neutral, got regime=%v bias=%v", summary.Regime, summary.Bias)
	}
}
