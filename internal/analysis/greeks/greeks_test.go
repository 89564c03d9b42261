package greeks

import (
	"math"
	"testing"

	"github.com/kangrills/nifty-expiry-predictor/internal/errors"
	"github.com/kangrills/nifty-expiry-predictor/internal/models"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

// withinPercent reports whether got is within pct% of want.
func withinPercent(got, want, pct float64) bool {
	return math.Abs(got-want) <= math.Abs(want)*pct/100
}

func TestComputeATMCall(t *testing.T) {
	// NIFTY weekly ATM call, 7 days out at 20% vol
	result, err := Compute(Params{
		Spot:         19500,
		Strike:       19500,
		TimeToExpiry: 7.0 / 365,
		Volatility:   0.20,
		RiskFreeRate: 0.07,
		Type:         models.Call,
	})
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	if !withinPercent(result.Delta, 0.525, 5) {
		t.Errorf("delta = %.4f, want ~0.525", result.Delta)
	}
	if !withinPercent(result.Gamma, 0.00074, 5) {
		t.Errorf("gamma = %.6f, want ~0.00074", result.Gamma)
	}
	if !withinPercent(result.Theta, -17.3, 5) {
		t.Errorf("theta = %.2f, want ~-17.3 per day", result.Theta)
	}
	if !withinPercent(result.Vega, 10.75, 5) {
		t.Errorf("vega = %.2f, want ~10.75", result.Vega)
	}
	if result.Price <= 0 {
		t.Errorf("price = %.2f, want positive", result.Price)
	}
}

func TestComputeGammaParity(t *testing.T) {
	p := Params{
		Spot:         19480,
		Strike:       19600,
		TimeToExpiry: 14.0 / 365,
		Volatility:   0.18,
		RiskFreeRate: 0.07,
	}

	p.Type = models.Call
	call, err := Compute(p)
	if err != nil {
		t.Fatalf("call: %v", err)
	}

	p.Type = models.Put
	put, err := Compute(p)
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	if call.Gamma != put.Gamma {
		t.Errorf("gamma differs between call (%.8f) and put (%.8f)", call.Gamma, put.Gamma)
	}
	if call.Vega != put.Vega {
		t.Errorf("vega differs between call (%.6f) and put (%.6f)", call.Vega, put.Vega)
	}
}

func TestComputePutCallParity(t *testing.T) {
	p := Params{
		Spot:         19520,
		Strike:       19400,
		TimeToExpiry: 10.0 / 365,
		Volatility:   0.22,
		RiskFreeRate: 0.07,
	}

	p.Type = models.Call
	call, _ := Compute(p)
	p.Type = models.Put
	put, _ := Compute(p)

	// C - P = S - K*exp(-rT)
	lhs := call.Price - put.Price
	rhs := p.Spot - p.Strike*math.Exp(-p.RiskFreeRate*p.TimeToExpiry)
	if !almostEqual(lhs, rhs, 1e-9) {
		t.Errorf("put-call parity violated: C-P = %.6f, S-Ke^-rT = %.6f", lhs, rhs)
	}
}

func TestComputeDegenerateInputs(t *testing.T) {
	tests := []struct {
		name      string
		spot      float64
		strike    float64
		ttm       float64
		vol       float64
		optType   models.OptionType
		wantDelta float64
		wantPrice float64
	}{
		{"expired ITM call", 19600, 19500, 0, 0.2, models.Call, 1, 100},
		{"expired OTM call", 19400, 19500, 0, 0.2, models.Call, 0, 0},
		{"expired ITM put", 19400, 19500, 0, 0.2, models.Put, -1, 100},
		{"expired OTM put", 19600, 19500, 0, 0.2, models.Put, 0, 0},
		{"zero vol ITM call", 19600, 19500, 7.0 / 365, 0, models.Call, 1, 100},
		{"negative ttm put", 19450, 19500, -1.0 / 365, 0.2, models.Put, -1, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Compute(Params{
				Spot:         tt.spot,
				Strike:       tt.strike,
				TimeToExpiry: tt.ttm,
				Volatility:   tt.vol,
				RiskFreeRate: 0.07,
				Type:         tt.optType,
			})
			if err != nil {
				t.Fatalf("degenerate input must not error: %v", err)
			}
			if result.Delta != tt.wantDelta {
				t.Errorf("delta = %v, want %v", result.Delta, tt.wantDelta)
			}
			if result.Price != tt.wantPrice {
				t.Errorf("price = %v, want %v", result.Price, tt.wantPrice)
			}
			if result.Gamma != 0 || result.Theta != 0 || result.Vega != 0 || result.Rho != 0 {
				t.Errorf("greeks not zeroed: gamma=%v theta=%v vega=%v rho=%v",
					result.Gamma, result.Theta, result.Vega, result.Rho)
			}
		})
	}
}

func TestComputeRejectsInvalidInputs(t *testing.T) {
	cases := []Params{
		{Spot: 0, Strike: 19500, TimeToExpiry: 0.02, Volatility: 0.2, Type: models.Call},
		{Spot: 19500, Strike: -100, TimeToExpiry: 0.02, Volatility: 0.2, Type: models.Put},
		{Spot: 19500, Strike: 19500, TimeToExpiry: 0.02, Volatility: 0.2, Type: "straddle"},
	}

	for _, p := range cases {
		if _, err := Compute(p); err == nil {
			t.Errorf("Compute(%+v) should fail validation", p)
		}
	}
}

func TestImpliedVolatilityRoundTrip(t *testing.T) {
	vols := []float64{0.10, 0.15, 0.20, 0.35, 0.60}

	for _, vol := range vols {
		for _, optType := range []models.OptionType{models.Call, models.Put} {
			price, err := Price(Params{
				Spot:         19500,
				Strike:       19600,
				TimeToExpiry: 7.0 / 365,
				Volatility:   vol,
				RiskFreeRate: 0.07,
				Type:         optType,
			})
			if err != nil {
				t.Fatalf("Price: %v", err)
			}

			recovered, err := ImpliedVolatility(price, 19500, 19600, 7.0/365, 0.07, optType)
			if err != nil {
				t.Fatalf("ImpliedVolatility(%s, vol=%.2f): %v", optType, vol, err)
			}
			if !almostEqual(recovered, vol, 1e-4) {
				t.Errorf("%s vol %.2f: recovered %.6f", optType, vol, recovered)
			}
		}
	}
}

func TestImpliedVolatilityNonConvergence(t *testing.T) {
	// At T=0 the price is intrinsic for every vol, so the solver can
	// never match an extrinsic price and must fail loudly.
	_, err := ImpliedVolatility(250, 19500, 19500, 0, 0.07, models.Call)
	if err == nil {
		t.Fatal("expected convergence error")
	}

	var convErr *errors.ConvergenceError
	if !errors.As(err, &convErr) {
		t.Fatalf("want ConvergenceError, got %T: %v", err, err)
	}
	if convErr.Iterations == 0 {
		t.Error("ConvergenceError should carry the iteration count")
	}
}

func TestImpliedVolatilityRejectsNonPositivePrice(t *testing.T) {
	if _, err := ImpliedVolatility(0, 19500, 19500, 7.0/365, 0.07, models.Call); err == nil {
		t.Error("zero market price should fail validation")
	}
}

func TestImpliedVolatilityDeepITMFallsBackToBisection(t *testing.T) {
	// Deep ITM near expiry has nearly zero vega at the initial guess;
	// the solver has to finish the job via bisection.
	price, err := Price(Params{
		Spot:         21000,
		Strike:       18000,
		TimeToExpiry: 1.0 / 365,
		Volatility:   0.90,
		RiskFreeRate: 0.07,
		Type:         models.Call,
	})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}

	recovered, err := ImpliedVolatility(price, 21000, 18000, 1.0/365, 0.07, models.Call)
	if err != nil {
		t.Fatalf("ImpliedVolatility: %v", err)
	}
	if !almostEqual(recovered, 0.90, 1e-2) {
		t.Errorf("recovered vol %.4f, want ~0.90", recovered)
	}
}
