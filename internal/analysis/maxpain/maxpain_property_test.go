package maxpain

import (
	"math"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/kangrills/nifty-expiry-predictor/internal/models"
)

// Property: the prefix-sum pain curve is identical to the naive
// double-loop evaluation, including the argmin strike, for any valid
// chain.

func chainGen() gopter.Gen {
	return gen.SliceOfN(30, gopter.CombineGens(
		gen.Float64Range(18000, 21000),
		gen.Int64Range(0, 50000),
		gen.Int64Range(0, 50000),
	)).Map(func(raw [][]interface{}) *models.OptionChainSnapshot {
		seen := make(map[float64]bool)
		rows := make([]models.StrikeRow, 0, len(raw))
		for _, values := range raw {
			strike := math.Round(values[0].(float64)/50) * 50
			if seen[strike] {
				continue
			}
			seen[strike] = true
			rows = append(rows, models.StrikeRow{
				Strike: strike,
				CallOI: values[1].(int64),
				PutOI:  values[2].(int64),
			})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Strike < rows[j].Strike })
		if len(rows) == 0 {
			rows = []models.StrikeRow{{Strike: 19500, CallOI: 100, PutOI: 100}}
		}
		return &models.OptionChainSnapshot{
			Symbol:         "NIFTY",
			UnderlyingSpot: 19500,
			Timestamp:      time.Now(),
			ExpiryDate:     time.Now().AddDate(0, 0, 7),
			LotSize:        50,
			Rows:           rows,
		}
	})
}

func TestProperty_PainCurveMatchesNaive(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("prefix-sum pain equals the naive double loop", prop.ForAll(
		func(snap *models.OptionChainSnapshot) bool {
			result, err := Calculate(snap)
			if err != nil {
				return false
			}

			for _, point := range result.PainCurve {
				naive := naivePain(snap, point.Strike)
				scale := math.Max(1, naive)
				if math.Abs(point.TotalPain-naive) > 1e-9*scale {
					return false
				}
			}
			return true
		},
		chainGen(),
	))

	properties.TestingRun(t)
}

func TestProperty_ArgminMatchesNaive(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("argmin strike matches the naive scan with smallest-strike ties", prop.ForAll(
		func(snap *models.OptionChainSnapshot) bool {
			result, err := Calculate(snap)
			if err != nil {
				return false
			}

			best := snap.Rows[0].Strike
			bestPain := naivePain(snap, best)
			for _, row := range snap.Rows[1:] {
				pain := naivePain(snap, row.Strike)
				if pain < bestPain {
					best = row.Strike
					bestPain = pain
				}
			}
			return result.MaxPainStrike == best
		},
		chainGen(),
	))

	properties.TestingRun(t)
}
