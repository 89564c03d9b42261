// Package analysis orchestrates the option-chain analytics engines
// over a single validated snapshot.
package analysis

import (
	"context"
	"sync"

	"github.com/kangrills/nifty-expiry-predictor/internal/analysis/gex"
	"github.com/kangrills/nifty-expiry-predictor/internal/analysis/maxpain"
	"github.com/kangrills/nifty-expiry-predictor/internal/analysis/oi"
	"github.com/kangrills/nifty-expiry-predictor/internal/config"
	"github.com/kangrills/nifty-expiry-predictor/internal/models"
)

// Engine runs the chain-level analytics with a bounded worker pool.
// All engines are pure transforms over the snapshot; each writes only
// its own result slot, so the combined output is reproducible
// regardless of scheduling.
type Engine struct {
	cfg     config.AnalyticsConfig
	workers int
}

// NewEngine creates an analysis engine from the numerical policy.
func NewEngine(cfg config.AnalyticsConfig) *Engine {
	workers := cfg.AnalysisWorkers
	if workers <= 0 {
		workers = 4
	}
	return &Engine{cfg: cfg, workers: workers}
}

// Analyze validates the snapshot once and runs the GEX, max pain and
// open-interest engines over it. Any engine error fails the whole
// call; no partially-computed result is returned.
func (e *Engine) Analyze(ctx context.Context, snap *models.OptionChainSnapshot, daysToExpiry int) (*models.ChainAnalysis, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &models.ChainAnalysis{
		Symbol:       snap.Symbol,
		Spot:         snap.UnderlyingSpot,
		Timestamp:    snap.Timestamp,
		ExpiryDate:   snap.ExpiryDate,
		DaysToExpiry: daysToExpiry,
	}

	tasks := []func() error{
		func() error {
			calc := gex.NewCalculator(e.cfg.RiskFreeRate, e.cfg.GexMultiplier)
			levels, err := calc.ChainGex(snap, daysToExpiry)
			if err != nil {
				return err
			}
			result.GexLevels = levels
			result.Gex = calc.Levels(levels, snap.UnderlyingSpot)
			return nil
		},
		func() error {
			pain, err := maxpain.Calculate(snap)
			if err != nil {
				return err
			}
			levels, err := maxpain.FindSupportResistance(snap, e.cfg.NumLevels)
			if err != nil {
				return err
			}
			result.MaxPain = pain
			result.Levels = levels
			return nil
		},
		func() error {
			thresholds := oi.Thresholds{Bullish: e.cfg.PCRBullish, Bearish: e.cfg.PCRBearish}
			summary, err := oi.Summarize(snap, models.PCRByOI, thresholds, e.cfg.NumWalls)
			if err != nil {
				return err
			}
			result.OI = summary
			return nil
		},
	}

	work := make(chan func() error, len(tasks))
	errs := make(chan error, len(tasks))
	var wg sync.WaitGroup

	workers := e.workers
	if workers > len(tasks) {
		workers = len(tasks)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range work {
				select {
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				default:
					if err := task(); err != nil {
						errs <- err
					}
				}
			}
		}()
	}

	for _, task := range tasks {
		work <- task
	}
	close(work)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}
