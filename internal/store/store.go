// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/kangrills/nifty-expiry-predictor/internal/models"
)

// AnalyticsStore persists option-chain snapshots and the analysis
// results computed from them.
type AnalyticsStore interface {
	// Snapshots
	SaveSnapshot(ctx context.Context, snap *models.OptionChainSnapshot) (int64, error)
	GetSnapshot(ctx context.Context, id int64) (*models.OptionChainSnapshot, error)
	LatestSnapshot(ctx context.Context, symbol string) (*models.OptionChainSnapshot, error)
	ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]SnapshotMeta, error)

	// Analyses
	SaveAnalysis(ctx context.Context, analysis *models.ChainAnalysis) error
	GetAnalyses(ctx context.Context, filter AnalysisFilter) ([]models.ChainAnalysis, error)

	// Lifecycle
	Close() error
}

// SnapshotFilter narrows a snapshot listing.
type SnapshotFilter struct {
	Symbol    string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// SnapshotMeta is the listing view of a stored snapshot, without the
// per-strike rows.
type SnapshotMeta struct {
	ID         int64
	Symbol     string
	CapturedAt time.Time
	ExpiryDate time.Time
	Spot       float64
	LotSize    int
	NumStrikes int
}

// AnalysisFilter narrows an analysis query.
type AnalysisFilter struct {
	Symbol    string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}
