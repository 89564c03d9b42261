package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/kangrills/nifty-expiry-predictor/internal/errors"
	"github.com/kangrills/nifty-expiry-predictor/internal/models"
)

// csvRow is the flat on-disk representation of one strike. Snapshot
// metadata is repeated per row so a file round-trips without a sidecar.
type csvRow struct {
	Symbol        string  `csv:"symbol"`
	Spot          float64 `csv:"spot"`
	Timestamp     string  `csv:"timestamp"`
	Expiry        string  `csv:"expiry"`
	LotSize       int     `csv:"lot_size"`
	Strike        float64 `csv:"strike"`
	CallOI        int64   `csv:"call_oi"`
	CallOIChange  int64   `csv:"call_oi_change"`
	CallVolume    int64   `csv:"call_volume"`
	CallIV        float64 `csv:"call_iv"`
	CallLTP       float64 `csv:"call_ltp"`
	CallLTPChange float64 `csv:"call_ltp_change"`
	PutOI         int64   `csv:"put_oi"`
	PutOIChange   int64   `csv:"put_oi_change"`
	PutVolume     int64   `csv:"put_volume"`
	PutIV         float64 `csv:"put_iv"`
	PutLTP        float64 `csv:"put_ltp"`
	PutLTPChange  float64 `csv:"put_ltp_change"`
}

const (
	csvTimeLayout = time.RFC3339
	csvDateLayout = "2006-01-02"
)

// SaveSnapshot writes a snapshot as CSV under dir and returns the file
// path. Files are named SYMBOL_EXPIRY_CAPTURETIME.csv so a directory
// listing sorts chronologically per contract.
func SaveSnapshot(dir string, snap *models.OptionChainSnapshot) (string, error) {
	if err := snap.Validate(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "creating snapshot directory")
	}

	rows := make([]csvRow, len(snap.Rows))
	for i, r := range snap.Rows {
		rows[i] = csvRow{
			Symbol:        snap.Symbol,
			Spot:          snap.UnderlyingSpot,
			Timestamp:     snap.Timestamp.Format(csvTimeLayout),
			Expiry:        snap.ExpiryDate.Format(csvDateLayout),
			LotSize:       snap.LotSize,
			Strike:        r.Strike,
			CallOI:        r.CallOI,
			CallOIChange:  r.CallOIChange,
			CallVolume:    r.CallVolume,
			CallIV:        r.CallIV,
			CallLTP:       r.CallLTP,
			CallLTPChange: r.CallLTPChange,
			PutOI:         r.PutOI,
			PutOIChange:   r.PutOIChange,
			PutVolume:     r.PutVolume,
			PutIV:         r.PutIV,
			PutLTP:        r.PutLTP,
			PutLTPChange:  r.PutLTPChange,
		}
	}

	name := fmt.Sprintf("%s_%s_%s.csv",
		snap.Symbol,
		snap.ExpiryDate.Format("20060102"),
		snap.Timestamp.Format("20060102T150405"))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "creating snapshot file")
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return "", errors.Wrap(err, "writing snapshot csv")
	}
	return path, nil
}

// LoadSnapshot reads a snapshot previously written by SaveSnapshot.
func LoadSnapshot(path string) (*models.OptionChainSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening snapshot file")
	}
	defer f.Close()

	var rows []csvRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, errors.NewDataError("snapshot", path, "malformed snapshot csv", err)
	}
	if len(rows) == 0 {
		return nil, errors.NewDataError("snapshot", path, "snapshot file is empty", errors.ErrEmptyChain)
	}

	timestamp, err := time.Parse(csvTimeLayout, rows[0].Timestamp)
	if err != nil {
		return nil, errors.NewDataError("snapshot", path, "bad timestamp column", err)
	}
	expiry, err := time.Parse(csvDateLayout, rows[0].Expiry)
	if err != nil {
		return nil, errors.NewDataError("snapshot", path, "bad expiry column", err)
	}

	snap := &models.OptionChainSnapshot{
		Symbol:         rows[0].Symbol,
		UnderlyingSpot: rows[0].Spot,
		Timestamp:      timestamp,
		ExpiryDate:     expiry,
		LotSize:        rows[0].LotSize,
		Rows:           make([]models.StrikeRow, len(rows)),
	}
	for i, r := range rows {
		snap.Rows[i] = models.StrikeRow{
			Strike:        r.Strike,
			CallOI:        r.CallOI,
			CallOIChange:  r.CallOIChange,
			CallVolume:    r.CallVolume,
			CallIV:        r.CallIV,
			CallLTP:       r.CallLTP,
			CallLTPChange: r.CallLTPChange,
			PutOI:         r.PutOI,
			PutOIChange:   r.PutOIChange,
			PutVolume:     r.PutVolume,
			PutIV:         r.PutIV,
			PutLTP:        r.PutLTP,
			PutLTPChange:  r.PutLTPChange,
		}
	}

	sort.Slice(snap.Rows, func(i, j int) bool { return snap.Rows[i].Strike < snap.Rows[j].Strike })

	if err := snap.Validate(); err != nil {
		return nil, errors.NewDataError("snapshot", path, "snapshot failed validation", err)
	}
	return snap, nil
}

// CSVCollector serves chains from a directory of saved snapshots. It
// backs the offline "csv" source and the test fixtures.
type CSVCollector struct {
	dir string
}

// NewCSVCollector returns a collector reading from dir.
func NewCSVCollector(dir string) *CSVCollector {
	return &CSVCollector{dir: dir}
}

// FetchChain implements Collector by loading the most recent snapshot
// for the symbol, optionally filtered to one expiry.
func (c *CSVCollector) FetchChain(ctx context.Context, symbol string, expiry time.Time) (*models.OptionChainSnapshot, error) {
	paths, err := c.snapshotPaths(symbol)
	if err != nil {
		return nil, err
	}

	// Names sort chronologically, walk newest first
	for i := len(paths) - 1; i >= 0; i-- {
		snap, err := LoadSnapshot(paths[i])
		if err != nil {
			continue
		}
		if expiry.IsZero() || sameDay(snap.ExpiryDate, expiry) {
			return snap, nil
		}
	}
	return nil, errors.NewDataError("snapshot", symbol, "no matching snapshot on disk", errors.ErrDataNotFound)
}

// Expiries implements Collector.
func (c *CSVCollector) Expiries(ctx context.Context, symbol string) ([]time.Time, error) {
	paths, err := c.snapshotPaths(symbol)
	if err != nil {
		return nil, err
	}

	seen := make(map[time.Time]bool)
	var expiries []time.Time
	for _, path := range paths {
		snap, err := LoadSnapshot(path)
		if err != nil {
			continue
		}
		day := truncateToDay(snap.ExpiryDate)
		if !seen[day] {
			seen[day] = true
			expiries = append(expiries, day)
		}
	}
	sort.Slice(expiries, func(i, j int) bool { return expiries[i].Before(expiries[j]) })
	return expiries, nil
}

func (c *CSVCollector) snapshotPaths(symbol string) ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading snapshot directory")
	}

	var paths []string
	prefix := symbol + "_"
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".csv") {
			continue
		}
		paths = append(paths, filepath.Join(c.dir, name))
	}
	if len(paths) == 0 {
		return nil, errors.NewDataError("snapshot", symbol, "no snapshots on disk", errors.ErrDataNotFound)
	}
	sort.Strings(paths)
	return paths, nil
}

var _ Collector = (*CSVCollector)(nil)
