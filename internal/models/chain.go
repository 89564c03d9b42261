package models

import (
	"time"

	"github.com/kangrills/nifty-expiry-predictor/internal/errors"
)

// OptionChainSnapshot is a single point-in-time view of an index option
// chain. It is constructed once by a collector (or a test fixture) and
// never mutated; every engine treats it as a read-only table.
type OptionChainSnapshot struct {
	Symbol         string
	UnderlyingSpot float64
	Timestamp      time.Time
	ExpiryDate     time.Time
	LotSize        int
	Rows           []StrikeRow
}

// StrikeRow holds the call and put side data for one strike.
//
// An IV of zero means the exchange did not publish one for that leg; an
// LTP of zero means the contract has not traded. Both are legal and the
// engines substitute documented fallbacks instead of guessing.
type StrikeRow struct {
	Strike float64

	CallOI        int64
	CallOIChange  int64
	CallVolume    int64
	CallIV        float64
	CallLTP       float64
	CallLTPChange float64

	PutOI        int64
	PutOIChange  int64
	PutVolume    int64
	PutIV        float64
	PutLTP       float64
	PutLTPChange float64
}

// Validate checks the snapshot invariants. It reports the first
// violation found and never repairs the data.
func (s *OptionChainSnapshot) Validate() error {
	if s.UnderlyingSpot <= 0 {
		return errors.NewValidationError("underlying_spot", s.UnderlyingSpot, "spot price must be positive")
	}
	if s.LotSize <= 0 {
		return errors.NewValidationError("lot_size", s.LotSize, "lot size must be positive")
	}
	if len(s.Rows) == 0 {
		return errors.NewValidationError("rows", 0, "option chain has no strikes")
	}

	prev := 0.0
	for i, row := range s.Rows {
		if row.Strike <= 0 {
			return errors.NewValidationError("strike", row.Strike, "strike must be positive")
		}
		if i > 0 && row.Strike == prev {
			return errors.NewValidationError("strike", row.Strike, "duplicate strike")
		}
		if i > 0 && row.Strike < prev {
			return errors.NewValidationError("strike", row.Strike, "strikes must be sorted ascending")
		}
		prev = row.Strike

		if row.CallOI < 0 || row.PutOI < 0 {
			return errors.NewValidationError("oi", row.Strike, "open interest cannot be negative")
		}
		if row.CallVolume < 0 || row.PutVolume < 0 {
			return errors.NewValidationError("volume", row.Strike, "volume cannot be negative")
		}
		if row.CallIV < 0 || row.PutIV < 0 {
			return errors.NewValidationError("iv", row.Strike, "implied volatility cannot be negative")
		}
		if row.CallLTP < 0 || row.PutLTP < 0 {
			return errors.NewValidationError("ltp", row.Strike, "last traded price cannot be negative")
		}
	}

	return nil
}

// Strikes returns the strike column in chain order.
func (s *OptionChainSnapshot) Strikes() []float64 {
	strikes := make([]float64, len(s.Rows))
	for i, row := range s.Rows {
		strikes[i] = row.Strike
	}
	return strikes
}

// TotalOI returns the summed call and put open interest.
func (s *OptionChainSnapshot) TotalOI() (callOI, putOI int64) {
	for _, row := range s.Rows {
		callOI += row.CallOI
		putOI += row.PutOI
	}
	return callOI, putOI
}
