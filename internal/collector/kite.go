package collector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"github.com/kangrills/nifty-expiry-predictor/internal/config"
	"github.com/kangrills/nifty-expiry-predictor/internal/errors"
	"github.com/kangrills/nifty-expiry-predictor/internal/models"
)

// indexQuoteSymbol maps derivative underlyings to the NSE index quote
// symbols Kite uses for the spot price.
var indexQuoteSymbol = map[string]string{
	"NIFTY":      "NSE:NIFTY 50",
	"BANKNIFTY":  "NSE:NIFTY BANK",
	"FINNIFTY":   "NSE:NIFTY FIN SERVICE",
	"MIDCPNIFTY": "NSE:NIFTY MID SELECT",
}

// quoteBatchSize is Kite's per-request instrument limit, kept well
// under the documented 500.
const quoteBatchSize = 250

// KiteCollector fetches option chains through the Zerodha Kite Connect
// API. It needs a valid access token; the auth flow lives in the CLI.
type KiteCollector struct {
	client  *kiteconnect.Client
	lotSize func(symbol string) int
	logger  zerolog.Logger

	mu          sync.Mutex
	instruments []kiteconnect.Instrument
	fetchedAt   time.Time
}

// NewKiteCollector builds a collector from Kite credentials.
func NewKiteCollector(creds config.KiteCredentials, lotSize func(string) int, logger zerolog.Logger) (*KiteCollector, error) {
	if creds.APIKey == "" || creds.AccessToken == "" {
		return nil, errors.Wrap(errors.ErrConfigInvalid, "kite api_key and access_token are required")
	}

	client := kiteconnect.New(creds.APIKey)
	client.SetAccessToken(creds.AccessToken)

	return &KiteCollector{
		client:  client,
		lotSize: lotSize,
		logger:  logger.With().Str("component", "kite_collector").Logger(),
	}, nil
}

// FetchChain implements Collector.
func (k *KiteCollector) FetchChain(ctx context.Context, symbol string, expiry time.Time) (*models.OptionChainSnapshot, error) {
	spot, err := k.spotPrice(symbol)
	if err != nil {
		return nil, err
	}

	if expiry.IsZero() {
		expiries, err := k.Expiries(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if len(expiries) == 0 {
			return nil, errors.NewDataError("option_chain", symbol, "no expiries listed on NFO", errors.ErrExpiryNotFound)
		}
		expiry = expiries[0]
	}

	options, err := k.optionInstruments(symbol, expiry)
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, errors.NewDataError("option_chain", symbol,
			fmt.Sprintf("no contracts for expiry %s", expiry.Format("2006-01-02")), errors.ErrExpiryNotFound)
	}

	rowsByStrike := make(map[float64]*models.StrikeRow, len(options)/2)
	symbols := make([]string, 0, len(options))
	bySymbol := make(map[string]kiteconnect.Instrument, len(options))
	for _, inst := range options {
		key := "NFO:" + inst.Tradingsymbol
		symbols = append(symbols, key)
		bySymbol[key] = inst
	}

	for start := 0; start < len(symbols); start += quoteBatchSize {
		end := start + quoteBatchSize
		if end > len(symbols) {
			end = len(symbols)
		}

		quotes, err := k.client.GetQuote(symbols[start:end]...)
		if err != nil {
			return nil, errors.NewDataError("option_chain", symbol, "kite quote batch failed", err)
		}

		for key, q := range quotes {
			inst := bySymbol[key]
			row, ok := rowsByStrike[inst.StrikePrice]
			if !ok {
				row = &models.StrikeRow{Strike: inst.StrikePrice}
				rowsByStrike[inst.StrikePrice] = row
			}

			// Kite quotes carry no implied volatility, the analytics
			// layer solves it from the premium instead.
			switch inst.InstrumentType {
			case "CE":
				row.CallOI = int64(q.OI)
				row.CallVolume = int64(q.Volume)
				row.CallLTP = q.LastPrice
				row.CallLTPChange = q.NetChange
			case "PE":
				row.PutOI = int64(q.OI)
				row.PutVolume = int64(q.Volume)
				row.PutLTP = q.LastPrice
				row.PutLTPChange = q.NetChange
			}
		}
	}

	snap := &models.OptionChainSnapshot{
		Symbol:         symbol,
		UnderlyingSpot: spot,
		Timestamp:      time.Now(),
		ExpiryDate:     expiry,
		LotSize:        k.lotSize(symbol),
		Rows:           make([]models.StrikeRow, 0, len(rowsByStrike)),
	}
	for _, row := range rowsByStrike {
		snap.Rows = append(snap.Rows, *row)
	}
	sort.Slice(snap.Rows, func(i, j int) bool { return snap.Rows[i].Strike < snap.Rows[j].Strike })

	if err := snap.Validate(); err != nil {
		return nil, errors.NewDataError("option_chain", symbol, "kite returned an unusable chain", err)
	}

	k.logger.Info().
		Str("symbol", symbol).
		Time("expiry", expiry).
		Int("strikes", len(snap.Rows)).
		Float64("spot", spot).
		Msg("fetched option chain")

	return snap, nil
}

// Expiries implements Collector.
func (k *KiteCollector) Expiries(ctx context.Context, symbol string) ([]time.Time, error) {
	instruments, err := k.nfoInstruments()
	if err != nil {
		return nil, err
	}

	seen := make(map[time.Time]bool)
	var expiries []time.Time
	for _, inst := range instruments {
		if inst.Name != symbol || (inst.InstrumentType != "CE" && inst.InstrumentType != "PE") {
			continue
		}
		day := truncateToDay(inst.Expiry.Time)
		if !seen[day] {
			seen[day] = true
			expiries = append(expiries, day)
		}
	}
	sort.Slice(expiries, func(i, j int) bool { return expiries[i].Before(expiries[j]) })
	return expiries, nil
}

func (k *KiteCollector) spotPrice(symbol string) (float64, error) {
	quoteSymbol, ok := indexQuoteSymbol[symbol]
	if !ok {
		return 0, errors.NewDataError("quote", symbol, "not a supported index", errors.ErrSymbolNotFound)
	}

	quotes, err := k.client.GetQuote(quoteSymbol)
	if err != nil {
		return 0, errors.NewDataError("quote", symbol, "kite spot quote failed", err)
	}
	q, ok := quotes[quoteSymbol]
	if !ok {
		return 0, errors.NewDataError("quote", symbol, "spot quote missing from response", errors.ErrDataNotFound)
	}
	return q.LastPrice, nil
}

func (k *KiteCollector) optionInstruments(symbol string, expiry time.Time) ([]kiteconnect.Instrument, error) {
	instruments, err := k.nfoInstruments()
	if err != nil {
		return nil, err
	}

	var options []kiteconnect.Instrument
	for _, inst := range instruments {
		if inst.Name != symbol {
			continue
		}
		if inst.InstrumentType != "CE" && inst.InstrumentType != "PE" {
			continue
		}
		if !sameDay(inst.Expiry.Time, expiry) {
			continue
		}
		options = append(options, inst)
	}
	return options, nil
}

// nfoInstruments caches the NFO instrument dump, which Kite refreshes
// daily.
func (k *KiteCollector) nfoInstruments() ([]kiteconnect.Instrument, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.instruments != nil && time.Since(k.fetchedAt) < 12*time.Hour {
		return k.instruments, nil
	}

	instruments, err := k.client.GetInstrumentsByExchange("NFO")
	if err != nil {
		return nil, errors.NewDataError("instruments", "NFO", "kite instrument dump failed", err)
	}

	k.instruments = instruments
	k.fetchedAt = time.Now()
	return instruments, nil
}

func sameDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

var _ Collector = (*KiteCollector)(nil)
