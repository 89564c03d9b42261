package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kangrills/nifty-expiry-predictor/internal/config"
	"github.com/kangrills/nifty-expiry-predictor/internal/errors"
	"github.com/kangrills/nifty-expiry-predictor/internal/models"
	"github.com/kangrills/nifty-expiry-predictor/pkg/utils"
)

// nseDateLayout is the expiry format NSE uses, e.g. "25-Jan-2024".
const nseDateLayout = "02-Jan-2006"

// nseTimestampLayout is the snapshot timestamp format, e.g.
// "18-Jan-2024 15:30:00".
const nseTimestampLayout = "02-Jan-2006 15:04:05"

// NSECollector fetches option chains from the public NSE India API.
// The API requires a browser-like session: a warm-up request to the
// option-chain page sets the cookies the JSON endpoint expects.
type NSECollector struct {
	baseURL   string
	client    *http.Client
	retry     utils.RetryConfig
	rateDelay time.Duration
	lotSize   func(symbol string) int
	logger    zerolog.Logger

	mu       sync.Mutex
	lastCall time.Time
	warmed   bool
}

// NewNSECollector builds a collector from config. lotSize resolves the
// contract lot size per index symbol.
func NewNSECollector(cfg config.CollectorConfig, lotSize func(string) int, logger zerolog.Logger) (*NSECollector, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating cookie jar")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	retry := utils.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxAttempts = cfg.MaxRetries
	}

	return &NSECollector{
		baseURL:   cfg.NSEBaseURL,
		client:    &http.Client{Jar: jar, Timeout: timeout},
		retry:     retry,
		rateDelay: cfg.RateLimitDelay,
		lotSize:   lotSize,
		logger:    logger.With().Str("component", "nse_collector").Logger(),
	}, nil
}

// nseResponse mirrors the relevant slice of the NSE option-chain JSON.
type nseResponse struct {
	Records struct {
		ExpiryDates     []string `json:"expiryDates"`
		UnderlyingValue float64  `json:"underlyingValue"`
		Timestamp       string   `json:"timestamp"`
		Data            []nseRow `json:"data"`
	} `json:"records"`
}

type nseRow struct {
	StrikePrice float64 `json:"strikePrice"`
	ExpiryDate  string  `json:"expiryDate"`
	CE          *nseLeg `json:"CE"`
	PE          *nseLeg `json:"PE"`
}

type nseLeg struct {
	OpenInterest         int64   `json:"openInterest"`
	ChangeInOpenInterest int64   `json:"changeinOpenInterest"`
	TotalTradedVolume    int64   `json:"totalTradedVolume"`
	ImpliedVolatility    float64 `json:"impliedVolatility"`
	LastPrice            float64 `json:"lastPrice"`
	Change               float64 `json:"change"`
}

// FetchChain implements Collector.
func (c *NSECollector) FetchChain(ctx context.Context, symbol string, expiry time.Time) (*models.OptionChainSnapshot, error) {
	resp, err := c.fetchRaw(ctx, symbol)
	if err != nil {
		return nil, err
	}

	expiryStr, expiryDate, err := pickExpiry(resp.Records.ExpiryDates, expiry)
	if err != nil {
		return nil, errors.NewDataError("option_chain", symbol, err.Error(), errors.ErrExpiryNotFound)
	}

	timestamp, err := time.ParseInLocation(nseTimestampLayout, resp.Records.Timestamp, utils.ISTLocation())
	if err != nil {
		timestamp = time.Now()
	}

	snap := &models.OptionChainSnapshot{
		Symbol:         symbol,
		UnderlyingSpot: resp.Records.UnderlyingValue,
		Timestamp:      timestamp,
		ExpiryDate:     expiryDate,
		LotSize:        c.lotSize(symbol),
	}

	for _, row := range resp.Records.Data {
		if row.ExpiryDate != expiryStr {
			continue
		}
		sr := models.StrikeRow{Strike: row.StrikePrice}
		if leg := row.CE; leg != nil {
			sr.CallOI = leg.OpenInterest
			sr.CallOIChange = leg.ChangeInOpenInterest
			sr.CallVolume = leg.TotalTradedVolume
			sr.CallIV = leg.ImpliedVolatility / 100 // NSE reports IV in percent
			sr.CallLTP = leg.LastPrice
			sr.CallLTPChange = leg.Change
		}
		if leg := row.PE; leg != nil {
			sr.PutOI = leg.OpenInterest
			sr.PutOIChange = leg.ChangeInOpenInterest
			sr.PutVolume = leg.TotalTradedVolume
			sr.PutIV = leg.ImpliedVolatility / 100
			sr.PutLTP = leg.LastPrice
			sr.PutLTPChange = leg.Change
		}
		snap.Rows = append(snap.Rows, sr)
	}

	sort.Slice(snap.Rows, func(i, j int) bool { return snap.Rows[i].Strike < snap.Rows[j].Strike })

	if err := snap.Validate(); err != nil {
		return nil, errors.NewDataError("option_chain", symbol, "NSE returned an unusable chain", err)
	}

	c.logger.Info().
		Str("symbol", symbol).
		Str("expiry", expiryStr).
		Int("strikes", len(snap.Rows)).
		Float64("spot", snap.UnderlyingSpot).
		Msg("fetched option chain")

	return snap, nil
}

// Expiries implements Collector.
func (c *NSECollector) Expiries(ctx context.Context, symbol string) ([]time.Time, error) {
	resp, err := c.fetchRaw(ctx, symbol)
	if err != nil {
		return nil, err
	}

	expiries := make([]time.Time, 0, len(resp.Records.ExpiryDates))
	for _, raw := range resp.Records.ExpiryDates {
		d, err := time.ParseInLocation(nseDateLayout, raw, utils.ISTLocation())
		if err != nil {
			continue
		}
		expiries = append(expiries, d)
	}
	sort.Slice(expiries, func(i, j int) bool { return expiries[i].Before(expiries[j]) })
	return expiries, nil
}

func (c *NSECollector) fetchRaw(ctx context.Context, symbol string) (*nseResponse, error) {
	c.throttle()

	url := fmt.Sprintf("%s/api/option-chain-indices?symbol=%s", c.baseURL, symbol)

	return utils.RetryWithResult(ctx, c.retry, func() (*nseResponse, error) {
		if err := c.ensureSession(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		setBrowserHeaders(req)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, errors.Wrap(errors.ErrConnectionFailed, err.Error())
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
		case http.StatusUnauthorized, http.StatusForbidden:
			// Session cookies went stale, re-warm on the next attempt
			c.mu.Lock()
			c.warmed = false
			c.mu.Unlock()
			return nil, errors.Wrapf(errors.ErrConnectionFailed, "NSE rejected session (HTTP %d)", resp.StatusCode)
		case http.StatusTooManyRequests:
			return nil, errors.ErrRateLimited
		default:
			return nil, errors.Wrapf(errors.ErrConnectionFailed, "NSE returned HTTP %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "reading NSE response")
		}

		var parsed nseResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, errors.NewDataError("option_chain", symbol, "malformed NSE payload", err)
		}
		if len(parsed.Records.Data) == 0 {
			return nil, errors.NewDataError("option_chain", symbol, "no chain data returned", errors.ErrSymbolNotFound)
		}
		return &parsed, nil
	})
}

// ensureSession primes the NSE cookies by hitting the option-chain page
// the way a browser would.
func (c *NSECollector) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	warmed := c.warmed
	c.mu.Unlock()
	if warmed {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/option-chain", nil)
	if err != nil {
		return err
	}
	setBrowserHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrConnectionFailed, err.Error())
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(errors.ErrConnectionFailed, "NSE session warm-up returned HTTP %d", resp.StatusCode)
	}

	c.mu.Lock()
	c.warmed = true
	c.mu.Unlock()
	return nil
}

// throttle spaces requests out so NSE does not ban the session.
func (c *NSECollector) throttle() {
	if c.rateDelay <= 0 {
		return
	}
	c.mu.Lock()
	wait := c.rateDelay - time.Since(c.lastCall)
	c.lastCall = time.Now().Add(wait)
	c.mu.Unlock()
	if wait > 0 {
		time.Sleep(wait)
	}
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", "https://www.nseindia.com/option-chain")
}

// pickExpiry selects the listed expiry matching the requested date, or
// the nearest listed expiry when the requested date is zero.
func pickExpiry(listed []string, requested time.Time) (string, time.Time, error) {
	if len(listed) == 0 {
		return "", time.Time{}, fmt.Errorf("no expiries listed")
	}

	if requested.IsZero() {
		d, err := time.ParseInLocation(nseDateLayout, listed[0], utils.ISTLocation())
		if err != nil {
			return "", time.Time{}, fmt.Errorf("unparseable expiry %q", listed[0])
		}
		return listed[0], d, nil
	}

	want := requested.Format(nseDateLayout)
	for _, raw := range listed {
		if raw == want {
			d, _ := time.ParseInLocation(nseDateLayout, raw, utils.ISTLocation())
			return raw, d, nil
		}
	}
	return "", time.Time{}, fmt.Errorf("expiry %s not listed", want)
}

var _ Collector = (*NSECollector)(nil)
