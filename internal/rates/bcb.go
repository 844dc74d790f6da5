// Package rates looks up reference monthly interest rates from the Banco
// Central do Brasil SGS time-series API.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/insightdelivered/rmc-recalc/internal/brl"
)

// ErrRateNotFound is returned when the series has no value for the month.
var ErrRateNotFound = errors.New("no rate published for the requested month")

// Provider returns the monthly rate percentage in force on a date.
type Provider interface {
	MonthlyRate(ctx context.Context, date time.Time) (decimal.Decimal, error)
}

// DefaultBaseURL is the SGS series root.
const DefaultBaseURL = "https://api.bcb.gov.br/dados/serie"

// sgsPoint is one entry of an SGS JSON response:
//
//	[{"data":"01/07/2020","valor":"1.80"}]
type sgsPoint struct {
	Data  string `json:"data"`
	Valor string `json:"valor"`
}

type cacheKey struct {
	series int
	month  string
}

// BCBClient queries one SGS series and caches results per month.
type BCBClient struct {
	baseURL string
	series  int
	client  *http.Client
	logger  *zap.Logger

	mu    sync.RWMutex
	cache map[cacheKey]decimal.Decimal
}

// NewBCBClient returns a client for the given series. Empty values fall
// back to the public endpoint and a 10 second timeout.
func NewBCBClient(baseURL string, series int, timeout time.Duration, logger *zap.Logger) *BCBClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BCBClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		series:  series,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		cache:   make(map[cacheKey]decimal.Decimal),
	}
}

// MonthlyRate returns the series value for the month of date.
func (c *BCBClient) MonthlyRate(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	month := brl.NormalizeMonth(date)
	key := cacheKey{series: c.series, month: month.Format("2006-01")}

	c.mu.RLock()
	v, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}

	points, err := c.fetch(ctx, month, brl.AddMonths(month, 1).AddDate(0, 0, -1))
	if err != nil {
		return decimal.Zero, err
	}

	v, err = pick(points, month)
	if err != nil {
		return decimal.Zero, err
	}

	c.mu.Lock()
	c.cache[key] = v
	c.mu.Unlock()

	c.logger.Debug("rate fetched",
		zap.Int("series", c.series),
		zap.String("month", key.month),
		zap.String("rate", v.String()),
	)
	return v, nil
}

func (c *BCBClient) fetch(ctx context.Context, from, to time.Time) ([]sgsPoint, error) {
	q := url.Values{}
	q.Set("formato", "json")
	q.Set("dataInicial", from.Format("02/01/2006"))
	q.Set("dataFinal", to.Format("02/01/2006"))
	endpoint := fmt.Sprintf("%s/bcdata.sgs.%d/dados?%s", c.baseURL, c.series, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rate request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read rate response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrRateNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var points []sgsPoint
	if err := json.Unmarshal(body, &points); err != nil {
		return nil, fmt.Errorf("failed to decode rate response: %w", err)
	}
	return points, nil
}

// pick returns the value dated in month, or the latest value of the
// response when none matches exactly.
func pick(points []sgsPoint, month time.Time) (decimal.Decimal, error) {
	if len(points) == 0 {
		return decimal.Zero, ErrRateNotFound
	}
	chosen := points[len(points)-1]
	for _, p := range points {
		if d, err := brl.ParseDate(p.Data); err == nil && brl.NormalizeMonth(d).Equal(month) {
			chosen = p
			break
		}
	}
	v, err := brl.ParseRate(chosen.Valor)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid rate value %q: %w", chosen.Valor, err)
	}
	return v, nil
}
