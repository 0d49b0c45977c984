package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/nsescan/breakout-backend/internal/httputil"
	"github.com/nsescan/breakout-backend/internal/models"
	"go.uber.org/zap"
)

// DataSourceError marks a network/provider fault during a fetch. Callers
// treat it as "no new data this cycle"; it never aborts a batch.
type DataSourceError struct {
	Symbol string
	Err    error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source fault for %s: %v", e.Symbol, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// YahooClient fetches daily OHLCV bars from the Yahoo Finance chart API.
// Symbols are venue-qualified here (NSE ".NS" suffix) and nowhere else.
type YahooClient struct {
	baseURL     string
	venueSuffix string
	httpClient  *http.Client
	retry       httputil.RetryConfig
	logger      *zap.Logger
}

type YahooOptions struct {
	VenueSuffix string
	Timeout     time.Duration
	MaxAttempts int
}

func NewYahooClient(baseURL string, opts YahooOptions, logger *zap.Logger) *YahooClient {
	if opts.VenueSuffix == "" {
		opts.VenueSuffix = ".NS"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YahooClient{
		baseURL:     baseURL,
		venueSuffix: opts.VenueSuffix,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		retry: httputil.RetryConfig{
			MaxAttempts: opts.MaxAttempts,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
			Logger:      logger,
		},
		logger: logger,
	}
}

// chart API response. Quote columns arrive as parallel arrays nested under
// indicators, with nulls on holidays/halts; adjclose sits one level deeper
// and is missing entirely for some instruments.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// GetDailyBars fetches the symbol's daily bars for [start, end). A symbol or
// range the provider has no data for yields an empty slice and no error.
func (c *YahooClient) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	qualified := symbol + c.venueSuffix
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=history",
		c.baseURL, url.PathEscape(qualified), start.Unix(), end.Unix())

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "breakout-backend/1.0")
		return req, nil
	})
	if err != nil {
		return nil, &DataSourceError{Symbol: qualified, Err: err}
	}
	defer resp.Body.Close()

	// Yahoo answers 404 for unknown symbols; that is "no data", not a fault.
	if resp.StatusCode == http.StatusNotFound {
		c.logger.Warn("symbol unknown to provider", zap.String("symbol", qualified))
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &DataSourceError{Symbol: qualified, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var data chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &DataSourceError{Symbol: qualified, Err: fmt.Errorf("decode: %w", err)}
	}
	if data.Chart.Error != nil {
		return nil, &DataSourceError{Symbol: qualified,
			Err: fmt.Errorf("%s: %s", data.Chart.Error.Code, data.Chart.Error.Description)}
	}
	if len(data.Chart.Result) == 0 {
		return nil, nil
	}

	bars, err := flatten(symbol, &data.Chart.Result[0])
	if err != nil {
		return nil, &DataSourceError{Symbol: qualified, Err: err}
	}

	c.logger.Debug("fetched bars",
		zap.String("symbol", qualified),
		zap.Int("bars", len(bars)),
		zap.Time("start", start),
		zap.Time("end", end))
	return bars, nil
}

// flatten turns the column-oriented chart result into canonical bars. Rows
// with a null close are dropped. When the adjclose series is absent or
// shorter than the timestamps, the raw close is substituted.
func flatten(symbol string, res *chartResult) ([]models.Bar, error) {
	if len(res.Timestamp) == 0 {
		return nil, nil
	}
	if len(res.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("response has timestamps but no quote columns")
	}
	q := res.Indicators.Quote[0]
	if len(q.Close) != len(res.Timestamp) {
		return nil, fmt.Errorf("column length mismatch: %d timestamps, %d closes",
			len(res.Timestamp), len(q.Close))
	}

	var adj []*float64
	if len(res.Indicators.AdjClose) > 0 {
		adj = res.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]models.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if q.Close[i] == nil {
			continue
		}
		b := models.Bar{
			Symbol: symbol,
			Date:   models.Day(time.Unix(ts, 0)),
			Close:  *q.Close[i],
		}
		if i < len(q.Open) && q.Open[i] != nil {
			b.Open = *q.Open[i]
		}
		if i < len(q.High) && q.High[i] != nil {
			b.High = *q.High[i]
		}
		if i < len(q.Low) && q.Low[i] != nil {
			b.Low = *q.Low[i]
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			b.Volume = *q.Volume[i]
		}
		if i < len(adj) && adj[i] != nil {
			b.AdjClose = *adj[i]
		} else {
			b.AdjClose = b.Close
		}
		bars = append(bars, b)
	}
	return bars, nil
}
