// Package download fetches end-of-day option chains from a local Theta
// Terminal and assembles them into the backtest input dataset.
package download

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"

	apperrors "butterfly-backtest/internal/errors"
	"butterfly-backtest/internal/performance"
	"butterfly-backtest/pkg/utils"
)

const (
	compactDate    = "20060102"
	requestTimeout = 30 * time.Second
)

// Client talks to the Theta Terminal v3 REST API. Every request is paced
// by the rate limiter and retried with exponential backoff.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *performance.RateLimiter
	retry   utils.RetryConfig
	logger  zerolog.Logger
}

// NewClient creates a terminal client. ratePerMinute should match the
// subscription tier's request budget.
func NewClient(baseURL string, ratePerMinute, maxRetries int, logger zerolog.Logger) *Client {
	retry := utils.DefaultRetryConfig()
	if maxRetries > 0 {
		retry.MaxAttempts = maxRetries
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
		limiter: performance.PerMinute(ratePerMinute),
		retry:   retry,
		logger:  logger,
	}
}

// Ping verifies the terminal is reachable before a long download starts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v3/list/roots", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrTerminalOffline, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperrors.Wrapf(apperrors.ErrTerminalOffline, "terminal responded with status %d", resp.StatusCode)
	}
	c.logger.Info().Str("base_url", c.baseURL).Msg("connected to terminal")
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	return utils.RetryWithResult(ctx, c.retry, func() ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, apperrors.NewDownloadError(endpoint, 0, "request failed", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return io.ReadAll(resp.Body)
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, apperrors.NewDownloadError(endpoint, resp.StatusCode, "rate limit exceeded", apperrors.ErrRateLimited)
		case resp.StatusCode == http.StatusNotFound:
			return nil, apperrors.NewDownloadError(endpoint, resp.StatusCode, "data not available", apperrors.ErrDataNotAvailable)
		default:
			body, _ := io.ReadAll(resp.Body)
			return nil, apperrors.NewDownloadError(endpoint, resp.StatusCode, string(body), nil)
		}
	})
}

// Expirations returns the available option expirations for a root symbol,
// sorted ascending.
func (c *Client) Expirations(ctx context.Context, root string) ([]time.Time, error) {
	params := url.Values{}
	params.Set("root", root)

	body, err := c.get(ctx, "/v3/list/expirations", params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Response []int `json:"response"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperrors.Wrap(err, "decoding expirations")
	}

	out := make([]time.Time, 0, len(payload.Response))
	for _, exp := range payload.Response {
		t, err := time.Parse(compactDate, fmt.Sprintf("%d", exp))
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

type contractPayload struct {
	Contract struct {
		Strike     int64  `json:"strike"`
		Right      string `json:"right"`
		Expiration int    `json:"expiration"`
	} `json:"contract"`
	Ticks [][]float64 `json:"ticks"`
}

// eodQuote is the close-of-day trade activity for one contract.
type eodQuote struct {
	strike float64
	right  string
	volume int64
}

// eodGreeks is the close-of-day quote and greeks for one contract.
type eodGreeks struct {
	strike       float64
	right        string
	closeBid     float64
	closeAsk     float64
	delta        float64
	gamma        float64
	theta        float64
	vega         float64
	impliedVol   float64
	openInterest int64
}

// EODQuotes fetches end-of-day trade data for every strike of one
// expiration on one date. A nil slice with nil error means the terminal
// has no data for the request.
func (c *Client) EODQuotes(ctx context.Context, root string, expiration, date time.Time) ([]eodQuote, error) {
	body, err := c.get(ctx, "/v3/history/option/eod", eodParams(root, expiration, date))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrDataNotAvailable) {
			return nil, nil
		}
		return nil, err
	}

	var payload struct {
		Response []contractPayload `json:"response"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperrors.Wrap(err, "decoding eod quotes")
	}

	var out []eodQuote
	for _, cp := range payload.Response {
		// EOD tick: [ms_of_day, open, high, low, close, volume, count, date]
		for _, tick := range cp.Ticks {
			if len(tick) < 8 {
				continue
			}
			out = append(out, eodQuote{
				strike: float64(cp.Contract.Strike) / 1000.0,
				right:  cp.Contract.Right,
				volume: int64(tick[5]),
			})
		}
	}
	return out, nil
}

// EODGreeks fetches end-of-day quotes and greeks for every strike of one
// expiration on one date.
func (c *Client) EODGreeks(ctx context.Context, root string, expiration, date time.Time) ([]eodGreeks, error) {
	body, err := c.get(ctx, "/v3/history/option/greeks_eod", eodParams(root, expiration, date))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrDataNotAvailable) {
			return nil, nil
		}
		return nil, err
	}

	var payload struct {
		Response []contractPayload `json:"response"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperrors.Wrap(err, "decoding eod greeks")
	}

	var out []eodGreeks
	for _, cp := range payload.Response {
		// Greeks tick: [ms_of_day, open_bid, open_ask, close_bid, close_ask,
		// delta, gamma, theta, vega, rho, epsilon, lambda, implied_vol,
		// open_interest, date]
		for _, tick := range cp.Ticks {
			if len(tick) < 15 {
				continue
			}
			out = append(out, eodGreeks{
				strike:   float64(cp.Contract.Strike) / 1000.0,
				right:    cp.Contract.Right,
				closeBid: tick[3],
				closeAsk: tick[4],
				delta:    tick[5],
				gamma:    tick[6],
				theta:    tick[7],
				// Vega arrives in basis points.
				vega:         tick[8] / 100.0,
				impliedVol:   tick[12],
				openInterest: int64(tick[13]),
			})
		}
	}
	return out, nil
}

func eodParams(root string, expiration, date time.Time) url.Values {
	params := url.Values{}
	params.Set("root", root)
	params.Set("exp", expiration.Format(compactDate))
	params.Set("start_date", date.Format(compactDate))
	params.Set("end_date", date.Format(compactDate))
	params.Set("format", "json")
	return params
}
