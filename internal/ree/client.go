// Package ree provides the HTTP client for the electricity statistics API
// and the structural gate applied to its balance payloads.
package ree

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"electric_balance_backend/platform/apperr"
	"electric_balance_backend/platform/config"
	"electric_balance_backend/platform/logger"
)

const (
	queryLayout     = "2006-01-02"
	maxResponseSize = 32 << 20
	msgUnavailable  = "failed to fetch data from the statistics API, please try again later"
)

// Client is the HTTP client for the statistics API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxBody    int64
	log        *logger.Logger
}

// NewClient creates a statistics API client.
func NewClient(cfg config.UpstreamConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.GetREERequestTimeout()},
		baseURL:    cfg.GetREEAPIURL(),
		maxBody:    maxResponseSize,
		log:        log.WithComponent("ree"),
	}
}

// FetchBalance requests daily balance data covering start to end inclusive
// and returns the raw response body. Network failures and non-2xx answers
// are returned as KindUpstream errors.
func (c *Client) FetchBalance(ctx context.Context, start, end time.Time) ([]byte, error) {
	reqURL, err := c.balanceURL(start, end)
	if err != nil {
		return nil, apperr.Internal("invalid statistics API url", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apperr.Internal("create statistics API request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("ree request failed", "error", err, "url", reqURL)
		return nil, apperr.Upstream(msgUnavailable, fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		c.log.Error("ree read failed", "error", err)
		return nil, apperr.Upstream(msgUnavailable, fmt.Errorf("read response: %w", err))
	}
	if int64(len(body)) > c.maxBody {
		c.log.Error("ree response too large", "limit", c.maxBody, "url", reqURL)
		return nil, apperr.Upstream(msgUnavailable, fmt.Errorf("response too large: exceeds %d bytes", c.maxBody))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := upstreamDetail(body)
		c.log.Error("ree upstream error", "status", resp.StatusCode, "url", reqURL, "detail", detail)
		return nil, apperr.Upstream(msgUnavailable, fmt.Errorf("upstream status %d: %s", resp.StatusCode, detail))
	}

	c.log.Debug("ree balance fetched", "bytes", len(body), "start", start.Format(queryLayout), "end", end.Format(queryLayout))
	return body, nil
}

// balanceURL covers the whole first and last day at daily granularity.
func (c *Client) balanceURL(start, end time.Time) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	params := base.Query()
	params.Set("start_date", start.Format(queryLayout)+"T00:00")
	params.Set("end_date", end.Format(queryLayout)+"T23:59")
	params.Set("time_trunc", "day")
	base.RawQuery = params.Encode()
	return base.String(), nil
}

// apiError is the error envelope the API returns with non-2xx statuses.
type apiError struct {
	Errors []struct {
		Code   string `json:"code"`
		Status string `json:"status"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func upstreamDetail(body []byte) string {
	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Errors) > 0 {
		first := envelope.Errors[0]
		if first.Detail != "" {
			return first.Detail
		}
		if first.Title != "" {
			return first.Title
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
