// Package client talks to the pricer's HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"optionpricer/internal/api"
	"optionpricer/internal/bsm"
	"optionpricer/internal/grid"
	"optionpricer/internal/history"
)

const defaultBaseURL = "http://localhost:8080"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=client_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the pricer API.
type Client struct {
	// baseURL is the scheme and host of the server, without a trailing slash.
	baseURL string
	// httpClient sends the requests.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// query contains additional query parameters to be sent with each request.
	query url.Values
}

// Option is a configuration option for the client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// New creates a new API client.
func New(options ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Price values one leg on the server.
func (c *Client) Price(ctx context.Context, q bsm.Quote, t bsm.OptionType) (float64, error) {
	var out api.PriceResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/price", nil, api.PriceRequest{Quote: q, Type: t}, &out); err != nil {
		return 0, err
	}
	return out.Price, nil
}

// Greeks returns the sensitivities of one leg.
func (c *Client) Greeks(ctx context.Context, q bsm.Quote, t bsm.OptionType) (bsm.Greeks, error) {
	var out api.GreeksResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/greeks", nil, api.PriceRequest{Quote: q, Type: t}, &out); err != nil {
		return bsm.Greeks{}, err
	}
	return out.Greeks, nil
}

// Calculate values both legs and optionally saves the result to history.
func (c *Client) Calculate(ctx context.Context, q bsm.Quote, save bool) (bsm.Valuation, error) {
	var out bsm.Valuation
	if err := c.do(ctx, http.MethodPost, "/api/v1/calculate", nil, api.CalculateRequest{Quote: q, Save: save}, &out); err != nil {
		return bsm.Valuation{}, err
	}
	return out, nil
}

// Grid requests a sensitivity grid.
func (c *Client) Grid(ctx context.Context, req grid.Request) (*grid.Grid, error) {
	res := req.Resolution
	body := api.GridRequest{
		Quote:         req.Quote,
		Type:          req.Type,
		Resolution:    &res,
		PnL:           req.PnL,
		PurchasePrice: req.PurchasePrice,
	}
	var out grid.Grid
	if err := c.do(ctx, http.MethodPost, "/api/v1/grid", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History lists the most recent saved calculations.
func (c *Client) History(ctx context.Context, limit int) ([]history.Record, error) {
	var out api.HistoryResponse
	q := url.Values{"limit": []string{strconv.Itoa(limit)}}
	if err := c.do(ctx, http.MethodGet, "/api/v1/history", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

func (c *Client) do(ctx context.Context, method, path string, extra url.Values, in, out any) error {
	query := maps.Clone(c.query)
	for k, vs := range extra {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var apiErr api.Error
		if err := json.NewDecoder(res.Body).Decode(&apiErr); err != nil || apiErr.Type == "" {
			return fmt.Errorf("unexpected status code: %d", res.StatusCode)
		}
		apiErr.Status = res.StatusCode
		return &apiErr
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
