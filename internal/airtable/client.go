// Package airtable is a small client for the Airtable REST API.
package airtable

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/linkupcampus/linkup/pkg/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultBaseURL = "https://api.airtable.com/v0"
	// MaxPageSize is the largest page Airtable returns.
	MaxPageSize = 100
)

type Config struct {
	BaseURL string
	BaseID  string
	Token   string
	// RateLimit in requests per second. Airtable allows 5 per base.
	RateLimit float64
	Timeout   time.Duration
	// HTTPClient overrides the default client, mostly for tests.
	HTTPClient *http.Client
}

// Client talks to a single Airtable base.
type Client struct {
	baseURL string
	baseID  string
	token   string
	client  *http.Client
	limiter *rate.Limiter
}

// ListOptions narrows a List call.
type ListOptions struct {
	FilterByFormula string
	PageSize        int
	MaxRecords      int
	Fields          []string
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseID == "" {
		return nil, errors.New("airtable base id is required")
	}
	if cfg.Token == "" {
		return nil, errors.New("airtable token is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 5
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: baseURL,
		baseID:  cfg.BaseID,
		token:   cfg.Token,
		client:  httpClient,
		limiter: rate.NewLimiter(rate.Limit(limit), int(limit)+1),
	}, nil
}

// List returns every record of table matching opts, following pagination.
func (c *Client) List(ctx context.Context, table string, opts ListOptions) ([]Record, error) {
	var records []Record
	offset := ""
	for {
		q := url.Values{}
		if opts.FilterByFormula != "" {
			q.Set("filterByFormula", opts.FilterByFormula)
		}
		if opts.PageSize > 0 {
			q.Set("pageSize", strconv.Itoa(min(opts.PageSize, MaxPageSize)))
		}
		if opts.MaxRecords > 0 {
			q.Set("maxRecords", strconv.Itoa(opts.MaxRecords))
		}
		for _, f := range opts.Fields {
			q.Add("fields[]", f)
		}
		if offset != "" {
			q.Set("offset", offset)
		}

		var page listResponse
		if err := c.do(ctx, http.MethodGet, c.tableURL(table, "")+"?"+q.Encode(), nil, &page); err != nil {
			return nil, err
		}
		records = append(records, page.Records...)
		if opts.MaxRecords > 0 && len(records) >= opts.MaxRecords {
			return records[:opts.MaxRecords], nil
		}
		if page.Offset == "" {
			return records, nil
		}
		offset = page.Offset
	}
}

// Get fetches a single record.
func (c *Client) Get(ctx context.Context, table, id string) (*Record, error) {
	if id == "" {
		return nil, &APIError{StatusCode: http.StatusNotFound, Type: "NOT_FOUND", Message: "empty record id"}
	}
	var rec Record
	if err := c.do(ctx, http.MethodGet, c.tableURL(table, id), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts a record and returns it as stored.
func (c *Client) Create(ctx context.Context, table string, fields map[string]interface{}) (*Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodPost, c.tableURL(table, ""), writeRequest{Fields: fields, Typecast: true}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update patches the given fields of a record, leaving others untouched.
func (c *Client) Update(ctx context.Context, table, id string, fields map[string]interface{}) (*Record, error) {
	if id == "" {
		return nil, &APIError{StatusCode: http.StatusNotFound, Type: "NOT_FOUND", Message: "empty record id"}
	}
	var rec Record
	if err := c.do(ctx, http.MethodPatch, c.tableURL(table, id), writeRequest{Fields: fields, Typecast: true}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	if id == "" {
		return &APIError{StatusCode: http.StatusNotFound, Type: "NOT_FOUND", Message: "empty record id"}
	}
	return c.do(ctx, http.MethodDelete, c.tableURL(table, id), nil, nil)
}

func (c *Client) tableURL(table, id string) string {
	u := c.baseURL + "/" + url.PathEscape(c.baseID) + "/" + url.PathEscape(table)
	if id != "" {
		u += "/" + url.PathEscape(id)
	}
	return u
}

func (c *Client) do(ctx context.Context, method, endpoint string, in, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "airtable rate limit wait")
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "marshal airtable request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return errors.Wrap(err, "create airtable request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("airtable").Inc()
		return errors.Wrapf(err, "airtable %s", method)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("airtable").Inc()
		return errors.Wrap(err, "read airtable response")
	}

	zap.L().Debug("airtable request",
		zap.String("method", method),
		zap.String("url", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamErrors.WithLabelValues("airtable").Inc()
		return parseAPIError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "decode airtable response")
	}
	return nil
}
