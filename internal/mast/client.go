// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mast is a client for the MAST archive's portal API: observation
// searches, product listings, product filtering, and file downloads.
//
// Every query goes through the invoke endpoint, which takes a named service
// and its parameters as a form-encoded JSON request and answers with a paged
// JSON envelope.
package mast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/mastget/internal/httputil"
	"github.com/pdiddy/mastget/internal/logging"
	"github.com/pdiddy/mastget/pkg/types"
)

// DefaultBaseURL is the public archive root.
const DefaultBaseURL = "https://mast.stsci.edu"

const (
	invokePath   = "/api/v0/invoke"
	downloadPath = "/api/v0.1/Download/file"

	defaultPageSize     = 50000
	defaultPollInterval = time.Second
)

// Service status values in the invoke envelope.
const (
	statusExecuting = "EXECUTING"
	statusError     = "ERROR"
)

var (
	// ErrService is returned when the archive reports an ERROR status.
	ErrService = errors.New("archive service error")

	// ErrHTTPStatus is returned for non-200 responses.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
)

// Client talks to the archive's invoke and download endpoints.
type Client struct {
	HTTP         *http.Client
	BaseURL      string
	UserAgent    string
	Token        string
	PageSize     int
	MaxRetries   int
	PollInterval time.Duration
}

// NewClient builds a Client from configuration. A nil httpClient gets one
// with cfg.Timeout.
func NewClient(cfg types.ArchiveConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		HTTP:         httpClient,
		BaseURL:      base,
		UserAgent:    cfg.UserAgent,
		Token:        cfg.Token,
		PageSize:     cfg.PageSize,
		MaxRetries:   cfg.MaxRetries,
		PollInterval: cfg.PollInterval,
	}
}

// serviceRequest is the JSON document sent as the "request" form value.
type serviceRequest struct {
	Service           string `json:"service"`
	Params            any    `json:"params"`
	Format            string `json:"format"`
	PageSize          int    `json:"pagesize"`
	Page              int    `json:"page"`
	RemoveNullColumns bool   `json:"removenullcolumns"`
}

// envelope is the invoke response.
type envelope struct {
	Status string            `json:"status"`
	Msg    string            `json:"msg"`
	Data   []json.RawMessage `json:"data"`
	Paging paging            `json:"paging"`
}

type paging struct {
	Page          int `json:"page"`
	PageSize      int `json:"pageSize"`
	PagesFiltered int `json:"pagesFiltered"`
	Rows          int `json:"rows"`
	RowsFiltered  int `json:"rowsFiltered"`
	RowsTotal     int `json:"rowsTotal"`
}

// Invoke runs service with params and returns every data row across pages.
// A response still marked EXECUTING is polled until it settles.
func (c *Client) Invoke(ctx context.Context, service string, params any) ([]json.RawMessage, error) {
	log := logging.Named("mast")
	pageSize := c.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	var rows []json.RawMessage
	for page := 1; ; page++ {
		env, err := c.invokePage(ctx, serviceRequest{
			Service:           service,
			Params:            params,
			Format:            "json",
			PageSize:          pageSize,
			Page:              page,
			RemoveNullColumns: true,
		})
		if err != nil {
			return nil, err
		}
		rows = append(rows, env.Data...)

		log.Debug().
			Str("service", service).
			Int("page", page).
			Int("rows", len(env.Data)).
			Int("rows_filtered", env.Paging.RowsFiltered).
			Msg("invoke page")

		if len(env.Data) == 0 || len(rows) >= env.Paging.RowsFiltered {
			return rows, nil
		}
	}
}

// invokePage requests one page, polling while the service is still executing.
func (c *Client) invokePage(ctx context.Context, sr serviceRequest) (*envelope, error) {
	poll := c.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}

	for {
		var env envelope
		if err := c.postService(ctx, sr, &env); err != nil {
			return nil, err
		}

		switch env.Status {
		case statusExecuting:
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(poll):
			}
			continue
		case statusError:
			return nil, fmt.Errorf("%s: %w: %s", sr.Service, ErrService, env.Msg)
		}
		return &env, nil
	}
}

// postService sends one service request and decodes the JSON reply into out.
func (c *Client) postService(ctx context.Context, sr serviceRequest, out any) error {
	payload, err := json.Marshal(sr)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", sr.Service, err)
	}
	form := url.Values{"request": {string(payload)}}.Encode()

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+invokePath, strings.NewReader(form))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/plain")
	c.setHeaders(req)

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, c.MaxRetries)
	if err != nil {
		return fmt.Errorf("%s request: %w", sr.Service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: %w: HTTP %d: %s", sr.Service, ErrHTTPStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing %s response: %w", sr.Service, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "token "+c.Token)
	}
}

// decodeRows unmarshals raw invoke rows into T.
func decodeRows[T any](service string, rows []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, raw := range rows {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decoding %s row %d: %w", service, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
