package tgtg

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Response is a raw API response. The transport never judges the status.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// decode unmarshals the body into v
func (r *Response) decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// post sends body as JSON to path, relative to the base URL
func (c *Client) post(ctx context.Context, path string, body any) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	parent := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Accept-Language", c.language)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("User-Agent", c.userAgent)

	c.mu.Lock()
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
	if c.auth != nil {
		req.Header.Set("Authorization", "Bearer "+c.auth.AccessToken)
	}
	c.mu.Unlock()

	requestID := uuid.New().String()
	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", http.MethodPost).
		Str("path", path).
		Msg("Making API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.requestError(parent, ctx, path, err)
	}
	defer resp.Body.Close()

	if cookie := resp.Header.Get("Set-Cookie"); cookie != "" {
		c.mu.Lock()
		c.cookie = cookie
		c.mu.Unlock()
	}

	respBody := bufio.NewReader(resp.Body)
	reader := io.Reader(respBody)
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") && hasBody(respBody) {
		gz, err := gzip.NewReader(respBody)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress response: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, c.requestError(parent, ctx, path, err)
	}

	c.logger.Debug().
		Str("request_id", requestID).
		Str("path", path).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Msg("Received API response")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// requestError tells a configured timeout apart from other transport failures
func (c *Client) requestError(parent, ctx context.Context, path string, err error) error {
	if c.timeout > 0 && parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Path: path, Timeout: c.timeout, Err: err}
	}
	return fmt.Errorf("request failed: %w", err)
}

// hasBody reports whether at least one byte is left to read. Pending and
// no-content replies may declare gzip without sending a body.
func hasBody(r *bufio.Reader) bool {
	_, err := r.Peek(1)
	return err == nil
}
