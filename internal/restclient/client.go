// Package restclient implements the C3 REST client the remote-site
// reconciliation loop uses to talk to the core's C3 boundary: an
// outer(MaxRetries)×inner(InnerAttempts) retry loop with short delays
// between inner attempts and a long delay between outer cycles, grounded
// on original_source/rest_client/http_client.py's RequestsHttpClient.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/lucho00cuba/baseline-core/internal/apperr"
	"github.com/lucho00cuba/baseline-core/internal/model"
)

// Client is the outbound half of C3: it never constructs its own
// *http.Client beyond configuring a timeout, matching the "no persistent
// session" style of the original's per-call requests.post/get.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	maxRetries    int
	innerAttempts int
	innerDelay    time.Duration
	outerDelay    time.Duration
	logger        *slog.Logger
}

// New builds a Client against baseURL (e.g. the core's CoreAPIURL()).
func New(baseURL string, requestTimeout time.Duration, maxRetries, innerAttempts int, innerDelay, outerDelay time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}
	if innerAttempts <= 0 {
		innerAttempts = 1
	}
	return &Client{
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: requestTimeout},
		maxRetries:    maxRetries,
		innerAttempts: innerAttempts,
		innerDelay:    innerDelay,
		outerDelay:    outerDelay,
		logger:        logger,
	}
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Get issues a GET request with the given query params, decoding the
// envelope's "data" field into out (if out is non-nil).
func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return c.do(ctx, http.MethodGet, u, nil, out)
}

// Post issues a POST request with a JSON body, decoding the envelope's
// "data" field into out (if out is non-nil).
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, c.baseURL+path, body, out)
}

// Patch issues a PATCH request, mirroring the original's third verb.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, c.baseURL+path, body, out)
}

// GetRecord fetches the core's full HashRecord for path, used by the
// remote role's local-vs-core BFS (internal/coordinator) to read both the
// comparison hash and the dirs/files/links needed to keep descending. A
// core 404 for path means "the core has no record there" and is reported
// as (nil, nil), not an error — a legitimate BFS outcome (missing-core).
func (c *Client) GetRecord(ctx context.Context, path string) (*model.HashRecord, error) {
	var rec model.HashRecord
	params := url.Values{"path": {path}, "field": {"record"}}
	if err := c.Get(ctx, "/api/hashtable", params, &rec); err != nil {
		var aerr *apperr.Error
		if errors.As(err, &aerr) && aerr.Kind == apperr.NotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// SiteHealth fetches the /api/health payload of the site at the client's
// base URL and reports its "healthy" flag, recovering
// the original's unimplemented check_remote_health() stub.
func (c *Client) SiteHealth(ctx context.Context) (bool, error) {
	var resp struct {
		Healthy bool `json:"healthy"`
	}
	if err := c.Get(ctx, "/api/health", nil, &resp); err != nil {
		return false, err
	}
	return resp.Healthy, nil
}

// do runs the outer(maxRetries)×inner(innerAttempts) loop. A 4xx response
// returns immediately (client error, retrying would not help); a 2xx
// response returns immediately; a 5xx or transport error retries.
func (c *Client) do(ctx context.Context, method, fullURL string, body, out any) error {
	var bodyBytes []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return apperr.Wrap(apperr.ValidationError, "encode request body", err)
		}
		bodyBytes = b
	}

	total := 0
	var lastErr error

	for outer := 0; outer < c.maxRetries; outer++ {
		for inner := 0; inner < c.innerAttempts; inner++ {
			total++

			req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(bodyBytes))
			if err != nil {
				return apperr.Wrap(apperr.ValidationError, "build request", err)
			}
			if bodyBytes != nil {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				lastErr = err
				c.logger.Warn("request failed", "attempt", total, "url", fullURL, "err", err)
				if isLastAttempt(outer, inner, c.maxRetries, c.innerAttempts) {
					return apperr.Wrap(apperr.UpstreamUnavailable, "request failed after all retries", err)
				}
				c.sleep(ctx, c.innerDelay)
				continue
			}

			status, data, decodeErr := readEnvelope(resp)
			if status >= 400 && status < 500 {
				return apperr.New(mapClientStatus(status), fmt.Sprintf("upstream returned %d", status))
			}
			if status >= 200 && status < 300 {
				if total > 1 {
					c.logger.Info("request succeeded after retry", "attempts", total)
				}
				if decodeErr != nil {
					return apperr.Wrap(apperr.UpstreamUnavailable, "decode response", decodeErr)
				}
				if out != nil && len(data) > 0 {
					if err := json.Unmarshal(data, out); err != nil {
						return apperr.Wrap(apperr.UpstreamUnavailable, "unmarshal response data", err)
					}
				}
				return nil
			}

			c.logger.Warn("server error on attempt", "attempt", total, "status", status)
			lastErr = fmt.Errorf("upstream status %d", status)
			if isLastAttempt(outer, inner, c.maxRetries, c.innerAttempts) {
				return apperr.Wrap(apperr.UpstreamUnavailable, "upstream unavailable after all retries", lastErr)
			}
			c.sleep(ctx, c.innerDelay)
		}

		if outer < c.maxRetries-1 {
			c.logger.Error("failed to contact upstream, pausing before retry cycle", "url", fullURL)
			c.sleep(ctx, c.outerDelay)
		}
	}

	return apperr.Wrap(apperr.UpstreamUnavailable, "upstream unavailable after all retries", lastErr)
}

func readEnvelope(resp *http.Response) (int, json.RawMessage, error) {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return resp.StatusCode, nil, nil
	}
	if len(env.Data) > 0 {
		return resp.StatusCode, env.Data, nil
	}
	return resp.StatusCode, raw, nil
}

func mapClientStatus(status int) apperr.Kind {
	if status == http.StatusNotFound {
		return apperr.NotFound
	}
	return apperr.ValidationError
}

func isLastAttempt(outer, inner, maxRetries, innerAttempts int) bool {
	return outer == maxRetries-1 && inner == innerAttempts-1
}

func (c *Client) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
