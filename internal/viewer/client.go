// Package viewer is the thin polling client of the sync API: it resolves a
// pair code to aggregated shift state on a fixed interval. There is no push
// channel; polling is the protocol.
package viewer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/fieldops/shiftsync/internal/api"
	"github.com/fieldops/shiftsync/internal/common"
	"github.com/fieldops/shiftsync/internal/paircode"
)

// Client fetches shift state. Requests use the short inline timeout: a
// viewer refresh is latency-sensitive and a slow answer is worth less than
// a retried one.
type Client struct {
	http *resty.Client
}

// NewClient returns a viewer client for the API at baseURL.
func NewClient(baseURL string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(common.InlineSyncTimeout).
		SetHeader("Accept", "application/json")
	return &Client{http: c}
}

// ShiftState fetches the aggregated state for code. The code is normalized
// client-side as well so typos like "ab-12-3d" work offline-identically to
// the server's own normalization. Unknown and expired codes return
// common.ErrNotFound; transient transport failures return the underlying
// error so callers can keep the last-known state on screen.
func (c *Client) ShiftState(ctx context.Context, code string) (*api.ShiftStateResponse, error) {
	normalized, err := paircode.Validate(code)
	if err != nil {
		return nil, err
	}

	var state api.ShiftStateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&state).
		Get("/api/sync/shift/" + normalized)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, common.ErrNotFound
	case !resp.IsSuccess():
		return nil, fmt.Errorf("endpoint returned %s", resp.Status())
	}
	return &state, nil
}
