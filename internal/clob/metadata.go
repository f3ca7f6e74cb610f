package clob

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
)

// tokenCache memoizes per-token market parameters that do not change for
// the life of a market. The zero value is ready to use.
type tokenCache[V any] struct {
	mu sync.RWMutex
	m  map[string]V
}

func (tc *tokenCache[V]) get(tokenID string) (V, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	v, ok := tc.m[tokenID]
	return v, ok
}

func (tc *tokenCache[V]) put(tokenID string, v V) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.m == nil {
		tc.m = make(map[string]V)
	}
	tc.m[tokenID] = v
}

// cached returns the memoized value or fetches, stores and returns it.
// Failed fetches are not cached.
func cached[V any](tc *tokenCache[V], tokenID string, fetch func() (V, error)) (V, error) {
	if v, ok := tc.get(tokenID); ok {
		return v, nil
	}
	v, err := fetch()
	if err != nil {
		var zero V
		return zero, err
	}
	tc.put(tokenID, v)
	return v, nil
}

// GetTickSize returns the token's minimum tick as a canonical decimal
// string ("0.01").
func (c *Client) GetTickSize(ctx context.Context, tokenID string) (string, error) {
	return cached(&c.ticks, tokenID, func() (string, error) {
		var resp struct {
			MinimumTickSize decimalString `json:"minimum_tick_size"`
		}
		if err := c.getToken(ctx, "/tick-size", tokenID, &resp); err != nil {
			return "", err
		}
		if resp.MinimumTickSize == "" {
			return "", fmt.Errorf("tick size missing for %s", tokenID)
		}
		return string(resp.MinimumTickSize), nil
	})
}

// GetFeeRateBps returns the base fee signed into orders for the token.
func (c *Client) GetFeeRateBps(ctx context.Context, tokenID string) (int, error) {
	return cached(&c.fees, tokenID, func() (int, error) {
		var resp struct {
			BaseFee int `json:"base_fee"`
		}
		err := c.getToken(ctx, "/fee-rate", tokenID, &resp)
		return resp.BaseFee, err
	})
}

// GetNegRisk reports whether the token trades on the neg-risk exchange.
func (c *Client) GetNegRisk(ctx context.Context, tokenID string) (bool, error) {
	return cached(&c.negRisks, tokenID, func() (bool, error) {
		var resp struct {
			NegRisk bool `json:"neg_risk"`
		}
		err := c.getToken(ctx, "/neg-risk", tokenID, &resp)
		return resp.NegRisk, err
	})
}

func (c *Client) getToken(ctx context.Context, path, tokenID string, out any) error {
	return c.do(ctx, http.MethodGet, path, url.Values{"token_id": []string{tokenID}}, nil, nil, out)
}
