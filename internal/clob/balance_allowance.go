package clob

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	AssetCollateral  = "COLLATERAL"
	AssetConditional = "CONDITIONAL"
)

// BalanceAllowance is the exchange's view of funder balance and spender
// allowances, all as 1e6-scaled decimal strings.
type BalanceAllowance struct {
	Balance    string            `json:"balance"`
	Allowances map[string]string `json:"allowances"`
}

// GetBalanceAllowance queries /balance-allowance. tokenID is only used for
// CONDITIONAL assets.
func (c *Client) GetBalanceAllowance(ctx context.Context, assetType, tokenID string, useServerTime bool) (*BalanceAllowance, error) {
	if !c.HasApiCreds() {
		return nil, fmt.Errorf("api creds not configured")
	}
	assetType = strings.TrimSpace(assetType)
	if assetType == "" {
		assetType = AssetCollateral
	}

	q := url.Values{}
	q.Set("asset_type", assetType)
	if tokenID = strings.TrimSpace(tokenID); tokenID != "" {
		q.Set("token_id", tokenID)
	}
	q.Set("signature_type", strconv.Itoa(c.signatureTy))

	const path = "/balance-allowance"
	ts, err := c.timestampForAuth(ctx, useServerTime)
	if err != nil {
		return nil, err
	}
	headers, err := c.l2Headers(ts, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var resp BalanceAllowance
	if err := c.do(ctx, http.MethodGet, path, q, headers, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
