package clob

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const DefaultHost = "https://clob.polymarket.com"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

type OrderType string

const (
	OrderTypeGTC OrderType = "GTC"
)

type ApiKeyCreds struct {
	Key        string `json:"key"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

type apiKeyRaw struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// OrderBookSummary is the raw /book payload. Levels arrive with the best
// price last on both sides; callers normalize before use.
type OrderBookSummary struct {
	Market    string         `json:"market"`
	AssetID   string         `json:"asset_id"`
	Timestamp string         `json:"timestamp"`
	Bids      []OrderSummary `json:"bids"`
	Asks      []OrderSummary `json:"asks"`
	MinOrder  string         `json:"min_order_size"`
	TickSize  string         `json:"tick_size"`
	NegRisk   bool           `json:"neg_risk"`
	Hash      string         `json:"hash"`
}

type OrderSummary struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// decimalString accepts both JSON numbers and quoted decimals.
type decimalString string

func (d *decimalString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*d = ""
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	*d = decimalString(canonicalDecimalString(raw))
	return nil
}

func canonicalDecimalString(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	whole, frac, ok := strings.Cut(s, ".")
	if !ok {
		return s
	}
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// Client talks to the CLOB REST API. Market-data calls need no key; order
// placement needs L2 api creds (SetApiCreds or CreateOrDeriveApiKey).
type Client struct {
	host        string
	httpClient  *http.Client
	chainID     int64
	privateKey  *ecdsa.PrivateKey
	signer      common.Address
	funder      common.Address
	signatureTy int // 0=EOA, 1=POLY_PROXY, 2=POLY_GNOSIS_SAFE

	mu    sync.RWMutex
	creds *ApiKeyCreds

	ticks    tokenCache[string]
	fees     tokenCache[int]
	negRisks tokenCache[bool]
}

// NewClient builds a client. privateKey may be nil for a read-only client
// (dry runs, diagnostics); signing calls then fail.
func NewClient(host string, chainID int64, privateKey *ecdsa.PrivateKey, funder common.Address, signatureType int) (*Client, error) {
	if host == "" {
		host = DefaultHost
	}
	host = strings.TrimRight(host, "/")
	if !strings.HasPrefix(host, "http") {
		return nil, fmt.Errorf("clob host must be http(s), got %q", host)
	}
	if signatureType < 0 || signatureType > 2 {
		return nil, fmt.Errorf("signature type must be 0, 1 or 2, got %d", signatureType)
	}
	var signer common.Address
	if privateKey != nil {
		signer = crypto.PubkeyToAddress(privateKey.PublicKey)
	}
	if (funder == common.Address{}) {
		funder = signer
	}

	return &Client{
		host:        host,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		chainID:     chainID,
		privateKey:  privateKey,
		signer:      signer,
		funder:      funder,
		signatureTy: signatureType,
	}, nil
}

func (c *Client) SignerAddress() common.Address { return c.signer }
func (c *Client) FunderAddress() common.Address { return c.funder }
func (c *Client) ChainID() int64                { return c.chainID }
func (c *Client) CanSign() bool                 { return c.privateKey != nil }

func (c *Client) SetApiCreds(creds ApiKeyCreds) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = &creds
}

func (c *Client) HasApiCreds() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds != nil && c.creds.Key != "" && c.creds.Secret != "" && c.creds.Passphrase != ""
}

func (c *Client) GetServerTime(ctx context.Context) (int64, error) {
	var ts int64
	if err := c.do(ctx, http.MethodGet, "/time", nil, nil, nil, &ts); err != nil {
		return 0, err
	}
	return ts, nil
}

// GetOrderBook always hits the network; book snapshots are never cached.
func (c *Client) GetOrderBook(ctx context.Context, tokenID string) (*OrderBookSummary, error) {
	params := url.Values{"token_id": []string{tokenID}}
	var book OrderBookSummary
	if err := c.do(ctx, http.MethodGet, "/book", params, nil, nil, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *Client) CreateOrDeriveApiKey(ctx context.Context, nonce uint64, useServerTime bool) (ApiKeyCreds, error) {
	// Derive first to avoid NONCE_ALREADY_USED failures on create.
	if creds, err := c.apiKey(ctx, http.MethodGet, "/auth/derive-api-key", nonce, useServerTime); err == nil && creds.Key != "" {
		return creds, nil
	}
	return c.apiKey(ctx, http.MethodPost, "/auth/api-key", nonce, useServerTime)
}

func (c *Client) apiKey(ctx context.Context, method, path string, nonce uint64, useServerTime bool) (ApiKeyCreds, error) {
	ts, err := c.timestampForAuth(ctx, useServerTime)
	if err != nil {
		return ApiKeyCreds{}, err
	}
	headers, err := c.l1Headers(ts, nonce)
	if err != nil {
		return ApiKeyCreds{}, err
	}
	var resp apiKeyRaw
	if err := c.do(ctx, method, path, nil, headers, nil, &resp); err != nil {
		return ApiKeyCreds{}, err
	}
	return ApiKeyCreds{Key: resp.APIKey, Secret: resp.Secret, Passphrase: resp.Passphrase}, nil
}

func (c *Client) timestampForAuth(ctx context.Context, useServerTime bool) (int64, error) {
	if !useServerTime {
		return time.Now().Unix(), nil
	}
	return c.GetServerTime(ctx)
}

// do issues one request. A nil body sends no payload; a non-nil body is sent
// as JSON. Non-2xx statuses become errors carrying the response text.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, headers http.Header, body []byte, out any) error {
	u := c.host + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s response: %w (body=%s)", path, err, strings.TrimSpace(string(b)))
	}
	return nil
}

// HTTPError is a non-2xx CLOB response.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("clob %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}
