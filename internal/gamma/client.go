package gamma

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultURL = "https://gamma-api.polymarket.com"

// DefaultUserAgent mimics a browser UA to avoid Cloudflare 403s.
const DefaultUserAgent = "Mozilla/5.0"

// ActiveMarketsLimit is the page size used for active market discovery.
const ActiveMarketsLimit = 100

type Client struct {
	host       string
	httpClient *http.Client
	userAgent  string
}

func NewClient(host string) (*Client, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultURL
	}
	host = strings.TrimRight(host, "/")

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("gamma url parse %q: %w", host, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("gamma url must be http(s), got %q", host)
	}

	return &Client{
		host:       host,
		httpClient: &http.Client{Timeout: 12 * time.Second},
		userAgent:  DefaultUserAgent,
	}, nil
}

type event struct {
	Slug    string   `json:"slug"`
	Title   string   `json:"title"`
	Markets []Market `json:"markets"`
}

// ActiveMarkets lists open markets (active, not closed). Records without an
// order book are filtered out.
func (c *Client) ActiveMarkets(ctx context.Context) ([]Market, error) {
	q := url.Values{}
	q.Set("active", "true")
	q.Set("closed", "false")
	q.Set("limit", strconv.Itoa(ActiveMarketsLimit))

	var markets []Market
	if err := c.get(ctx, "/markets", q, &markets); err != nil {
		return nil, err
	}
	out := markets[:0]
	for _, m := range markets {
		if m.Active && !m.Closed && m.Tradable() {
			out = append(out, m)
		}
	}
	return out, nil
}

// MarketsByID looks a market up by its numeric Gamma id.
func (c *Client) MarketsByID(ctx context.Context, id string) ([]Market, error) {
	return c.marketsBy(ctx, "id", id)
}

// MarketsBySlug looks a market up by its slug.
func (c *Client) MarketsBySlug(ctx context.Context, slug string) ([]Market, error) {
	return c.marketsBy(ctx, "slug", slug)
}

func (c *Client) marketsBy(ctx context.Context, key, value string) ([]Market, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("gamma: %s required", key)
	}
	var markets []Market
	if err := c.get(ctx, "/markets", url.Values{key: []string{value}}, &markets); err != nil {
		return nil, err
	}
	return markets, nil
}

// EventMarkets returns every market of the event with the given slug.
func (c *Client) EventMarkets(ctx context.Context, eventSlug string) ([]Market, error) {
	eventSlug = strings.TrimSpace(eventSlug)
	if eventSlug == "" {
		return nil, fmt.Errorf("event slug required")
	}
	var events []event
	if err := c.get(ctx, "/events", url.Values{"slug": []string{eventSlug}}, &events); err != nil {
		return nil, err
	}
	var out []Market
	for _, ev := range events {
		out = append(out, ev.Markets...)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if c == nil {
		return fmt.Errorf("gamma client nil")
	}
	endpoint := c.host + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyLimit(resp.Body, 8<<10)
		return fmt.Errorf("gamma %s: status=%d body=%q", endpoint, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gamma decode %s: %w", path, err)
	}
	return nil
}

func readBodyLimit(r io.Reader, max int64) string {
	if r == nil || max <= 0 {
		return ""
	}
	b, _ := io.ReadAll(&io.LimitedReader{R: r, N: max})
	return strings.TrimSpace(string(b))
}
