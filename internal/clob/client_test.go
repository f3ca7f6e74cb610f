package clob

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestDecimalString_NumbersAndStrings(t *testing.T) {
	for raw, want := range map[string]string{
		`0.01`:     "0.01",
		`"0.0100"`: "0.01",
		`".5"`:     "0.5",
		`"1.000"`:  "1",
		`null`:     "",
	} {
		var d decimalString
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			t.Fatalf("%s: unexpected error: %v", raw, err)
		}
		if string(d) != want {
			t.Fatalf("%s: got %q want %q", raw, string(d), want)
		}
	}
}

func TestTokenCache_DoesNotCacheErrors(t *testing.T) {
	var tc tokenCache[int]
	calls := 0
	fail := func() (int, error) { calls++; return 0, errors.New("down") }
	ok := func() (int, error) { calls++; return 7, nil }

	if _, err := cached(&tc, "t", fail); err == nil {
		t.Fatalf("expected error")
	}
	for i := 0; i < 3; i++ {
		v, err := cached(&tc, "t", ok)
		if err != nil || v != 7 {
			t.Fatalf("cached = %d, %v", v, err)
		}
	}
	if calls != 2 {
		t.Fatalf("fetch calls = %d, want 2", calls)
	}
}

func TestNewClient_ReadOnly(t *testing.T) {
	c, err := NewClient("", 137, nil, common.Address{}, 0)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if c.CanSign() {
		t.Fatalf("expected read-only client")
	}
	if _, err := NewClient("ftp://x", 137, nil, common.Address{}, 0); err == nil {
		t.Fatalf("expected error for non-http host")
	}
	if _, err := NewClient("", 137, nil, common.Address{}, 5); err == nil {
		t.Fatalf("expected error for bad signature type")
	}
}

func TestGetOrderBook_FetchesEveryCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/book" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("token_id"); got != "123" {
			t.Errorf("token_id mismatch: got %q", got)
		}
		calls.Add(1)
		_, _ = w.Write([]byte(`{"asset_id":"123","bids":[{"price":"0.40","size":"10"}],"asks":[{"price":"0.45","size":"5"}],"tick_size":"0.01","min_order_size":"5"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, 137, nil, common.Address{}, 0)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	for i := 0; i < 2; i++ {
		book, err := c.GetOrderBook(context.Background(), "123")
		if err != nil {
			t.Fatalf("get book: %v", err)
		}
		if len(book.Bids) != 1 || book.Asks[0].Price != "0.45" || book.TickSize != "0.01" {
			t.Fatalf("unexpected book: %+v", book)
		}
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("book calls mismatch: got %d want 2", got)
	}
}

func TestGetTickSize_Cached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"minimum_tick_size":0.001}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, 137, nil, common.Address{}, 0)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	for i := 0; i < 3; i++ {
		ts, err := c.GetTickSize(context.Background(), "9")
		if err != nil {
			t.Fatalf("tick size: %v", err)
		}
		if ts != "0.001" {
			t.Fatalf("tick size mismatch: got %q", ts)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("tick size calls mismatch: got %d want 1", got)
	}
}

func TestDo_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"No orderbook exists for the requested token id"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, 137, nil, common.Address{}, 0)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.GetOrderBook(context.Background(), "1")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Status != http.StatusNotFound || httpErr.Path != "/book" {
		t.Fatalf("unexpected http error: %+v", httpErr)
	}
}
