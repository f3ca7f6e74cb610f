package clob

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func newTradingServer(t *testing.T, negRisk bool, reply string, got *signedOrderPayload) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tick-size":
			_, _ = w.Write([]byte(`{"minimum_tick_size":"0.01"}`))
		case "/fee-rate":
			_, _ = w.Write([]byte(`{"base_fee":0}`))
		case "/neg-risk":
			if negRisk {
				_, _ = w.Write([]byte(`{"neg_risk":true}`))
				return
			}
			_, _ = w.Write([]byte(`{"neg_risk":false}`))
		case "/order":
			if r.Method != http.MethodPost {
				t.Errorf("order method mismatch: got %s", r.Method)
			}
			for _, h := range []string{"POLY_ADDRESS", "POLY_SIGNATURE", "POLY_TIMESTAMP", "POLY_API_KEY", "POLY_PASSPHRASE"} {
				if r.Header.Get(h) == "" {
					t.Errorf("missing header %s", h)
				}
			}
			b, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(b, got); err != nil {
				t.Errorf("decode order body: %v", err)
			}
			_, _ = w.Write([]byte(reply))
		default:
			http.NotFound(w, r)
		}
	}))
}

func newSigningClient(t *testing.T, host string) *Client {
	t.Helper()
	pk, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	c, err := NewClient(host, 137, pk, common.Address{}, 0)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	c.SetApiCreds(ApiKeyCreds{Key: "key-1", Secret: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=", Passphrase: "pass"})
	return c
}

func TestPlaceLimitOrder_Buy(t *testing.T) {
	var got signedOrderPayload
	srv := newTradingServer(t, false, `{"success":true,"errorMsg":"","orderID":"0xabc","status":"matched"}`, &got)
	defer srv.Close()
	c := newSigningClient(t, srv.URL)

	resp, err := c.PlaceLimitOrder(context.Background(), LimitOrderArgs{
		TokenID:     "71321045679252212594626385532706912750332728571942532289631379312455583992563",
		Side:        SideBuy,
		PriceMicros: 420_000,
		SizeMicros:  10_000_000,
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if !resp.Accepted() || resp.OrderID != "0xabc" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got.OrderType != OrderTypeGTC {
		t.Fatalf("order type mismatch: got %q want GTC", got.OrderType)
	}
	if got.Owner != "key-1" {
		t.Fatalf("owner mismatch: got %q", got.Owner)
	}
	if got.Order.Side != SideBuy || got.Order.MakerAmount != "4200000" || got.Order.TakerAmount != "10000000" {
		t.Fatalf("unexpected order: %+v", got.Order)
	}
	if got.Order.Maker != c.FunderAddress().Hex() || got.Order.Signer != c.SignerAddress().Hex() {
		t.Fatalf("maker/signer mismatch: %+v", got.Order)
	}
}

func TestPlaceLimitOrder_SellNegRisk(t *testing.T) {
	var got signedOrderPayload
	srv := newTradingServer(t, true, `{"success":true,"orderID":"0xdef","status":"live"}`, &got)
	defer srv.Close()
	c := newSigningClient(t, srv.URL)

	order, err := c.CreateSignedLimitOrder(context.Background(), LimitOrderArgs{
		TokenID:     "1234567890123456789012345678901234567890123456789012",
		Side:        SideSell,
		PriceMicros: 550_000,
		SizeMicros:  4_000_000,
	}, func() int64 { return 42 })
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !order.NegRisk || order.Price != "0.55" || order.Size != "4" {
		t.Fatalf("unexpected signed order: %+v", order)
	}

	resp, err := c.PostSignedOrder(context.Background(), order.SignedOrder, OrderTypeGTC, false)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if !resp.Accepted() {
		t.Fatalf("expected accepted response: %+v", resp)
	}
	if got.Order.Side != SideSell || got.Order.MakerAmount != "4000000" || got.Order.TakerAmount != "2200000" || got.Order.Salt != 42 {
		t.Fatalf("unexpected order: %+v", got.Order)
	}
}

func TestOrderResponse_Accepted(t *testing.T) {
	cases := []struct {
		resp OrderResponse
		want bool
	}{
		{OrderResponse{Success: true}, true},
		{OrderResponse{Success: true, ErrorMsg: "not enough balance / allowance"}, false},
		{OrderResponse{Success: false}, false},
	}
	for _, tc := range cases {
		if got := tc.resp.Accepted(); got != tc.want {
			t.Fatalf("Accepted(%+v): got %v want %v", tc.resp, got, tc.want)
		}
	}
}

func TestCreateSignedLimitOrder_RequiresKey(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1", 137, nil, common.Address{}, 0)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := c.CreateSignedLimitOrder(context.Background(), LimitOrderArgs{TokenID: "1", Side: SideBuy, PriceMicros: 1, SizeMicros: 1}, nil); err == nil {
		t.Fatalf("expected error without private key")
	}
}
