package gamma

import (
	"encoding/json"
	"testing"
)

func TestMarketUnmarshal_TokenFieldVariants(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantIDs    []string
		wantSource string
	}{
		{"clob array", `{"clobTokenIds":["1","2"]}`, []string{"1", "2"}, "clobTokenIds"},
		{"clob string", `{"clobTokenIds":"[\"1\",\"2\"]"}`, []string{"1", "2"}, "clobTokenIds"},
		{"clob numbers", `{"clobTokenIds":[11,22]}`, []string{"11", "22"}, "clobTokenIds"},
		{"camel pair", `{"yesClobTokenId":"3","noClobTokenId":"4"}`, []string{"3", "4"}, "yesClobTokenId"},
		{"snake pair", `{"yes_clob_token_id":"5","no_clob_token_id":"6"}`, []string{"5", "6"}, "yes_clob_token_id"},
		{"short camel pair", `{"yesTokenId":"7","noTokenId":"8"}`, []string{"7", "8"}, "yesTokenId"},
		{"short snake pair", `{"yes_token_id":"9","no_token_id":"10"}`, []string{"9", "10"}, "yes_token_id"},
		{"tokens array", `{"tokens":[{"token_id":"12","outcome":"Yes"},{"token_id":"13","outcome":"No"}]}`, []string{"12", "13"}, "tokens"},
		{"half pair ignored", `{"yesTokenId":"7"}`, nil, ""},
		{"malformed string", `{"clobTokenIds":"[oops"}`, nil, ""},
		{"single token entry ignored", `{"tokens":[{"token_id":"12"}]}`, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Market
			if err := json.Unmarshal([]byte(tt.body), &m); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(m.TokenIDs) != len(tt.wantIDs) {
				t.Fatalf("TokenIDs mismatch: got %#v want %#v", m.TokenIDs, tt.wantIDs)
			}
			for i := range tt.wantIDs {
				if m.TokenIDs[i] != tt.wantIDs[i] {
					t.Fatalf("TokenIDs mismatch: got %#v want %#v", m.TokenIDs, tt.wantIDs)
				}
			}
			if m.TokenSource != tt.wantSource {
				t.Fatalf("TokenSource mismatch: got %q want %q", m.TokenSource, tt.wantSource)
			}
		})
	}
}

func TestMarketUnmarshal_LooseScalars(t *testing.T) {
	var m Market
	if err := json.Unmarshal([]byte(`{"id":42,"active":"true","closed":false,"enableOrderBook":true,"question":" Q? "}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.ID != "42" || !m.Active || m.Closed || !m.EnableOrderBook || m.Question != "Q?" {
		t.Fatalf("unexpected market: %#v", m)
	}
	if m.Tradable() {
		t.Fatalf("market without tokens should not be tradable")
	}
}
