package gamma

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Market is a normalized Gamma market record. Gamma is loose about shapes:
// ids come as strings or numbers, list fields as arrays or as strings holding
// a JSON array, and older records carry token ids under several names.
// Parsing never fails on a bad field; the field is left empty instead.
type Market struct {
	ID              string
	Slug            string
	Question        string
	ConditionID     string
	Active          bool
	Closed          bool
	EnableOrderBook bool
	Outcomes        []string
	TokenIDs        []string
	// TokenSource names the field TokenIDs came from.
	TokenSource string
}

// Tradable reports whether the market has an order book and token ids.
func (m Market) Tradable() bool {
	return m.EnableOrderBook && len(m.TokenIDs) > 0
}

// Token id sources in priority order.
var tokenPairFields = [][2]string{
	{"yesClobTokenId", "noClobTokenId"},
	{"yes_clob_token_id", "no_clob_token_id"},
	{"yesTokenId", "noTokenId"},
	{"yes_token_id", "no_token_id"},
}

func (m *Market) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*m = Market{
		ID:              looseString(raw["id"]),
		Slug:            looseString(raw["slug"]),
		Question:        looseString(raw["question"]),
		ConditionID:     looseString(raw["conditionId"]),
		Active:          looseBool(raw["active"]),
		Closed:          looseBool(raw["closed"]),
		EnableOrderBook: looseBool(raw["enableOrderBook"]),
		Outcomes:        looseList(raw["outcomes"]),
	}
	m.TokenIDs, m.TokenSource = extractTokenIDs(raw)
	return nil
}

func extractTokenIDs(raw map[string]json.RawMessage) ([]string, string) {
	if ids := looseList(raw["clobTokenIds"]); len(ids) > 0 {
		return ids, "clobTokenIds"
	}
	for _, pair := range tokenPairFields {
		yes := looseString(raw[pair[0]])
		no := looseString(raw[pair[1]])
		if yes != "" && no != "" {
			return []string{yes, no}, pair[0]
		}
	}
	if tokens, ok := raw["tokens"]; ok {
		var entries []map[string]json.RawMessage
		if err := json.Unmarshal(tokens, &entries); err == nil && len(entries) >= 2 {
			ids := make([]string, 0, len(entries))
			for _, e := range entries {
				if id := looseString(e["token_id"]); id != "" {
					ids = append(ids, id)
				}
			}
			if len(ids) > 0 {
				return ids, "tokens"
			}
		}
	}
	return nil, ""
}

// looseString accepts a JSON string or number.
func looseString(b json.RawMessage) string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return ""
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return ""
	}
	return n.String()
}

func looseBool(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	var v bool
	if err := json.Unmarshal(b, &v); err == nil {
		return v
	}
	ok, _ := strconv.ParseBool(looseString(b))
	return ok
}

// looseList accepts an array of strings/numbers or a string containing one.
func looseList(b json.RawMessage) []string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" || s[0] != '[' {
			return nil
		}
		b = []byte(s)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := looseString(it); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
