// Package market resolves operator-supplied market identifiers into the
// pool of outcome token ids the bot trades.
package market

import (
	"net/url"
	"strings"
)

// minTokenIDLen is exclusive: a token id has strictly more digits.
const minTokenIDLen = 50

// ValidTokenID reports whether s looks like a CLOB outcome token id: all
// decimal digits and longer than 50 characters.
func ValidTokenID(s string) bool {
	if len(s) <= minTokenIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

type Kind int

const (
	KindTokenID Kind = iota
	KindURL
	KindIDOrSlug
)

func (k Kind) String() string {
	switch k {
	case KindTokenID:
		return "token_id"
	case KindURL:
		return "url"
	default:
		return "id_or_slug"
	}
}

// Identifier is a classified operator input.
type Identifier struct {
	Raw  string
	Kind Kind
	// EventSlug and MarketSlug are set for polymarket.com URLs.
	EventSlug  string
	MarketSlug string
}

// Classify decides how an identifier should be resolved.
func Classify(raw string) Identifier {
	raw = strings.TrimSpace(raw)
	id := Identifier{Raw: raw, Kind: KindIDOrSlug}
	switch {
	case ValidTokenID(raw):
		id.Kind = KindTokenID
	case strings.Contains(raw, "polymarket.com"):
		id.Kind = KindURL
		id.EventSlug, id.MarketSlug = slugsFromURL(raw)
	}
	return id
}

// slugsFromURL extracts /event/<event>[/<market>] from a polymarket.com URL,
// ignoring query and fragment.
func slugsFromURL(raw string) (eventSlug, marketSlug string) {
	s := raw
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	path := ""
	if u, err := url.Parse(s); err == nil {
		path = u.Path
	} else if i := strings.Index(raw, "/event/"); i >= 0 {
		path = raw[i:]
		if j := strings.IndexAny(path, "?#"); j >= 0 {
			path = path[:j]
		}
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if p != "event" || i+1 >= len(parts) {
			continue
		}
		eventSlug = parts[i+1]
		if i+2 < len(parts) {
			marketSlug = parts[i+2]
		}
		return eventSlug, marketSlug
	}
	return "", ""
}
