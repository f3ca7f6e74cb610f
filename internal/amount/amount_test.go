package amount

import "testing"

func TestParseMicros(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"0", 0},
		{"1", 1_000_000},
		{"1.0", 1_000_000},
		{"0.55", 550_000},
		{".5", 500_000},
		{"1.000001", 1_000_001},
		{"1.0000019", 1_000_001}, // truncated
		{"  0.0100 ", 10_000},
		{"+2.5", 2_500_000},
	}
	for _, tt := range tests {
		got, err := ParseMicros(tt.in)
		if err != nil {
			t.Fatalf("ParseMicros(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseMicros(%q)=%d want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseMicros_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "-1", "1.2.3", "abc", "1-2", "1e3"} {
		if _, err := ParseMicros(in); err == nil {
			t.Fatalf("ParseMicros(%q) expected error", in)
		}
	}
}

func TestFromFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want uint64
	}{
		{0.1, 100_000},
		{0.9, 900_000},
		{5, 5_000_000},
		{0.3, 300_000},
		{1.2345678, 1_234_568},
	}
	for _, tt := range tests {
		got, err := FromFloat(tt.in)
		if err != nil {
			t.Fatalf("FromFloat(%v) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("FromFloat(%v)=%d want %d", tt.in, got, tt.want)
		}
	}
	if _, err := FromFloat(-1); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestFromFloatRounded(t *testing.T) {
	got, err := FromFloatRounded(3.14159, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3_140_000 {
		t.Fatalf("FromFloatRounded=%d want 3140000", got)
	}
	got, err = FromFloatRounded(9.996, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 10_000_000 {
		t.Fatalf("FromFloatRounded=%d want 10000000", got)
	}
}

func TestFormat(t *testing.T) {
	if got := Format(4_200_000); got != "4.2" {
		t.Fatalf("Format=%q want 4.2", got)
	}
	if got := FormatFixed(4_200_000, 2); got != "4.20" {
		t.Fatalf("FormatFixed=%q want 4.20", got)
	}
	if got := FormatFixed(0, 2); got != "0.00" {
		t.Fatalf("FormatFixed=%q want 0.00", got)
	}
}

func TestRoundDown(t *testing.T) {
	if got := RoundDown(3_333_333, 2); got != 3_330_000 {
		t.Fatalf("RoundDown=%d want 3330000", got)
	}
	if got := RoundDown(3_333_333, 6); got != 3_333_333 {
		t.Fatalf("RoundDown=%d want unchanged", got)
	}
}

func TestSharesAndNotional(t *testing.T) {
	// $5 at 0.40 buys 12.5 shares.
	if got := SharesForNotional(5_000_000, 400_000); got != 12_500_000 {
		t.Fatalf("SharesForNotional=%d want 12500000", got)
	}
	if got := NotionalForShares(12_500_000, 400_000); got != 5_000_000 {
		t.Fatalf("NotionalForShares=%d want 5000000", got)
	}
	if got := SharesForNotional(1, 0); got != 0 {
		t.Fatalf("SharesForNotional with zero price=%d want 0", got)
	}
	// Large intermediate products stay exact.
	if got := MulDiv(1<<40, 1<<40, 1<<20); got != 1<<60 {
		t.Fatalf("MulDiv overflow path=%d want %d", got, uint64(1)<<60)
	}
}
