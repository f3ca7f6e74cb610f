package flowbot

import (
	"testing"
	"time"

	"poly-flowbot/internal/clob"
	"poly-flowbot/internal/config"
)

func TestSamplerSide_Extremes(t *testing.T) {
	for _, tc := range []struct {
		pBuy float64
		want clob.Side
	}{
		{1, clob.SideBuy},
		{0, clob.SideSell},
	} {
		cfg := config.Default()
		cfg.PBuy = tc.pBuy
		s := NewSampler(cfg, testRNG())
		for i := 0; i < 1000; i++ {
			if got := s.Side(); got != tc.want {
				t.Fatalf("p_buy=%v: sample %d = %s", tc.pBuy, i, got)
			}
		}
	}
}

func TestSamplerSide_Mixed(t *testing.T) {
	cfg := config.Default()
	cfg.PBuy = 0.5
	s := NewSampler(cfg, testRNG())
	buys := 0
	for i := 0; i < 2000; i++ {
		if s.Side() == clob.SideBuy {
			buys++
		}
	}
	if buys < 800 || buys > 1200 {
		t.Fatalf("buys = %d of 2000", buys)
	}
}

func TestSamplerQuantity_RangeAndCents(t *testing.T) {
	cfg := config.Default()
	cfg.Quantity = config.Distribution{Type: config.DistUniform, Min: 1, Max: 10}
	s := NewSampler(cfg, testRNG())
	for i := 0; i < 1000; i++ {
		q := s.Quantity()
		if q < 1_000_000 || q > 10_000_000 {
			t.Fatalf("quantity %d out of range", q)
		}
		if q%10_000 != 0 {
			t.Fatalf("quantity %d not rounded to cents", q)
		}
	}
}

func TestSamplerInterval(t *testing.T) {
	cfg := config.Default()
	cfg.Interval = config.Distribution{Type: config.DistUniform, Min: 2, Max: 4}
	s := NewSampler(cfg, testRNG())
	for i := 0; i < 500; i++ {
		d := s.Interval()
		if d < 2*time.Second || d > 4*time.Second {
			t.Fatalf("interval %s out of range", d)
		}
	}
}

func TestSamplerToken_CoversPool(t *testing.T) {
	s := NewSampler(config.Default(), testRNG())
	pool := []string{tokenA, tokenB}
	seen := map[string]int{}
	for i := 0; i < 200; i++ {
		seen[s.Token(pool)]++
	}
	if seen[tokenA] == 0 || seen[tokenB] == 0 || len(seen) != 2 {
		t.Fatalf("unexpected token distribution %v", seen)
	}
}
