package flowbot

import (
	"math/rand/v2"
	"time"

	"poly-flowbot/internal/amount"
	"poly-flowbot/internal/clob"
	"poly-flowbot/internal/config"
)

// Sampler draws the random parameters of one search attempt.
type Sampler struct {
	cfg config.Config
	rng *rand.Rand
}

// NewSampler uses rng, or a time-seeded PCG when rng is nil.
func NewSampler(cfg config.Config, rng *rand.Rand) *Sampler {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	return &Sampler{cfg: cfg, rng: rng}
}

// Token picks uniformly from pool. pool must be non-empty.
func (s *Sampler) Token(pool []string) string {
	return pool[s.rng.IntN(len(pool))]
}

func (s *Sampler) Side() clob.Side {
	if s.rng.Float64() < s.cfg.PBuy {
		return clob.SideBuy
	}
	return clob.SideSell
}

// Quantity returns a uniform draw in USDC micros, rounded to cents.
func (s *Sampler) Quantity() uint64 {
	q, err := amount.FromFloatRounded(s.uniform(s.cfg.Quantity), 2)
	if err != nil {
		return 0
	}
	return q
}

func (s *Sampler) Interval() time.Duration {
	secs := s.uniform(s.cfg.Interval)
	return time.Duration(secs * float64(time.Second))
}

func (s *Sampler) uniform(d config.Distribution) float64 {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + s.rng.Float64()*(d.Max-d.Min)
}
