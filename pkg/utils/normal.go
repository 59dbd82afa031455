package utils

import (
	"math"
	"math/rand"
)

// NormalSource yields standard normal variates. Implementations behind this
// interface keep stochastic components seedable, so tests can inject
// deterministic draws.
type NormalSource interface {
	Norm() float64
}

// boxMuller generates standard normal draws via the Box-Muller transform.
type boxMuller struct {
	rnd      *rand.Rand
	spare    float64
	hasSpare bool
}

// NewBoxMuller returns a seeded NormalSource.
func NewBoxMuller(seed int64) NormalSource {
	return &boxMuller{rnd: rand.New(rand.NewSource(seed))}
}

func (b *boxMuller) Norm() float64 {
	if b.hasSpare {
		b.hasSpare = false
		return b.spare
	}

	u1 := b.rnd.Float64()
	for u1 == 0 {
		u1 = b.rnd.Float64()
	}
	u2 := b.rnd.Float64()

	mag := math.Sqrt(-2 * math.Log(u1))
	b.spare = mag * math.Sin(2*math.Pi*u2)
	b.hasSpare = true
	return mag * math.Cos(2*math.Pi*u2)
}
