package game

import (
	"math/rand"
	"time"
)

// Rand is the randomness source used by the simulation.
// *rand.Rand satisfies it; tests pass a seeded one for repeatable runs.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// NewRand returns a time-seeded source
func NewRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Weighted pairs a value with its draw weight
type Weighted[T any] struct {
	Value  T
	Weight float64
}

// PickWeighted draws one value with probability proportional to its weight.
// Non-positive weights are never drawn; an empty or all-zero table returns the zero value.
func PickWeighted[T any](rng Rand, table []Weighted[T]) T {
	total := 0.0
	for _, w := range table {
		if w.Weight > 0 {
			total += w.Weight
		}
	}
	var zero T
	if total <= 0 {
		return zero
	}
	roll := rng.Float64() * total
	for _, w := range table {
		if w.Weight <= 0 {
			continue
		}
		if roll < w.Weight {
			return w.Value
		}
		roll -= w.Weight
	}
	for i := len(table) - 1; i >= 0; i-- {
		if table[i].Weight > 0 {
			return table[i].Value
		}
	}
	return zero
}

// randRange returns a float in [min, max)
func randRange(rng Rand, min, max float64) float64 {
	return min + rng.Float64()*(max-min)
}
