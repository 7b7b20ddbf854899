// Package sampling implements weighted random selection over parallel
// item/weight sequences with an injectable random source.
package sampling

import (
	"math"
	"math/rand"
	"time"
)

// Source is the randomness a sampler draws from. *rand.Rand satisfies it.
type Source interface {
	// Float64 returns a uniform value in [0.0, 1.0)
	Float64() float64
}

// NewSource returns a seeded random source. A zero seed is replaced by the
// current time; the seed actually used is returned so a run can be replayed.
func NewSource(seed int64) (*rand.Rand, int64) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed)), seed
}

// Uniform draws a value in [lo, hi)
func Uniform(src Source, lo, hi float64) float64 {
	return lo + (hi-lo)*src.Float64()
}

// Total sums weights
func Total(weights []float64) float64 {
	var total float64
	for _, w := range weights {
		total += w
	}
	return total
}

// Index returns the selected position in weights: the first index whose
// inclusive running sum reaches r, with r uniform in [0, total).
// When the total is not positive every draw falls back to the last index.
// An empty sequence yields -1.
func Index(src Source, weights []float64) int {
	return indexWithTotal(src, weights, Total(weights))
}

func indexWithTotal(src Source, weights []float64, total float64) int {
	n := len(weights)
	if n == 0 {
		return -1
	}
	if !(total > 0) || math.IsInf(total, 0) {
		return n - 1
	}

	r := src.Float64() * total
	var upto float64
	for i, w := range weights {
		upto += w
		if upto >= r {
			return i
		}
	}
	return n - 1
}

// Choose selects one item with probability weights[i]/sum(weights).
// ok is false only when items is empty. weights must be as long as items.
func Choose[T any](src Source, items []T, weights []float64) (item T, ok bool) {
	if len(items) == 0 {
		return item, false
	}
	if len(weights) != len(items) {
		panic("sampling: items and weights differ in length")
	}
	return items[Index(src, weights)], true
}

// Picker draws repeatedly from a fixed item set, computing weights once
type Picker[T any] struct {
	items   []T
	weights []float64
	total   float64
}

// NewPicker builds a picker using weight to derive each item's weight
func NewPicker[T any](items []T, weight func(T) float64) *Picker[T] {
	weights := make([]float64, len(items))
	for i, it := range items {
		weights[i] = weight(it)
	}
	return &Picker[T]{
		items:   items,
		weights: weights,
		total:   Total(weights),
	}
}

// Len returns the number of items
func (p *Picker[T]) Len() int {
	return len(p.items)
}

// Pick draws one item. It must not be called on an empty picker.
func (p *Picker[T]) Pick(src Source) T {
	return p.items[indexWithTotal(src, p.weights, p.total)]
}

// PickIndex draws the position of one item, or -1 when empty
func (p *Picker[T]) PickIndex(src Source) int {
	return indexWithTotal(src, p.weights, p.total)
}
