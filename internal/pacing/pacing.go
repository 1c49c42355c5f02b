// Package pacing picks the randomized wait between two messages.
package pacing

import (
	"math/rand/v2"
	"sync"
	"time"

	"bulk_sender/internal/model"
)

// FailureDelay is the pause after a failed send, whatever the strategy.
const FailureDelay = 2 * time.Second

type Range struct {
	Min time.Duration
	Max time.Duration
}

var presets = map[model.DelayStrategy]Range{
	model.DelayFast:   {Min: 3 * time.Second, Max: 8 * time.Second},
	model.DelayNormal: {Min: 5 * time.Second, Max: 15 * time.Second},
	model.DelaySlow:   {Min: 10 * time.Second, Max: 25 * time.Second},
}

// RangeFor resolves the bounds of a strategy. Unknown strategies fall back to normal.
func RangeFor(s model.Settings) Range {
	if s.DelayStrategy == model.DelayCustom {
		return Range{
			Min: time.Duration(s.DelayMin) * time.Second,
			Max: time.Duration(s.DelayMax) * time.Second,
		}
	}
	if r, ok := presets[s.DelayStrategy]; ok {
		return r
	}
	return presets[model.DelayNormal]
}

// Pacer draws delays uniformly from [Min, Max) in whole milliseconds.
type Pacer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func New(seed uint64) *Pacer {
	return &Pacer{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandom seeds from the runtime's random source.
func NewRandom() *Pacer {
	return New(rand.Uint64())
}

func (p *Pacer) NextDelay(s model.Settings) time.Duration {
	r := RangeFor(s)
	minMs := r.Min.Milliseconds()
	maxMs := r.Max.Milliseconds()
	if minMs < 0 {
		minMs = 0
	}
	if maxMs <= minMs {
		return time.Duration(minMs) * time.Millisecond
	}
	p.mu.Lock()
	n := p.rnd.Int64N(maxMs - minMs)
	p.mu.Unlock()
	return time.Duration(minMs+n) * time.Millisecond
}
