// ABOUTME: Source interface and the timer-driven Simulator implementation.
// ABOUTME: Simulator replays a known full text as monotonically growing prefixes.

package stream

import (
	"context"
	"time"
)

// Source yields cumulative partial text for one in-flight response.
// Each call returns the full text received so far; done is true on the
// call that delivers the final partial. After done, Next must not be
// called again.
type Source interface {
	Next(ctx context.Context) (partial string, done bool, err error)
}

// DefaultTick is the simulator tick used when none is configured.
const DefaultTick = 40 * time.Millisecond

// Simulator emits progressively longer prefixes of a known full text, one
// rune batch per tick. It stands in for a real incremental transport where
// the backend only offers a blocking request/response call.
type Simulator struct {
	runes []rune
	pos   int
	batch int
	tick  time.Duration
}

// NewSimulator creates a simulator over fullText. batch runes are revealed
// per tick; batch < 1 means one rune. tick <= 0 falls back to DefaultTick.
func NewSimulator(fullText string, batch int, tick time.Duration) *Simulator {
	if batch < 1 {
		batch = 1
	}
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Simulator{
		runes: []rune(fullText),
		batch: batch,
		tick:  tick,
	}
}

// Next waits one tick and reveals the next batch of runes. The final call
// returns the complete text with done=true.
func (s *Simulator) Next(ctx context.Context) (string, bool, error) {
	if s.pos >= len(s.runes) {
		return string(s.runes), true, nil
	}

	timer := time.NewTimer(s.tick)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return string(s.runes[:s.pos]), false, ctx.Err()
	case <-timer.C:
	}

	s.pos += s.batch
	if s.pos > len(s.runes) {
		s.pos = len(s.runes)
	}
	return string(s.runes[:s.pos]), s.pos == len(s.runes), nil
}
