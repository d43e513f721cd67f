package voiceactivity

import (
	"fmt"
)

// History is a fixed-capacity ring of the latest block decisions with
// an incrementally maintained amount of positive ones.
type History struct {
	decisions []bool
	pos       int
	trueCount int
}

// NewHistory returns a History filled with negative decisions.
func NewHistory(capacity int) (*History, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("history capacity must be positive: got %d", capacity)
	}
	return &History{
		decisions: make([]bool, capacity),
	}, nil
}

// Push replaces the oldest decision with v.
func (h *History) Push(v bool) {
	if h.decisions[h.pos] {
		h.trueCount--
	}
	h.decisions[h.pos] = v
	if v {
		h.trueCount++
	}
	h.pos++
	if h.pos == len(h.decisions) {
		h.pos = 0
	}
}

func (h *History) Len() int {
	return len(h.decisions)
}

func (h *History) TrueCount() int {
	return h.trueCount
}

// AppendTo appends the decisions to dst from the oldest to the newest.
func (h *History) AppendTo(dst []bool) []bool {
	dst = append(dst, h.decisions[h.pos:]...)
	return append(dst, h.decisions[:h.pos]...)
}

func (h *History) Reset() {
	for i := range h.decisions {
		h.decisions[i] = false
	}
	h.pos = 0
	h.trueCount = 0
}
