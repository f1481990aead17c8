package world

// Lag compensation history: a ring of timestamped positions per player. At
// 20 Hz the 64-sample ring covers ~3.2 s, comfortably above the required
// 1 s window.

const historySize = 64

// RewindLimitMs bounds how far back a hit check may be rewound.
const RewindLimitMs = 500

type PosSample struct {
	T    int64
	X, Y float64
}

type PosHistory struct {
	samples [historySize]PosSample
	head    int
	count   int
}

// Record appends a sample, overwriting the oldest when full.
func (h *PosHistory) Record(t int64, x, y float64) {
	h.samples[h.head] = PosSample{T: t, X: x, Y: y}
	h.head = (h.head + 1) % historySize
	if h.count < historySize {
		h.count++
	}
}

// At returns the sample nearest to time t. The second return is false when
// no samples exist or t is further back than RewindLimitMs from the newest
// sample.
func (h *PosHistory) At(t int64) (PosSample, bool) {
	if h.count == 0 {
		return PosSample{}, false
	}
	newest := h.samples[(h.head-1+historySize)%historySize]
	if newest.T-t > RewindLimitMs {
		t = newest.T - RewindLimitMs
	}
	best := newest
	bestDiff := abs64(newest.T - t)
	for i := 1; i < h.count; i++ {
		s := h.samples[(h.head-1-i+historySize)%historySize]
		d := abs64(s.T - t)
		if d < bestDiff {
			best = s
			bestDiff = d
		}
	}
	return best, true
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
