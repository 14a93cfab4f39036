// Package history keeps fixed-size windows of percentage samples for
// sparkline rendering.
package history

// DefaultCapacity is the window used when a non-positive capacity is given.
// At the default one-second poll interval it covers one minute.
const DefaultCapacity = 60

// Buffer is a fixed-capacity ring of percentage samples. It starts filled
// with zeros, so Values always has exactly Len entries.
//
// A Buffer is not safe for concurrent use; the sampler owns it and only
// hands out copies.
type Buffer struct {
	data []float64
	head int // index of the oldest sample, and the next slot to overwrite
}

// New returns a zero-filled buffer holding capacity samples.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{data: make([]float64, capacity)}
}

// Append records v, evicting the oldest sample. Values are clamped to
// [0,100].
func (b *Buffer) Append(v float64) {
	b.data[b.head] = clamp(v)
	b.head = (b.head + 1) % len(b.data)
}

// Values returns a copy of the window, oldest first.
func (b *Buffer) Values() []float64 {
	out := make([]float64, 0, len(b.data))
	out = append(out, b.data[b.head:]...)
	return append(out, b.data[:b.head]...)
}

// Len is the fixed window size.
func (b *Buffer) Len() int { return len(b.data) }

// last returns the most recent sample.
func (b *Buffer) last() float64 {
	i := b.head - 1
	if i < 0 {
		i = len(b.data) - 1
	}
	return b.data[i]
}

func clamp(v float64) float64 {
	if v != v || v < 0 { // NaN counts as no reading
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
