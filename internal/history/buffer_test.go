package history

import (
	"math"
	"testing"
)

func TestNewIsZeroFilled(t *testing.T) {
	b := New(5)
	got := b.Values()
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	for i, v := range got {
		if v != 0 {
			t.Errorf("values[%d] = %f, want 0", i, v)
		}
	}
}

func TestNewNonPositiveCapacity(t *testing.T) {
	for _, c := range []int{0, -3} {
		if got := New(c).Len(); got != DefaultCapacity {
			t.Errorf("New(%d).Len() = %d, want %d", c, got, DefaultCapacity)
		}
	}
}

func TestLengthStaysFixed(t *testing.T) {
	const h = 4
	b := New(h)
	for n := 0; n < 3*h; n++ {
		if got := len(b.Values()); got != h {
			t.Fatalf("after %d appends len = %d, want %d", n, got, h)
		}
		b.Append(float64(n))
	}
}

func TestAppendOrder(t *testing.T) {
	tests := []struct {
		name    string
		appends []float64
		want    []float64
	}{
		{
			name:    "partially filled keeps leading zeros",
			appends: []float64{1, 2},
			want:    []float64{0, 0, 1, 2},
		},
		{
			name:    "exactly full",
			appends: []float64{1, 2, 3, 4},
			want:    []float64{1, 2, 3, 4},
		},
		{
			name:    "one past full evicts oldest",
			appends: []float64{1, 2, 3, 4, 5},
			want:    []float64{2, 3, 4, 5},
		},
		{
			name:    "wraps several times",
			appends: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			want:    []float64{7, 8, 9, 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(4)
			for _, v := range tt.appends {
				b.Append(v)
			}
			got := b.Values()
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("values = %v, want %v", got, tt.want)
				}
			}
			if b.last() != tt.want[len(tt.want)-1] {
				t.Errorf("last = %f, want %f", b.last(), tt.want[len(tt.want)-1])
			}
		})
	}
}

func TestAppendClamps(t *testing.T) {
	b := New(3)
	b.Append(-5)
	b.Append(250)
	b.Append(math.NaN())
	got := b.Values()
	want := []float64{0, 100, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("values = %v, want %v", got, want)
		}
	}
}

func TestValuesIsCopy(t *testing.T) {
	b := New(2)
	b.Append(10)
	v := b.Values()
	v[1] = 99
	if b.last() != 10 {
		t.Errorf("mutating Values() changed the buffer: last = %f", b.last())
	}
}
