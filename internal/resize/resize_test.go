package resize

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeTargetSize(t *testing.T) {
	tests := []struct {
		width, height, maxWidth int
		wantW, wantH            int
	}{
		{2000, 1000, 1200, 1200, 600},
		{1200, 900, 1200, 1200, 900},
		{800, 600, 1200, 800, 600},
		{4032, 3024, 1200, 1200, 900},
		{3000, 1001, 1200, 1200, 400},
		{1201, 1, 1200, 1200, 0},
		{5000, 5000, 0, 5000, 5000},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dx%d_max%d", tt.width, tt.height, tt.maxWidth), func(t *testing.T) {
			w, h := ComputeTargetSize(tt.width, tt.height, tt.maxWidth)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestComputeTargetSize_NeverUpscales(t *testing.T) {
	for width := 1; width <= DefaultMaxWidth; width += 37 {
		w, h := ComputeTargetSize(width, 777, DefaultMaxWidth)
		assert.Equal(t, width, w)
		assert.Equal(t, 777, h)
	}
}

func TestComputeTargetSize_KeepsAspectRatio(t *testing.T) {
	for width := DefaultMaxWidth + 1; width < 9000; width += 211 {
		for _, height := range []int{1, 333, 1080, 4000, 12345} {
			w, h := ComputeTargetSize(width, height, DefaultMaxWidth)
			assert.Equal(t, DefaultMaxWidth, w)

			exact := float64(height) * float64(DefaultMaxWidth) / float64(width)
			assert.LessOrEqual(t, math.Abs(exact-float64(h)), 1.0, "%dx%d -> %dx%d", width, height, w, h)
		}
	}
}

func TestComputeTargetSize_Deterministic(t *testing.T) {
	w1, h1 := ComputeTargetSize(4567, 3210, 1200)
	w2, h2 := ComputeTargetSize(4567, 3210, 1200)
	assert.Equal(t, w1, w2)
	assert.Equal(t, h1, h2)
}

func TestNeedsResize(t *testing.T) {
	assert.True(t, NeedsResize(1201, 1200))
	assert.False(t, NeedsResize(1200, 1200))
	assert.False(t, NeedsResize(9999, 0))
}
