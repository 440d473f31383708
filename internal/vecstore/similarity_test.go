package vecstore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero query", []float32{0, 0}, []float32{1, 0}, 0.0},
		{"zero stored", []float32{1, 0}, []float32{0, 0}, 0.0},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0.0},
		{"scaled", []float32{2, 0}, []float32{5, 0}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := cosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.expected, score, 1e-9)
			assert.False(t, math.IsNaN(score))
		})
	}
}

func TestCosineSimilarityMismatchedLengths(t *testing.T) {
	// Compared over the shorter prefix, never panics
	score := cosineSimilarity([]float32{1, 0, 0}, []float32{1, 0})
	assert.False(t, math.IsNaN(score))
	assert.InDelta(t, 1.0, score, 1e-9)
}
