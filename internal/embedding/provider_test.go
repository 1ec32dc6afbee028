package embedding

import (
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"mismatched lengths", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"empty", nil, nil, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 2}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Fatalf("expected %f, got %f", tt.want, got)
			}
		})
	}
}

func TestCosine_ScaleInvariant(t *testing.T) {
	a := []float32{0.5, 1.5, -2}
	scaled := []float32{1, 3, -4}

	got := Cosine(a, scaled)
	if math.Abs(float64(got-1)) > 1e-6 {
		t.Fatalf("scaling must not change similarity, got %f", got)
	}
}
