package vector

import (
	"errors"
	"math"
	"testing"

	"github.com/DRSN-tech/similarity-backend/pkg/e"
)

const epsilon = 1e-6

func TestNormalizeDimensionMismatch(t *testing.T) {
	codec := NewCodec(4)

	if _, err := codec.Normalize([]float32{1, 2, 3}); !errors.Is(err, e.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := codec.Normalize(nil); !errors.Is(err, e.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch for nil, got %v", err)
	}
}

func TestNormalizeNonFinite(t *testing.T) {
	codec := NewCodec(3)

	cases := []struct {
		name string
		in   []float32
	}{
		{"nan", []float32{1, float32(math.NaN()), 0}},
		{"pos_inf", []float32{float32(math.Inf(1)), 0, 0}},
		{"neg_inf", []float32{0, 0, float32(math.Inf(-1))}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := codec.Normalize(tc.in); !errors.Is(err, e.ErrInvalidVector) {
				t.Fatalf("expected ErrInvalidVector, got %v", err)
			}
		})
	}
}

func TestNormalizeReturnsCopy(t *testing.T) {
	codec := NewCodec(3)
	raw := []float32{1, 2, 3}

	out, err := codec.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	raw[0] = 99
	if out[0] != 1 {
		t.Fatalf("Normalize must return a copy, got aliased slice")
	}
}

func TestNormalizeDoesNotRescale(t *testing.T) {
	codec := NewCodec(2)

	out, err := codec.Normalize([]float32{3, 4})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if out[0] != 3 || out[1] != 4 {
		t.Fatalf("components must be preserved verbatim, got %v", out)
	}
}

func TestCosine(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"identical_scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"unnormalized", []float32{1, 0}, []float32{0.9, 0.1}, 0.9 / math.Sqrt(0.81+0.01)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Cosine(tc.a, tc.b)
			if err != nil {
				t.Fatalf("Cosine: %v", err)
			}
			if math.Abs(got-tc.want) > epsilon {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCosineZeroNorm(t *testing.T) {
	got, err := Cosine([]float32{0, 0, 0}, []float32{1, 2, 3})
	if err != nil {
		t.Fatalf("Cosine: %v", err)
	}
	if got != 0 {
		t.Fatalf("zero-norm vector must yield score 0, got %v", got)
	}
}

func TestCosineLengthMismatch(t *testing.T) {
	if _, err := Cosine([]float32{1, 2}, []float32{1, 2, 3}); !errors.Is(err, e.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	in := []float32{0, 1, -1, 0.5, 3.1415927, -123.456}

	out, err := Unpack(Pack(in))
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("component %d: got %v want %v", i, out[i], in[i])
		}
	}
}

func TestUnpackTruncatedPayload(t *testing.T) {
	if _, err := Unpack([]byte{1, 2, 3}); !errors.Is(err, e.ErrInvalidVector) {
		t.Fatalf("expected ErrInvalidVector, got %v", err)
	}
}
