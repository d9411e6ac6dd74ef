package processor

import "testing"

func TestInferStrikeInterval(t *testing.T) {
	cases := []struct {
		name     string
		strikes  []float64
		fallback float64
		want     float64
	}{
		{"uniform grid", []float64{100, 150, 200, 250}, 50, 50},
		{"unsorted with duplicates", []float64{250, 100, 200, 100, 150}, 50, 50},
		{"mixed spacing picks most frequent", []float64{100, 110, 120, 130, 180}, 50, 10},
		{"frequency tie picks smallest", []float64{100, 110, 130}, 50, 10},
		{"single strike falls back", []float64{100}, 75, 75},
		{"empty falls back", nil, 50, 50},
		{"all identical falls back", []float64{200, 200, 200}, 25, 25},
		{"fractional grid", []float64{102.5, 105, 107.5, 110}, 50, 2.5},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := InferStrikeInterval(c.strikes, c.fallback)
			if got != c.want {
				t.Errorf("InferStrikeInterval(%v) = %v, want %v", c.strikes, got, c.want)
			}
		})
	}
}

func TestInferStrikeIntervalFloatNoise(t *testing.T) {
	strikes := []float64{99.99999999, 150.00000001, 200}
	if got := InferStrikeInterval(strikes, 25); got != 50 {
		t.Errorf("expected noisy grid to infer 50, got %v", got)
	}
}

func TestStrikeKey(t *testing.T) {
	if StrikeKey(101.99999999) != StrikeKey(102.00) {
		t.Error("keys for 101.99999999 and 102.00 should match")
	}
	if StrikeKey(102.01) == StrikeKey(102.00) {
		t.Error("keys for 102.01 and 102.00 should differ")
	}
}
