package processor

import "testing"

func TestNearestStrike(t *testing.T) {
	cases := []struct {
		price    float64
		interval float64
		want     float64
	}{
		{123, 50, 100},
		{125, 50, 150},
		{175, 50, 200},
		{80, 50, 100},
		{74.9, 50, 50},
		{1001, 10, 1000},
		{102.4, 2.5, 102.5},
	}
	for _, c := range cases {
		if got := NearestStrike(c.price, c.interval); got != c.want {
			t.Errorf("NearestStrike(%v, %v) = %v, want %v", c.price, c.interval, got, c.want)
		}
	}
}

func TestBuildStrikeWindow(t *testing.T) {
	window := BuildStrikeWindow(200, 50, 3)

	want := []float64{50, 100, 150, 200, 250, 300, 350}
	if len(window) != len(want) {
		t.Fatalf("expected %d strikes, got %d", len(want), len(window))
	}
	for i, strike := range want {
		if window[i] != strike {
			t.Errorf("window[%d] = %v, want %v", i, window[i], strike)
		}
	}
}

func TestWindowSetMembership(t *testing.T) {
	set := WindowSet(BuildStrikeWindow(100, 2.5, 1))

	if _, ok := set[StrikeKey(97.5)]; !ok {
		t.Error("97.5 should be in window")
	}
	if _, ok := set[StrikeKey(97.49999999)]; !ok {
		t.Error("noisy 97.5 should be in window")
	}
	if _, ok := set[StrikeKey(95)]; ok {
		t.Error("95 should not be in window")
	}
}
