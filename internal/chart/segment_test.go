package chart

import (
	"math"
	"testing"
)

var nan = math.NaN()

func dates(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "2024-01-" + string(rune('0'+(i+1)/10)) + string(rune('0'+(i+1)%10))
	}
	return out
}

func TestSegmentPrice_ColorsAgainstBaseline(t *testing.T) {
	p := DefaultPalette()
	// baseline 10: up, up, down, down, up
	segs := SegmentPrice(dates(5), []float64{10, 12, 8, 9, 11}, p)
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}
	if segs[0].Line.Color != p.Up || segs[1].Line.Color != p.Down || segs[2].Line.Color != p.Up {
		t.Errorf("unexpected colors: %s %s %s", segs[0].Line.Color, segs[1].Line.Color, segs[2].Line.Color)
	}
	// 9 is above the previous point but still below the baseline, so it
	// stays in the down segment.
	if len(segs[1].X) != 3 {
		t.Errorf("down segment should hold 12,8,9, got %v", segs[1].Y)
	}
}

func TestSegmentPrice_SharedBoundary(t *testing.T) {
	d := dates(4)
	segs := SegmentPrice(d, []float64{10, 11, 9, 8}, DefaultPalette())
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	last := segs[0].X[len(segs[0].X)-1]
	if segs[1].X[0] != last {
		t.Errorf("second segment should start at %s, starts at %s", last, segs[1].X[0])
	}
}

func TestSegmentPrice_CoversEveryFinitePoint(t *testing.T) {
	d := dates(9)
	prices := []float64{5, 6, 4, nan, 7, 3, 3, nan, 8}
	segs := SegmentPrice(d[:8], prices[:8], DefaultPalette())
	seen := map[string]int{}
	for _, s := range segs {
		for k, x := range s.X {
			seen[x]++
			if s.Y[k] != prices[indexOf(d, x)] {
				t.Errorf("price mismatch at %s", x)
			}
		}
	}
	for i, v := range prices[:8] {
		if math.IsNaN(v) {
			if seen[d[i]] != 0 {
				t.Errorf("gap %s rendered", d[i])
			}
			continue
		}
		if seen[d[i]] == 0 {
			t.Errorf("finite point %s missing", d[i])
		}
	}
}

func TestSegmentPrice_DropsSinglePointSegments(t *testing.T) {
	segs := SegmentPrice(dates(5), []float64{10, 11, nan, 12, nan}, DefaultPalette())
	if len(segs) != 1 {
		t.Fatalf("isolated point should be dropped, got %d segments", len(segs))
	}
	if len(segs[0].X) != 2 {
		t.Errorf("segment length = %d, want 2", len(segs[0].X))
	}
}

func TestSegmentPrice_LegendOnlyOnFirst(t *testing.T) {
	segs := SegmentPrice(dates(5), []float64{10, 9, 11, 8, 12}, DefaultPalette())
	if !segs[0].ShowLegend {
		t.Error("first segment must show legend")
	}
	for i, s := range segs[1:] {
		if s.ShowLegend {
			t.Errorf("segment %d duplicates legend entry", i+1)
		}
	}
}

func TestSegmentPrice_FallbackWhenNothingRenderable(t *testing.T) {
	p := DefaultPalette()
	for _, prices := range [][]float64{
		{nan, nan, nan},
		{nan, 4, nan},
		{},
	} {
		segs := SegmentPrice(dates(len(prices)), prices, p)
		if len(segs) != 1 {
			t.Fatalf("expected single fallback trace for %v, got %d", prices, len(segs))
		}
		if segs[0].Line.Color != p.Neutral || len(segs[0].X) != len(prices) {
			t.Errorf("fallback should be uncolored and span the full array")
		}
	}
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
