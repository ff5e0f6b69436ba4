package chart

import "CryptoDash/internal/model"

// Price legend group shared by every price segment.
const priceLegendGroup = "price"

type segment struct {
	idx []int
	up  bool
}

// SegmentPrice splits the price line into segments colored by whether each
// point sits at or above the baseline (the first finite price) or below it.
// Gaps end a segment. On a color change the new segment starts at the
// previous point, so adjacent segments share their boundary. Segments with a
// single point are dropped. When nothing renderable remains, one uncolored
// trace over the full array is returned instead.
func SegmentPrice(dates []string, prices []float64, p Palette) []Trace {
	baseline, ok := firstFinite(prices)
	var (
		out []Trace
		cur segment
	)
	flush := func() {
		if len(cur.idx) >= 2 {
			out = append(out, segmentTrace(dates, prices, cur, len(out) == 0, p))
		}
		cur = segment{}
	}
	if ok {
		for i, v := range prices {
			if i >= len(dates) {
				break
			}
			if !model.Finite(v) {
				flush()
				continue
			}
			up := v >= baseline
			switch {
			case len(cur.idx) == 0:
				cur = segment{idx: []int{i}, up: up}
			case up == cur.up:
				cur.idx = append(cur.idx, i)
			default:
				prev := cur.idx[len(cur.idx)-1]
				flush()
				cur = segment{idx: []int{prev, i}, up: up}
			}
		}
		flush()
	}

	if len(out) == 0 {
		t := lineTrace("Price", dates, model.Values(prices), Line{Color: p.Neutral, Width: 2})
		t.LegendGroup = priceLegendGroup
		return []Trace{t}
	}
	return out
}

func segmentTrace(dates []string, prices []float64, s segment, legend bool, p Palette) Trace {
	x := make([]string, len(s.idx))
	y := make(model.Values, len(s.idx))
	for k, i := range s.idx {
		x[k] = dates[i]
		y[k] = prices[i]
	}
	color := p.Down
	if s.up {
		color = p.Up
	}
	t := lineTrace("Price", x, y, Line{Color: color, Width: 2})
	t.ShowLegend = legend
	t.LegendGroup = priceLegendGroup
	return t
}

func firstFinite(values []float64) (float64, bool) {
	for _, v := range values {
		if model.Finite(v) {
			return v, true
		}
	}
	return 0, false
}
