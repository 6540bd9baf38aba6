package rrc

import (
	"math"
	"slices"
)

// Simplify вливает короткие (ширина <= 2) внутренние сегменты, лежащие между
// соседями по RTT, в ближайшего из соседей. Повторяет до стабильности.
func Simplify(model []Segment, data []int) []Segment {
	out := slices.Clone(model)

	for changed := true; changed; {
		changed = false
		for i := 1; i < len(out)-1; i++ {
			seg := out[i]
			if seg.Width() > 2 {
				continue
			}
			prev, next := out[i-1], out[i+1]
			if !strictlyBetween(prev.Average(), seg.Average(), next.Average()) {
				continue
			}

			if math.Abs(prev.Average()-seg.Average()) > math.Abs(next.Average()-seg.Average()) {
				out = slices.Replace(out, i, i+2, spanSegment(data, seg.Begin(), next.End()))
			} else {
				out = slices.Replace(out, i-1, i+1, spanSegment(data, prev.Begin(), seg.End()))
			}
			changed = true
			break
		}
	}
	return out
}

func strictlyBetween(a, v, b float64) bool {
	return (a < v && v < b) || (a > v && v > b)
}
