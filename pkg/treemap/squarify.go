package treemap

import "math"

// squarify splits box into len(weights) rectangles with areas proportional
// to weights, using the squarified algorithm of Bruls, Huizing and van Wijk.
//
// Rows are grown while the worst aspect ratio in the row does not get worse,
// then laid along the shorter side of the remaining box. A zero weight ends
// the current row; zero-weight entries get zero-area rectangles.
func squarify(weights []float64, box Rect, ratio float64) []Rect {
	out := make([]Rect, len(weights))

	total := 0.0
	for _, w := range weights {
		total += w
	}
	if !(total > 0) {
		for i := range out {
			out[i] = Rect{X0: box.X0, Y0: box.Y0, X1: box.X0, Y1: box.Y0}
		}
		return out
	}

	x0, y0, x1, y1 := box.X0, box.Y0, box.X1, box.Y1
	value := total
	n := len(weights)

	for i0, i1 := 0, 0; i0 < n; i0 = i1 {
		dx, dy := x1-x0, y1-y0

		// Leading zero weights join the row of the next non-zero entry.
		var sum float64
		for {
			sum = weights[i1]
			i1++
			if sum != 0 || i1 >= n {
				break
			}
		}
		lo, hi := sum, sum
		alpha := math.Max(dy/dx, dx/dy) / (value * ratio)
		beta := sum * sum * alpha
		best := math.Max(hi/beta, beta/lo)

		for ; i1 < n; i1++ {
			w := weights[i1]
			sum += w
			lo, hi = math.Min(lo, w), math.Max(hi, w)
			beta = sum * sum * alpha
			worst := math.Max(hi/beta, beta/lo)
			if worst > best {
				sum -= w
				break
			}
			best = worst
		}

		row := weights[i0:i1]
		if dx < dy {
			ry1 := y1
			if dx != 0 && value > 0 {
				ry1 = y0 + dy*sum/value
			}
			dice(out[i0:i1], row, sum, x0, y0, x1, ry1)
			y0 = ry1
		} else {
			rx1 := x1
			if dx != 0 && value > 0 {
				rx1 = x0 + dx*sum/value
			}
			slice(out[i0:i1], row, sum, x0, y0, rx1, y1)
			x0 = rx1
		}
		value -= sum
	}
	return out
}

// dice lays a row left to right across [x0,x1], full height.
func dice(dst []Rect, weights []float64, sum, x0, y0, x1, y1 float64) {
	k := 0.0
	if sum > 0 {
		k = (x1 - x0) / sum
	}
	for i, w := range weights {
		nx := x0 + w*k
		dst[i] = Rect{X0: x0, Y0: y0, X1: nx, Y1: y1}
		x0 = nx
	}
}

// slice lays a row top to bottom across [y0,y1], full width.
func slice(dst []Rect, weights []float64, sum, x0, y0, x1, y1 float64) {
	k := 0.0
	if sum > 0 {
		k = (y1 - y0) / sum
	}
	for i, w := range weights {
		ny := y0 + w*k
		dst[i] = Rect{X0: x0, Y0: y0, X1: x1, Y1: ny}
		y0 = ny
	}
}
