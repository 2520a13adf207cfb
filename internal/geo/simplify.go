package geo

import "math"

// SimplifyRing reduces a lng/lat ring with the Douglas-Peucker algorithm.
// tolerance is in degrees (the boundary converter uses 0.0002, roughly 20 m
// at UK latitudes, matching the published datasets). Rings that collapse
// below 4 points are returned unsimplified so no area vanishes outright.
func SimplifyRing(ring [][2]float64, tolerance float64) [][2]float64 {
	if tolerance <= 0 || len(ring) <= 4 {
		return ring
	}
	closed := ring[0] == ring[len(ring)-1]
	open := ring
	if closed {
		open = ring[:len(ring)-1]
	}

	kept := douglasPeucker(open, tolerance)
	if len(kept) < 4 {
		return ring
	}
	if closed {
		kept = append(kept, kept[0])
	}
	return kept
}

func douglasPeucker(pts [][2]float64, tolerance float64) [][2]float64 {
	if len(pts) < 3 {
		return pts
	}
	// Find the point farthest from the chord.
	var maxDist float64
	maxIdx := 0
	for i := 1; i < len(pts)-1; i++ {
		d := perpendicularDistance(pts[i], pts[0], pts[len(pts)-1])
		if d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}
	if maxDist <= tolerance {
		return [][2]float64{pts[0], pts[len(pts)-1]}
	}
	left := douglasPeucker(pts[:maxIdx+1], tolerance)
	right := douglasPeucker(pts[maxIdx:], tolerance)
	return append(left[:len(left)-1], right...)
}

func perpendicularDistance(p, a, b [2]float64) float64 {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	lenSq := dx*dx + dy*dy
	if lenSq < 1e-18 {
		return math.Hypot(p[0]-a[0], p[1]-a[1])
	}
	// Distance from p to the infinite line through a and b.
	return math.Abs(dy*p[0]-dx*p[1]+b[0]*a[1]-b[1]*a[0]) / math.Sqrt(lenSq)
}
