package geo

import "math"

// Triangulate decomposes a simple polygon ring into triangles by ear
// clipping. The triangles partition the ring, so areas computed against them
// are additive, which lets the intersector clip arbitrary (non-convex)
// geofences with a convex-only clipping routine.
//
// Self-touching or lightly self-intersecting rings will not find ears at some
// point; Triangulate then falls back to a fan decomposition of the remainder,
// which repairs the input at the cost of local accuracy rather than failing
// the whole calculation.
func Triangulate(ring Ring) []Ring {
	ring = Sanitize(ring)
	if ring == nil {
		return nil
	}
	ring = ring.EnsureCCW()

	// Working index list into ring.
	idx := make([]int, len(ring))
	for i := range idx {
		idx[i] = i
	}

	tris := make([]Ring, 0, len(ring)-2)
	guard := 0
	for len(idx) > 3 {
		earFound := false
		for i := 0; i < len(idx); i++ {
			prev := idx[(i-1+len(idx))%len(idx)]
			cur := idx[i]
			next := idx[(i+1)%len(idx)]
			if isEar(ring, idx, prev, cur, next) {
				tris = append(tris, Ring{ring[prev], ring[cur], ring[next]})
				idx = append(idx[:i], idx[i+1:]...)
				earFound = true
				break
			}
		}
		if !earFound {
			// Degenerate remainder: fan from the first vertex.
			for i := 1; i+1 < len(idx); i++ {
				tris = append(tris, Ring{ring[idx[0]], ring[idx[i]], ring[idx[i+1]]})
			}
			idx = idx[:0]
			break
		}
		guard++
		if guard > len(ring)*len(ring) {
			break
		}
	}
	if len(idx) == 3 {
		tris = append(tris, Ring{ring[idx[0]], ring[idx[1]], ring[idx[2]]})
	}

	// Drop zero-area slivers and normalise winding for the clipper.
	out := tris[:0]
	for _, t := range tris {
		if t.Area() < 1e-15 {
			continue
		}
		out = append(out, t.EnsureCCW())
	}
	return out
}

// isEar reports whether the vertex cur forms an ear of the ring: the corner
// is convex and no remaining vertex lies inside the candidate triangle.
func isEar(ring Ring, idx []int, prev, cur, next int) bool {
	a, b, c := ring[prev], ring[cur], ring[next]
	if cross(a, b, c) <= 1e-15 {
		return false // reflex or collinear corner
	}
	for _, k := range idx {
		if k == prev || k == cur || k == next {
			continue
		}
		if pointInTriangle(ring[k], a, b, c) {
			return false
		}
	}
	return true
}

// pointInTriangle reports whether p lies strictly inside triangle abc (CCW).
func pointInTriangle(p, a, b, c Point) bool {
	d1 := cross(a, b, p)
	d2 := cross(b, c, p)
	d3 := cross(c, a, p)
	eps := -1e-12 * (math.Abs(d1) + math.Abs(d2) + math.Abs(d3) + 1)
	return d1 > eps && d2 > eps && d3 > eps
}
