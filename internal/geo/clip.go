package geo

import "math"

// ClipToConvex clips the subject ring against a convex, counter-clockwise
// clip ring using the Sutherland-Hodgman algorithm. The subject may be
// non-convex; the output can then carry coincident bridge edges, which cancel
// in the shoelace sum, so the output's Area is still the intersection area.
func ClipToConvex(subject, clip Ring) Ring {
	if len(subject) < 3 || len(clip) < 3 {
		return nil
	}
	output := subject
	n := len(clip)
	for i := 0; i < n; i++ {
		if len(output) == 0 {
			return nil
		}
		edgeStart := clip[i]
		edgeEnd := clip[(i+1)%n]
		input := output
		output = make(Ring, 0, len(input)+4)

		for j := 0; j < len(input); j++ {
			cur := input[j]
			next := input[(j+1)%len(input)]
			curIn := insideEdge(cur, edgeStart, edgeEnd)
			nextIn := insideEdge(next, edgeStart, edgeEnd)

			switch {
			case curIn && nextIn:
				output = append(output, next)
			case curIn && !nextIn:
				if ix, ok := lineIntersection(cur, next, edgeStart, edgeEnd); ok {
					output = append(output, ix)
				}
			case !curIn && nextIn:
				if ix, ok := lineIntersection(cur, next, edgeStart, edgeEnd); ok {
					output = append(output, ix)
				}
				output = append(output, next)
			}
		}
	}
	if len(output) < 3 {
		return nil
	}
	return output
}

// insideEdge reports whether p lies on or left of the directed edge a→b.
func insideEdge(p, a, b Point) bool {
	return (b.X-a.X)*(p.Y-a.Y)-(b.Y-a.Y)*(p.X-a.X) >= 0
}

// lineIntersection returns the intersection of the infinite lines p1→p2 and
// p3→p4. Parallel lines report no intersection.
func lineIntersection(p1, p2, p3, p4 Point) (Point, bool) {
	d := (p1.X-p2.X)*(p3.Y-p4.Y) - (p1.Y-p2.Y)*(p3.X-p4.X)
	if math.Abs(d) < 1e-12 {
		return Point{}, false
	}
	t := ((p1.X-p3.X)*(p3.Y-p4.Y) - (p1.Y-p3.Y)*(p3.X-p4.X)) / d
	return Point{
		X: p1.X + t*(p2.X-p1.X),
		Y: p1.Y + t*(p2.Y-p1.Y),
	}, true
}
