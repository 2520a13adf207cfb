package geo

import "math"

// CircleSegments is the default resolution for circle approximation. At 64
// segments the inscribed polygon underestimates the disc area by ~0.16%.
const CircleSegments = 64

// CircleRing approximates a circle of radiusKm around the given lng/lat
// centre as a closed CCW ring of lng/lat coordinates. Longitude offsets are
// scaled by cos(latitude) so the ring stays circular on the ground rather
// than in degree space.
func CircleRing(centerLng, centerLat, radiusKm float64, segments int) [][2]float64 {
	if segments < 3 {
		segments = 3
	}
	kmPerDeg := EarthRadiusKm * math.Pi / 180
	cosLat := math.Cos(centerLat * math.Pi / 180)
	if cosLat < 1e-9 {
		cosLat = 1e-9 // polar degenerate; keeps the ring finite
	}

	ring := make([][2]float64, segments)
	for i := 0; i < segments; i++ {
		angle := 2 * math.Pi * float64(i) / float64(segments)
		dx := radiusKm * math.Cos(angle)
		dy := radiusKm * math.Sin(angle)
		ring[i] = [2]float64{
			centerLng + dx/(kmPerDeg*cosLat),
			centerLat + dy/kmPerDeg,
		}
	}
	return ring
}
