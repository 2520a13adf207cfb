package boundary

import "math"

// ONS publishes boundary shapefiles on the British National Grid
// (EPSG:27700): transverse Mercator eastings/northings on the Airy 1830
// ellipsoid. The web map and the intersection engine work in WGS84, so the
// converter unprojects and shifts datum here. The Helmert transformation is
// accurate to a few metres, well inside the generalisation tolerance of the
// published boundaries.

// Airy 1830 ellipsoid and National Grid projection constants.
const (
	airyA = 6377563.396
	airyB = 6356256.909

	gridScale   = 0.9996012717 // central meridian scale F0
	gridLat0    = 49.0 * math.Pi / 180
	gridLng0    = -2.0 * math.Pi / 180
	gridEast0   = 400000.0
	gridNorth0  = -100000.0
)

// WGS84 ellipsoid.
const (
	wgsA = 6378137.0
	wgsF = 1 / 298.257223563
)

// OSGB36ToWGS84 converts a British National Grid easting/northing to a WGS84
// longitude/latitude.
func OSGB36ToWGS84(easting, northing float64) (lng, lat float64) {
	phi, lam := gridToAiry(easting, northing)
	return helmertToWGS84(phi, lam)
}

// gridToAiry unprojects National Grid coordinates to latitude/longitude on
// the Airy 1830 ellipsoid, following the OS transverse Mercator equations.
func gridToAiry(e, n float64) (phi, lam float64) {
	a, b := airyA, airyB
	e2 := (a*a - b*b) / (a * a)
	nr := (a - b) / (a + b)

	phi = gridLat0
	m := 0.0
	for {
		phi = (n-gridNorth0-m)/(a*gridScale) + phi
		m = meridionalArc(phi, nr)
		if math.Abs(n-gridNorth0-m) < 1e-5 {
			break
		}
	}

	sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
	tanPhi := sinPhi / cosPhi

	nu := a * gridScale / math.Sqrt(1-e2*sinPhi*sinPhi)
	rho := a * gridScale * (1 - e2) / math.Pow(1-e2*sinPhi*sinPhi, 1.5)
	eta2 := nu/rho - 1

	vii := tanPhi / (2 * rho * nu)
	viii := tanPhi / (24 * rho * nu * nu * nu) * (5 + 3*tanPhi*tanPhi + eta2 - 9*tanPhi*tanPhi*eta2)
	ix := tanPhi / (720 * rho * math.Pow(nu, 5)) * (61 + 90*tanPhi*tanPhi + 45*math.Pow(tanPhi, 4))

	x := 1 / (cosPhi * nu)
	xi := 1 / (cosPhi * 6 * nu * nu * nu) * (nu/rho + 2*tanPhi*tanPhi)
	xii := 1 / (cosPhi * 120 * math.Pow(nu, 5)) * (5 + 28*tanPhi*tanPhi + 24*math.Pow(tanPhi, 4))
	xiia := 1 / (cosPhi * 5040 * math.Pow(nu, 7)) * (61 + 662*tanPhi*tanPhi + 1320*math.Pow(tanPhi, 4) + 720*math.Pow(tanPhi, 6))

	de := e - gridEast0
	phi = phi - vii*de*de + viii*math.Pow(de, 4) - ix*math.Pow(de, 6)
	lam = gridLng0 + x*de - xi*de*de*de + xii*math.Pow(de, 5) - xiia*math.Pow(de, 7)
	return phi, lam
}

// meridionalArc is the OS series for the meridional arc length from lat0.
func meridionalArc(phi, n float64) float64 {
	dPhi, sPhi := phi-gridLat0, phi+gridLat0
	return airyB * gridScale * ((1+n+1.25*n*n+1.25*n*n*n)*dPhi -
		(3*n+3*n*n+2.625*n*n*n)*math.Sin(dPhi)*math.Cos(sPhi) +
		(1.875*n*n+1.875*n*n*n)*math.Sin(2*dPhi)*math.Cos(2*sPhi) -
		35.0/24.0*n*n*n*math.Sin(3*dPhi)*math.Cos(3*sPhi))
}

// helmertToWGS84 shifts an Airy 1830 latitude/longitude onto the WGS84 datum
// via the OS seven-parameter Helmert transformation (OSGB36 → WGS84 sense).
func helmertToWGS84(phi, lam float64) (lng, lat float64) {
	const (
		tx = 446.448
		ty = -125.157
		tz = 542.060
		s  = -20.4894e-6
	)
	sec := math.Pi / (180 * 3600)
	rx, ry, rz := 0.1502*sec, 0.2470*sec, 0.8421*sec

	// Airy geodetic to cartesian (height 0).
	e2 := (airyA*airyA - airyB*airyB) / (airyA * airyA)
	sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
	nu := airyA / math.Sqrt(1-e2*sinPhi*sinPhi)
	x := nu * cosPhi * math.Cos(lam)
	y := nu * cosPhi * math.Sin(lam)
	z := nu * (1 - e2) * sinPhi

	// Helmert.
	x2 := tx + (1+s)*x - rz*y + ry*z
	y2 := ty + rz*x + (1+s)*y - rx*z
	z2 := tz - ry*x + rx*y + (1+s)*z

	// Cartesian back to geodetic on WGS84, iterating latitude.
	we2 := wgsF * (2 - wgsF)
	p := math.Sqrt(x2*x2 + y2*y2)
	lat2 := math.Atan2(z2, p*(1-we2))
	for i := 0; i < 10; i++ {
		sinLat := math.Sin(lat2)
		nu2 := wgsA / math.Sqrt(1-we2*sinLat*sinLat)
		next := math.Atan2(z2+we2*nu2*sinLat, p)
		if math.Abs(next-lat2) < 1e-12 {
			lat2 = next
			break
		}
		lat2 = next
	}
	return math.Atan2(y2, x2) * 180 / math.Pi, lat2 * 180 / math.Pi
}
