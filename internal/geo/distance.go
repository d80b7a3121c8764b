package geo

import (
	"math"

	"github.com/umahmood/haversine"
)

// WGS-84 ellipsoid parameters.
const (
	wgs84A = 6378137.0
	wgs84F = 1 / 298.257223563
	wgs84B = wgs84A * (1 - wgs84F)
)

// MetersPerMile converts geodesic meters to statute miles.
const MetersPerMile = 1609.344

const (
	vincentyMaxIterations = 200
	vincentyTolerance     = 1e-12
)

// DistanceMiles returns the geodesic distance in miles between two points given
// in decimal degrees, measured on the WGS-84 ellipsoid.
//
// The result is symmetric and zero for identical points. For nearly antipodal
// pairs, where the ellipsoidal iteration does not converge, the spherical
// great-circle distance is returned instead.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	// Evaluate in a canonical order so distance(a, b) == distance(b, a) bit for bit.
	if lat1 > lat2 || (lat1 == lat2 && lon1 > lon2) {
		lat1, lon1, lat2, lon2 = lat2, lon2, lat1, lon1
	}

	if meters, ok := vincentyInverse(lat1, lon1, lat2, lon2); ok {
		return meters / MetersPerMile
	}

	mi, _ := haversine.Distance(
		haversine.Coord{Lat: lat1, Lon: lon1},
		haversine.Coord{Lat: lat2, Lon: lon2},
	)
	return mi
}

// vincentyInverse solves the inverse geodesic problem with Vincenty's formulae.
// It reports false when the iteration fails to converge.
func vincentyInverse(lat1, lon1, lat2, lon2 float64) (float64, bool) {
	L := radians(lon2 - lon1)
	U1 := math.Atan((1 - wgs84F) * math.Tan(radians(lat1)))
	U2 := math.Atan((1 - wgs84F) * math.Tan(radians(lat2)))
	sinU1, cosU1 := math.Sincos(U1)
	sinU2, cosU2 := math.Sincos(U2)

	lambda := L
	var (
		sinSigma, cosSigma, sigma float64
		cos2Alpha, cos2SigmaM     float64
		converged                 bool
	)

	for i := 0; i < vincentyMaxIterations; i++ {
		sinLambda, cosLambda := math.Sincos(lambda)

		t1 := cosU2 * sinLambda
		t2 := cosU1*sinU2 - sinU1*cosU2*cosLambda
		sinSigma = math.Sqrt(t1*t1 + t2*t2)
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		if sinSigma == 0 {
			// Coincident points, or exactly antipodal ones on the equator.
			if cosSigma > 0 {
				return 0, true
			}
			return 0, false
		}
		sigma = math.Atan2(sinSigma, cosSigma)

		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cos2Alpha = 1 - sinAlpha*sinAlpha
		if cos2Alpha != 0 {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cos2Alpha
		} else {
			cos2SigmaM = 0 // equatorial line
		}

		C := wgs84F / 16 * cos2Alpha * (4 + wgs84F*(4-3*cos2Alpha))
		prev := lambda
		lambda = L + (1-C)*wgs84F*sinAlpha*
			(sigma+C*sinSigma*(cos2SigmaM+C*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))

		if math.Abs(lambda-prev) < vincentyTolerance {
			converged = true
			break
		}
	}

	if !converged || math.IsNaN(lambda) {
		return 0, false
	}

	uSq := cos2Alpha * (wgs84A*wgs84A - wgs84B*wgs84B) / (wgs84B * wgs84B)
	A := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	B := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := B * sinSigma * (cos2SigmaM + B/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
		B/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))

	return wgs84B * A * (sigma - deltaSigma), true
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
