// Package geo は球面上の距離計算を提供する。
// 半径はすべてラジアン単位の角距離で扱う。
package geo

import "math"

// EarthRadiusMeters は地球の平均半径（メートル）。
const EarthRadiusMeters = 6378137

// AngularRadius はキロメートル単位の半径を角半径（ラジアン）に変換する。
func AngularRadius(radiusKm float64) float64 {
	return (radiusKm * 1000) / EarthRadiusMeters
}

// AngularDistance は2点間の大円角距離（ラジアン）をhaversine式で返す。
// 引数は度単位の経度・緯度。
func AngularDistance(lng1, lat1, lng2, lat2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlng/2)*math.Sin(dlng/2)
	return 2 * math.Asin(math.Min(1, math.Sqrt(a)))
}

// WithinSphere は点(lng, lat)が中心(centerLng, centerLat)から
// radiusKmの球面円内にあるかを判定する。
func WithinSphere(lng, lat, centerLng, centerLat, radiusKm float64) bool {
	return AngularDistance(lng, lat, centerLng, centerLat) <= AngularRadius(radiusKm)
}

// ValidPoint は経度・緯度が有効範囲内かを判定する。
func ValidPoint(lng, lat float64) bool {
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}
