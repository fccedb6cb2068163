package geo

import (
	"math"
	"testing"
)

func TestAngularRadius_MatchesFormula(t *testing.T) {
	tests := []struct {
		km   float64
		want float64
	}{
		{5, 5000.0 / 6378137},
		{0.01, 10.0 / 6378137},
		{0, 0},
	}

	for _, tt := range tests {
		if got := AngularRadius(tt.km); got != tt.want {
			t.Errorf("AngularRadius(%v) = %v, want %v", tt.km, got, tt.want)
		}
	}
}

func TestAngularDistance_SamePointIsZero(t *testing.T) {
	if d := AngularDistance(77.6, 12.9, 77.6, 12.9); d != 0 {
		t.Errorf("distance = %v, want 0", d)
	}
}

func TestAngularDistance_QuarterCircle(t *testing.T) {
	// 赤道上で経度90度離れた2点はπ/2ラジアン
	d := AngularDistance(0, 0, 90, 0)
	if math.Abs(d-math.Pi/2) > 1e-12 {
		t.Errorf("distance = %v, want %v", d, math.Pi/2)
	}
}

func TestWithinSphere(t *testing.T) {
	tests := []struct {
		name     string
		radiusKm float64
		want     bool
	}{
		{"半径5kmなら含まれる", 5, true},
		{"半径10mなら含まれない", 0.01, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WithinSphere(77.60, 12.90, 77.61, 12.91, tt.radiusKm)
			if got != tt.want {
				t.Errorf("WithinSphere(r=%v) = %v, want %v", tt.radiusKm, got, tt.want)
			}
		})
	}
}

func TestValidPoint(t *testing.T) {
	tests := []struct {
		lng, lat float64
		want     bool
	}{
		{77.6, 12.9, true},
		{-180, -90, true},
		{180.1, 0, false},
		{0, 91, false},
	}

	for _, tt := range tests {
		if got := ValidPoint(tt.lng, tt.lat); got != tt.want {
			t.Errorf("ValidPoint(%v, %v) = %v, want %v", tt.lng, tt.lat, got, tt.want)
		}
	}
}
