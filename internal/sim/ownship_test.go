package sim

import (
	"math"
	"testing"
	"time"
)

func TestTrack_Position_Invariants(t *testing.T) {
	s := Track{
		CenterLatDeg: 45.0,
		CenterLonDeg: -122.0,
		RadiusM:      1000,
		Period:       60 * time.Second,
	}

	now := time.Date(2025, 12, 20, 19, 0, 0, 0, time.UTC)
	lat, lon, spd := s.Position(now)

	for name, v := range map[string]float64{"lat": lat, "lon": lon, "speed": spd} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("%s invalid: %v", name, v)
		}
	}
	if spd < 0 {
		t.Fatalf("speed negative: %v", spd)
	}

	radiusDeg := s.RadiusM / metersPerDegLat
	if math.Abs(lat-s.CenterLatDeg) > radiusDeg*1.01 {
		t.Fatalf("lat offset too large: got %f want <= %f", math.Abs(lat-s.CenterLatDeg), radiusDeg)
	}
	maxLonDeg := radiusDeg / math.Cos(s.CenterLatDeg*math.Pi/180.0)
	if math.Abs(lon-s.CenterLonDeg) > maxLonDeg*1.01 {
		t.Fatalf("lon offset too large: got %f want <= %f", math.Abs(lon-s.CenterLonDeg), maxLonDeg)
	}
}

func TestTrack_Fix_DateAndAltitude(t *testing.T) {
	s := Track{CenterLatDeg: 35.6, CenterLonDeg: 139.7, AltM: 40}
	now := time.Date(2024, 6, 1, 12, 34, 56, 0, time.UTC)

	f := s.Fix(now)
	if f.Date.Year != 2024 || f.Date.Month != 6 || f.Date.Day != 1 || f.Date.Hour != 12 || f.Date.Minute != 34 || f.Date.Second != 56 {
		t.Fatalf("date=%+v", f.Date)
	}
	if f.Altitude < 30 || f.Altitude > 50 {
		t.Fatalf("alt=%v want within 40±10", f.Altitude)
	}
	if f2 := s.Fix(now); f2 != f {
		t.Fatalf("expected deterministic result for same now")
	}
}
