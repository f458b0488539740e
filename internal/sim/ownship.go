package sim

import (
	"math"
	"time"

	"i2cgps/internal/i2cgps"
)

const (
	metersPerDegLat = 111320.0
	kmhPerMps       = 3.6
)

// Track is a deterministic figure-eight around a center point.
type Track struct {
	CenterLatDeg float64
	CenterLonDeg float64
	AltM         float64
	RadiusM      float64
	Period       time.Duration
}

func (s Track) withDefaults() Track {
	if s.Period <= 0 {
		s.Period = 120 * time.Second
	}
	if s.RadiusM <= 0 {
		s.RadiusM = 500
	}
	return s
}

// Position returns the point on the track at now plus ground speed in km/h.
func (s Track) Position(now time.Time) (latDeg, lonDeg, speedKmh float64) {
	s = s.withDefaults()

	radiusDeg := s.RadiusM / metersPerDegLat
	phase := float64(now.UnixNano()%s.Period.Nanoseconds()) / float64(s.Period.Nanoseconds())

	//	x = cos(2πt)
	//	y = 0.5*sin(4πt)
	w := 2 * math.Pi * phase
	x := math.Cos(w)
	y := 0.5 * math.Sin(2*w)

	latDeg = s.CenterLatDeg + radiusDeg*y
	lonDeg = s.CenterLonDeg + (radiusDeg*x)/math.Cos(s.CenterLatDeg*math.Pi/180.0)

	omega := 2 * math.Pi / s.Period.Seconds()
	vx := -math.Sin(w)
	vy := math.Cos(2 * w)
	speedKmh = s.RadiusM * omega * math.Hypot(vx, vy) * kmhPerMps
	return latDeg, lonDeg, speedKmh
}

// Fix returns a complete reading for now. Altitude swings 10 m around AltM.
func (s Track) Fix(now time.Time) i2cgps.Fix {
	s = s.withDefaults()
	lat, lon, spd := s.Position(now)

	vp := s.Period / 2
	if vp <= 0 {
		vp = s.Period
	}
	phase := float64(now.UnixNano()%vp.Nanoseconds()) / float64(vp.Nanoseconds())
	alt := s.AltM + 10*math.Sin(2*math.Pi*phase)

	now = now.UTC()
	return i2cgps.Fix{
		Date: i2cgps.Date{
			Year:   uint16(now.Year()),
			Month:  uint8(now.Month()),
			Day:    uint8(now.Day()),
			Hour:   uint8(now.Hour()),
			Minute: uint8(now.Minute()),
			Second: uint8(now.Second()),
		},
		Latitude:  lat,
		Longitude: lon,
		Altitude:  alt,
		Speed:     spd,
	}
}
