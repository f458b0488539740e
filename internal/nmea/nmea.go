// Package nmea renders GPS readings as NMEA 0183 sentences for consumers
// such as chart plotters and gpsd.
package nmea

import (
	"fmt"
	"math"
	"strings"
	"time"

	"i2cgps/internal/i2cgps"
)

const (
	talker      = "GP"
	kmhPerKnot  = 1.852
	fixQuality  = "1"
	voidQuality = "0"
)

// Sentence wraps payload with '$', the XOR checksum and CRLF.
func Sentence(payload string) string {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return fmt.Sprintf("$%s*%02X\r\n", payload, ck)
}

// RMC returns a recommended minimum sentence. A reading without a fix yields
// a void (V) sentence with empty position fields, timestamped with now.
func RMC(r i2cgps.Reading, now time.Time) string {
	if !r.Valid() {
		now = now.UTC()
		return Sentence(strings.Join([]string{
			talker + "RMC", hhmmss(now), "V", "", "", "", "", "", "", ddmmyy(now), "", "", "N",
		}, ","))
	}
	f := r.Fix
	ts := f.Date.Time()
	lat, ns := latitude(f.Latitude)
	lon, ew := longitude(f.Longitude)
	return Sentence(strings.Join([]string{
		talker + "RMC",
		hhmmss(ts),
		"A",
		lat, ns,
		lon, ew,
		fmt.Sprintf("%.3f", math.Abs(f.Speed)/kmhPerKnot),
		"",
		ddmmyy(ts),
		"", "",
		"A",
	}, ","))
}

// GGA returns a fix data sentence with altitude. Satellite count and HDOP
// are not reported by the receiver and are left empty.
func GGA(r i2cgps.Reading, now time.Time) string {
	if !r.Valid() {
		return Sentence(strings.Join([]string{
			talker + "GGA", hhmmss(now.UTC()), "", "", "", "", voidQuality, "", "", "", "M", "", "M", "", "",
		}, ","))
	}
	f := r.Fix
	lat, ns := latitude(f.Latitude)
	lon, ew := longitude(f.Longitude)
	return Sentence(strings.Join([]string{
		talker + "GGA",
		hhmmss(f.Date.Time()),
		lat, ns,
		lon, ew,
		fixQuality,
		"",
		"",
		fmt.Sprintf("%.1f", f.Altitude), "M",
		"", "M",
		"", "",
	}, ","))
}

func hhmmss(t time.Time) string {
	return fmt.Sprintf("%02d%02d%02d.00", t.Hour(), t.Minute(), t.Second())
}

func ddmmyy(t time.Time) string {
	return fmt.Sprintf("%02d%02d%02d", t.Day(), int(t.Month()), t.Year()%100)
}

func latitude(deg float64) (string, string) {
	hemi := "N"
	if deg < 0 {
		hemi = "S"
	}
	return degMin(math.Abs(deg), 2), hemi
}

func longitude(deg float64) (string, string) {
	hemi := "E"
	if deg < 0 {
		hemi = "W"
	}
	return degMin(math.Abs(deg), 3), hemi
}

// degMin formats degrees as (d)ddmm.mmmmmm.
func degMin(deg float64, width int) string {
	d := math.Floor(deg)
	m := (deg - d) * 60
	// Rounding can carry minutes up to 60.000000.
	if math.Round(m*1e6) >= 60e6 {
		d++
		m = 0
	}
	return fmt.Sprintf("%0*d%09.6f", width, int(d), m)
}
