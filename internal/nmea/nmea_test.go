package nmea

import (
	"math"
	"strings"
	"testing"
	"time"

	gonmea "github.com/adrianmo/go-nmea"

	"i2cgps/internal/i2cgps"
)

func sampleReading() i2cgps.Reading {
	return i2cgps.Reading{
		Status: 0,
		Fix: &i2cgps.Fix{
			Date:      i2cgps.Date{Year: 2024, Month: 6, Day: 1, Hour: 12, Minute: 34, Second: 56},
			Latitude:  -33.8688197,
			Longitude: 151.2092955,
			Altitude:  10.5,
			Speed:     18.52,
		},
	}
}

func parse(t *testing.T, line string) gonmea.Sentence {
	t.Helper()
	if !strings.HasSuffix(line, "\r\n") {
		t.Fatalf("line %q missing CRLF", line)
	}
	s, err := gonmea.Parse(strings.TrimSpace(line))
	if err != nil {
		t.Fatalf("go-nmea parse %q: %v", line, err)
	}
	return s
}

func TestRMC_ParsesWithGoNMEA(t *testing.T) {
	line := RMC(sampleReading(), time.Time{})
	s := parse(t, line)
	if s.DataType() != gonmea.TypeRMC {
		t.Fatalf("type=%s want RMC", s.DataType())
	}
	m := s.(gonmea.RMC)
	if m.Validity != gonmea.ValidRMC {
		t.Fatalf("validity=%q want A", m.Validity)
	}
	if math.Abs(m.Latitude-(-33.8688197)) > 1e-6 || math.Abs(m.Longitude-151.2092955) > 1e-6 {
		t.Fatalf("pos=%v,%v", m.Latitude, m.Longitude)
	}
	if math.Abs(m.Speed-10) > 1e-3 {
		t.Fatalf("speed=%v kn want 10", m.Speed)
	}
	if m.Date.DD != 1 || m.Date.MM != 6 || m.Date.YY != 24 {
		t.Fatalf("date=%v", m.Date)
	}
	if m.Time.Hour != 12 || m.Time.Minute != 34 || m.Time.Second != 56 {
		t.Fatalf("time=%v", m.Time)
	}
}

func TestGGA_ParsesWithGoNMEA(t *testing.T) {
	s := parse(t, GGA(sampleReading(), time.Time{}))
	if s.DataType() != gonmea.TypeGGA {
		t.Fatalf("type=%s want GGA", s.DataType())
	}
	m := s.(gonmea.GGA)
	if m.FixQuality != gonmea.GPS {
		t.Fatalf("quality=%q want %q", m.FixQuality, gonmea.GPS)
	}
	if m.Altitude != 10.5 {
		t.Fatalf("alt=%v want 10.5", m.Altitude)
	}
	if math.Abs(m.Latitude-(-33.8688197)) > 1e-6 {
		t.Fatalf("lat=%v", m.Latitude)
	}
}

func TestNoFix_IsVoid(t *testing.T) {
	now := time.Date(2024, 6, 1, 1, 2, 3, 0, time.UTC)
	rmc := RMC(i2cgps.NoFix(), now)
	if !strings.HasPrefix(rmc, "$GPRMC,010203.00,V,") {
		t.Fatalf("rmc=%q", rmc)
	}
	gga := GGA(i2cgps.NoFix(), now)
	if !strings.HasPrefix(gga, "$GPGGA,010203.00,,,,,0,") {
		t.Fatalf("gga=%q", gga)
	}
}

func TestDegMin_CarriesMinutes(t *testing.T) {
	if got := degMin(12.99999999999, 2); got != "1300.000000" {
		t.Fatalf("degMin=%q want 1300.000000", got)
	}
	if got := degMin(139.7, 3); got != "13942.000000" {
		t.Fatalf("degMin=%q want 13942.000000", got)
	}
}

func TestSentence_Checksum(t *testing.T) {
	got := Sentence("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W")
	if got != "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A\r\n" {
		t.Fatalf("sentence=%q", got)
	}
}
