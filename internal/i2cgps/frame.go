package i2cgps

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

const (
	// RawFrameLen is the size of the block the vendor sample code reads.
	RawFrameLen = 22
	// FullFrameLen is the frame length the device reports in byte 0.
	FullFrameLen = 25

	StatusNoFix = -1

	offLen    = 0
	offStatus = 1
	offYear   = 2
	offMonth  = 4
	offDay    = 5
	offHour   = 6
	offMinute = 7
	offSecond = 8
	offLat    = 9
	offLon    = 13
	offAlt    = 17
	offSpeed  = 21

	latLonScale = 10000000.0
	altScale    = 1000.0
)

// milliKnotToKmh is kept as a variable so the factor is computed in float64 at
// run time, matching the vendor code bit for bit.
var (
	nauticalMileKm = 1.852
	milliKnotToKmh = nauticalMileKm / 1000.0
)

type Date struct {
	Year   uint16 `json:"year"`
	Month  uint8  `json:"month"`
	Day    uint8  `json:"day"`
	Hour   uint8  `json:"hour"`
	Minute uint8  `json:"minute"`
	Second uint8  `json:"second"`
}

// Time returns the date as UTC. Out-of-range fields normalize the way
// time.Date does.
func (d Date) Time() time.Time {
	return time.Date(int(d.Year), time.Month(d.Month), int(d.Day), int(d.Hour), int(d.Minute), int(d.Second), 0, time.UTC)
}

type Fix struct {
	Date      Date    `json:"date"`
	Latitude  float64 `json:"latitude"`  // degrees
	Longitude float64 `json:"longitude"` // degrees
	Altitude  float64 `json:"altitude"`  // m
	Speed     float64 `json:"speed"`     // km/h
}

// Reading is either a NoFix (Status -1, Fix nil) or a complete Fix.
type Reading struct {
	Status int
	Fix    *Fix
}

func NoFix() Reading { return Reading{Status: StatusNoFix} }

func (r Reading) Valid() bool { return r.Fix != nil }

func (r Reading) String() string {
	if r.Fix == nil {
		return fmt.Sprintf("status=%d no fix", r.Status)
	}
	f := r.Fix
	return fmt.Sprintf("status=%d %s lat=%.7f lon=%.7f alt=%.3fm speed=%.3fkm/h",
		r.Status, f.Date.Time().Format(time.RFC3339), f.Latitude, f.Longitude, f.Altitude, f.Speed)
}

type readingJSON struct {
	Status    int      `json:"status"`
	Date      *Date    `json:"date,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
}

func (r Reading) MarshalJSON() ([]byte, error) {
	out := readingJSON{Status: r.Status}
	if f := r.Fix; f != nil {
		out.Date = &f.Date
		out.Latitude = &f.Latitude
		out.Longitude = &f.Longitude
		out.Altitude = &f.Altitude
		out.Speed = &f.Speed
	}
	return json.Marshal(out)
}

func (r *Reading) UnmarshalJSON(b []byte) error {
	var in readingJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*r = Reading{Status: in.Status}
	if in.Date == nil {
		return nil
	}
	f := &Fix{Date: *in.Date}
	if in.Latitude != nil {
		f.Latitude = *in.Latitude
	}
	if in.Longitude != nil {
		f.Longitude = *in.Longitude
	}
	if in.Altitude != nil {
		f.Altitude = *in.Altitude
	}
	if in.Speed != nil {
		f.Speed = *in.Speed
	}
	r.Fix = f
	return nil
}

// Decode interprets a frame read from the device. Frames shorter than
// RawFrameLen are not a fix. Speed bytes beyond the end of a 22-byte frame
// read as zero, so its speed is built from byte 21 alone.
func Decode(frame []byte) Reading {
	at := func(i int) byte {
		if i < len(frame) {
			return frame[i]
		}
		return 0
	}
	if len(frame) < RawFrameLen || at(offLen) != FullFrameLen {
		return NoFix()
	}

	u16 := func(off int) uint16 { return u16le(at(off), at(off+1)) }
	i32 := func(off int) int32 { return i32le(at(off), at(off+1), at(off+2), at(off+3)) }

	return Reading{
		Status: int(at(offStatus)),
		Fix: &Fix{
			Date: Date{
				Year:   u16(offYear),
				Month:  at(offMonth),
				Day:    at(offDay),
				Hour:   at(offHour),
				Minute: at(offMinute),
				Second: at(offSecond),
			},
			Latitude:  float64(i32(offLat)) / latLonScale,
			Longitude: float64(i32(offLon)) / latLonScale,
			Altitude:  float64(i32(offAlt)) / altScale,
			Speed:     float64(i32(offSpeed)) * milliKnotToKmh,
		},
	}
}

// Encode builds a full-length frame for fix. Values are rounded to the
// nearest wire unit.
func Encode(status uint8, fix Fix) []byte {
	b := make([]byte, FullFrameLen)
	b[offLen] = FullFrameLen
	b[offStatus] = status
	putU16le(b[offYear:], fix.Date.Year)
	b[offMonth] = fix.Date.Month
	b[offDay] = fix.Date.Day
	b[offHour] = fix.Date.Hour
	b[offMinute] = fix.Date.Minute
	b[offSecond] = fix.Date.Second
	putI32le(b[offLat:], scaleRound(fix.Latitude*latLonScale))
	putI32le(b[offLon:], scaleRound(fix.Longitude*latLonScale))
	putI32le(b[offAlt:], scaleRound(fix.Altitude*altScale))
	putI32le(b[offSpeed:], scaleRound(fix.Speed/milliKnotToKmh))
	return b
}

func u16le(b0, b1 byte) uint16 {
	return uint16(b0) | uint16(b1)<<8
}

// i32le composes in uint32 and reinterprets, so a set top bit yields a
// negative value.
func i32le(b0, b1, b2, b3 byte) int32 {
	return int32(uint32(b0) | uint32(b1)<<8 | uint32(b2)<<16 | uint32(b3)<<24)
}

func putU16le(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func putI32le(b []byte, v int32) {
	u := uint32(v)
	b[0] = byte(u)
	b[1] = byte(u >> 8)
	b[2] = byte(u >> 16)
	b[3] = byte(u >> 24)
}

func scaleRound(v float64) int32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	if v >= 0 {
		return int32(v + 0.5)
	}
	return int32(v - 0.5)
}
