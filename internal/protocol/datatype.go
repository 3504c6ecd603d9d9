// Package protocol implements the TNS/TTC wire-protocol engine: framing,
// message codec, data-type conversion, connection and statement state
// machines. It is grounded throughout on
// SAP-go-hdb's driver/internal/protocol package, generalized from HANA's
// TTC wire format to Oracle's TNS/TTC format (big-endian instead of
// little-endian, different type codes, NUMBER instead of DECIMAL128).
package protocol

import (
	"fmt"
	"math"
	"time"

	"github.com/oratns/tnscore/internal/protocol/encoding"
)

// DecodeDate decodes a 7-byte DATE value: century/year bytes biased by
// 100, month 1..12, day 1..31, hour/minute/second biased by +1.
func DecodeDate(b []byte) (time.Time, error) {
	if len(b) != 7 {
		return time.Time{}, fmt.Errorf("tnscore: DATE requires 7 bytes, got %d", len(b))
	}
	year := (int(b[0])-100)*100 + (int(b[1]) - 100)
	month := time.Month(b[2])
	day := int(b[3])
	hour := int(b[4]) - 1
	min := int(b[5]) - 1
	sec := int(b[6]) - 1
	return time.Date(year, month, day, hour, min, sec, 0, time.UTC), nil
}

// EncodeDate writes t in the 7-byte DATE wire form.
func EncodeDate(t time.Time) []byte {
	b := make([]byte, 7)
	encodeDateCommon(b, t)
	return b
}

func encodeDateCommon(b []byte, t time.Time) {
	year := t.Year()
	century := year/100 + 100
	yy := year%100 + 100
	b[0] = byte(century)
	b[1] = byte(yy)
	b[2] = byte(t.Month())
	b[3] = byte(t.Day())
	b[4] = byte(t.Hour() + 1)
	b[5] = byte(t.Minute() + 1)
	b[6] = byte(t.Second() + 1)
}

// DecodeTimestamp decodes an 11-byte TIMESTAMP value: the 7 DATE bytes
// followed by a 4-byte big-endian nanosecond fraction.
func DecodeTimestamp(b []byte) (time.Time, error) {
	if len(b) != 11 {
		return time.Time{}, fmt.Errorf("tnscore: TIMESTAMP requires 11 bytes, got %d", len(b))
	}
	t, err := DecodeDate(b[:7])
	if err != nil {
		return time.Time{}, err
	}
	nanos := beUint32(b[7:11])
	return t.Add(time.Duration(nanos) * time.Nanosecond), nil
}

// EncodeTimestamp writes t in the 11-byte TIMESTAMP wire form.
func EncodeTimestamp(t time.Time) []byte {
	b := make([]byte, 11)
	encodeDateCommon(b[:7], t)
	putBeUint32(b[7:11], uint32(t.Nanosecond()))
	return b
}

// tzHourBias/tzMinuteBias are the fixed offsets applied to the TIMESTAMP-TZ
// trailing two bytes.
const (
	tzHourBias   = 20
	tzMinuteBias = 60
)

// DecodeTimestampTZ decodes a 13-byte TIMESTAMP WITH TIME ZONE value:
// the 11 TIMESTAMP bytes followed by a biased (hour, minute) offset.
func DecodeTimestampTZ(b []byte) (time.Time, error) {
	if len(b) != 13 {
		return time.Time{}, fmt.Errorf("tnscore: TIMESTAMP-TZ requires 13 bytes, got %d", len(b))
	}
	ts, err := DecodeTimestamp(b[:11])
	if err != nil {
		return time.Time{}, err
	}
	offHour := int(b[11]) - tzHourBias
	offMin := int(b[12]) - tzMinuteBias
	loc := time.FixedZone(fmt.Sprintf("%+03d:%02d", offHour, offMin), offHour*3600+offMin*60)
	// ts was decoded as naive UTC wall-clock fields; reinterpret those
	// same wall-clock fields as local-to-loc, matching the wire's
	// "local time + separate offset" encoding.
	return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond(), loc), nil
}

// EncodeTimestampTZ writes t, including its zone offset, in the
// 13-byte TIMESTAMP WITH TIME ZONE wire form.
func EncodeTimestampTZ(t time.Time) []byte {
	b := make([]byte, 13)
	copy(b[:11], EncodeTimestamp(t))
	_, offSec := t.Zone()
	offHour := offSec / 3600
	offMin := (offSec % 3600) / 60
	b[11] = byte(offHour + tzHourBias)
	b[12] = byte(offMin + tzMinuteBias)
	return b
}

// IntervalDS is an Oracle INTERVAL DAY TO SECOND value.
type IntervalDS struct {
	Days, Hours, Minutes, Seconds, Nanos int32
}

const intervalBias = int64(1) << 31

// DecodeIntervalDS decodes the 11-byte INTERVAL DAY TO SECOND form:
// days(4) hours(1) minutes(1) seconds(1) nanos(4), the 4-byte fields
// biased by 2^31 and the 1-byte fields biased by 60 so negative
// intervals need no sign bit.
func DecodeIntervalDS(b []byte) (IntervalDS, error) {
	if len(b) != 11 {
		return IntervalDS{}, fmt.Errorf("tnscore: INTERVAL DS requires 11 bytes, got %d", len(b))
	}
	days := int64(beUint32(b[0:4])) - intervalBias
	hours := int64(b[4]) - 60
	minutes := int64(b[5]) - 60
	seconds := int64(b[6]) - 60
	nanos := int64(beUint32(b[7:11])) - intervalBias
	return IntervalDS{
		Days:    int32(days),
		Hours:   int32(hours),
		Minutes: int32(minutes),
		Seconds: int32(seconds),
		Nanos:   int32(nanos),
	}, nil
}

// EncodeIntervalDS writes iv in the 11-byte INTERVAL DAY TO SECOND wire
// form.
func EncodeIntervalDS(iv IntervalDS) []byte {
	b := make([]byte, 11)
	putBeUint32(b[0:4], uint32(int64(iv.Days)+intervalBias))
	b[4] = byte(int64(iv.Hours) + 60)
	b[5] = byte(int64(iv.Minutes) + 60)
	b[6] = byte(int64(iv.Seconds) + 60)
	putBeUint32(b[7:11], uint32(int64(iv.Nanos)+intervalBias))
	return b
}

// DecodeBinaryFloat decodes Oracle's comparable-as-bytes encoding of an
// IEEE-754 single precision value: the sign bit is inverted if the
// value is positive, or all bits are inverted if negative.
func DecodeBinaryFloat(d *encoding.Decoder) float32 {
	bits := d.Uint32BE()
	if bits&0x80000000 != 0 {
		bits ^= 0x80000000
	} else {
		bits = ^bits
	}
	return math.Float32frombits(bits)
}

// EncodeBinaryFloat writes f using Oracle's comparable-as-bytes form.
func EncodeBinaryFloat(e *encoding.Encoder, f float32) {
	bits := math.Float32bits(f)
	if bits&0x80000000 != 0 {
		bits = ^bits
	} else {
		bits |= 0x80000000
	}
	e.Uint32BE(bits)
}

// DecodeBinaryDouble mirrors DecodeBinaryFloat for double precision.
func DecodeBinaryDouble(d *encoding.Decoder) float64 {
	bits := d.Uint64BE()
	if bits&0x8000000000000000 != 0 {
		bits ^= 0x8000000000000000
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits)
}

// EncodeBinaryDouble mirrors EncodeBinaryFloat for double precision.
func EncodeBinaryDouble(e *encoding.Encoder, f float64) {
	bits := math.Float64bits(f)
	if bits&0x8000000000000000 != 0 {
		bits = ^bits
	} else {
		bits |= 0x8000000000000000
	}
	e.Uint64BE(bits)
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putBeUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
