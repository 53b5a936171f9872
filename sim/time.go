package sim

import (
	"fmt"
	"math"
)

// Time is the contract every simulated time representation satisfies.
//
// The same type represents both absolute times and durations. Plus adds a
// duration to a time, Minus subtracts two times and yields a duration. Compare
// defines a total order and Sign reports the sign of a duration. Float64
// exposes a plain number for statistics.
//
// Time is used as a type constraint, for example
//
//	func Later[T sim.Time[T]](a, b T) T
type Time[T any] interface {
	comparable

	Plus(d T) T
	Minus(o T) T
	Compare(o T) int
	Sign() int
	Float64() float64
}

// VTimeInSec defines the time in the simulated space in the unit of second.
type VTimeInSec float64

// Plus returns t + d.
func (t VTimeInSec) Plus(d VTimeInSec) VTimeInSec { return t + d }

// Minus returns t - o.
func (t VTimeInSec) Minus(o VTimeInSec) VTimeInSec { return t - o }

// Compare returns -1, 0, or 1 if t is before, equal to, or after o.
func (t VTimeInSec) Compare(o VTimeInSec) int {
	switch {
	case t < o:
		return -1
	case t > o:
		return 1
	default:
		return 0
	}
}

// Sign returns the sign of the duration.
func (t VTimeInSec) Sign() int { return t.Compare(0) }

// Float64 returns the number of seconds.
func (t VTimeInSec) Float64() float64 { return float64(t) }

// VTimeInTick is an integer tick count.
type VTimeInTick int64

// Plus returns t + d.
func (t VTimeInTick) Plus(d VTimeInTick) VTimeInTick { return t + d }

// Minus returns t - o.
func (t VTimeInTick) Minus(o VTimeInTick) VTimeInTick { return t - o }

// Compare returns -1, 0, or 1 if t is before, equal to, or after o.
func (t VTimeInTick) Compare(o VTimeInTick) int {
	switch {
	case t < o:
		return -1
	case t > o:
		return 1
	default:
		return 0
	}
}

// Sign returns the sign of the duration.
func (t VTimeInTick) Sign() int { return t.Compare(0) }

// Float64 returns the tick count as a float.
func (t VTimeInTick) Float64() float64 { return float64(t) }

// TimeUnit is the display unit of a UnitTime.
type TimeUnit int

// Supported time units.
const (
	Second TimeUnit = iota
	Millisecond
	Minute
	Hour
	Day
)

var unitSeconds = [...]float64{
	Second:      1,
	Millisecond: 0.001,
	Minute:      60,
	Hour:        3600,
	Day:         86400,
}

var unitNames = [...]string{
	Second:      "s",
	Millisecond: "ms",
	Minute:      "min",
	Hour:        "h",
	Day:         "d",
}

// Seconds returns how many seconds one unit holds.
func (u TimeUnit) Seconds() float64 {
	if u < Second || u > Day {
		panic(fmt.Sprintf("unknown time unit %d", int(u)))
	}

	return unitSeconds[u]
}

func (u TimeUnit) String() string {
	if u < Second || u > Day {
		return fmt.Sprintf("TimeUnit(%d)", int(u))
	}

	return unitNames[u]
}

// UnitTime is a time value that carries a unit. The value is normalized to
// seconds internally, so times in different units compare and add correctly.
// The result of Plus and Minus keeps the unit of the receiver.
type UnitTime struct {
	si   float64
	unit TimeUnit
}

// NewUnitTime creates a UnitTime of value expressed in unit.
func NewUnitTime(value float64, unit TimeUnit) UnitTime {
	return UnitTime{si: value * unit.Seconds(), unit: unit}
}

// Millis creates a UnitTime in milliseconds.
func Millis(v float64) UnitTime { return NewUnitTime(v, Millisecond) }

// Seconds creates a UnitTime in seconds.
func Seconds(v float64) UnitTime { return NewUnitTime(v, Second) }

// Minutes creates a UnitTime in minutes.
func Minutes(v float64) UnitTime { return NewUnitTime(v, Minute) }

// Hours creates a UnitTime in hours.
func Hours(v float64) UnitTime { return NewUnitTime(v, Hour) }

// Plus returns t + d in the unit of t.
func (t UnitTime) Plus(d UnitTime) UnitTime {
	return UnitTime{si: t.si + d.si, unit: t.unit}
}

// Minus returns t - o in the unit of t.
func (t UnitTime) Minus(o UnitTime) UnitTime {
	return UnitTime{si: t.si - o.si, unit: t.unit}
}

// Compare orders two UnitTimes by their normalized value.
func (t UnitTime) Compare(o UnitTime) int {
	switch {
	case t.si < o.si:
		return -1
	case t.si > o.si:
		return 1
	default:
		return 0
	}
}

// Sign returns the sign of the duration.
func (t UnitTime) Sign() int {
	switch {
	case t.si < 0:
		return -1
	case t.si > 0:
		return 1
	default:
		return 0
	}
}

// Float64 returns the value expressed in the unit of t.
func (t UnitTime) Float64() float64 { return t.si / t.unit.Seconds() }

// Seconds returns the value in seconds.
func (t UnitTime) Seconds() float64 { return t.si }

// Unit returns the display unit.
func (t UnitTime) Unit() TimeUnit { return t.unit }

// In returns the same instant expressed in another unit.
func (t UnitTime) In(unit TimeUnit) UnitTime {
	return UnitTime{si: t.si, unit: unit}
}

func (t UnitTime) String() string {
	v := t.Float64()
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f%s", v, t.unit)
	}

	return fmt.Sprintf("%g%s", v, t.unit)
}

// Before returns true if a happens strictly before b.
func Before[T Time[T]](a, b T) bool { return a.Compare(b) < 0 }

// After returns true if a happens strictly after b.
func After[T Time[T]](a, b T) bool { return a.Compare(b) > 0 }

// Max returns the later of two times.
func Max[T Time[T]](a, b T) T {
	if a.Compare(b) >= 0 {
		return a
	}

	return b
}

// Min returns the earlier of two times.
func Min[T Time[T]](a, b T) T {
	if a.Compare(b) <= 0 {
		return a
	}

	return b
}

// Canonical returns t in a form where equal instants are also equal under ==.
// Only UnitTime has more than one representation per instant; it is converted
// to seconds.
func Canonical[T Time[T]](t T) T {
	if u, ok := any(t).(UnitTime); ok {
		return any(u.In(Second)).(T)
	}

	return t
}
