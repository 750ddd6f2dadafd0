// Package hourly post-processes cluster profile matrices: one row per cluster,
// one column per hour of the year.
package hourly

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Hours in a profile year.
const (
	HoursPerYear     = 8760
	HoursPerLeapYear = 8784
)

// leapDayStart is the first hour of Feb 29 in a leap year.
const leapDayStart = (31 + 28) * 24

// DropLeapDay removes the 24 hours of Feb 29 from leap-year profiles.
// Profiles of any other length are returned unchanged.
func DropLeapDay(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	if cols != HoursPerLeapYear {
		return m
	}
	out := mat.NewDense(rows, HoursPerYear, nil)
	for i := 0; i < rows; i++ {
		src := m.RawRowView(i)
		dst := out.RawRowView(i)
		copy(dst, src[:leapDayStart])
		copy(dst[leapDayStart:], src[leapDayStart+24:])
	}
	logf("leap", "dropped Feb 29 from %d profiles", rows)
	return out
}

// ShiftWrap shifts profiles by offset hours and wraps the displaced hours to
// the other end: with offset 5 the sixth hour comes first and the first five
// go last. Negative offsets shift the other way.
func ShiftWrap(m *mat.Dense, offset int) *mat.Dense {
	rows, cols := m.Dims()
	if cols == 0 {
		return mat.DenseCopyOf(m)
	}
	k := ((offset % cols) + cols) % cols
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		src := m.RawRowView(i)
		dst := out.RawRowView(i)
		n := copy(dst, src[k:])
		copy(dst[n:], src[:k])
	}
	if k != 0 {
		logf("shift", "shifted %d profiles by %d hours", rows, offset)
	}
	return out
}

// Normalize applies the configured profile post-processing in order: leap
// day removal, then the time-zone shift.
func Normalize(m *mat.Dense, dropLeapDay bool, utcOffset int) (*mat.Dense, error) {
	if m == nil {
		return nil, fmt.Errorf("no profiles to normalize")
	}
	if _, cols := m.Dims(); cols != HoursPerYear && cols != HoursPerLeapYear {
		return nil, fmt.Errorf("profiles have %d hours, want %d or %d", cols, HoursPerYear, HoursPerLeapYear)
	}
	if dropLeapDay {
		m = DropLeapDay(m)
	}
	if utcOffset != 0 {
		m = ShiftWrap(m, utcOffset)
	}
	return m, nil
}
