package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSerialFromDateKnownValue(t *testing.T) {
	// 2024-01-01 is serial 45292 on the 1900 date system.
	assert.Equal(t, 45292.0, serialFromDate(2024, 1, 1))
}

func TestSerialDate1900LeapBugRoundTrip(t *testing.T) {
	// The fictitious 1900-02-29 occupies serial 60; every later date is
	// shifted one day later than its true proleptic-Gregorian count.
	for _, d := range []struct {
		y, m, day int
	}{
		{1900, 1, 1},
		{1900, 2, 28},
		{1900, 3, 1},
		{1999, 12, 31},
		{2024, 2, 29},
		{2024, 1, 1},
	} {
		serial := serialFromDate(d.y, d.m, d.day)
		y, m, day := civilFromSerial(serial)
		assert.Equal(t, d.y, y, "year for %+v", d)
		assert.Equal(t, d.m, m, "month for %+v", d)
		assert.Equal(t, d.day, day, "day for %+v", d)
	}
}

func TestSerialBeforeFictitiousLeapDayIsNotShifted(t *testing.T) {
	jan1 := serialFromDate(1900, 1, 1)
	feb28 := serialFromDate(1900, 2, 28)
	assert.Equal(t, 59.0, feb28-jan1+1)
}

func TestNormalizeDateArgsTwoDigitYear(t *testing.T) {
	y, m, d := normalizeDateArgs(24, 1, 1)
	assert.Equal(t, 1924, y)
	assert.Equal(t, 1, m)
	assert.Equal(t, 1, d)
}

func TestNormalizeDateArgsMonthOverflowRollsYear(t *testing.T) {
	y, m, d := normalizeDateArgs(2023, 13, 15)
	assert.Equal(t, 2024, y)
	assert.Equal(t, 1, m)
	assert.Equal(t, 15, d)
}

func TestNormalizeDateArgsMonthUnderflowRollsYearBack(t *testing.T) {
	y, m, d := normalizeDateArgs(2024, 0, 10)
	assert.Equal(t, 2023, y)
	assert.Equal(t, 12, m)
	assert.Equal(t, 10, d)
}
