package formula

import "time"

// Clock is the time source TODAY()/NOW() read. Both always call the
// package-level defaultClock, which is the wall-clock system time; no
// function in this package accepts a caller-supplied Clock.
type Clock func() time.Time

var defaultClock Clock = time.Now

// serialFromDate converts a civil date to an Excel serial number, days
// since 1899-12-31, reproducing the 1900 leap-year bug: any date on or
// after 1900-03-01 is shifted one day later to make room for the
// fictitious 1900-02-29 that occupies serial 60.
func serialFromDate(y, m, d int) float64 {
	days := daysFromCivil(y, m, d) - daysFromCivil(1899, 12, 31)
	if days >= 60 {
		days++
	}
	return float64(days)
}

// civilFromSerial inverts serialFromDate: serials >= 60 are shifted back
// one day before conversion to undo the fictitious 1900-02-29.
func civilFromSerial(serial float64) (y, m, d int) {
	days := int(serial)
	if days >= 60 {
		days--
	}
	return civilFromDays(daysFromCivil(1899, 12, 31) + days)
}

// daysFromCivil/civilFromDays implement Howard Hinnant's proleptic
// Gregorian day-count algorithm.
func daysFromCivil(y, m, d int) int {
	if m <= 2 {
		y--
	}
	era := y
	if y < 0 {
		era = y - 399
	}
	era /= 400
	yoe := y - era*400
	var mp int
	if m > 2 {
		mp = m - 3
	} else {
		mp = m + 9
	}
	doy := (153*mp+2)/5 + d - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}

func civilFromDays(z int) (y, m, d int) {
	z += 719468
	era := z / 146097
	if z < 0 && z%146097 != 0 {
		era--
	}
	doe := z - era*146097
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	yy := yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	dd := doy - (153*mp+2)/5 + 1
	var mm int
	if mp < 10 {
		mm = mp + 3
	} else {
		mm = mp - 9
	}
	if mm <= 2 {
		yy++
	}
	return yy, mm, dd
}

// normalizeDateArgs maps a 0-99 year to 1900-1999 and normalizes
// out-of-range month by rolling into adjacent years.
func normalizeDateArgs(y, m, d int) (int, int, int) {
	if y >= 0 && y <= 99 {
		y += 1900
	}
	for m > 12 {
		m -= 12
		y++
	}
	for m < 1 {
		m += 12
		y--
	}
	return y, m, d
}
