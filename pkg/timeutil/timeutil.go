// Package timeutil anchors wall-clock arithmetic to Waktu Indonesia
// Barat. Enrollment windows, digests, and registrar reports quote WIB
// regardless of where the server runs.
package timeutil

import "time"

// WIB is UTC+7. Indonesia does not observe DST, so a fixed zone is
// correct year-round and works on hosts without tzdata.
var WIB = time.FixedZone("WIB", 7*60*60)

// StartOfDay returns 00:00:00 WIB on the day containing t.
func StartOfDay(t time.Time) time.Time {
	wib := t.In(WIB)
	return time.Date(wib.Year(), wib.Month(), wib.Day(), 0, 0, 0, 0, WIB)
}

// EndOfDay returns the last instant of the day containing t, in WIB.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// FormatIndonesianDate renders t as DD/MM/YYYY in WIB.
func FormatIndonesianDate(t time.Time) string {
	return t.In(WIB).Format("02/01/2006")
}

var weekdayNamesID = [...]string{
	"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu",
}

// WeekdayNameID returns the Indonesian weekday name of t in WIB.
func WeekdayNameID(t time.Time) string {
	return weekdayNamesID[t.In(WIB).Weekday()]
}
