package site

import (
	"fmt"
	"math"
)

// TimeString formats seconds of time as e.g. "13h:04m:05.2s", wrapped to 24h
func TimeString(t float64) string {
	sign := ""
	if t < 0 {
		sign = "-"
		t = -t
	}
	h := int(t / 3600)
	m := int((t - float64(h)*3600) / 60)
	s := t - float64(h)*3600 - float64(m)*60
	if s >= 59.95 {
		s = 59.9
	}
	return fmt.Sprintf("%s%dh:%02dm:%04.1fs", sign, h%24, m, s)
}

// AngleString formats seconds of arc as e.g. "+43:39':12.7''", wrapped to 360 degrees
func AngleString(a float64) string {
	sign := '+'
	if a < 0 {
		sign = '-'
		a = math.Abs(a)
	}
	d := int(a / 3600)
	m := int((a - float64(d)*3600) / 60)
	s := a - float64(d)*3600 - float64(m)*60
	if s >= 59.95 {
		s = 59.9
	}
	return fmt.Sprintf("%c%d:%02d':%04.1f''", sign, d%360, m, s)
}

// Equinox is the epoch of date used for RA and Dec, as a fractional year
func (s Snapshot) Equinox() float64 {
	ut := s.Taken.UTC()
	return float64(ut.Year()) + float64(ut.YearDay()-1)/365.2422
}
