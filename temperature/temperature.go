// Package temperature holds sensor temperature readings and unit conversions
package temperature

import "fmt"

type (
	// Celsius is a temperature in C
	Celsius float64

	// Kelvin is a temperature in K
	Kelvin float64
)

// C2K converts a temp in Celsius to Kelvin
func C2K(c Celsius) Kelvin {
	return Kelvin(c + 273.15)
}

// K2C converts a temp in Kelvin to Celsius
func K2C(k Kelvin) Celsius {
	return Celsius(k - 273.15)
}

// Reading is a sample of a sensor in Celsius.  OK is false when the sensor
// did not answer, in which case C is meaningless.
type Reading struct {
	C  float64
	OK bool
}

// Read samples f.  An error yields an unknown reading.
func Read(f func() (float64, error)) Reading {
	c, err := f()
	if err != nil {
		return Reading{}
	}
	return Reading{C: c, OK: true}
}

// Kelvin returns the reading in Kelvin
func (r Reading) Kelvin() Kelvin {
	return C2K(Celsius(r.C))
}

func (r Reading) String() string {
	if !r.OK {
		return "unknown"
	}
	return fmt.Sprintf("%.1f", r.C)
}

// MeanKelvin is the mean of the known readings in Kelvin.  ok is false if none is known.
func MeanKelvin(rs ...Reading) (k Kelvin, ok bool) {
	var sum Celsius
	n := 0
	for _, r := range rs {
		if r.OK {
			sum += Celsius(r.C)
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return C2K(sum / Celsius(n)), true
}
