// Package imstat computes the per-frame statistics written into image headers.
package imstat

import (
	"fmt"
	"math"
)

// SaturationThreshold is the value at and above which a pixel is counted as clipped
const SaturationThreshold = 65530

// Stats summarizes a frame
type Stats struct {
	Max, Min  uint16
	Mean, Std float64

	// Saturated is the number of pixels >= SaturationThreshold
	Saturated int
}

func (s Stats) String() string {
	return fmt.Sprintf("avr = %.1f, std = %.1f, Noverload = %d, max = %d, min = %d",
		s.Mean, s.Std, s.Saturated, s.Max, s.Min)
}

// Compute reduces a frame to its Stats in a single pass.
// An empty buffer yields the zero Stats.
func Compute(buf []uint16) Stats {
	if len(buf) == 0 {
		return Stats{}
	}
	var (
		sum, sum2 float64
		s         = Stats{Min: math.MaxUint16}
	)
	for _, v := range buf {
		pv := float64(v)
		sum += pv
		sum2 += pv * pv
		if v > s.Max {
			s.Max = v
		}
		if v < s.Min {
			s.Min = v
		}
		if v >= SaturationThreshold {
			s.Saturated++
		}
	}
	n := float64(len(buf))
	s.Mean = sum / n
	// the abs guards round-off when the variance is ~0
	s.Std = math.Sqrt(math.Abs(sum2/n - s.Mean*s.Mean))
	return s
}
