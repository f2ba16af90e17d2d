package imstat

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/stat"
)

func ExampleCompute() {
	fmt.Println(Compute([]uint16{1, 2, 3, 4}))
	// Output: avr = 2.5, std = 1.1, Noverload = 0, max = 4, min = 1
}

func TestComputeAllZero(t *testing.T) {
	s := Compute(make([]uint16, 640*480))
	if s.Mean != 0 || s.Std != 0 || s.Saturated != 0 {
		t.Errorf("expected zero mean, std and saturation, got %+v", s)
	}
	if s.Max != 0 || s.Min != 0 {
		t.Errorf("expected max=min=0, got %d, %d", s.Max, s.Min)
	}
}

func TestComputeAllSaturated(t *testing.T) {
	buf := make([]uint16, 123*45)
	for i := range buf {
		buf[i] = math.MaxUint16
	}
	s := Compute(buf)
	if s.Saturated != len(buf) {
		t.Errorf("expected %d saturated pixels, got %d", len(buf), s.Saturated)
	}
	if s.Std != 0 {
		t.Errorf("expected std 0 for a flat frame, got %g", s.Std)
	}
}

func TestSaturationThresholdEdge(t *testing.T) {
	s := Compute([]uint16{SaturationThreshold - 1, SaturationThreshold, SaturationThreshold + 1})
	if s.Saturated != 2 {
		t.Errorf("expected 2 saturated pixels, got %d", s.Saturated)
	}
}

func TestComputeEmpty(t *testing.T) {
	if s := Compute(nil); s != (Stats{}) {
		t.Errorf("expected zero Stats, got %+v", s)
	}
}

func TestComputeMatchesGonum(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		n := 1 + rng.Intn(5000)
		buf := make([]uint16, n)
		f := make([]float64, n)
		for i := range buf {
			buf[i] = uint16(rng.Intn(math.MaxUint16 + 1))
			f[i] = float64(buf[i])
		}
		s := Compute(buf)
		if s.Max < s.Min {
			t.Fatalf("max %d < min %d", s.Max, s.Min)
		}
		mean := stat.Mean(f, nil)
		std := math.Sqrt(stat.PopVariance(f, nil))
		if math.Abs(s.Mean-mean) > 1e-6*mean {
			t.Errorf("trial %d: mean %g, gonum %g", trial, s.Mean, mean)
		}
		if math.Abs(s.Std-std) > 1e-3*std+1e-6 {
			t.Errorf("trial %d: std %g, gonum %g", trial, s.Std, std)
		}
	}
}
