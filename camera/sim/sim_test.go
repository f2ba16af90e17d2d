package sim

import (
	"errors"
	"testing"
	"time"

	"github.jpl.nasa.gov/bdube/ccdcap/camera"
)

var _ camera.Device = (*Camera)(nil)
var _ camera.BodyThermometer = (*Camera)(nil)

func TestLongExposureLifecycle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New()
	c.Now = func() time.Time { return now }
	c.DelaySkew = 20 * time.Millisecond
	if _, err := c.StartExposure(time.Second); !errors.Is(err, camera.ErrNotOpen) {
		t.Errorf("start on a closed camera: %v", err)
	}
	if err := c.Open(); err != nil {
		t.Fatal(err)
	}
	d, err := c.StartExposure(time.Second)
	if err != nil || d != 1020*time.Millisecond {
		t.Fatalf("StartExposure = %v, %v", d, err)
	}
	if st, _ := c.ExposureStatus(); st != camera.StatusExposing {
		t.Errorf("status %v, wanted exposing", st)
	}
	now = now.Add(d)
	if st, _ := c.ExposureStatus(); st != camera.StatusReady {
		t.Errorf("status %v, wanted ready", st)
	}
	aoi := camera.AOI{Left: 0, Top: 0, Width: 8, Height: 4}
	buf := make([]uint16, 8)
	if err := c.ReadCCD(aoi, camera.Binning{H: 2, V: 2}, buf); err != nil {
		t.Fatal(err)
	}
	if buf[0] != biasLevel || buf[5] != biasLevel+2 {
		t.Errorf("unexpected ramp %v", buf)
	}
	if err := c.ReadCCD(aoi, camera.Binning{H: 2, V: 2}, buf); !errors.Is(err, ErrNoExposure) {
		t.Errorf("second read: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); !errors.Is(err, camera.ErrNotOpen) {
		t.Errorf("double close: %v", err)
	}
}

func TestFillChecks(t *testing.T) {
	c := New()
	c.Open()
	err := c.ExposeShort(time.Millisecond, camera.AOI{Left: 1390, Width: 10, Height: 10}, camera.Binning{H: 1, V: 1}, make([]uint16, 100))
	if !errors.Is(err, ErrBadAOI) {
		t.Errorf("got %v, wanted ErrBadAOI", err)
	}
	err = c.ExposeShort(time.Millisecond, camera.AOI{Width: 10, Height: 10}, camera.Binning{H: 1, V: 1}, make([]uint16, 99))
	if !errors.Is(err, ErrShortBuffer) {
		t.Errorf("got %v, wanted ErrShortBuffer", err)
	}
}

func TestCooling(t *testing.T) {
	c := New()
	c.SetCooling(-20)
	t1, _ := c.Temperature()
	t2, _ := c.Temperature()
	if t1 != 0 || t2 != -10 {
		t.Errorf("temperatures %v, %v; wanted 0, -10", t1, t2)
	}
	if err := c.SetEightBitMode(true); !errors.Is(err, camera.ErrNotSupported) {
		t.Errorf("8-bit mode: %v", err)
	}
}
