/*Package sim provides a simulated cooled CCD which satisfies camera.Device.

It is used by the ccdcap command when no vendor driver is wired in, and by
the tests of every package upstream of the camera.  The simulated sensor
produces a deterministic ramp over a bias level, the cooler walks halfway to
its setpoint on every temperature read, and every call is counted so tests
can assert on the sequence of device operations.
*/
package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.jpl.nasa.gov/bdube/ccdcap/camera"
)

var (
	// ErrNoExposure is generated when the CCD is read with no exposure started
	ErrNoExposure = errors.New("sim: no exposure in progress")

	// ErrBadAOI is generated when a readout area falls off the sensor
	ErrBadAOI = errors.New("sim: area of interest outside the sensor")

	// ErrShortBuffer is generated when the destination cannot hold the frame
	ErrShortBuffer = errors.New("sim: buffer smaller than the frame")
)

const (
	// DefaultModel is the detector model reported by New
	DefaultModel = "Simulated ICX285AL"

	biasLevel = 1000
	ambient   = 20.
)

// Calls counts the device operations performed
type Calls struct {
	Open, Close, Short, Start, Status, Abort, Read, WarmUp int
}

// Camera is a simulated camera.  The zero value is not usable, see New.
type Camera struct {
	sync.Mutex

	// Model is the detector name
	Model string

	// Caps is returned by Capabilities
	Caps camera.Capabilities

	// Now is the clock used to time long exposures
	Now func() time.Time

	// Fill produces the value of pixel (x, y) of the binned frame
	Fill func(x, y int) uint16

	// DelaySkew is added to every long exposure the device is asked for,
	// like real hardware rounding the request to its own clock
	DelaySkew time.Duration

	// FailOpen, FailStart, FailRead and FailTemp are returned by the
	// matching operations when non-nil
	FailOpen  error
	FailStart error
	FailRead  error
	FailTemp  error

	// OnPoll is invoked every time ExposureStatus is called
	OnPoll func()

	// Calls holds the operation counters
	Calls Calls

	open      bool
	temp      float64
	body      float64
	cooling   camera.CoolingStatus
	dark      bool
	eightBit  bool
	preview   bool
	shutter   bool
	exposing  bool
	expStart  time.Time
	expDelay  time.Duration
	readFrame int
}

// List returns the models of the simulated cameras attached
func List() []string {
	return []string{DefaultModel}
}

// New returns a simulated 1392x1040 camera with 6.45um pixels
func New() *Camera {
	return &Camera{
		Model: DefaultModel,
		Caps: camera.Capabilities{
			PixelsX:          1392,
			PixelsY:          1040,
			PixelMicronsX:    6.45,
			PixelMicronsY:    6.45,
			MaxBinX:          8,
			MaxBinY:          8,
			MinShortExposure: time.Millisecond,
			MaxShortExposure: 10 * time.Second,
			LongExposure:     true,
			EightBit:         false,
			Shutter:          true,
		},
		Now:  time.Now,
		temp: ambient,
		body: ambient + 5,
	}
}

// Open opens the simulated handle
func (c *Camera) Open() error {
	c.Lock()
	defer c.Unlock()
	c.Calls.Open++
	if c.FailOpen != nil {
		return c.FailOpen
	}
	c.open = true
	return nil
}

// Close releases the simulated handle
func (c *Camera) Close() error {
	c.Lock()
	defer c.Unlock()
	c.Calls.Close++
	if !c.open {
		return camera.ErrNotOpen
	}
	c.open = false
	c.exposing = false
	return nil
}

// Name returns the detector model
func (c *Camera) Name() string {
	return c.Model
}

// Capabilities returns Caps
func (c *Camera) Capabilities() (camera.Capabilities, error) {
	c.Lock()
	defer c.Unlock()
	if !c.open {
		return camera.Capabilities{}, camera.ErrNotOpen
	}
	return c.Caps, nil
}

// SetCooling engages the cooler toward target
func (c *Camera) SetCooling(target float64) error {
	c.Lock()
	defer c.Unlock()
	c.cooling = camera.CoolingStatus{State: camera.CoolingSetpoint, Target: target, Power: 50}
	return nil
}

// WarmUp walks the setpoint back to ambient
func (c *Camera) WarmUp() error {
	c.Lock()
	defer c.Unlock()
	c.Calls.WarmUp++
	c.cooling = camera.CoolingStatus{State: camera.WarmingUp, Target: ambient}
	return nil
}

// CoolingStatus returns the cooler snapshot
func (c *Camera) CoolingStatus() (camera.CoolingStatus, error) {
	c.Lock()
	defer c.Unlock()
	return c.cooling, nil
}

// Temperature returns the sensor temperature, which walks halfway to the
// setpoint on every read while the cooler is engaged
func (c *Camera) Temperature() (float64, error) {
	c.Lock()
	defer c.Unlock()
	if c.FailTemp != nil {
		return 0, c.FailTemp
	}
	if c.cooling.State == camera.CoolingSetpoint || c.cooling.State == camera.WarmingUp {
		c.temp += (c.cooling.Target - c.temp) / 2
	}
	return c.temp, nil
}

// BodyTemperature returns the camera body temperature
func (c *Camera) BodyTemperature() (float64, error) {
	c.Lock()
	defer c.Unlock()
	if c.FailTemp != nil {
		return 0, c.FailTemp
	}
	return c.body, nil
}

// SetDarkMode keeps the simulated shutter closed
func (c *Camera) SetDarkMode(b bool) error {
	c.Lock()
	defer c.Unlock()
	c.dark = b
	return nil
}

// SetEightBitMode toggles the fast readout if the capabilities allow it
func (c *Camera) SetEightBitMode(b bool) error {
	c.Lock()
	defer c.Unlock()
	if !c.Caps.EightBit {
		return camera.ErrNotSupported
	}
	c.eightBit = b
	return nil
}

// SetPreviewMode toggles the preview readout
func (c *Camera) SetPreviewMode(b bool) error {
	c.Lock()
	defer c.Unlock()
	c.preview = b
	return nil
}

// SetShutter opens or closes the shutter if the capabilities allow it
func (c *Camera) SetShutter(open bool) error {
	c.Lock()
	defer c.Unlock()
	if !c.Caps.Shutter {
		return camera.ErrNotSupported
	}
	c.shutter = open
	return nil
}

// ExposeShort fills buf as if the camera had exposed for d
func (c *Camera) ExposeShort(d time.Duration, aoi camera.AOI, bin camera.Binning, buf []uint16) error {
	c.Lock()
	defer c.Unlock()
	c.Calls.Short++
	if !c.open {
		return camera.ErrNotOpen
	}
	if c.FailStart != nil {
		return c.FailStart
	}
	return c.fill(aoi, bin, buf)
}

// StartExposure starts a caller-timed exposure
func (c *Camera) StartExposure(d time.Duration) (time.Duration, error) {
	c.Lock()
	defer c.Unlock()
	c.Calls.Start++
	if !c.open {
		return 0, camera.ErrNotOpen
	}
	if c.FailStart != nil {
		return 0, c.FailStart
	}
	c.exposing = true
	c.expStart = c.Now()
	c.expDelay = d + c.DelaySkew
	return c.expDelay, nil
}

// ExposureStatus reports exposing until the delay has run out, then ready
func (c *Camera) ExposureStatus() (camera.ExposureStatus, error) {
	c.Lock()
	hook := c.OnPoll
	c.Calls.Status++
	c.Unlock()
	if hook != nil {
		hook()
	}
	c.Lock()
	defer c.Unlock()
	switch {
	case !c.exposing:
		return camera.StatusIdle, nil
	case c.Now().Sub(c.expStart) >= c.expDelay:
		return camera.StatusReady, nil
	default:
		return camera.StatusExposing, nil
	}
}

// AbortExposure drops the exposure in flight
func (c *Camera) AbortExposure() error {
	c.Lock()
	defer c.Unlock()
	c.Calls.Abort++
	c.exposing = false
	return nil
}

// ReadCCD reads the frame of the exposure in flight into buf
func (c *Camera) ReadCCD(aoi camera.AOI, bin camera.Binning, buf []uint16) error {
	c.Lock()
	defer c.Unlock()
	c.Calls.Read++
	if c.FailRead != nil {
		return c.FailRead
	}
	if !c.exposing {
		return ErrNoExposure
	}
	c.exposing = false
	return c.fill(aoi, bin, buf)
}

// fill writes a frame into buf; the caller holds the lock
func (c *Camera) fill(aoi camera.AOI, bin camera.Binning, buf []uint16) error {
	if aoi.Left < 0 || aoi.Top < 0 || aoi.Right() > c.Caps.PixelsX || aoi.Bottom() > c.Caps.PixelsY {
		return fmt.Errorf("%w: %+v", ErrBadAOI, aoi)
	}
	w, h := bin.Frame(aoi)
	if len(buf) < w*h {
		return fmt.Errorf("%w: need %d, have %d", ErrShortBuffer, w*h, len(buf))
	}
	f := c.Fill
	if f == nil {
		frame := c.readFrame
		f = func(x, y int) uint16 {
			return uint16(biasLevel + (x+y+frame)%4096)
		}
	}
	for y := 0; y < h; y++ {
		row := buf[y*w : (y+1)*w]
		for x := range row {
			row[x] = f(x, y)
		}
	}
	c.readFrame++
	return nil
}
