/*Package camera describes the interface a cooled CCD camera driver exposes to
the acquisition pipeline.

A Device opens and closes, reports its capabilities once, manages its cooler,
toggles a few readout modes and takes pictures in one of two ways.  Short exposures are timed by the camera itself behind one
blocking call (ExposeShort).  Long exposures are timed by the caller, who
starts the exposure, waits, and then reads the CCD (StartExposure, ReadCCD).

Any concrete binding (a cgo wrapper around a vendor SDK, an RPC client, the
simulator in camera/sim) can implement Device; nothing upstream depends on
SDK specific types.
*/
package camera

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotSupported is generated when a camera lacks an optional feature
	ErrNotSupported = errors.New("feature not supported by this camera")

	// ErrNotOpen is generated when a method is called on a closed device
	ErrNotOpen = errors.New("camera device is not open")

	// ErrNoCamera is generated when no camera is found or none matches the name asked for
	ErrNoCamera = errors.New("no matching camera found")

	// ErrAmbiguous is generated when several cameras are found and none was named
	ErrAmbiguous = errors.New("several cameras found, give a camera name")
)

// Select returns the index of the camera called name among available.
// An empty name selects the only camera there is.
func Select(available []string, name string) (int, error) {
	if len(available) == 0 {
		return -1, ErrNoCamera
	}
	if name == "" {
		if len(available) > 1 {
			return -1, fmt.Errorf("%w: %s", ErrAmbiguous, strings.Join(available, ", "))
		}
		return 0, nil
	}
	for i, a := range available {
		if strings.EqualFold(a, name) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrNoCamera, name)
}

// AOI describes an area of interest on the sensor, in unbinned pixels
type AOI struct {
	// Left is the left pixel index.  0-based
	Left int `json:"left"`

	// Top is the top pixel index.  0-based
	Top int `json:"top"`

	// Width is the width in pixels
	Width int `json:"width"`

	// Height is the height in pixels
	Height int `json:"height"`
}

// Right is the exclusive right edge of the AOI
func (a AOI) Right() int {
	return a.Left + a.Width
}

// Bottom is the exclusive bottom edge of the AOI
func (a AOI) Bottom() int {
	return a.Top + a.Height
}

// Binning encapsulates information about pixel addition on camera
type Binning struct {
	// H is the horizontal binning factor
	H int `json:"h"`

	// V is the vertical binning factor
	V int `json:"v"`
}

// String formats the binning as "H x V"
func (b Binning) String() string {
	return fmt.Sprintf("%d x %d", b.H, b.V)
}

// Unity is true when neither axis is binned
func (b Binning) Unity() bool {
	return b.H == 1 && b.V == 1
}

// Frame returns the (width, height) of the binned frame read from aoi
func (b Binning) Frame(aoi AOI) (int, int) {
	return aoi.Width / b.H, aoi.Height / b.V
}

// Capabilities is the static description of a camera, queried once per session
type Capabilities struct {
	// PixelsX, PixelsY are the sensor dimensions in pixels
	PixelsX int
	PixelsY int

	// PixelMicronsX, PixelMicronsY are the pixel pitch in microns
	PixelMicronsX float64
	PixelMicronsY float64

	// MaxBinX, MaxBinY are the largest binning factors supported
	MaxBinX int
	MaxBinY int

	// MinShortExposure and MaxShortExposure bound the exposures the camera
	// can time by itself
	MinShortExposure time.Duration
	MaxShortExposure time.Duration

	// LongExposure is true if exposures at or above MaxShortExposure can be
	// timed by the caller
	LongExposure bool

	// EightBit is true if the camera has a fast 8-bit readout mode
	EightBit bool

	// Shutter is true if the camera has a mechanical shutter
	Shutter bool

	// Colour is true for cameras with a Bayer matrix
	Colour bool
}

// FullFrame is the AOI covering the whole sensor
func (c Capabilities) FullFrame() AOI {
	return AOI{Left: 0, Top: 0, Width: c.PixelsX, Height: c.PixelsY}
}

// CoolingState is the state of the sensor cooler
type CoolingState int

const (
	// CoolingInactive means the cooler is off
	CoolingInactive CoolingState = iota

	// CoolingOn means the cooler is running at a fixed power
	CoolingOn

	// CoolingSetpoint means the cooler regulates to a setpoint
	CoolingSetpoint

	// WarmingUp means the cooler is walking the sensor back to ambient
	WarmingUp
)

func (s CoolingState) String() string {
	switch s {
	case CoolingInactive:
		return "inactive"
	case CoolingOn:
		return "cooling on"
	case CoolingSetpoint:
		return "cooling to setpoint"
	case WarmingUp:
		return "warming up"
	default:
		return "unknown"
	}
}

// CoolingStatus is a snapshot of the cooling subsystem
type CoolingStatus struct {
	State CoolingState

	// Target is the setpoint in Celcius
	Target float64

	// Power is the cooler power, percent
	Power float64
}

// ExposureStatus is the state of the exposure engine while the caller waits
type ExposureStatus int

const (
	// StatusIdle waits on instructions
	StatusIdle ExposureStatus = iota

	// StatusExposing is integrating charge
	StatusExposing

	// StatusReading is shifting charge out of the CCD
	StatusReading

	// StatusReady has an image waiting to be read
	StatusReady

	// StatusError is in a fault state
	StatusError
)

func (s ExposureStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusExposing:
		return "exposing"
	case StatusReading:
		return "reading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ThermalManager describes a camera which can manage its thermal performance
type ThermalManager interface {
	// SetCooling sets the sensor temperature setpoint in Celcius and engages the cooler
	SetCooling(target float64) error

	// WarmUp asks the cooler to walk the sensor back to ambient
	WarmUp() error

	// CoolingStatus gets the status of the sensor cooling subsystem
	CoolingStatus() (CoolingStatus, error)

	// Temperature gets the current sensor temperature in Celcius
	Temperature() (float64, error)
}

// BodyThermometer is implemented by cameras with a second sensor on the camera body.
// It is optional; the pipeline introspects for it.
type BodyThermometer interface {
	// BodyTemperature gets the camera body temperature in Celcius
	BodyTemperature() (float64, error)
}

// ModeSetter describes the readout modes the pipeline toggles
type ModeSetter interface {
	// SetDarkMode keeps the shutter closed during exposures
	SetDarkMode(bool) error

	// SetEightBitMode switches to the fast 8-bit readout
	SetEightBitMode(bool) error

	// SetPreviewMode switches the camera in or out of its preview readout
	SetPreviewMode(bool) error

	// SetShutter opens (true) or closes (false) the shutter
	SetShutter(open bool) error
}

// PictureTaker describes the two exposure strategies
type PictureTaker interface {
	// ExposeShort exposes for d and reads aoi with binning bin into buf,
	// as one blocking call
	ExposeShort(d time.Duration, aoi AOI, bin Binning, buf []uint16) error

	// StartExposure starts an exposure of length d and returns the
	// delay the device will actually use
	StartExposure(d time.Duration) (time.Duration, error)

	// ExposureStatus polls the exposure engine
	ExposureStatus() (ExposureStatus, error)

	// AbortExposure aborts the exposure in flight, if any
	AbortExposure() error

	// ReadCCD reads aoi with binning bin into buf after a long exposure
	ReadCCD(aoi AOI, bin Binning, buf []uint16) error
}

// Device is a complete camera as used by the acquisition pipeline
type Device interface {
	ThermalManager
	ModeSetter
	PictureTaker

	// Open opens the device handle
	Open() error

	// Close releases the device handle
	Close() error

	// Name is the detector model
	Name() string

	// Capabilities queries the static description of the camera
	Capabilities() (Capabilities, error)
}
