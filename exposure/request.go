package exposure

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.jpl.nasa.gov/bdube/ccdcap/camera"
)

const (
	// FullSensor is the sub-frame sentinel meaning "use the sensor edge"
	FullSensor = -1

	// NoTemperature is the cooling target sentinel meaning "do not set"
	NoTemperature = 1e6
)

var (
	// ErrConfig is generated for requests the camera cannot honor.  It is fatal.
	ErrConfig = errors.New("invalid acquisition configuration")

	// ErrStart is generated when the camera could not start an exposure
	ErrStart = errors.New("exposure start failed")

	// ErrRead is generated when the pixel transfer after a long exposure failed
	ErrRead = errors.New("CCD readout failed")

	// ErrAborted is generated when the exposure was interrupted
	ErrAborted = errors.New("exposure aborted")
)

// Shutter is a shutter command applied once before the first frame
type Shutter int

const (
	// ShutterLeave does not touch the shutter
	ShutterLeave Shutter = iota

	// ShutterOpen opens the shutter
	ShutterOpen

	// ShutterClose closes the shutter
	ShutterClose
)

func (s Shutter) String() string {
	switch s {
	case ShutterOpen:
		return "open"
	case ShutterClose:
		return "close"
	default:
		return "leave"
	}
}

// ParseShutter converts "leave", "open" or "close" to a Shutter
func ParseShutter(s string) (Shutter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "leave":
		return ShutterLeave, nil
	case "open":
		return ShutterOpen, nil
	case "close", "closed":
		return ShutterClose, nil
	default:
		return ShutterLeave, fmt.Errorf("%w: shutter command %q not understood", ErrConfig, s)
	}
}

// Request holds the parameters of a run.  It is not modified once the run starts.
type Request struct {
	// Exposure is the requested exposure time
	Exposure time.Duration

	// Frames is the number of frames to take
	Frames int

	// Pause is the pause between frames
	Pause time.Duration

	// HBin, VBin are the binning factors
	HBin, VBin int

	// X0, Y0, X1, Y1 is the sub-frame in unbinned sensor pixels; FullSensor means the sensor edge
	X0, Y0, X1, Y1 int

	// Dark keeps the shutter closed during exposures
	Dark bool

	// Fast uses the 8-bit readout
	Fast bool

	// Preview uses the preview readout
	Preview bool

	// Warmup asks the cooler to warm the CCD up when the run ends
	Warmup bool

	// TargetTemp is the cooling setpoint in Celcius, NoTemperature to leave the cooler alone
	TargetTemp float64

	// Shutter is applied once before the first frame
	Shutter Shutter

	// identity of the observation, each optional
	ObjName, ObjType, Instrument, Observers, ProgID, Author string

	// Prefix is the output path prefix
	Prefix string

	// Overwrite replaces existing files instead of probing for free names
	Overwrite bool
}

// DefaultRequest returns a request for a single full-frame, unbinned image
func DefaultRequest() Request {
	return Request{
		Frames:     1,
		HBin:       1,
		VBin:       1,
		X0:         FullSensor,
		Y0:         FullSensor,
		X1:         FullSensor,
		Y1:         FullSensor,
		TargetTemp: NoTemperature,
		Prefix:     "ccd_out",
	}
}

// SetsTemperature is true if a cooling target was requested
func (r Request) SetsTemperature() bool {
	return r.TargetTemp < NoTemperature
}

// Binning returns the requested binning
func (r Request) Binning() camera.Binning {
	return camera.Binning{H: r.HBin, V: r.VBin}
}

// Plan is a Request validated and clamped against a camera's capabilities
type Plan struct {
	Request

	// AOI is the sub-frame in sensor pixels
	AOI camera.AOI

	// Bin is the binning
	Bin camera.Binning

	// Width and Height are the dimensions of the binned frame
	Width, Height int

	// Exposure is the exposure time after clamping to the camera minimum
	Exposure time.Duration

	// Long is true if the exposure is timed by the caller
	Long bool
}

// Pixels is the number of samples in a frame
func (p Plan) Pixels() int {
	return p.Width * p.Height
}

// Validate checks r against caps and resolves the sentinels.  Every error
// it returns wraps ErrConfig.
func (r Request) Validate(caps camera.Capabilities) (Plan, error) {
	p := Plan{Request: r}
	if r.Frames < 1 {
		return p, fmt.Errorf("%w: frame count %d must be positive", ErrConfig, r.Frames)
	}
	if r.Exposure < 0 {
		return p, fmt.Errorf("%w: negative exposure time %v", ErrConfig, r.Exposure)
	}
	if r.Pause < 0 {
		p.Pause = 0
	}
	if r.HBin < 1 || r.HBin > caps.MaxBinX || r.VBin < 1 || r.VBin > caps.MaxBinY {
		return p, fmt.Errorf("%w: binning %d x %d outside 1..%d x 1..%d",
			ErrConfig, r.HBin, r.VBin, caps.MaxBinX, caps.MaxBinY)
	}
	p.Bin = r.Binning()

	x0, y0, x1, y1 := r.X0, r.Y0, r.X1, r.Y1
	if x0 == FullSensor {
		x0 = 0
	}
	if y0 == FullSensor {
		y0 = 0
	}
	if x1 == FullSensor || x1 > caps.PixelsX {
		x1 = caps.PixelsX
	}
	if y1 == FullSensor || y1 > caps.PixelsY {
		y1 = caps.PixelsY
	}
	if x0 < 0 || y0 < 0 {
		return p, fmt.Errorf("%w: sub-frame origin (%d, %d) is negative", ErrConfig, x0, y0)
	}
	if x1 <= x0 || y1 <= y0 {
		return p, fmt.Errorf("%w: sub-frame (%d, %d)(%d, %d) is empty or inverted", ErrConfig, x0, y0, x1, y1)
	}
	p.AOI = camera.AOI{Left: x0, Top: y0, Width: x1 - x0, Height: y1 - y0}
	p.Width, p.Height = p.Bin.Frame(p.AOI)
	if p.Width < 1 || p.Height < 1 {
		return p, fmt.Errorf("%w: sub-frame %dx%d is smaller than the binning %v",
			ErrConfig, p.AOI.Width, p.AOI.Height, p.Bin)
	}

	p.Exposure = r.Exposure
	if p.Exposure < caps.MinShortExposure {
		p.Exposure = caps.MinShortExposure
	}
	if p.Exposure >= caps.MaxShortExposure {
		if !caps.LongExposure {
			return p, fmt.Errorf("%w: exposure %v needs long exposures, which the camera lacks (max %v)",
				ErrConfig, p.Exposure, caps.MaxShortExposure)
		}
		p.Long = true
	}
	return p, nil
}
