package exposure

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.jpl.nasa.gov/bdube/ccdcap/camera"
	"github.jpl.nasa.gov/bdube/ccdcap/temperature"
)

// PollInterval is the longest sleep taken while waiting on a long exposure
const PollInterval = 10 * time.Second

// Reading is a temperature sample
type Reading = temperature.Reading

// ReadTemperature samples the sensor temperature of t
func ReadTemperature(t camera.ThermalManager) Reading {
	return temperature.Read(t.Temperature)
}

// ReadBodyTemperature samples the body temperature of v if it has a body sensor
func ReadBodyTemperature(v interface{}) Reading {
	b, ok := v.(camera.BodyThermometer)
	if !ok {
		return Reading{}
	}
	return temperature.Read(b.BodyTemperature)
}

// Phase identifies the wait a Progress report comes from
type Phase int

const (
	// PhaseExposing is the long exposure wait
	PhaseExposing Phase = iota

	// PhaseReading is the readout after a long exposure
	PhaseReading

	// PhasePause is the pause between frames
	PhasePause
)

func (p Phase) String() string {
	switch p {
	case PhaseExposing:
		return "exposing"
	case PhaseReading:
		return "reading"
	case PhasePause:
		return "pause"
	default:
		return "unknown"
	}
}

// Progress is reported at every poll of a wait
type Progress struct {
	Phase     Phase
	Frame     int
	Remaining time.Duration
	Temp      Reading
	Status    camera.ExposureStatus
}

// Result describes one completed exposure
type Result struct {
	// Start is the wall clock time the exposure started
	Start time.Time

	// Exposure is the exposure the device actually performed
	Exposure time.Duration

	// TempStart and TempEnd are the sensor temperature before and after
	TempStart, TempEnd Reading

	// Body is the body temperature after the exposure
	Body Reading

	// Long is true if the exposure took the caller-timed path
	Long bool
}

// Sleep blocks for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// WaitStep is the length of the next sleep with remaining left to wait:
// PollInterval while more than that remains, then the remainder rounded up
// to whole seconds.
func WaitStep(remaining time.Duration) time.Duration {
	if remaining > PollInterval {
		return PollInterval
	}
	return time.Duration(math.Ceil(remaining.Seconds())) * time.Second
}

// Scheduler takes single exposures on a camera according to a Plan
type Scheduler struct {
	// Cam is the open camera
	Cam camera.Device

	// Plan is the validated request
	Plan Plan

	// Now is the clock, time.Now when nil
	Now func() time.Time

	// Sleep is the context-aware sleep, exposure.Sleep when nil
	Sleep func(context.Context, time.Duration) error

	// Progress receives wait reports, may be nil
	Progress func(Progress)
}

func (s *Scheduler) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Sleep == nil {
		return Sleep(ctx, d)
	}
	return s.Sleep(ctx, d)
}

func (s *Scheduler) report(p Progress) {
	if s.Progress != nil {
		s.Progress(p)
	}
}

// Expose takes frame number frame into buf, which must hold Plan.Pixels samples.
// Cancelling ctx during a long exposure aborts it on the camera and returns
// ErrAborted; buf then holds no valid frame.
func (s *Scheduler) Expose(ctx context.Context, frame int, buf []uint16) (Result, error) {
	if len(buf) < s.Plan.Pixels() {
		return Result{}, fmt.Errorf("%w: frame buffer holds %d pixels, need %d",
			ErrConfig, len(buf), s.Plan.Pixels())
	}
	if s.Plan.Long {
		return s.exposeLong(ctx, frame, buf)
	}
	return s.exposeShort(ctx, buf)
}

func (s *Scheduler) exposeShort(ctx context.Context, buf []uint16) (Result, error) {
	p := s.Plan
	res := Result{TempStart: ReadTemperature(s.Cam)}
	res.Start = s.now()
	if err := s.Cam.ExposeShort(p.Exposure, p.AOI, p.Bin, buf); err != nil {
		return res, fmt.Errorf("%w: %v", ErrStart, err)
	}
	res.Exposure = p.Exposure
	res.TempEnd = ReadTemperature(s.Cam)
	res.Body = ReadBodyTemperature(s.Cam)
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("%w: %v", ErrAborted, err)
	}
	return res, nil
}

func (s *Scheduler) exposeLong(ctx context.Context, frame int, buf []uint16) (Result, error) {
	p := s.Plan
	res := Result{Long: true, TempStart: ReadTemperature(s.Cam)}
	wait, err := s.Cam.StartExposure(p.Exposure)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrStart, err)
	}
	res.Start = s.now()
	res.Exposure = wait
	for {
		temp := ReadTemperature(s.Cam)
		status, err := s.Cam.ExposureStatus()
		if err != nil {
			status = camera.StatusError
		}
		res.TempEnd = temp
		elapsed := s.now().Sub(res.Start)
		if elapsed >= wait {
			break
		}
		remaining := wait - elapsed
		s.report(Progress{Phase: PhaseExposing, Frame: frame, Remaining: remaining, Temp: temp, Status: status})
		if err := s.sleep(ctx, WaitStep(remaining)); err != nil {
			s.Cam.AbortExposure()
			return res, fmt.Errorf("%w: %v", ErrAborted, err)
		}
	}
	if err := ctx.Err(); err != nil {
		s.Cam.AbortExposure()
		return res, fmt.Errorf("%w: %v", ErrAborted, err)
	}
	s.report(Progress{Phase: PhaseReading, Frame: frame, Temp: res.TempEnd, Status: camera.StatusReading})
	if err := s.Cam.ReadCCD(p.AOI, p.Bin, buf); err != nil {
		return res, fmt.Errorf("%w: %v", ErrRead, err)
	}
	res.Body = ReadBodyTemperature(s.Cam)
	return res, nil
}
