/*Package acquire runs an acquisition session: a series of exposures on one
camera, each persisted in every configured format.

A Session opens the camera, validates the request against the camera's
capabilities, prepares the cooler and readout modes, then loops over the
frames with an optional pause between them.  Device start and read failures
end the run; failures to allocate or write a file are warnings and the run
continues.  The camera is closed exactly once however the run ends.
*/
package acquire

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.jpl.nasa.gov/bdube/ccdcap/camera"
	"github.jpl.nasa.gov/bdube/ccdcap/exposure"
	"github.jpl.nasa.gov/bdube/ccdcap/fitshdr"
	"github.jpl.nasa.gov/bdube/ccdcap/frameio"
	"github.jpl.nasa.gov/bdube/ccdcap/imgrec"
	"github.jpl.nasa.gov/bdube/ccdcap/imstat"
)

// Session is a single acquisition run
type Session struct {
	// Camera is the device, not yet opened
	Camera camera.Device

	// Request holds the run parameters
	Request exposure.Request

	// Sinks are the output formats, FITS only when empty
	Sinks []frameio.Sink

	// Assembler builds the header of every frame
	Assembler fitshdr.Assembler

	// RunID identifies the run in the headers, a random UUID when empty
	RunID string

	// Now is the clock, time.Now when nil
	Now func() time.Time

	// Sleep is the context-aware sleep, exposure.Sleep when nil
	Sleep func(context.Context, time.Duration) error

	// Exists overrides the filename allocator's existence probe
	Exists func(path string) bool

	// Logf receives status messages, log.Printf when nil
	Logf func(format string, args ...interface{})

	// Progress receives exposure and pause countdowns, may be nil
	Progress func(exposure.Progress)
}

// Summary describes a finished or interrupted run
type Summary struct {
	RunID string

	// Frames is the number of frames exposed and handed to the sinks
	Frames int

	// Files are the paths written
	Files []string

	// Warnings are the non-fatal failures, in order
	Warnings []error
}

func (s *Session) logf(format string, args ...interface{}) {
	if s.Logf == nil {
		log.Printf(format, args...)
		return
	}
	s.Logf(format, args...)
}

func (s *Session) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Session) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Sleep == nil {
		return exposure.Sleep(ctx, d)
	}
	return s.Sleep(ctx, d)
}

func (s *Session) warn(sum *Summary, err error) {
	sum.Warnings = append(sum.Warnings, err)
	s.logf("warning: %v", err)
}

// Run executes the session.  Cancelling ctx aborts the exposure in flight,
// nothing is written for it, and the returned error wraps exposure.ErrAborted.
func (s *Session) Run(ctx context.Context) (sum Summary, err error) {
	cam := s.Camera
	req := s.Request
	sum.RunID = s.RunID
	if sum.RunID == "" {
		sum.RunID = uuid.NewString()
	}
	if err = cam.Open(); err != nil {
		return sum, fmt.Errorf("opening camera: %w", err)
	}
	defer func() {
		if req.Warmup {
			if werr := cam.WarmUp(); werr != nil {
				s.warn(&sum, fmt.Errorf("warm up: %w", werr))
			} else {
				s.logf("cooler warming up")
			}
		}
		if cerr := cam.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing camera: %w", cerr)
		}
	}()

	caps, err := cam.Capabilities()
	if err != nil {
		return sum, fmt.Errorf("querying camera capabilities: %w", err)
	}
	s.logf("camera %s, %dx%d pixels of %g x %g um, field of view %s",
		cam.Name(), caps.PixelsX, caps.PixelsY, caps.PixelMicronsX, caps.PixelMicronsY, fitshdr.ViewField(caps))
	s.logf("max binning %d x %d, short exposures %v to %v, long exposures %v",
		caps.MaxBinX, caps.MaxBinY, caps.MinShortExposure, caps.MaxShortExposure, caps.LongExposure)
	if caps.Colour {
		s.logf("colour camera, frames are saved as raw Bayer data")
	}
	plan, err := req.Validate(caps)
	if err != nil {
		return sum, err
	}
	s.prepare(&sum, caps)
	if a, ok := s.Assembler.Site.(interface{ AttachContext(context.Context) bool }); ok && !a.AttachContext(ctx) {
		s.logf("site data block not available, headers carry no telescope data")
	}

	sinks := s.Sinks
	if len(sinks) == 0 {
		sinks = []frameio.Sink{frameio.FITS{}}
	}
	alloc := imgrec.Allocator{Prefix: req.Prefix, Overwrite: req.Overwrite, Frames: plan.Frames, Exists: s.Exists}
	sched := exposure.Scheduler{Cam: cam, Plan: plan, Now: s.Now, Sleep: s.Sleep, Progress: s.Progress}
	buf := make([]uint16, plan.Pixels())
	for i := 1; i <= plan.Frames; i++ {
		if cerr := ctx.Err(); cerr != nil {
			return sum, fmt.Errorf("%w: %v", exposure.ErrAborted, cerr)
		}
		s.logf("frame %d of %d, %v exposure", i, plan.Frames, plan.Exposure)
		res, err := sched.Expose(ctx, i, buf)
		if err != nil {
			return sum, fmt.Errorf("frame %d: %w", i, err)
		}
		stats := imstat.Compute(buf[:plan.Pixels()])
		s.logf("frame %d: %v", i, stats)
		hdr := s.Assembler.Assemble(fitshdr.Frame{
			Plan:     plan,
			Caps:     caps,
			Detector: cam.Name(),
			Stats:    stats,
			Result:   res,
			Saved:    s.now(),
			Number:   i,
			Total:    plan.Frames,
			RunID:    sum.RunID,
		})
		frame := frameio.Frame{Width: plan.Width, Height: plan.Height, Pix: buf}
		for _, sink := range sinks {
			path, err := alloc.Allocate(sink.Ext(), i)
			if err != nil {
				s.warn(&sum, err)
				continue
			}
			if err := sink.Write(path, frame, hdr, alloc.Force()); err != nil {
				s.warn(&sum, fmt.Errorf("writing %s: %w", path, err))
				continue
			}
			sum.Files = append(sum.Files, path)
			s.logf("wrote %s", path)
		}
		sum.Frames++
		if i < plan.Frames && plan.Pause > 0 {
			if err := s.pause(ctx, i, plan.Pause); err != nil {
				return sum, fmt.Errorf("%w: %v", exposure.ErrAborted, err)
			}
		}
	}
	return sum, nil
}

// prepare reports the cooler and applies the cooling target and readout modes.
// Every failure is a warning.
func (s *Session) prepare(sum *Summary, caps camera.Capabilities) {
	cam, req := s.Camera, s.Request
	if st, err := cam.CoolingStatus(); err == nil {
		s.logf("cooler %v, target %.1f C, power %.0f%%", st.State, st.Target, st.Power)
	}
	s.logf("CCD temperature %v C", exposure.ReadTemperature(cam))
	if body := exposure.ReadBodyTemperature(cam); body.OK {
		s.logf("body temperature %v C", body)
	}
	try := func(what string, err error) {
		if err != nil {
			s.warn(sum, fmt.Errorf("%s: %w", what, err))
		}
	}
	if req.SetsTemperature() {
		try("set cooling target", cam.SetCooling(req.TargetTemp))
	}
	if req.Dark {
		try("dark mode", cam.SetDarkMode(true))
	}
	if req.Fast {
		if !caps.EightBit {
			try("8-bit readout", camera.ErrNotSupported)
		} else {
			try("8-bit readout", cam.SetEightBitMode(true))
		}
	}
	if req.Preview {
		try("preview mode", cam.SetPreviewMode(true))
	}
	if req.Shutter != exposure.ShutterLeave {
		if !caps.Shutter {
			try("shutter", camera.ErrNotSupported)
		} else {
			try("shutter "+req.Shutter.String(), cam.SetShutter(req.Shutter == exposure.ShutterOpen))
		}
	}
}

// pause waits d in steps of at most exposure.PollInterval, polling the sensor temperature
func (s *Session) pause(ctx context.Context, frame int, d time.Duration) error {
	deadline := s.now().Add(d)
	for {
		remaining := deadline.Sub(s.now())
		if remaining <= 0 {
			return nil
		}
		temp := exposure.ReadTemperature(s.Camera)
		if s.Progress != nil {
			s.Progress(exposure.Progress{Phase: exposure.PhasePause, Frame: frame, Remaining: remaining, Temp: temp})
		}
		step := remaining
		if step > exposure.PollInterval {
			step = exposure.PollInterval
		}
		if err := s.sleep(ctx, step); err != nil {
			return err
		}
	}
}

// IsAbort is true if err ends a run because it was cancelled
func IsAbort(err error) bool {
	return errors.Is(err, exposure.ErrAborted)
}
