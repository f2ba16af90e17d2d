package fitshdr

import (
	"fmt"
	"time"

	"github.jpl.nasa.gov/bdube/ccdcap/camera"
	"github.jpl.nasa.gov/bdube/ccdcap/exposure"
	"github.jpl.nasa.gov/bdube/ccdcap/imstat"
	"github.jpl.nasa.gov/bdube/ccdcap/site"
	"github.jpl.nasa.gov/bdube/ccdcap/temperature"
)

const (
	// DefaultInstrument is written to INSTRUME when the request names none
	DefaultInstrument = "direct imaging"

	// DefaultObjectType is the IMAGETYP of a light frame with no object type
	DefaultObjectType = "object"

	// BiasThreshold is the exposure, in seconds, below which a frame is a bias
	BiasThreshold = 2 * 2.220446049250313e-16

	// DataMin and DataMax bound the pixel values of every frame
	DataMin = 0
	DataMax = 65535
)

// Observatory names the organization and observatory in every header
type Observatory struct {
	Origin string `koanf:"Origin" yaml:"Origin"`
	Name   string `koanf:"Name" yaml:"Name"`
}

// DefaultObservatory is the observatory the instrument was built for
func DefaultObservatory() Observatory {
	return Observatory{
		Origin: "SAO RAS",
		Name:   "Special Astrophysical Observatory, Russia",
	}
}

// ImageType derives IMAGETYP from a request
func ImageType(r exposure.Request) string {
	switch {
	case r.Exposure.Seconds() < BiasThreshold:
		return "bias"
	case r.Dark:
		return "dark"
	case r.ObjType != "":
		return r.ObjType
	default:
		return DefaultObjectType
	}
}

// ViewField formats the visible sensor area as "(x0, y0)(x1, y1)"
func ViewField(caps camera.Capabilities) string {
	a := caps.FullFrame()
	return fmt.Sprintf("(%d, %d)(%d, %d)", a.Left, a.Top, a.Right(), a.Bottom())
}

// Frame is everything known about one frame when its header is assembled
type Frame struct {
	Plan     exposure.Plan
	Caps     camera.Capabilities
	Detector string
	Stats    imstat.Stats
	Result   exposure.Result

	// Saved is the creation time of the file
	Saved time.Time

	// Number is the 1-based index of the frame, Total the frames in the run
	Number, Total int

	// RunID identifies the run the frame belongs to
	RunID string
}

// Assembler builds headers for frames
type Assembler struct {
	Observatory Observatory

	// Site supplies the telescope block, may be nil
	Site site.Provider

	// Location is the local time zone, time.Local when nil
	Location *time.Location
}

func (a *Assembler) local(t time.Time) time.Time {
	if a.Location == nil {
		return t.Local()
	}
	return t.In(a.Location)
}

// Assemble builds the header of f
func (a *Assembler) Assemble(f Frame) *Header {
	h := New()
	r := f.Plan.Request
	obs := a.Observatory
	if obs == (Observatory{}) {
		obs = DefaultObservatory()
	}
	h.SetString("ORIGIN", obs.Origin, "organization responsible for the data")
	h.SetString("OBSERVAT", obs.Name, "Observatory name")
	h.SetString("DETECTOR", f.Detector, "Detector model")
	instr := r.Instrument
	if instr == "" {
		instr = DefaultInstrument
	}
	h.Set("INSTRUME", instr, "Instrument")
	h.Set("PXSIZE", fmt.Sprintf("%g x %g", f.Caps.PixelMicronsX, f.Caps.PixelMicronsY), "Pixel size in um")
	h.Set("XPIXSZ", f.Caps.PixelMicronsX, "Pixel width in um")
	h.Set("YPIXSZ", f.Caps.PixelMicronsY, "Pixel height in um")
	h.Set("VIEWFLD", ViewField(f.Caps), "Camera field of view")
	if x0 := f.Plan.AOI.Left; x0 != 0 {
		h.Set("X0", x0, "Subframe left border")
	}
	if y0 := f.Plan.AOI.Top; y0 != 0 {
		h.Set("Y0", y0, "Subframe upper border")
	}
	h.Set("IMAGETYP", ImageType(r), "Image type")
	h.Set("DATAMIN", DataMin, "Min pixel value")
	h.Set("DATAMAX", DataMax, "Max pixel value")
	h.Set("STATMAX", int(f.Stats.Max), "Max data value")
	h.Set("STATMIN", int(f.Stats.Min), "Min data value")
	h.Set("STATAVR", f.Stats.Mean, "Average data value")
	h.Set("STATSTD", f.Stats.Std, "Std. of data value")
	h.Set("STATSAT", f.Stats.Saturated, "Number of saturated pixels")

	res := f.Result
	if res.TempStart.OK {
		h.Set("TEMP0", res.TempStart.C, "Camera temperature at exp. start (degr C)")
	}
	if res.TempEnd.OK {
		h.Set("TEMP1", res.TempEnd.C, "Camera temperature at exp. end (degr C)")
	}
	if res.Body.OK {
		h.Set("TEMPBODY", res.Body.C, "Camera body temperature at exp. end (degr C)")
	}
	if k, ok := temperature.MeanKelvin(res.TempStart, res.TempEnd); ok {
		h.Set("CAMTEMP", float64(k), "Camera temperature (K)")
	}
	if r.SetsTemperature() {
		h.Set("SETTEMP", r.TargetTemp, "Cooler setpoint (degr C)")
	}
	h.Set("EXPTIME", res.Exposure.Seconds(), "actual exposition time (sec)")

	h.Set("DATE", f.Saved.UTC().Format("2006-01-02T15:04:05"), "Creation date (YYYY-MM-DDThh:mm:ss, UTC)")
	start := a.local(res.Start)
	h.Set("UNIXTIME", float64(res.Start.Unix())+float64(res.Start.Nanosecond())/1e9,
		"exp. starts at "+start.Format("02/01/2006, 15:04:05")+" (local)")
	h.Set("DATE-OBS", start.Format("2006/01/02"), "DATE OF OBS. (YYYY/MM/DD, local)")
	h.Set("START", start.Format("15:04:05"), "Measurement start time (hh:mm:ss, local)")

	h.SetString("OBJECT", r.ObjName, "Object name")
	if !f.Plan.Bin.Unity() {
		h.Set("BINNING", f.Plan.Bin.String(), "Binning (hbin x vbin)")
	}
	h.SetString("OBSERVER", r.Observers, "Observers")
	h.SetString("PROG-ID", r.ProgID, "Observation program identifier")
	h.SetString("AUTHOR", r.Author, "Author of the program")
	if f.Number > 0 {
		h.Set("FRAMENO", f.Number, "Frame number in the series")
		h.Set("NFRAMES", f.Total, "Frames in the series")
	}
	h.SetString("RUNID", f.RunID, "Acquisition run identifier")

	if a.Site != nil && a.Site.Attach() && a.Site.Check() {
		SiteCards(h, a.Site.Snapshot())
	}
	return h
}
