package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	"github.jpl.nasa.gov/bdube/ccdcap/exposure"
	"github.jpl.nasa.gov/bdube/ccdcap/fitshdr"
	"github.jpl.nasa.gov/bdube/ccdcap/site"
)

type siteConfig struct {
	// Path is the shared data block; empty disables the telescope block
	Path string `koanf:"Path" yaml:"Path"`

	// AttachTimeout is how long to wait for the block to appear, seconds
	AttachTimeout float64 `koanf:"AttachTimeout" yaml:"AttachTimeout"`

	Site site.Site `koanf:"Site" yaml:"Site"`
}

type config struct {
	Driver      string              `koanf:"Driver" yaml:"Driver"`
	Camera      string              `koanf:"Camera" yaml:"Camera"`
	Exposure    float64             `koanf:"Exposure" yaml:"Exposure"`
	Frames      int                 `koanf:"Frames" yaml:"Frames"`
	Pause       float64             `koanf:"Pause" yaml:"Pause"`
	HBin        int                 `koanf:"HBin" yaml:"HBin"`
	VBin        int                 `koanf:"VBin" yaml:"VBin"`
	X0          int                 `koanf:"X0" yaml:"X0"`
	Y0          int                 `koanf:"Y0" yaml:"Y0"`
	X1          int                 `koanf:"X1" yaml:"X1"`
	Y1          int                 `koanf:"Y1" yaml:"Y1"`
	Dark        bool                `koanf:"Dark" yaml:"Dark"`
	Fast        bool                `koanf:"Fast" yaml:"Fast"`
	Preview     bool                `koanf:"Preview" yaml:"Preview"`
	Temperature float64             `koanf:"Temperature" yaml:"Temperature"`
	Warmup      bool                `koanf:"Warmup" yaml:"Warmup"`
	Shutter     string              `koanf:"Shutter" yaml:"Shutter"`
	Object      string              `koanf:"Object" yaml:"Object"`
	ObjType     string              `koanf:"ObjType" yaml:"ObjType"`
	Instrument  string              `koanf:"Instrument" yaml:"Instrument"`
	Observers   string              `koanf:"Observers" yaml:"Observers"`
	ProgID      string              `koanf:"ProgID" yaml:"ProgID"`
	Author      string              `koanf:"Author" yaml:"Author"`
	Prefix      string              `koanf:"Prefix" yaml:"Prefix"`
	Overwrite   bool                `koanf:"Overwrite" yaml:"Overwrite"`
	Formats     []string            `koanf:"Formats" yaml:"Formats"`
	Spinner     string              `koanf:"Spinner" yaml:"Spinner"`
	Observatory fitshdr.Observatory `koanf:"Observatory" yaml:"Observatory"`
	Site        siteConfig          `koanf:"Site" yaml:"Site"`
}

func defaults() config {
	return config{
		Driver:      "sim",
		Frames:      1,
		HBin:        1,
		VBin:        1,
		X0:          exposure.FullSensor,
		Y0:          exposure.FullSensor,
		X1:          exposure.FullSensor,
		Y1:          exposure.FullSensor,
		Temperature: exposure.NoTemperature,
		Shutter:     exposure.ShutterLeave.String(),
		ObjType:     fitshdr.DefaultObjectType,
		Instrument:  fitshdr.DefaultInstrument,
		Prefix:      "ccd_out",
		Formats:     []string{"fit"},
		Spinner:     "auto",
		Observatory: fitshdr.DefaultObservatory(),
		Site: siteConfig{
			AttachTimeout: 3,
			Site: site.Site{
				Telescope: "BTA 6m telescope",
				Latitude:  43.6535278,
				Longitude: 41.44143375,
				Altitude:  2070,
			}},
	}
}

// loadConfig layers the defaults, the config file and the explicitly set flags
func loadConfig(k *koanf.Koanf, path string, flags map[string]interface{}) error {
	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return err
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			return fmt.Errorf("error loading config: %w", err)
		}
	}
	if len(flags) > 0 {
		return k.Load(confmap.Provider(flags, "."), nil)
	}
	return nil
}

// runFlags defines the command line of run.  Each flag maps to the config key in its name table.
type runFlags struct {
	fs   *flag.FlagSet
	keys map[string]string
}

func newRunFlags() *runFlags {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	r := &runFlags{fs: fs, keys: map[string]string{}}
	str := func(name, key, usage string) { fs.String(name, "", usage); r.keys[name] = key }
	num := func(name, key, usage string) { fs.Float64(name, 0, usage); r.keys[name] = key }
	integer := func(name, key, usage string) { fs.Int(name, 0, usage); r.keys[name] = key }
	boolean := func(name, key, usage string) { fs.Bool(name, false, usage); r.keys[name] = key }

	str("camname", "Camera", "camera device name")
	str("driver", "Driver", "camera driver")
	num("exptime", "Exposure", "exposure time, seconds")
	integer("nframes", "Frames", "make a series of N frames")
	num("pause", "Pause", "pause between exposures, seconds")
	integer("hbin", "HBin", "horizontal binning")
	integer("vbin", "VBin", "vertical binning")
	integer("X0", "X0", "frame X0 coordinate")
	integer("Y0", "Y0", "frame Y0 coordinate")
	integer("X1", "X1", "frame X1 coordinate")
	integer("Y1", "Y1", "frame Y1 coordinate")
	boolean("dark", "Dark", "keep the shutter closed while exposing")
	boolean("fast", "Fast", "fast (8-bit) readout")
	boolean("preview", "Preview", "preview readout")
	num("set-temp", "Temperature", "cool the CCD to this temperature, C")
	boolean("warmup", "Warmup", "warm the CCD up when done")
	boolean("force", "Overwrite", "overwrite output files")
	str("shutter", "Shutter", "shutter command: leave, open or close")
	str("object", "Object", "object name")
	str("objtype", "ObjType", "object type (neon, object, flat etc)")
	str("instrument", "Instrument", "instrument name")
	str("obsname", "Observers", "observers' names")
	str("prog-id", "ProgID", "observing program name")
	str("author", "Author", "program author")
	str("format", "Formats", "comma separated output formats: fit, raw, png")
	str("site", "Site.Path", "telescope shared data block")
	str("spinner", "Spinner", "progress spinner: auto, on or off")
	return r
}

// parse parses args and returns the explicitly set flags keyed by config key.
// A positional argument is the output prefix.
func (r *runFlags) parse(args []string) (map[string]interface{}, error) {
	if err := r.fs.Parse(args); err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	r.fs.Visit(func(f *flag.Flag) {
		key := r.keys[f.Name]
		v := f.Value.(flag.Getter).Get()
		if key == "Formats" {
			v = strings.Split(f.Value.String(), ",")
		}
		out[key] = v
	})
	if r.fs.NArg() > 0 {
		out["Prefix"] = r.fs.Arg(0)
	}
	return out, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// request converts the config to an exposure request
func (c config) request() (exposure.Request, error) {
	sh, err := exposure.ParseShutter(c.Shutter)
	if err != nil {
		return exposure.Request{}, err
	}
	return exposure.Request{
		Exposure:   seconds(c.Exposure),
		Frames:     c.Frames,
		Pause:      seconds(c.Pause),
		HBin:       c.HBin,
		VBin:       c.VBin,
		X0:         c.X0,
		Y0:         c.Y0,
		X1:         c.X1,
		Y1:         c.Y1,
		Dark:       c.Dark,
		Fast:       c.Fast,
		Preview:    c.Preview,
		Warmup:     c.Warmup,
		TargetTemp: c.Temperature,
		Shutter:    sh,
		ObjName:    c.Object,
		ObjType:    c.ObjType,
		Instrument: c.Instrument,
		Observers:  c.Observers,
		ProgID:     c.ProgID,
		Author:     c.Author,
		Prefix:     c.Prefix,
		Overwrite:  c.Overwrite,
	}, nil
}
