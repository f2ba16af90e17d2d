package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/knadh/koanf"
	"github.com/maruel/interrupt"
	"github.com/mattn/go-isatty"
	"github.com/theckman/yacspin"

	yml "gopkg.in/yaml.v2"

	"github.jpl.nasa.gov/bdube/ccdcap/acquire"
	"github.jpl.nasa.gov/bdube/ccdcap/camera"
	"github.jpl.nasa.gov/bdube/ccdcap/camera/sim"
	"github.jpl.nasa.gov/bdube/ccdcap/exposure"
	"github.jpl.nasa.gov/bdube/ccdcap/fitshdr"
	"github.jpl.nasa.gov/bdube/ccdcap/frameio"
	"github.jpl.nasa.gov/bdube/ccdcap/site"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "ccdcap.yml"
	k              = koanf.New(".")
)

func root() {
	str := `ccdcap takes series of exposures with a cooled CCD camera
and saves them as FITS files, optionally also as raw dumps and 16-bit PNGs.

Usage:
	ccdcap <command>

Commands:
	run [flags] [prefix]
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `ccdcap is amenable to configuration via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used.  Keys are case-sensitive,
spell them as mkconf writes them.
The command mkconf generates the configuration file with the default values.
Flags given to run override the configuration file, see ccdcap run -h.

Files are named prefix_0001.fit, prefix_0002.fit, ... skipping names which already
exist.  With Overwrite (-force) a single frame is saved as prefix.fit and a series as
prefix_NNNN.fit, replacing existing files.

An exposure of 0 seconds is a bias frame.  Exposures at or above the longest the camera
can time by itself are timed by ccdcap, with a status line every 10 seconds.

Temperature 1e6 leaves the cooler alone.  X0, Y0, X1, Y1 of -1 use the sensor edge.

When Site.Path names a telescope shared data block, the telescope pointing and
weather are added to every header while the block is readable and valid.

An interrupt aborts the exposure in progress, closes the camera, and exits with
the number of the signal.  A second interrupt kills ccdcap at once.`
	fmt.Println(str)
}

func mkconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	err = yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("ccdcap version %v\n", Version)
}

func openCamera(cfg config) (camera.Device, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sim":
		if _, err := camera.Select(sim.List(), cfg.Camera); err != nil {
			return nil, err
		}
		return sim.New(), nil
	default:
		return nil, fmt.Errorf("unknown camera driver %q", cfg.Driver)
	}
}

// progressMessage renders a countdown line
func progressMessage(p exposure.Progress) string {
	secs := int(math.Ceil(p.Remaining.Seconds()))
	switch p.Phase {
	case exposure.PhaseExposing:
		return fmt.Sprintf("frame %d: %d seconds till exposition ends, T = %v C, camera %v", p.Frame, secs, p.Temp, p.Status)
	case exposure.PhaseReading:
		return fmt.Sprintf("frame %d: reading CCD", p.Frame)
	case exposure.PhasePause:
		return fmt.Sprintf("%d seconds till pause ends, T = %v C", secs, p.Temp)
	default:
		return ""
	}
}

func useSpinner(mode string) bool {
	switch strings.ToLower(mode) {
	case "on", "true", "yes":
		return true
	case "off", "false", "no":
		return false
	default:
		return isatty.IsTerminal(os.Stdout.Fd())
	}
}

// watchSignals cancels the returned context on the first termination signal,
// recording its number.  Later signals get the default behaviour
func watchSignals() (context.Context, *int32) {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	return relayFirst(sigc, func() { signal.Stop(sigc) })
}

// relayFirst waits for one signal on sigc, calls stop and raises the interrupt
func relayFirst(sigc <-chan os.Signal, stop func()) (context.Context, *int32) {
	var signo int32
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		s := <-sigc
		stop()
		if n, ok := s.(syscall.Signal); ok {
			atomic.StoreInt32(&signo, int32(n))
		}
		log.Printf("caught %v, aborting", s)
		interrupt.Set()
	}()
	go func() {
		<-interrupt.Channel
		cancel()
	}()
	return ctx, &signo
}

func run(args []string) {
	fl := newRunFlags()
	flags, err := fl.parse(args)
	if err != nil {
		os.Exit(2)
	}
	if err := loadConfig(k, ConfigFileName, flags); err != nil {
		log.Fatal(err)
	}
	cfg := config{}
	if err := k.Unmarshal("", &cfg); err != nil {
		log.Fatal(err)
	}
	req, err := cfg.request()
	if err != nil {
		log.Fatal(err)
	}
	sinks, err := frameio.ParseSinks(cfg.Formats)
	if err != nil {
		log.Fatal(err)
	}
	cam, err := openCamera(cfg)
	if err != nil {
		log.Fatal(err)
	}

	sess := &acquire.Session{
		Camera:    cam,
		Request:   req,
		Sinks:     sinks,
		Assembler: fitshdr.Assembler{Observatory: cfg.Observatory},
		Logf:      log.Printf,
		Progress:  func(p exposure.Progress) { log.Println(progressMessage(p)) },
	}
	if cfg.Site.Path != "" {
		sess.Assembler.Site = &site.Block{
			Path:          cfg.Site.Path,
			Site:          cfg.Site.Site,
			AttachTimeout: seconds(cfg.Site.AttachTimeout),
		}
	}
	stopSpinner := func() {}
	if useSpinner(cfg.Spinner) {
		spinner, err := yacspin.New(yacspin.Config{
			Frequency:         250 * time.Millisecond,
			CharSet:           yacspin.CharSets[14],
			Suffix:            " ",
			StopCharacter:     "✓",
			StopFailCharacter: "✗",
		})
		if err == nil && spinner.Start() == nil {
			sess.Progress = func(p exposure.Progress) { spinner.Message(progressMessage(p)) }
			stopSpinner = func() { spinner.Stop() }
		}
	}

	ctx, signo := watchSignals()
	sum, err := sess.Run(ctx)
	stopSpinner()
	for _, f := range sum.Files {
		log.Println("saved", f)
	}
	if n := len(sum.Warnings); n > 0 {
		log.Printf("%d warnings during the run", n)
	}
	if err != nil {
		if acquire.IsAbort(err) {
			if n := atomic.LoadInt32(signo); n != 0 {
				log.Println(err)
				os.Exit(int(n))
			}
		}
		log.Fatal(err)
	}
	log.Printf("run %s done, %d frames", sum.RunID, sum.Frames)
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		if err := loadConfig(k, ConfigFileName, nil); err != nil {
			log.Fatal(err)
		}
		mkconf()
		return
	case "conf":
		if err := loadConfig(k, ConfigFileName, nil); err != nil {
			log.Fatal(err)
		}
		printconf()
		return
	case "run":
		run(args[2:])
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
