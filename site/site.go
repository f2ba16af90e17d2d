/*Package site provides the optional telescope and observatory block that is
embedded in image headers at observatories which publish it.

The telescope control system periodically writes a small binary block (the
"shared data block") to a well known path, typically under /dev/shm.  The
block carries the pointing, the telescope focus and the dome weather
station readings, and is protected by a trailing CRC.  A reader attaches once,
then checks the block every frame; a block that is missing, short, of an
unknown version or with a bad CRC is simply not used for that frame.
*/
package site

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/snksoft/crc"
)

const (
	// Version is the layout version written by Encode
	Version = 1
)

var (
	// magic starts every block
	magic = [4]byte{'T', 'S', 'D', 'B'}

	// dataOrder is the byte order of the block
	dataOrder = binary.LittleEndian

	crcTable = crc.NewTable(crc.XMODEM)

	// ErrBadMagic is generated when the block does not start with the magic bytes
	ErrBadMagic = errors.New("site: not a shared data block")

	// ErrBadVersion is generated for a block layout this package does not know
	ErrBadVersion = errors.New("site: unknown block version")

	// ErrBadCRC is generated when the CRC does not match the payload
	ErrBadCRC = errors.New("site: block CRC mismatch")

	// ErrShortBlock is generated when the block is truncated
	ErrShortBlock = errors.New("site: block is too short")
)

// Focus is the focal station the telescope feeds
type Focus uint8

const (
	// Prime focus
	Prime Focus = iota

	// Nasmyth1 is the first Nasmyth platform
	Nasmyth1

	// Nasmyth2 is the second Nasmyth platform
	Nasmyth2
)

func (f Focus) String() string {
	switch f {
	case Nasmyth1:
		return "Nasmyth1"
	case Nasmyth2:
		return "Nasmyth2"
	default:
		return "Prime"
	}
}

// Site is the static description of the observatory
type Site struct {
	// Telescope is the telescope name
	Telescope string `koanf:"Telescope" yaml:"Telescope"`

	// Latitude and Longitude are in degrees, Altitude in meters
	Latitude  float64 `koanf:"Latitude" yaml:"Latitude"`
	Longitude float64 `koanf:"Longitude" yaml:"Longitude"`
	Altitude  float64 `koanf:"Altitude" yaml:"Altitude"`
}

// Snapshot is the content of one shared data block.
// Right ascensions and times are in seconds of time,
// declinations and other angles in seconds of arc.
type Snapshot struct {
	Site

	// Taken is when the snapshot was read
	Taken time.Time

	// SiderealTime and UniversalTime are seconds since midnight
	SiderealTime  float64
	UniversalTime float64
	JulianDate    float64

	Focus Focus

	// FocusValue is the focus position in mm
	FocusValue float64

	// CurAlpha, CurDelta are the current object coordinates
	CurAlpha, CurDelta float64

	// SrcAlpha, SrcDelta are the source coordinates
	SrcAlpha, SrcDelta float64

	// TelAlpha, TelDelta are the telescope coordinates
	TelAlpha, TelDelta float64

	// Azimuth, Zenith and ParAngle are the current object A, Z and parallactic angle
	Azimuth, Zenith, ParAngle float64

	// ValA, ValZ, ValP are the telescope A, Z and P2 encoder values
	ValA, ValZ, ValP float64

	// DiffA, DiffZ, DiffP are the tracking differences
	DiffA, DiffZ, DiffP float64

	// DomeA is the dome azimuth
	DomeA float64

	// OutTemp, DomeTemp, MirrorTemp are in Celcius
	OutTemp, DomeTemp, MirrorTemp float64

	// Pressure is in mmHg, Wind in m/s, Humidity in percent
	Pressure, Wind, Humidity float64
}

// wire is the fixed layout of a block, without its CRC
type wire struct {
	Magic   [4]byte
	Version uint16
	Focus   uint8
	_       uint8

	SiderealTime, UniversalTime, JulianDate float64
	FocusValue                              float64
	CurAlpha, CurDelta                      float64
	SrcAlpha, SrcDelta                      float64
	TelAlpha, TelDelta                      float64
	Azimuth, Zenith, ParAngle               float64
	ValA, ValZ, ValP                        float64
	DiffA, DiffZ, DiffP                     float64
	DomeA                                   float64
	OutTemp, DomeTemp, MirrorTemp           float64
	Pressure, Wind, Humidity                float64
}

// BlockSize is the size in bytes of an encoded block, CRC included
var BlockSize = binary.Size(wire{}) + 2

// Encode packs a snapshot into a block.  It is what a publisher writes
// to the shared path.  The static Site fields are not part of the block.
func Encode(s Snapshot) []byte {
	w := wire{
		Magic: magic, Version: Version, Focus: uint8(s.Focus),
		SiderealTime: s.SiderealTime, UniversalTime: s.UniversalTime, JulianDate: s.JulianDate,
		FocusValue: s.FocusValue,
		CurAlpha:   s.CurAlpha, CurDelta: s.CurDelta,
		SrcAlpha: s.SrcAlpha, SrcDelta: s.SrcDelta,
		TelAlpha: s.TelAlpha, TelDelta: s.TelDelta,
		Azimuth: s.Azimuth, Zenith: s.Zenith, ParAngle: s.ParAngle,
		ValA: s.ValA, ValZ: s.ValZ, ValP: s.ValP,
		DiffA: s.DiffA, DiffZ: s.DiffZ, DiffP: s.DiffP,
		DomeA:   s.DomeA,
		OutTemp: s.OutTemp, DomeTemp: s.DomeTemp, MirrorTemp: s.MirrorTemp,
		Pressure: s.Pressure, Wind: s.Wind, Humidity: s.Humidity,
	}
	buf := &bytes.Buffer{}
	binary.Write(buf, dataOrder, w) // cannot fail on a bytes.Buffer
	sum := uint16(crcTable.CalculateCRC(buf.Bytes()))
	binary.Write(buf, dataOrder, sum)
	return buf.Bytes()
}

// Decode unpacks and verifies a block
func Decode(b []byte) (Snapshot, error) {
	if len(b) < BlockSize {
		return Snapshot{}, fmt.Errorf("%w: %d of %d bytes", ErrShortBlock, len(b), BlockSize)
	}
	b = b[:BlockSize]
	payload := b[:BlockSize-2]
	sum := dataOrder.Uint16(b[BlockSize-2:])
	if !bytes.Equal(payload[:4], magic[:]) {
		return Snapshot{}, ErrBadMagic
	}
	if v := dataOrder.Uint16(payload[4:6]); v != Version {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrBadVersion, v)
	}
	if uint16(crcTable.CalculateCRC(payload)) != sum {
		return Snapshot{}, ErrBadCRC
	}
	var w wire
	if err := binary.Read(bytes.NewReader(payload), dataOrder, &w); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		SiderealTime: w.SiderealTime, UniversalTime: w.UniversalTime, JulianDate: w.JulianDate,
		Focus: Focus(w.Focus), FocusValue: w.FocusValue,
		CurAlpha: w.CurAlpha, CurDelta: w.CurDelta,
		SrcAlpha: w.SrcAlpha, SrcDelta: w.SrcDelta,
		TelAlpha: w.TelAlpha, TelDelta: w.TelDelta,
		Azimuth: w.Azimuth, Zenith: w.Zenith, ParAngle: w.ParAngle,
		ValA: w.ValA, ValZ: w.ValZ, ValP: w.ValP,
		DiffA: w.DiffA, DiffZ: w.DiffZ, DiffP: w.DiffP,
		DomeA:   w.DomeA,
		OutTemp: w.OutTemp, DomeTemp: w.DomeTemp, MirrorTemp: w.MirrorTemp,
		Pressure: w.Pressure, Wind: w.Wind, Humidity: w.Humidity,
	}, nil
}

// Provider supplies site and pointing data for the image header
type Provider interface {
	// Attach connects to the data source and returns readiness.
	// Only the first call may wait for the source to appear.
	Attach() bool

	// Check reads the current data and returns true if it passes its integrity checks
	Check() bool

	// Snapshot returns the data read by the last successful Check
	Snapshot() Snapshot
}

// Block is a Provider reading a shared data block from a file
type Block struct {
	// Path is the location of the block, e.g. /dev/shm/tcs.blk
	Path string

	// Site is merged into every snapshot
	Site Site

	// Now is the clock stamped on snapshots.  nil uses time.Now
	Now func() time.Time

	// AttachTimeout bounds how long the first Attach keeps retrying.
	// Later calls probe once.  0 always probes once
	AttachTimeout time.Duration

	attached bool
	waited   bool
	snap     Snapshot
}

// Attach is AttachContext without cancellation
func (b *Block) Attach() bool {
	return b.AttachContext(context.Background())
}

// AttachContext waits for the block to appear, with an exponential backoff
// bounded by AttachTimeout and ctx.  Only the first call waits
func (b *Block) AttachContext(ctx context.Context) bool {
	if b.attached {
		return true
	}
	op := func() error {
		_, err := os.Stat(b.Path)
		return err
	}
	var err error
	if b.AttachTimeout <= 0 || b.waited {
		err = op()
	} else {
		b.waited = true
		err = backoff.Retry(op, backoff.WithContext(&backoff.ExponentialBackOff{
			InitialInterval:     25 * time.Millisecond,
			RandomizationFactor: 0.,
			Multiplier:          2.,
			MaxInterval:         1 * time.Second,
			MaxElapsedTime:      b.AttachTimeout,
			Clock:               backoff.SystemClock}, ctx))
	}
	b.attached = err == nil
	return b.attached
}

// Check reads and verifies the block, keeping it for Snapshot on success
func (b *Block) Check() bool {
	if !b.attached {
		return false
	}
	raw, err := os.ReadFile(b.Path)
	if err != nil {
		return false
	}
	s, err := Decode(raw)
	if err != nil {
		return false
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	s.Site = b.Site
	s.Taken = now()
	b.snap = s
	return true
}

// Snapshot returns the last verified block
func (b *Block) Snapshot() Snapshot {
	return b.snap
}
