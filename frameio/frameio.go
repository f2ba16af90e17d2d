/*Package frameio writes frames to disk.

Every sink writes into a temporary file next to its destination and moves it
into place only once the file is complete and closed, so a failed write never
leaves a partial file behind.
*/
package frameio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.jpl.nasa.gov/bdube/ccdcap/fitshdr"
)

var (
	// ErrExists is generated when a non-forced write targets an existing file
	ErrExists = errors.New("output file already exists")

	// ErrShortFrame is generated when a frame holds fewer pixels than its dimensions
	ErrShortFrame = errors.New("frame buffer smaller than its dimensions")

	// ErrUnknownSink is generated for a sink name that is not fit, raw or png
	ErrUnknownSink = errors.New("unknown output format")
)

// Frame is a row-major 16-bit image
type Frame struct {
	Width, Height int
	Pix           []uint16
}

func (f Frame) check() error {
	if f.Width < 1 || f.Height < 1 || len(f.Pix) < f.Width*f.Height {
		return fmt.Errorf("%w: %dx%d with %d pixels", ErrShortFrame, f.Width, f.Height, len(f.Pix))
	}
	return nil
}

// Sink is one output encoding
type Sink interface {
	// Ext is the file extension, without the dot
	Ext() string

	// Write writes f and its header to path.  force permits replacing an existing file.
	Write(path string, f Frame, h *fitshdr.Header, force bool) error
}

// ParseSinks maps format names to sinks.  FITS is always written and always first.
func ParseSinks(names []string) ([]Sink, error) {
	out := []Sink{FITS{}}
	seen := map[string]bool{"fit": true}
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "fits" {
			n = "fit"
		}
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		switch n {
		case "raw":
			out = append(out, Raw{})
		case "png":
			out = append(out, PNG{})
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownSink, n)
		}
	}
	return out, nil
}

// writeAtomic streams fn into a temporary file and moves it to path.
// Without force an existing path is an error and is never replaced.
func writeAtomic(path string, force bool, fn func(io.Writer) error) (err error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()
	bw := bufio.NewWriter(f)
	if err = fn(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = f.Chmod(0644); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if force {
		return os.Rename(tmp, path)
	}
	// link refuses to clobber a file created since the Stat
	if err = os.Link(tmp, path); err != nil {
		if os.IsExist(err) {
			err = fmt.Errorf("%w: %s", ErrExists, path)
		}
		return err
	}
	os.Remove(tmp)
	return nil
}
