// Package imgrec decides where each frame of an acquisition is saved.
//
// Two policies exist.  The safe policy probes prefix_0001.ext, prefix_0002.ext,
// ... and hands out the first name that does not exist yet.  The overwrite
// policy produces deterministic names and the caller replaces whatever is there.
package imgrec

import (
	"errors"
	"fmt"
	"os"
)

// MaxIndex is the largest sequence number the safe policy will probe
const MaxIndex = 9999

// ErrExhausted is generated when every name up to MaxIndex is taken
var ErrExhausted = errors.New("imgrec: all candidate file names are in use")

// Allocator hands out output file names.  It is not thread safe.
type Allocator struct {
	// Prefix is the path prefix, e.g. /data/night/ccd
	Prefix string

	// Overwrite selects the overwrite policy instead of the safe one
	Overwrite bool

	// Frames is the number of frames in the session; it decides if
	// overwrite names carry a frame number
	Frames int

	// Exists reports if a path is taken.  nil uses os.Stat
	Exists func(path string) bool
}

// Force is true when the writer must replace an existing file
func (a *Allocator) Force() bool {
	return a.Overwrite
}

func (a *Allocator) exists(path string) bool {
	if a.Exists != nil {
		return a.Exists(path)
	}
	// anything we cannot stat is a candidate, the write will report the problem
	_, err := os.Stat(path)
	return err == nil
}

// Allocate returns the path for frame (1-based) with extension ext.
// Every encoding of every frame is allocated separately.
func (a *Allocator) Allocate(ext string, frame int) (string, error) {
	if a.Overwrite {
		if a.Frames <= 1 {
			return fmt.Sprintf("%s.%s", a.Prefix, ext), nil
		}
		return fmt.Sprintf("%s_%04d.%s", a.Prefix, frame, ext), nil
	}
	for num := 1; num <= MaxIndex; num++ {
		fn := fmt.Sprintf("%s_%04d.%s", a.Prefix, num, ext)
		if !a.exists(fn) {
			return fn, nil
		}
	}
	return "", fmt.Errorf("%w: %s_NNNN.%s", ErrExhausted, a.Prefix, ext)
}
