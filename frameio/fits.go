package frameio

import (
	"io"
	"path/filepath"

	"github.com/astrogo/fitsio"

	"github.jpl.nasa.gov/bdube/ccdcap/fitshdr"
)

// FITS writes a single 16-bit image HDU.  Pixels are stored offset by
// BZERO = 32768 so readers recover the unsigned values.
type FITS struct{}

// Ext returns "fit"
func (FITS) Ext() string { return "fit" }

// Write writes the FITS file
func (FITS) Write(path string, f Frame, h *fitshdr.Header, force bool) error {
	if err := f.check(); err != nil {
		return err
	}
	cards := fitshdr.New()
	cards.Set("FILE", filepath.Base(path), "Input file original name")
	cards.Merge(h)
	cards.Set("BZERO", 32768, "")
	cards.Set("BSCALE", 1.0, "")
	return writeAtomic(path, force, func(w io.Writer) error {
		return EncodeFITS(w, f, cards.Cards())
	})
}

// EncodeFITS streams a fits file holding f to w
func EncodeFITS(w io.Writer, f Frame, cards []fitsio.Card) error {
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	im := fitsio.NewImage(16, []int{f.Width, f.Height})
	defer im.Close()
	err = im.Header().Append(cards...)
	if err != nil {
		return err
	}
	n := f.Width * f.Height
	ints := make([]int16, n)
	for i, v := range f.Pix[:n] {
		ints[i] = int16(v - 32768)
	}
	err = im.Write(ints)
	if err != nil {
		return err
	}
	return fits.Write(im)
}
