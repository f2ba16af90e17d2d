package frameio

import (
	"encoding/binary"
	"image"
	"image/png"
	"io"

	"github.jpl.nasa.gov/bdube/ccdcap/fitshdr"
)

// Raw dumps the pixels with no header, in the byte order of the host
type Raw struct{}

// Ext returns "raw"
func (Raw) Ext() string { return "raw" }

// Write writes the raw file, replacing any existing one
func (Raw) Write(path string, f Frame, _ *fitshdr.Header, _ bool) error {
	if err := f.check(); err != nil {
		return err
	}
	return writeAtomic(path, true, func(w io.Writer) error {
		return binary.Write(w, binary.NativeEndian, f.Pix[:f.Width*f.Height])
	})
}

// PNG writes a 16-bit grayscale PNG with the best compression
type PNG struct{}

// Ext returns "png"
func (PNG) Ext() string { return "png" }

// Write writes the PNG file, replacing any existing one
func (PNG) Write(path string, f Frame, _ *fitshdr.Header, _ bool) error {
	if err := f.check(); err != nil {
		return err
	}
	return writeAtomic(path, true, func(w io.Writer) error {
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode(w, Gray16(f))
	})
}

// Gray16 copies f into an image, swapping every sample to big endian row by row
func Gray16(f Frame) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		row := f.Pix[y*f.Width : (y+1)*f.Width]
		out := img.Pix[y*img.Stride:]
		for x, v := range row {
			binary.BigEndian.PutUint16(out[2*x:], v)
		}
	}
	return img
}
