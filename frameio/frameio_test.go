package frameio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/google/go-cmp/cmp"

	"github.jpl.nasa.gov/bdube/ccdcap/fitshdr"
)

func testFrame() Frame {
	f := Frame{Width: 4, Height: 3, Pix: make([]uint16, 12)}
	for i := range f.Pix {
		f.Pix[i] = uint16(i * 5000)
	}
	f.Pix[11] = 65535
	return f
}

func testHeader() *fitshdr.Header {
	h := fitshdr.New()
	h.Set("OBJECT", "M31", "Object name")
	h.Set("STATMAX", 65535, "Max data value")
	return h
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var out []string
	for _, e := range ents {
		out = append(out, e.Name())
	}
	return out
}

func TestFITSRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img_0001.fit")
	f := testFrame()
	if err := (FITS{}).Write(path, f, testHeader(), false); err != nil {
		t.Fatal(err)
	}
	r, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	fits, err := fitsio.Open(r)
	if err != nil {
		t.Fatal(err)
	}
	defer fits.Close()
	img, ok := fits.HDU(0).(fitsio.Image)
	if !ok {
		t.Fatal("primary HDU is not an image")
	}
	hdr := img.Header()
	for k, v := range map[string]string{"FILE": "img_0001.fit", "OBJECT": "M31"} {
		c := hdr.Get(k)
		if c == nil || c.Value != v {
			t.Errorf("%s = %v, wanted %q", k, c, v)
		}
	}
	if diff := cmp.Diff([]int{4, 3}, hdr.Axes()); diff != "" {
		t.Errorf("axes (-want +got):\n%s", diff)
	}
	data := make([]int16, 12)
	if err := img.Read(&data); err != nil {
		t.Fatal(err)
	}
	got := make([]uint16, len(data))
	for i, v := range data {
		got[i] = uint16(v) + 32768
	}
	if diff := cmp.Diff(f.Pix, got); diff != "" {
		t.Errorf("pixels (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"img_0001.fit"}, listDir(t, dir)); diff != "" {
		t.Errorf("directory (-want +got):\n%s", diff)
	}
}

func TestFITSRefusesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.fit")
	if err := os.WriteFile(path, []byte("keep me"), 0644); err != nil {
		t.Fatal(err)
	}
	err := (FITS{}).Write(path, testFrame(), testHeader(), false)
	if !errors.Is(err, ErrExists) {
		t.Errorf("got %v, wanted ErrExists", err)
	}
	b, _ := os.ReadFile(path)
	if string(b) != "keep me" {
		t.Error("existing file was modified")
	}
	if err := (FITS{}).Write(path, testFrame(), testHeader(), true); err != nil {
		t.Fatal(err)
	}
	b, _ = os.ReadFile(path)
	if len(b)%2880 != 0 || !bytes.HasPrefix(b, []byte("SIMPLE")) {
		t.Error("forced write did not replace the file with a FITS file")
	}
}

func TestRaw(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.raw")
	if err := os.WriteFile(path, make([]byte, 1000), 0644); err != nil {
		t.Fatal(err)
	}
	f := testFrame()
	if err := (Raw{}).Write(path, f, nil, false); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != f.Width*f.Height*2 {
		t.Fatalf("raw file is %d bytes, wanted %d", len(b), f.Width*f.Height*2)
	}
	got := make([]uint16, 12)
	if err := binary.Read(bytes.NewReader(b), binary.NativeEndian, got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(f.Pix, got); diff != "" {
		t.Errorf("pixels (-want +got):\n%s", diff)
	}
}

func TestPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	f := testFrame()
	if err := (PNG{}).Write(path, f, nil, false); err != nil {
		t.Fatal(err)
	}
	r, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	img, err := png.Decode(r)
	if err != nil {
		t.Fatal(err)
	}
	b := img.Bounds()
	if b.Dx() != 4 || b.Dy() != 3 {
		t.Fatalf("png is %v", b)
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			r, _, _, _ := img.At(x, y).RGBA()
			if want := uint32(f.Pix[y*4+x]); r != want || a != 0xffff {
				t.Errorf("(%d, %d) = %d, wanted %d", x, y, r, want)
			}
		}
	}
}

func TestFailedWriteLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.fit")
	boom := errors.New("encoder failed")
	err := writeAtomic(path, true, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("got %v, wanted the encoder error", err)
	}
	if names := listDir(t, dir); len(names) != 0 {
		t.Errorf("directory holds %v after a failed write", names)
	}

	err = (FITS{}).Write(path, Frame{Width: 10, Height: 10, Pix: make([]uint16, 5)}, nil, true)
	if !errors.Is(err, ErrShortFrame) {
		t.Errorf("got %v, wanted ErrShortFrame", err)
	}

	err = (Raw{}).Write(filepath.Join(dir, "missing", "img.raw"), testFrame(), nil, true)
	if err == nil {
		t.Error("write into a missing directory succeeded")
	}
}

func TestParseSinks(t *testing.T) {
	sinks, err := ParseSinks([]string{"png", "FITS", "raw", "png", ""})
	if err != nil {
		t.Fatal(err)
	}
	var exts []string
	for _, s := range sinks {
		exts = append(exts, s.Ext())
	}
	if diff := cmp.Diff([]string{"fit", "png", "raw"}, exts); diff != "" {
		t.Errorf("sinks (-want +got):\n%s", diff)
	}
	if _, err := ParseSinks([]string{"tiff"}); !errors.Is(err, ErrUnknownSink) {
		t.Errorf("got %v, wanted ErrUnknownSink", err)
	}
}
