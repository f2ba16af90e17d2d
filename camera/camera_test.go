package camera

import (
	"errors"
	"fmt"
	"testing"
)

func TestSelect(t *testing.T) {
	cams := []string{"Atik 414EX", "Atik 460EX"}
	tests := []struct {
		avail []string
		name  string
		idx   int
		err   error
	}{
		{nil, "", -1, ErrNoCamera},
		{cams[:1], "", 0, nil},
		{cams, "", -1, ErrAmbiguous},
		{cams, "atik 460ex", 1, nil},
		{cams, "Atik 383L", -1, ErrNoCamera},
	}
	for _, tt := range tests {
		idx, err := Select(tt.avail, tt.name)
		if idx != tt.idx || !errors.Is(err, tt.err) {
			t.Errorf("Select(%v, %q) = %d, %v; wanted %d, %v", tt.avail, tt.name, idx, err, tt.idx, tt.err)
		}
	}
}

func TestBinningFrame(t *testing.T) {
	aoi := AOI{Left: 10, Top: 20, Width: 101, Height: 50}
	w, h := Binning{H: 2, V: 5}.Frame(aoi)
	if w != 50 || h != 10 {
		t.Errorf("got %dx%d, wanted 50x10", w, h)
	}
	if aoi.Right() != 111 || aoi.Bottom() != 70 {
		t.Errorf("edges %d, %d", aoi.Right(), aoi.Bottom())
	}
}

func ExampleBinning_String() {
	fmt.Println(Binning{H: 2, V: 1})
	// Output: 2 x 1
}
