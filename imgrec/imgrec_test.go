package imgrec

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSafePolicyProbesInOrder(t *testing.T) {
	dir := t.TempDir()
	a := &Allocator{Prefix: filepath.Join(dir, "P")}
	fn, err := a.Allocate("fit", 1)
	if err != nil {
		t.Fatal(err)
	}
	if expected := filepath.Join(dir, "P_0001.fit"); fn != expected {
		t.Errorf("expected %s got %s", expected, fn)
	}
	if err := os.WriteFile(fn, nil, 0644); err != nil {
		t.Fatal(err)
	}
	fn, err = a.Allocate("fit", 1)
	if err != nil {
		t.Fatal(err)
	}
	if expected := filepath.Join(dir, "P_0002.fit"); fn != expected {
		t.Errorf("expected %s got %s", expected, fn)
	}
}

func TestSafePolicyExtensionsIndependent(t *testing.T) {
	dir := t.TempDir()
	a := &Allocator{Prefix: filepath.Join(dir, "P")}
	os.WriteFile(filepath.Join(dir, "P_0001.fit"), nil, 0644)
	fn, _ := a.Allocate("png", 1)
	if expected := filepath.Join(dir, "P_0001.png"); fn != expected {
		t.Errorf("expected %s got %s", expected, fn)
	}
}

func TestSafePolicyFillsGaps(t *testing.T) {
	taken := map[string]bool{"P_0001.raw": true, "P_0003.raw": true}
	a := &Allocator{Prefix: "P", Exists: func(p string) bool { return taken[p] }}
	fn, _ := a.Allocate("raw", 7)
	if fn != "P_0002.raw" {
		t.Errorf("expected P_0002.raw got %s", fn)
	}
}

func TestSafePolicyExhausted(t *testing.T) {
	a := &Allocator{Prefix: "P", Exists: func(string) bool { return true }}
	_, err := a.Allocate("fit", 1)
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
}

func TestOverwritePolicy(t *testing.T) {
	tests := []struct {
		frames, frame int
		expected      string
	}{
		{1, 1, "P.fit"},
		{1, 5, "P.fit"},
		{0, 1, "P.fit"},
		{4, 3, "P_0003.fit"},
		{12, 12, "P_0012.fit"},
	}
	for _, tt := range tests {
		a := &Allocator{Prefix: "P", Overwrite: true, Frames: tt.frames, Exists: func(string) bool { return true }}
		for i := 0; i < 2; i++ {
			fn, err := a.Allocate("fit", tt.frame)
			if err != nil {
				t.Fatal(err)
			}
			if fn != tt.expected {
				t.Errorf("frames=%d frame=%d: expected %s got %s", tt.frames, tt.frame, tt.expected, fn)
			}
		}
		if !a.Force() {
			t.Error("overwrite policy must force writes")
		}
	}
}
