package kernel

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

type boxSolid struct{ min, max [3]float64 }

func (b boxSolid) BoundingBox() (min, max [3]float64) { return b.min, b.max }

func TestTextSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    TextSpec
		wantErr bool
	}{
		{"ok", TextSpec{Lines: []string{"AA", "AB"}, Size: 6, Depth: 1.5}, false},
		{"no lines", TextSpec{Size: 6, Depth: 1.5}, true},
		{"blank lines", TextSpec{Lines: []string{" ", ""}, Size: 6, Depth: 1.5}, true},
		{"zero size", TextSpec{Lines: []string{"AA"}, Depth: 1.5}, true},
		{"negative depth", TextSpec{Lines: []string{"AA"}, Size: 6, Depth: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTextSpecLeading(t *testing.T) {
	if got := (TextSpec{Size: 4}).Leading(); got != 6 {
		t.Errorf("default Leading() = %f, want 6", got)
	}
	if got := (TextSpec{Size: 4, LineHeight: 10}).Leading(); got != 10 {
		t.Errorf("Leading() = %f, want 10", got)
	}
}

func TestBounds(t *testing.T) {
	b := Bounds(boxSolid{min: [3]float64{-1, 0, 2}, max: [3]float64{3, 4, 5}})
	want := r3.Box{Min: r3.Vec{X: -1, Y: 0, Z: 2}, Max: r3.Vec{X: 3, Y: 4, Z: 5}}
	if b != want {
		t.Errorf("Bounds() = %v, want %v", b, want)
	}
}
