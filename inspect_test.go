package sprite

import (
	"image/color"
	"strings"
	"testing"
)

func TestInspect_ConformingSheet(t *testing.T) {
	img := filled(64, 56, Magenta)
	for y := 2; y < 6; y++ {
		for x := 2; x < 6; x++ {
			img.SetNRGBA(x, y, color.NRGBA{G: 200, A: 255})
		}
	}

	r := Inspect(img, DefaultGrid(), DefaultChromaKey())
	if !r.OK() {
		t.Errorf("Inspect() warnings = %v, want none", r.Warnings)
	}
	if r.Cell.X != 8 || r.Cell.Y != 8 {
		t.Errorf("Cell = %v, want 8x8", r.Cell)
	}
	if r.KeyDistance > MaxKeyDistance {
		t.Errorf("KeyDistance = %v, want <= %v", r.KeyDistance, MaxKeyDistance)
	}
	if r.Dominant.R < 0xf0 || r.Dominant.G > 0x10 || r.Dominant.B < 0xf0 {
		t.Errorf("Dominant = %v, want magenta", r.Dominant)
	}
}

func TestInspect_WrongBackground(t *testing.T) {
	img := filled(64, 56, color.NRGBA{R: 30, G: 160, B: 60, A: 255})

	r := Inspect(img, DefaultGrid(), DefaultChromaKey())
	if r.KeyDistance <= MaxKeyDistance {
		t.Errorf("KeyDistance = %v, want > %v", r.KeyDistance, MaxKeyDistance)
	}
	if !hasWarning(r, "not the key color") {
		t.Errorf("Warnings = %v, want key color finding", r.Warnings)
	}
}

func TestInspect_Geometry(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		want string
	}{
		{"not divisible", 65, 56, "not divisible"},
		{"aspect", 64, 64, "aspect ratio"},
		{"non-square cells", 128, 56, "not square"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Inspect(filled(tt.w, tt.h, Magenta), DefaultGrid(), DefaultChromaKey())
			if !hasWarning(r, tt.want) {
				t.Errorf("Warnings = %v, want %q", r.Warnings, tt.want)
			}
		})
	}
}

func hasWarning(r Report, substr string) bool {
	for _, w := range r.Warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}
