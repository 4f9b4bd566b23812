package sprite

import (
	"image"
	"testing"
)

func countInk(img *image.RGBA, pred func(r, g, b, a uint8) bool) int {
	n := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if pred(img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]) {
			n++
		}
	}
	return n
}

func TestDrawStatus(t *testing.T) {
	tests := []struct {
		state    LoadState
		wantVeil bool
		wantText bool
	}{
		{StateIdle, false, false},
		{StateSuccess, false, false},
		{StateLoading, true, true},
		{StateError, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			dst := image.NewRGBA(image.Rect(0, 0, 240, 240))
			DrawStatus(dst, tt.state)

			veiled := dst.RGBAAt(0, 0).A != 0
			if veiled != tt.wantVeil {
				t.Errorf("veil drawn = %v, want %v", veiled, tt.wantVeil)
			}
			// Label pixels are brighter than the veil in the red channel.
			text := countInk(dst, func(r, _, _, _ uint8) bool { return r > 0x80 })
			if (text > 0) != tt.wantText {
				t.Errorf("label pixels = %d, want drawn %v", text, tt.wantText)
			}
		})
	}
}

func TestDrawStatus_LabelCentered(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 480, 480))
	DrawStatus(dst, StateLoading)

	minX, maxX := dst.Rect.Dx(), 0
	for y := range dst.Rect.Dy() {
		for x := range dst.Rect.Dx() {
			if dst.RGBAAt(x, y).R > 0x80 {
				minX, maxX = min(minX, x), max(maxX, x)
			}
		}
	}
	if maxX == 0 {
		t.Fatal("no label drawn")
	}
	left, right := minX, dst.Rect.Dx()-1-maxX
	if d := left - right; d > 8 || d < -8 {
		t.Errorf("label margins %d and %d, want centered", left, right)
	}
}

func TestDrawStatus_TinySurface(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 4, 4))
	DrawStatus(dst, StateError)
	DrawStatus(image.NewRGBA(image.Rectangle{}), StateError)
}
