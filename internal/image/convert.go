// Package image provides pixel buffer handling for sprite.
//
// Sheets are normalized to *image.NRGBA (8 bits per channel, straight alpha)
// so the chroma pass can rewrite alpha without touching color channels.
package image

import (
	"image"
	"image/color"
)

// ToNRGBA returns a freshly allocated *image.NRGBA holding the pixels of img,
// with bounds translated to start at (0, 0). The source is never aliased.
func ToNRGBA(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))

	switch src := img.(type) {
	case *image.NRGBA:
		// Fast path: straight alpha, row copy.
		for y := range height {
			off := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+width*4], src.Pix[off:off+width*4])
		}

	case *image.RGBA:
		// Premultiplied input must be un-premultiplied per pixel.
		for y := range height {
			off := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			row := dst.Pix[y*dst.Stride:]
			for x := range width {
				s := src.Pix[off+x*4 : off+x*4+4 : off+x*4+4]
				r, g, b, a := unpremultiply(s[0], s[1], s[2], s[3])
				d := row[x*4 : x*4+4 : x*4+4]
				d[0], d[1], d[2], d[3] = r, g, b, a
			}
		}

	default:
		// Generic slow path for paletted, YCbCr, Gray and custom images.
		for y := range height {
			row := dst.Pix[y*dst.Stride:]
			for x := range width {
				c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
				d := row[x*4 : x*4+4 : x*4+4]
				d[0], d[1], d[2], d[3] = c.R, c.G, c.B, c.A
			}
		}
	}

	return dst
}

// Clone returns a deep copy of img.
func Clone(img *image.NRGBA) *image.NRGBA {
	out := &image.NRGBA{
		Pix:    make([]uint8, len(img.Pix)),
		Stride: img.Stride,
		Rect:   img.Rect,
	}
	copy(out.Pix, img.Pix)
	return out
}

func unpremultiply(r, g, b, a uint8) (uint8, uint8, uint8, uint8) {
	switch a {
	case 0:
		return 0, 0, 0, 0
	case 255:
		return r, g, b, a
	}
	ua := uint32(a)
	return uint8(uint32(r) * 255 / ua), uint8(uint32(g) * 255 / ua), uint8(uint32(b) * 255 / ua), a
}
