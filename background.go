package sprite

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Background is the backdrop a transparent frame is shown on when it is
// flattened for preview or export.
type Background uint8

const (
	BackgroundCheckerboard Background = iota
	BackgroundDark
	BackgroundLight
	BackgroundNone
)

// CheckerSize is the side of one checkerboard square in pixels.
const CheckerSize = 16

var backgroundNames = [...]string{
	BackgroundCheckerboard: "checkerboard",
	BackgroundDark:         "dark",
	BackgroundLight:        "light",
	BackgroundNone:         "none",
}

var (
	darkBackdrop  = mustHex("#05050a")
	lightBackdrop = mustHex("#e2e8f0")
	checkerLight  = mustHex("#1e293b")
	checkerDark   = mustHex("#0f172a")
)

func mustHex(s string) color.RGBA {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// String returns the settings name of the background.
func (b Background) String() string {
	if int(b) < len(backgroundNames) {
		return backgroundNames[b]
	}
	return fmt.Sprintf("Background(%d)", uint8(b))
}

// ParseBackground parses a background name as written in the settings file.
func ParseBackground(s string) (Background, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range backgroundNames {
		if s == name {
			return Background(i), nil
		}
	}
	return BackgroundCheckerboard, fmt.Errorf("sprite: unknown background %q", s)
}

// Flatten draws src over the background into dst. dst and src must have
// the same bounds. BackgroundNone copies src unchanged.
func Flatten(dst, src *image.RGBA, bg Background) {
	r := dst.Bounds()
	switch bg {
	case BackgroundDark:
		draw.Draw(dst, r, image.NewUniform(darkBackdrop), image.Point{}, draw.Src)
	case BackgroundLight:
		draw.Draw(dst, r, image.NewUniform(lightBackdrop), image.Point{}, draw.Src)
	case BackgroundCheckerboard:
		drawChecker(dst)
	default:
		draw.Draw(dst, r, src, src.Bounds().Min, draw.Src)
		return
	}
	draw.Draw(dst, r, src, src.Bounds().Min, draw.Over)
}

func drawChecker(dst *image.RGBA) {
	r := dst.Bounds()
	for y := r.Min.Y; y < r.Max.Y; y += CheckerSize {
		for x := r.Min.X; x < r.Max.X; x += CheckerSize {
			c := checkerLight
			if ((x-r.Min.X)/CheckerSize+(y-r.Min.Y)/CheckerSize)%2 == 1 {
				c = checkerDark
			}
			sq := image.Rect(x, y, x+CheckerSize, y+CheckerSize).Intersect(r)
			draw.Draw(dst, sq, image.NewUniform(c), image.Point{}, draw.Src)
		}
	}
}

// ParseKeyColor parses a "#rrggbb" or "#rgb" hex color into an opaque key
// color. The leading '#' is optional.
func ParseKeyColor(s string) (color.NRGBA, error) {
	hex := strings.TrimSpace(s)
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("sprite: key color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// KeyColorHex formats a key color as "#rrggbb".
func KeyColorHex(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
