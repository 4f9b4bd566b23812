// Package termview plays a sprite.Player in a terminal using half-block
// glyphs, two pixels per character cell.
package termview

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/gogpu/sprite"
)

// halfBlock is the upper half block glyph. Its foreground paints the top
// pixel and its background the bottom one.
const halfBlock = '▀'

// Adjustment steps for interactive keys.
const (
	fpsStep   = 1.0
	scaleStep = 0.1
	insetStep = 1
)

// DefaultRefresh is the terminal redraw interval.
const DefaultRefresh = 33 * time.Millisecond

var backgroundCycle = []sprite.Background{
	sprite.BackgroundCheckerboard,
	sprite.BackgroundDark,
	sprite.BackgroundLight,
	sprite.BackgroundNone,
}

// View draws the current frame of a Player onto a tcell screen and maps
// key presses to parameter changes.
type View struct {
	screen  tcell.Screen
	player  *sprite.Player
	bg      sprite.Background
	refresh time.Duration

	raw  *image.RGBA
	flat *image.RGBA
}

// Option configures a View.
type Option func(*View)

// WithBackground sets the backdrop transparent pixels are shown on.
func WithBackground(bg sprite.Background) Option {
	return func(v *View) { v.bg = bg }
}

// WithRefresh sets the redraw interval.
func WithRefresh(d time.Duration) Option {
	return func(v *View) {
		if d > 0 {
			v.refresh = d
		}
	}
}

// New returns a View over an initialized screen.
func New(screen tcell.Screen, player *sprite.Player, opts ...Option) *View {
	v := &View{
		screen:  screen,
		player:  player,
		bg:      sprite.BackgroundCheckerboard,
		refresh: DefaultRefresh,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Background returns the current backdrop.
func (v *View) Background() sprite.Background {
	return v.bg
}

// Run starts the player and redraws the screen until ctx is done or the
// user quits. The player's render loop is stopped on return.
func (v *View) Run(ctx context.Context) error {
	if err := v.player.Start(ctx); err != nil {
		return err
	}
	defer v.player.Stop()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(v.refresh)
	defer ticker.Stop()

	v.Draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if v.HandleKey(ev.Key(), ev.Rune()) {
					return nil
				}
			case *tcell.EventResize:
				v.screen.Sync()
			}
			v.Draw()
		case <-ticker.C:
			v.Draw()
		}
	}
}

// HandleKey applies a key press and reports whether the user asked to quit.
//
//	1-9      select row
//	+ -      frame rate
//	] [      scale
//	> <      inset
//	b        cycle background
//	r        reload the source
//	q Esc    quit
func (v *View) HandleKey(key tcell.Key, r rune) (quit bool) {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
	default:
		return false
	}

	p := v.player
	rp := p.RenderParams()
	switch {
	case r == 'q':
		return true
	case r >= '1' && r <= '9':
		if row := int(r - '1'); row < p.Grid().Rows {
			p.SetRow(row)
		}
	case r == '+' || r == '=':
		p.SetFPS(rp.FPS + fpsStep)
	case r == '-' || r == '_':
		p.SetFPS(rp.FPS - fpsStep)
	case r == ']':
		p.SetScale(rp.Scale + scaleStep)
	case r == '[':
		if rp.Scale-scaleStep > scaleStep/2 {
			p.SetScale(rp.Scale - scaleStep)
		}
	case r == '>' || r == '.':
		p.SetInset(rp.Inset + insetStep)
	case r == '<' || r == ',':
		p.SetInset(rp.Inset - insetStep)
	case r == 'b':
		v.bg = nextBackground(v.bg)
	case r == 'r':
		_, _ = p.Reload()
	}
	return false
}

func nextBackground(bg sprite.Background) sprite.Background {
	for i, b := range backgroundCycle {
		if b == bg {
			return backgroundCycle[(i+1)%len(backgroundCycle)]
		}
	}
	return backgroundCycle[0]
}

// Draw renders the current frame and the status line.
func (v *View) Draw() {
	cols, rows := v.screen.Size()
	if cols <= 0 || rows <= 0 {
		return
	}
	v.screen.Clear()

	v.raw = v.player.SnapshotInto(v.raw)
	if v.flat == nil || v.flat.Rect != v.raw.Rect {
		v.flat = image.NewRGBA(v.raw.Rect)
	}
	sprite.Flatten(v.flat, v.raw, v.bg)

	for y, line := range HalfBlocks(v.flat, cols, rows-1) {
		for x, c := range line {
			if !c.Inside {
				continue
			}
			style := tcell.StyleDefault.
				Foreground(rgb(c.Top)).
				Background(rgb(c.Bottom))
			v.screen.SetContent(x, y, halfBlock, nil, style)
		}
	}

	status := []rune(v.StatusLine())
	for x := 0; x < cols && x < len(status); x++ {
		v.screen.SetContent(x, rows-1, status[x], nil, tcell.StyleDefault.Reverse(true))
	}
	v.screen.Show()
}

// StatusLine describes the row, parameters and load state.
func (v *View) StatusLine() string {
	p := v.player
	rp := p.RenderParams()
	row := p.Row()
	line := fmt.Sprintf(" %d/%d %s | %.0f fps | inset %d | scale %.1f | %s | %s",
		row+1, p.Grid().Rows, sprite.AnimationRow(row).Label().Title,
		rp.FPS, rp.Inset, rp.Scale, v.bg, p.State())
	if err := p.Err(); err != nil {
		line += ": " + err.Error()
	}
	return line
}

func rgb(c color.RGBA) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

// Cell is one terminal character of a half-block rendering.
type Cell struct {
	Top, Bottom color.RGBA

	// Inside is false for cells outside the fitted image.
	Inside bool
}

// HalfBlocks samples img into a cols x rows grid of cells. The image is
// fitted into a square of side min(cols, 2*rows) pixels, centered
// horizontally, using nearest-neighbour sampling.
func HalfBlocks(img *image.RGBA, cols, rows int) [][]Cell {
	if cols <= 0 || rows <= 0 {
		return nil
	}
	out := make([][]Cell, rows)
	for y := range out {
		out[y] = make([]Cell, cols)
	}

	b := img.Bounds()
	side := min(cols, 2*rows)
	if side <= 0 || b.Empty() {
		return out
	}
	left := (cols - side) / 2

	sample := func(px, py int) color.RGBA {
		sx := b.Min.X + px*b.Dx()/side
		sy := b.Min.Y + py*b.Dy()/side
		return img.RGBAAt(sx, sy)
	}

	for y := 0; y < rows && 2*y < side; y++ {
		for x := 0; x < side; x++ {
			c := Cell{Top: sample(x, 2*y), Inside: true}
			if 2*y+1 < side {
				c.Bottom = sample(x, 2*y+1)
			} else {
				c.Bottom = c.Top
			}
			out[y][left+x] = c
		}
	}
	return out
}
