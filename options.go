package sprite

import "time"

// Player defaults.
const (
	// DefaultRefreshRate is the scheduling rate of the render loop in Hz,
	// standing in for the display refresh of the host.
	DefaultRefreshRate = 60.0

	// DefaultLoadTimeout bounds decode plus extraction of one sheet.
	DefaultLoadTimeout = 20 * time.Second
)

// Option configures a Player during creation.
//
// Example:
//
//	p := sprite.NewPlayer(
//	    sprite.WithGrid(sprite.Grid{Columns: 8, Rows: 7}),
//	    sprite.WithRenderParams(sprite.RenderParams{FPS: 12, Inset: 3, Scale: 1, OutputSize: 580}),
//	)
type Option func(*options)

type options struct {
	grid          Grid
	params        RenderParams
	key           ChromaKey
	refreshRate   float64
	loadTimeout   time.Duration
	workers       int
	now           func() time.Time
	statusOverlay bool
	inspect       bool
}

func defaultOptions() options {
	return options{
		grid:          DefaultGrid(),
		params:        DefaultRenderParams(),
		key:           DefaultChromaKey(),
		refreshRate:   DefaultRefreshRate,
		loadTimeout:   DefaultLoadTimeout,
		now:           time.Now,
		statusOverlay: true,
		inspect:       true,
	}
}

// WithGrid sets the sheet grid. Non-positive dimensions become 1.
func WithGrid(g Grid) Option {
	return func(o *options) {
		o.grid = g.Normalize()
	}
}

// WithRenderParams sets the initial playback appearance.
func WithRenderParams(p RenderParams) Option {
	return func(o *options) {
		o.params = p.Normalize()
	}
}

// WithChromaKey sets the initial chroma key.
func WithChromaKey(k ChromaKey) Option {
	return func(o *options) {
		o.key = k
	}
}

// WithRefreshRate sets how often the render loop started by Start wakes up.
// Frames still advance at the FPS of the render parameters; the refresh
// rate only bounds how late an advance can be. Non-positive values are
// ignored.
func WithRefreshRate(hz float64) Option {
	return func(o *options) {
		if hz > 0 {
			o.refreshRate = hz
		}
	}
}

// WithLoadTimeout bounds how long a sheet may stay in the loading state
// before it fails with ErrTimeout. Non-positive values are ignored.
func WithLoadTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.loadTimeout = d
		}
	}
}

// WithWorkers sets the number of extraction workers.
// Zero or negative uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithClock replaces time.Now as the time source of the render loop.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithStatusOverlay enables or disables the loading and error indicators
// drawn on the output surface. Enabled by default.
func WithStatusOverlay(enabled bool) Option {
	return func(o *options) {
		o.statusOverlay = enabled
	}
}

// WithInspection enables or disables the sheet inspection run after each
// successful load. Enabled by default.
func WithInspection(enabled bool) Option {
	return func(o *options) {
		o.inspect = enabled
	}
}

func (o options) refreshInterval() time.Duration {
	return time.Duration(float64(time.Second) / o.refreshRate)
}
