package sprite

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	spriteimage "github.com/gogpu/sprite/internal/image"
)

// Player animates one row of a processed sprite sheet onto a square output
// surface.
//
// External input (SetRow, SetFPS, SetScale, SetInset, SetOutputSize, ...)
// writes a single parameter cell that the render loop snapshots at the start
// of every tick, so parameter changes never restart the loop. Sources are
// decoded and keyed on a background goroutine; the render loop only ever
// observes a fully processed Sheet or none.
//
// Thread safety: all methods are safe for concurrent use. Frame and state
// callbacks run on the goroutine that triggered them, after internal locks
// are released. Frame callbacks run on the render loop and must not call
// Stop or Close.
type Player struct {
	opts      options
	extractor *Extractor

	// Parameter cell written by setters, read once per tick.
	mu      sync.Mutex
	params  RenderParams
	row     int
	grid    Grid
	key     ChromaKey
	version uint64

	// rowVersion counts row selections, so A->B->A between ticks still
	// restarts the row.
	rowVersion uint64

	// Playhead, owned by Tick.
	tickMu      sync.Mutex
	play        PlaybackState
	playRowSeen uint64
	drawn       drawnFrame

	sheet atomic.Pointer[Sheet]

	stateMu sync.RWMutex
	state   LoadState
	err     error
	changed chan struct{}

	surfaceMu sync.RWMutex
	surface   *image.RGBA

	load loader

	loopMu     sync.Mutex
	loopCancel context.CancelFunc
	loopDone   chan struct{}

	listenersMu sync.RWMutex
	onFrame     []func(Frame)
	onState     []func(LoadState, error)

	closed atomic.Bool
}

// drawnFrame records what is currently on the surface, so appearance
// changes can redraw it without advancing.
type drawnFrame struct {
	ok      bool
	row     int
	frame   int
	version uint64
	sheet   *Sheet
}

// paramSnapshot is the tick-local copy of the parameter cell.
type paramSnapshot struct {
	params     RenderParams
	row        int
	rowVersion uint64
	grid       Grid
	version    uint64
}

// NewPlayer creates an idle Player. Call SetSource to load a sheet and
// Start to run the render loop, or drive it manually with Tick.
func NewPlayer(opts ...Option) *Player {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	p := &Player{
		opts:      o,
		extractor: NewExtractor(o.workers),
		params:    o.params.Normalize(),
		grid:      o.grid.Normalize(),
		key:       o.key,
		changed:   make(chan struct{}),
	}
	p.surface = image.NewRGBA(image.Rect(0, 0, p.params.OutputSize, p.params.OutputSize))
	return p
}

// =============================================================================
// Parameter setters
// =============================================================================

// SetRow selects the animation row. Changing the row restarts playback at
// frame 0 of the new row on the next draw.
func (p *Player) SetRow(row int) {
	p.mu.Lock()
	if row != p.row {
		p.row = row
		p.rowVersion++
	}
	p.mu.Unlock()
}

// SetAnimation selects a named animation row.
func (p *Player) SetAnimation(r AnimationRow) {
	p.SetRow(int(r))
}

// SetFPS sets the frame advance rate. Values below 1 are treated as 1.
func (p *Player) SetFPS(fps float64) {
	p.update(func(rp *RenderParams) { rp.FPS = fps })
}

// SetInset sets the per-edge crop applied to each cell.
func (p *Player) SetInset(inset int) {
	p.update(func(rp *RenderParams) { rp.Inset = inset })
}

// SetScale sets the character zoom.
func (p *Player) SetScale(scale float64) {
	p.update(func(rp *RenderParams) { rp.Scale = scale })
}

// SetOutputSize sets the side length of the output surface.
func (p *Player) SetOutputSize(size int) {
	p.update(func(rp *RenderParams) { rp.OutputSize = size })
}

// SetRenderParams replaces all render parameters at once.
func (p *Player) SetRenderParams(rp RenderParams) {
	p.update(func(dst *RenderParams) { *dst = rp })
}

func (p *Player) update(fn func(*RenderParams)) {
	p.mu.Lock()
	fn(&p.params)
	p.params = p.params.Normalize()
	p.version++
	p.mu.Unlock()
}

// SetGrid changes the grid topology. The processed sheet is reused; only
// slicing changes.
func (p *Player) SetGrid(g Grid) {
	p.mu.Lock()
	p.grid = g.Normalize()
	p.version++
	p.mu.Unlock()
}

// RenderParams returns the current (normalized) render parameters.
func (p *Player) RenderParams() RenderParams {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.params
}

// Row returns the selected row.
func (p *Player) Row() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.row
}

// Grid returns the grid topology.
func (p *Player) Grid() Grid {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.grid
}

// ChromaKey returns the chroma key applied to new sources.
func (p *Player) ChromaKey() ChromaKey {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.key
}

// LoadTimeout returns the bound on decoding and keying one source.
func (p *Player) LoadTimeout() time.Duration {
	return p.opts.loadTimeout
}

func (p *Player) snapshot() paramSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return paramSnapshot{
		params:     p.params,
		row:        min(max(p.row, 0), p.grid.Rows-1),
		rowVersion: p.rowVersion,
		grid:       p.grid,
		version:    p.version,
	}
}

// =============================================================================
// Scheduling
// =============================================================================

// Tick runs one iteration of the render loop at time now and reports
// whether the playhead advanced.
//
// A frame is drawn and the playhead advanced only when at least one frame
// interval (1/FPS) has elapsed since the last advance. The advance time is
// carried forward by exactly one interval so the long-run rate matches FPS
// regardless of tick granularity; after a stall longer than one interval the
// schedule resynchronizes to now instead of bursting. Between advances the
// last frame is redrawn if scale, inset, output size or grid changed.
func (p *Player) Tick(now time.Time) bool {
	advanced, frame := p.tick(now)
	if frame != nil {
		p.emitFrame(*frame)
	}
	return advanced
}

func (p *Player) tick(now time.Time) (bool, *Frame) {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()

	snap := p.snapshot()
	if snap.row != p.play.Row || snap.rowVersion != p.playRowSeen {
		p.play.Row = snap.row
		p.play.Frame = 0
		p.playRowSeen = snap.rowVersion
	}
	p.play.Frame %= snap.grid.Columns

	if p.State() != StateSuccess {
		return false, nil
	}
	sheet := p.sheet.Load()
	if sheet == nil {
		return false, nil
	}

	interval := snap.params.FrameInterval()
	last := p.play.LastAdvance
	elapsed := now.Sub(last)

	switch {
	case last.IsZero(), elapsed >= interval:
		frame := p.draw(sheet, snap, p.play.Frame, now, true)
		p.play.Frame = (p.play.Frame + 1) % snap.grid.Columns
		if last.IsZero() || elapsed >= 2*interval {
			p.play.LastAdvance = now
		} else {
			p.play.LastAdvance = last.Add(interval)
		}
		return true, frame

	case elapsed < -interval:
		// Clock stepped backwards; restart the schedule from now.
		p.play.LastAdvance = now
		return false, nil
	}

	d := p.drawn
	if d.ok && d.row == snap.row && (d.version != snap.version || d.sheet != sheet) {
		Logger().Debug("sprite: redraw after parameter change", "row", d.row, "frame", d.frame)
		return false, p.draw(sheet, snap, d.frame, now, false)
	}
	return false, nil
}

// draw composes one cell onto the surface and returns the drawn frame.
// Panics are recovered and logged so a bad frame never stops the render
// loop.
func (p *Player) draw(sheet *Sheet, snap paramSnapshot, frame int, now time.Time, advanced bool) (f *Frame) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Warn("sprite: draw failed", "row", snap.row, "frame", frame, "panic", r)
			f = nil
		}
	}()

	src := snap.grid.CellRect(sheet.Image.Rect, snap.row, frame, snap.params.Inset)
	size := snap.params.OutputSize

	func() {
		p.surfaceMu.Lock()
		defer p.surfaceMu.Unlock()
		if p.surface.Rect.Dx() != size || p.surface.Rect.Dy() != size {
			p.surface = image.NewRGBA(image.Rect(0, 0, size, size))
		}
		Compose(p.surface, sheet.Image, src, snap.params)
	}()

	p.drawn = drawnFrame{ok: true, row: snap.row, frame: frame, version: snap.version, sheet: sheet}

	return &Frame{
		Row:      snap.row,
		Index:    frame,
		Source:   src,
		Dest:     DestRect(size, snap.params.Scale),
		Time:     now,
		Advanced: advanced,
	}
}

// Playback returns a copy of the playhead state.
func (p *Player) Playback() PlaybackState {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()
	return p.play
}

// Start runs the render loop on a new goroutine, ticking at the refresh
// rate until ctx is done or Stop is called. Calling Start on a running
// Player is a no-op.
func (p *Player) Start(ctx context.Context) error {
	if p.closed.Load() {
		return fmt.Errorf("sprite: start: player closed")
	}

	p.loopMu.Lock()
	defer p.loopMu.Unlock()

	if p.loopDone != nil {
		select {
		case <-p.loopDone:
		default:
			return nil
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.loopCancel = cancel
	p.loopDone = done

	go p.run(ctx, done)
	return nil
}

func (p *Player) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.opts.refreshInterval())
	defer ticker.Stop()

	p.Tick(p.opts.now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(p.opts.now())
		}
	}
}

// Stop cancels the render loop and waits for it to exit. No draw happens
// after any Stop call returns, including concurrent ones. Stop is
// idempotent.
func (p *Player) Stop() {
	p.loopMu.Lock()
	cancel, done := p.loopCancel, p.loopDone
	p.loopCancel = nil
	p.loopMu.Unlock()

	// Every caller waits, including those that lose the race to cancel.
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Running reports whether the render loop is active.
func (p *Player) Running() bool {
	p.loopMu.Lock()
	defer p.loopMu.Unlock()

	if p.loopDone == nil || p.loopCancel == nil {
		return false
	}
	select {
	case <-p.loopDone:
		return false
	default:
		return true
	}
}

// Close stops the render loop, abandons any in-flight load and releases
// extraction workers. Close is idempotent.
func (p *Player) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.Stop()
	p.load.cancel()
	p.extractor.Close()
}

// =============================================================================
// State
// =============================================================================

// State returns the current load state.
func (p *Player) State() LoadState {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.state
}

// Err returns the failure that put the Player in StateError, or nil.
// The error wraps ErrDecode, ErrProcessing or ErrTimeout.
func (p *Player) Err() error {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.err
}

// Sheet returns the current processed sheet, or nil.
func (p *Player) Sheet() *Sheet {
	return p.sheet.Load()
}

// Wait blocks until the Player is not loading and returns the settled
// state, or returns ctx.Err().
func (p *Player) Wait(ctx context.Context) (LoadState, error) {
	for {
		p.stateMu.RLock()
		state, err, changed := p.state, p.err, p.changed
		p.stateMu.RUnlock()

		if state != StateLoading {
			return state, err
		}
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-changed:
		}
	}
}

// transition publishes a state change and redraws the status overlay. The
// caller emits the change to listeners once it has released its locks.
func (p *Player) transition(state LoadState, err error) {
	p.stateMu.Lock()
	prev := p.state
	p.state, p.err = state, err
	close(p.changed)
	p.changed = make(chan struct{})
	p.stateMu.Unlock()

	p.tickMu.Lock()
	p.drawn = drawnFrame{}
	if state == StateSuccess {
		p.play.Frame = 0
		p.play.LastAdvance = time.Time{}
	}
	p.tickMu.Unlock()

	if state != StateSuccess {
		size := p.RenderParams().OutputSize
		p.surfaceMu.Lock()
		if p.surface.Rect.Dx() != size || p.surface.Rect.Dy() != size {
			p.surface = image.NewRGBA(image.Rect(0, 0, size, size))
		}
		clear(p.surface.Pix)
		if p.opts.statusOverlay {
			DrawStatus(p.surface, state)
		}
		p.surfaceMu.Unlock()
	}

	if prev != state {
		Logger().Debug("sprite: state change", "from", prev, "to", state)
	}
}

// =============================================================================
// Output surface
// =============================================================================

// Snapshot returns a copy of the output surface.
func (p *Player) Snapshot() *image.RGBA {
	return p.SnapshotInto(nil)
}

// SnapshotInto copies the output surface into dst, reallocating dst when
// its size differs, and returns the buffer written.
func (p *Player) SnapshotInto(dst *image.RGBA) *image.RGBA {
	p.surfaceMu.RLock()
	defer p.surfaceMu.RUnlock()

	if dst == nil || dst.Rect != p.surface.Rect {
		dst = image.NewRGBA(p.surface.Rect)
	}
	copy(dst.Pix, p.surface.Pix)
	return dst
}

// SnapshotPooled copies the surface into a buffer taken from pool. Return
// it with pool.Put when done.
func (p *Player) SnapshotPooled(pool *spriteimage.Pool) *image.RGBA {
	p.surfaceMu.RLock()
	size := p.surface.Rect.Size()
	p.surfaceMu.RUnlock()
	return p.SnapshotInto(pool.Get(size.X, size.Y))
}

// =============================================================================
// Listeners
// =============================================================================

// OnFrame registers fn to be called after every draw.
func (p *Player) OnFrame(fn func(Frame)) {
	p.listenersMu.Lock()
	p.onFrame = append(p.onFrame, fn)
	p.listenersMu.Unlock()
}

// OnStateChange registers fn to be called on every state transition.
func (p *Player) OnStateChange(fn func(LoadState, error)) {
	p.listenersMu.Lock()
	p.onState = append(p.onState, fn)
	p.listenersMu.Unlock()
}

func (p *Player) emitFrame(f Frame) {
	p.listenersMu.RLock()
	fns := p.onFrame
	p.listenersMu.RUnlock()

	for _, fn := range fns {
		safeCall(func() { fn(f) })
	}
}

func (p *Player) emitState(s LoadState, err error) {
	p.listenersMu.RLock()
	fns := p.onState
	p.listenersMu.RUnlock()

	for _, fn := range fns {
		safeCall(func() { fn(s, err) })
	}
}

func safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Warn("sprite: listener panicked", "panic", r)
		}
	}()
	fn()
}
