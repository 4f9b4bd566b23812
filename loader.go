package sprite

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"

	spriteimage "github.com/gogpu/sprite/internal/image"
)

// source is the input of a load request: raw encoded bytes or an already
// decoded image.
type source struct {
	data []byte
	img  image.Image
}

func (s source) empty() bool {
	return len(s.data) == 0 && s.img == nil
}

// loader tracks the in-flight load. Every request bumps gen; a result is
// published only if its generation is still current.
type loader struct {
	mu       sync.Mutex
	gen      uint64
	src      source
	cancelFn context.CancelFunc
}

// begin starts a new generation and cancels the previous one.
// Must be called with l.mu held.
func (l *loader) begin(timeout time.Duration) (uint64, context.Context, context.CancelFunc) {
	if l.cancelFn != nil {
		l.cancelFn()
	}
	l.gen++
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	l.cancelFn = cancel
	return l.gen, ctx, cancel
}

// cancel abandons the in-flight load, if any. Results of the abandoned
// generation are discarded.
func (l *loader) cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancelFn != nil {
		l.cancelFn()
		l.cancelFn = nil
	}
	l.gen++
}

// =============================================================================
// Source management
// =============================================================================

// SetSource starts loading an encoded sprite sheet (PNG, JPEG, GIF, WebP,
// BMP or TIFF bytes, or a data: URI). The Player enters StateLoading
// immediately and leaves it for StateSuccess or StateError when decoding
// and extraction finish. A later call supersedes an earlier one; the
// earlier result is discarded. Empty data clears the source.
//
// SetSource returns the generation of the request, which is carried by
// the resulting Sheet or LoadError.
func (p *Player) SetSource(data []byte) uint64 {
	if len(data) == 0 {
		p.ClearSource()
		return 0
	}
	return p.startLoad(source{data: data})
}

// SetSourceFile reads path and loads it as with SetSource.
func (p *Player) SetSourceFile(path string) (uint64, error) {
	data, err := spriteimage.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("sprite: set source: %w", err)
	}
	return p.SetSource(data), nil
}

// SetImage loads an already decoded image as the source. The image is
// kept for reprocessing by SetThreshold and must not be modified while it
// is the current source.
func (p *Player) SetImage(img image.Image) uint64 {
	if img == nil {
		p.ClearSource()
		return 0
	}
	return p.startLoad(source{img: img})
}

// ClearSource abandons any in-flight load, drops the current sheet and
// returns the Player to StateIdle.
func (p *Player) ClearSource() {
	p.load.mu.Lock()
	if p.load.cancelFn != nil {
		p.load.cancelFn()
		p.load.cancelFn = nil
	}
	p.load.gen++
	p.load.src = source{}
	p.sheet.Store(nil)
	p.transition(StateIdle, nil)
	p.load.mu.Unlock()

	Logger().Info("sprite: source cleared")
	p.emitState(StateIdle, nil)
}

// SetThreshold changes the chroma key threshold. When a source is set it
// is processed again, passing through StateLoading.
func (p *Player) SetThreshold(t float64) {
	p.mu.Lock()
	key := p.key.WithThreshold(t)
	p.mu.Unlock()
	p.SetChromaKey(key)
}

// SetChromaKey replaces the chroma key. When a source is set it is
// processed again, passing through StateLoading.
func (p *Player) SetChromaKey(k ChromaKey) {
	p.mu.Lock()
	p.key = k
	p.mu.Unlock()

	p.load.mu.Lock()
	src := p.load.src
	p.load.mu.Unlock()

	if !src.empty() {
		p.startLoad(src)
	}
}

// Reload processes the current source again. It returns ErrNoSheet when
// no source is set.
func (p *Player) Reload() (uint64, error) {
	p.load.mu.Lock()
	src := p.load.src
	p.load.mu.Unlock()

	if src.empty() {
		return 0, ErrNoSheet
	}
	return p.startLoad(src), nil
}

func (p *Player) startLoad(src source) uint64 {
	if p.closed.Load() {
		Logger().Warn("sprite: load ignored, player closed")
		return 0
	}

	key := p.ChromaKey()
	grid := p.Grid()

	p.load.mu.Lock()
	gen, ctx, cancel := p.load.begin(p.opts.loadTimeout)
	p.load.src = src
	p.transition(StateLoading, nil)
	p.load.mu.Unlock()

	p.emitState(StateLoading, nil)
	go p.runLoad(ctx, cancel, gen, src, key, grid)
	return gen
}

type loadResult struct {
	sheet *Sheet
	err   *LoadError
}

// runLoad waits for one load request. Decoding is not interruptible, so the
// work runs on its own goroutine and the timeout is enforced here.
func (p *Player) runLoad(ctx context.Context, cancel context.CancelFunc, gen uint64, src source, key ChromaKey, grid Grid) {
	defer cancel()

	start := time.Now()
	results := make(chan loadResult, 1)
	go func() {
		results <- p.process(ctx, gen, src, key, grid)
	}()

	var res loadResult
	select {
	case res = <-results:
	case <-ctx.Done():
		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			Logger().Info("sprite: load superseded", "generation", gen)
			return
		}
		res.err = newLoadError(KindTimeout, gen, fmt.Errorf("after %s", p.opts.loadTimeout))
	}

	// Extraction observed a deadline before the select did.
	if res.err != nil && errors.Is(res.err.Err, context.DeadlineExceeded) {
		res.err = newLoadError(KindTimeout, gen, fmt.Errorf("after %s", p.opts.loadTimeout))
	}
	if res.err != nil && errors.Is(res.err.Err, context.Canceled) {
		Logger().Info("sprite: load superseded", "generation", gen)
		return
	}

	p.commit(gen, res, time.Since(start))
}

// process decodes and keys one source. It never panics.
func (p *Player) process(ctx context.Context, gen uint64, src source, key ChromaKey, grid Grid) (res loadResult) {
	defer func() {
		if r := recover(); r != nil {
			res = loadResult{err: newLoadError(KindProcessing, gen, fmt.Errorf("%v", r))}
		}
	}()

	img, format := src.img, ""
	if img == nil {
		var err error
		img, format, err = spriteimage.DecodeBytes(src.data)
		if err != nil {
			return loadResult{err: newLoadError(KindDecode, gen, err)}
		}
	}
	if img.Bounds().Empty() {
		return loadResult{err: newLoadError(KindDecode, gen, errEmptyImage)}
	}

	out, err := p.extractor.Extract(ctx, img, key)
	if err != nil {
		return loadResult{err: newLoadError(KindProcessing, gen, err)}
	}

	sheet := &Sheet{
		ID:         uuid.NewString(),
		Generation: gen,
		Image:      out,
		Key:        key,
		Format:     format,
	}
	if p.opts.inspect {
		report := Inspect(img, grid, key)
		sheet.Report = &report
	}
	return loadResult{sheet: sheet}
}

// commit publishes a finished load if its generation is still current.
func (p *Player) commit(gen uint64, res loadResult, elapsed time.Duration) {
	p.load.mu.Lock()
	if gen != p.load.gen {
		p.load.mu.Unlock()
		Logger().Info("sprite: stale load discarded", "generation", gen)
		return
	}
	p.load.cancelFn = nil

	var (
		state LoadState
		err   error
	)
	if res.err != nil {
		p.sheet.Store(nil)
		state, err = StateError, res.err
	} else {
		res.sheet.Elapsed = elapsed
		p.sheet.Store(res.sheet)
		state = StateSuccess
	}
	p.transition(state, err)
	p.load.mu.Unlock()

	if res.err != nil {
		Logger().Error("sprite: load failed", "generation", gen, "kind", res.err.Kind, "err", res.err.Err)
	} else {
		b := res.sheet.Image.Rect
		Logger().Info("sprite: sheet loaded",
			"id", res.sheet.ID, "generation", gen,
			"width", b.Dx(), "height", b.Dy(), "format", res.sheet.Format)
		Logger().Debug("sprite: load timing", "generation", gen, "elapsed", elapsed)
		if r := res.sheet.Report; r != nil {
			for _, w := range r.Warnings {
				Logger().Warn("sprite: sheet inspection", "id", res.sheet.ID, "finding", w)
			}
		}
	}
	p.emitState(state, err)
}

// SetSheet installs an already processed sheet, skipping decoding and
// extraction, and supersedes any in-flight load. The sheet must not be
// modified afterwards. Because no source is retained, SetThreshold does
// not reprocess an installed sheet.
func (p *Player) SetSheet(s *Sheet) {
	if s == nil || s.Image == nil {
		p.ClearSource()
		return
	}

	p.load.mu.Lock()
	if p.load.cancelFn != nil {
		p.load.cancelFn()
		p.load.cancelFn = nil
	}
	p.load.gen++
	p.load.src = source{}
	p.sheet.Store(s)
	p.transition(StateSuccess, nil)
	p.load.mu.Unlock()

	Logger().Info("sprite: sheet installed", "id", s.ID)
	p.emitState(StateSuccess, nil)
}
