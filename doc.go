// Package sprite plays character animations from chroma-keyed sprite sheets.
//
// # Overview
//
// A sprite sheet is a single image laid out as a grid: each row is one
// animation (idle, happy, sleepy, ...) and each column one frame of it.
// Sheets are drawn on a solid magenta background which sprite removes
// before playback, so characters can be shown on any backdrop.
//
// The package has two parts:
//   - Extractor: turns a decoded sheet into a transparent one by keying
//     out pixels close to the key color, with a short linear alpha ramp
//     that softens anti-aliased edges.
//   - Player: a frame scheduler and compositor that advances through the
//     selected row at a fixed frame rate and draws the current cell,
//     cropped and scaled, onto a square output surface.
//
// # Quick Start
//
//	p := sprite.NewPlayer()
//	defer p.Close()
//
//	p.SetSource(pngBytes)
//	if state, err := p.Wait(ctx); state != sprite.StateSuccess {
//	    return err
//	}
//	p.SetAnimation(sprite.RowHappyLove)
//	p.Start(ctx)
//
//	frame := p.Snapshot() // *image.RGBA of the current frame
//
// # Loading
//
// SetSource decodes and keys on a background goroutine. The Player moves
// from StateIdle to StateLoading and then to StateSuccess or StateError.
// Errors wrap ErrDecode, ErrProcessing or ErrTimeout. A newer source always
// wins; results of superseded loads are discarded.
//
// # Parameters
//
// Row, FPS, inset, scale and output size may change at any moment. They are
// read once at the start of every tick and never restart the render loop.
// Changing the row restarts playback at the first frame of the new row.
// Out-of-range values are clamped instead of rejected.
//
// # Coordinate System
//
// Cells are addressed as (row, frame) with (0, 0) at the top-left of the
// sheet. The output surface has its origin at the top-left; a scaled frame
// is centered and may extend past every edge of the surface.
package sprite
