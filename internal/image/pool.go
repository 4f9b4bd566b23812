package image

import (
	"image"
	"sync"
)

// Pool is a thread-safe pool for reusing RGBA buffers of identical size.
//
// Output surfaces are snapshotted every frame by the preview server and the
// exporter; pooling keeps those copies from churning the GC.
//
// Thread safety: All methods are safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	buckets map[image.Point][]*image.RGBA
	maxSize int
}

// NewPool creates a pool retaining at most maxPerBucket buffers per size.
// A maxPerBucket of 0 means unlimited.
func NewPool(maxPerBucket int) *Pool {
	return &Pool{
		buckets: make(map[image.Point][]*image.RGBA),
		maxSize: maxPerBucket,
	}
}

// Get returns a buffer of the given size, reused when possible.
// Reused buffers are not cleared; callers overwrite every pixel.
// Returns nil for non-positive dimensions.
func (p *Pool) Get(width, height int) *image.RGBA {
	if width <= 0 || height <= 0 {
		return nil
	}
	key := image.Pt(width, height)

	p.mu.Lock()
	bucket := p.buckets[key]
	if n := len(bucket); n > 0 {
		buf := bucket[n-1]
		p.buckets[key] = bucket[:n-1]
		p.mu.Unlock()
		return buf
	}
	p.mu.Unlock()

	return image.NewRGBA(image.Rect(0, 0, width, height))
}

// Put returns a buffer to the pool. Nil buffers and buffers beyond the
// bucket limit are discarded.
func (p *Pool) Put(buf *image.RGBA) {
	if buf == nil {
		return
	}
	key := buf.Rect.Size()

	p.mu.Lock()
	defer p.mu.Unlock()

	bucket := p.buckets[key]
	if p.maxSize > 0 && len(bucket) >= p.maxSize {
		return
	}
	p.buckets[key] = append(bucket, buf)
}

// Len returns the number of pooled buffers across all sizes.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, b := range p.buckets {
		n += len(b)
	}
	return n
}
