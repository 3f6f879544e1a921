package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrPoolStopped is returned by Acquire after Stop.
var ErrPoolStopped = errors.New("export: surface pool stopped")

// maxRetainedPixels bounds the buffer a released surface keeps for reuse.
const maxRetainedPixels = 4 << 20

// Surface is an off-screen RGBA canvas checked out of a Pool.
type Surface struct {
	img   *image.RGBA
	buf   []uint8
	inUse bool
}

// Image returns the canvas. It is only valid until the surface is released.
func (s *Surface) Image() *image.RGBA {
	return s.img
}

// Pool manages a fixed set of reusable rendering surfaces. The number of
// surfaces bounds how many exports rasterize concurrently.
type Pool struct {
	logger      *slog.Logger
	surfaces    chan *Surface
	outstanding atomic.Int64

	mu      sync.Mutex
	stopped bool
}

// NewPool creates a pool with size surfaces.
func NewPool(size int, logger *slog.Logger) *Pool {
	p := &Pool{
		logger:   logger,
		surfaces: make(chan *Surface, size),
	}
	for i := 0; i < size; i++ {
		p.surfaces <- &Surface{}
	}
	return p
}

// Acquire returns a cleared surface of w×h pixels. It blocks until a surface
// is free or the context is canceled. Every successful Acquire must be
// paired with Release.
func (p *Pool) Acquire(ctx context.Context, w, h int) (*Surface, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("export: invalid surface size %dx%d", w, h)
	}

	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return nil, ErrPoolStopped
	}

	var s *Surface
	select {
	case s = <-p.surfaces:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	n := w * h * 4
	if cap(s.buf) >= n {
		s.buf = s.buf[:n]
		clear(s.buf)
	} else {
		s.buf = make([]uint8, n)
	}
	s.img = &image.RGBA{Pix: s.buf, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
	s.inUse = true
	p.outstanding.Add(1)
	return s, nil
}

// Release returns s to the pool. Releasing nil or an already released
// surface does nothing.
func (p *Pool) Release(s *Surface) {
	if s == nil || !s.inUse {
		return
	}
	s.inUse = false
	s.img = nil
	if cap(s.buf) > maxRetainedPixels*4 {
		s.buf = nil
	}
	p.outstanding.Add(-1)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		s.buf = nil
		return
	}
	p.surfaces <- s
}

// Outstanding is the number of surfaces currently checked out.
func (p *Pool) Outstanding() int {
	return int(p.outstanding.Load())
}

// Stop drops the idle surfaces. Surfaces still checked out are dropped when
// they are released.
func (p *Pool) Stop() {
	p.logger.Info("shutting down export surface pool", slog.Int("outstanding", p.Outstanding()))

	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	for {
		select {
		case s := <-p.surfaces:
			s.buf = nil
		default:
			return
		}
	}
}
