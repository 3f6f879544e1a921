// Package export turns a card into a downloadable PNG.
//
// The pipeline has three stages, all in process:
//  1. render the card in full mode (render.Tree)
//  2. lay the tree out into a Document: positioned rectangles, shapes and
//     text lines on a canvas of fixed width and content height
//  3. rasterize the document onto a surface borrowed from a Pool and encode it
//
// Every export gets its own font faces and surface and gives both back on
// every path, including timeouts and panics.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/sakif/servicecard/internal/apperror"
	"github.com/sakif/servicecard/internal/model"
	"github.com/sakif/servicecard/internal/render"
)

// DefaultFilenameStem is used when the card has no provider name.
const DefaultFilenameStem = "dogge"

// Image is an exported card.
type Image struct {
	Filename string
	Data     []byte // PNG
	Width    int
	Height   int
}

// Result is delivered by Start once the export settles.
type Result struct {
	Image *Image
	Err   error
}

// Exporter produces PNG images of cards.
type Exporter struct {
	renderer *render.Renderer
	fonts    *Fonts
	pool     *Pool
	raster   Rasterizer
	config   Config
	logger   *slog.Logger
}

// Option customizes an Exporter.
type Option func(*Exporter)

// WithRasterizer replaces the default vector rasterizer.
func WithRasterizer(r Rasterizer) Option {
	return func(e *Exporter) { e.raster = r }
}

// New creates an exporter with its own surface pool.
func New(renderer *render.Renderer, cfg Config, logger *slog.Logger, opts ...Option) (*Exporter, error) {
	fonts, err := LoadFonts()
	if err != nil {
		return nil, err
	}
	cfg = cfg.normalized()

	e := &Exporter{
		renderer: renderer,
		fonts:    fonts,
		pool:     NewPool(cfg.MaxConcurrent, logger),
		raster:   NewVectorRasterizer(),
		config:   cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}

	logger.Info("card exporter ready",
		slog.Int("width", cfg.Width),
		slog.Float64("scale", cfg.Scale),
		slog.Int("maxConcurrent", cfg.MaxConcurrent),
	)
	return e, nil
}

// Close releases the surface pool.
func (e *Exporter) Close() {
	e.pool.Stop()
}

// Pool exposes the surface pool, mainly so callers can observe Outstanding.
func (e *Exporter) Pool() *Pool {
	return e.pool
}

// Start begins exporting card in the background and returns a channel that
// receives exactly one Result. A caller that loses interest may simply stop
// listening: the channel is buffered and the export still cleans up.
func (e *Exporter) Start(ctx context.Context, card model.Card) <-chan Result {
	out := make(chan Result, 1)
	if !card.HasMeaningfulContent() {
		out <- Result{Err: apperror.EmptyCard("export the card")}
		close(out)
		return out
	}

	card = card.Clone()
	go func() {
		defer close(out)
		img, err := e.generate(ctx, card)
		out <- Result{Image: img, Err: err}
	}()
	return out
}

// Export exports card and waits for the result. It fails with EmptyCard for
// a card without meaningful content and with ExportFailed for anything that
// goes wrong while producing the image.
func (e *Exporter) Export(ctx context.Context, card model.Card) (*Image, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	select {
	case res := <-e.Start(ctx, card):
		return res.Image, res.Err
	case <-ctx.Done():
		// The background export sees the same context and releases its
		// surface as soon as it notices.
		return nil, apperror.ExportFailed(fmt.Errorf("export timed out: %w", ctx.Err()))
	}
}

func (e *Exporter) generate(ctx context.Context, card model.Card) (img *Image, err error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			img, err = nil, apperror.ExportFailed(fmt.Errorf("export panicked: %v", r))
		}
		if err != nil {
			e.logger.Warn("card export failed",
				slog.String("provider", card.ProviderInfo.Name),
				slog.String("error", err.Error()),
			)
		}
	}()

	tree := e.renderer.Render(card, render.Full)
	if tree.Empty() {
		return nil, apperror.EmptyCard("export the card")
	}

	faces := newFaceCache(e.fonts)
	defer faces.Close()

	doc, err := layout(ctx, tree, e.config, faces)
	if err != nil {
		return nil, apperror.ExportFailed(fmt.Errorf("layout: %w", err))
	}

	surface, err := e.pool.Acquire(ctx, doc.Width, doc.Height)
	if err != nil {
		return nil, apperror.ExportFailed(fmt.Errorf("acquiring surface: %w", err))
	}
	defer e.pool.Release(surface)

	if err := e.raster.Rasterize(ctx, doc, surface.Image()); err != nil {
		return nil, apperror.ExportFailed(fmt.Errorf("rasterizing: %w", err))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, surface.Image()); err != nil {
		return nil, apperror.ExportFailed(fmt.Errorf("encoding png: %w", err))
	}
	if err := ctx.Err(); err != nil {
		return nil, apperror.ExportFailed(err)
	}

	e.logger.Debug("card exported",
		slog.String("provider", card.ProviderInfo.Name),
		slog.Int("width", doc.Width),
		slog.Int("height", doc.Height),
		slog.Int("bytes", buf.Len()),
		slog.Duration("duration", time.Since(start)),
	)

	return &Image{
		Filename: Filename(card),
		Data:     buf.Bytes(),
		Width:    doc.Width,
		Height:   doc.Height,
	}, nil
}

// Filename is the suggested download name: "<provider name>-card.png", or
// "dogge-card.png" when the card has no provider name. Characters that are
// not allowed in file names are replaced by dashes.
func Filename(card model.Card) string {
	stem := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r), strings.ContainsRune(`/\:*?"<>|`, r):
			return '-'
		}
		return r
	}, strings.TrimSpace(card.ProviderInfo.Name))
	stem = strings.Trim(stem, ". -")
	if stem == "" {
		stem = DefaultFilenameStem
	}
	return stem + "-card.png"
}
