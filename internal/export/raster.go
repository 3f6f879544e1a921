package export

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Rasterizer paints a Document onto a surface of exactly the document's size.
type Rasterizer interface {
	Rasterize(ctx context.Context, doc *Document, dst *image.RGBA) error
}

// checkEvery is how many operations are drawn between context checks.
const checkEvery = 32

// VectorRasterizer draws shapes with x/image/vector and text with the
// document's font faces.
type VectorRasterizer struct{}

func NewVectorRasterizer() *VectorRasterizer {
	return &VectorRasterizer{}
}

func (VectorRasterizer) Rasterize(ctx context.Context, doc *Document, dst *image.RGBA) error {
	if dst.Bounds().Dx() != doc.Width || dst.Bounds().Dy() != doc.Height {
		return fmt.Errorf("surface is %v, document is %dx%d", dst.Bounds().Size(), doc.Width, doc.Height)
	}

	draw.Draw(dst, dst.Bounds(), image.NewUniform(doc.Background), image.Point{}, draw.Src)

	for i, op := range doc.Ops {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		src := image.NewUniform(op.Color)
		switch op.Kind {
		case OpRect:
			draw.Draw(dst, op.Rect.Intersect(dst.Bounds()), src, image.Point{}, draw.Over)
		case OpRoundRect:
			fillPath(dst, src, op.Rect, roundRectPath(op.Rect.Size(), op.Radius))
		case OpCircle:
			fillPath(dst, src, op.Rect, roundRectPath(op.Rect.Size(), min(op.Rect.Dx(), op.Rect.Dy())/2))
		case OpStar:
			fillPath(dst, src, op.Rect, starPath(op.Rect.Size()))
		case OpText:
			face, err := doc.Face(op)
			if err != nil {
				return err
			}
			d := font.Drawer{Dst: dst, Src: src, Face: face, Dot: fixed.P(op.Dot.X, op.Dot.Y)}
			d.DrawString(op.Text)
		default:
			return fmt.Errorf("unknown drawing operation %d", op.Kind)
		}
	}
	return ctx.Err()
}

// pathFunc traces a shape in coordinates local to its bounding box.
type pathFunc func(z *vector.Rasterizer)

// fillPath fills the shape traced by path inside r. The vector rasterizer
// only covers r, not the whole surface.
func fillPath(dst *image.RGBA, src image.Image, r image.Rectangle, path pathFunc) {
	if r.Empty() || !r.Overlaps(dst.Bounds()) {
		return
	}
	z := vector.NewRasterizer(r.Dx(), r.Dy())
	z.DrawOp = draw.Over
	path(z)
	z.Draw(dst, r, src, image.Point{})
}

// roundRectPath traces a size.X×size.Y box with corners of radius rad,
// approximated by quadratic curves. A radius of half the shorter side gives
// a pill, or a circle when the box is square.
func roundRectPath(size image.Point, rad int) pathFunc {
	return func(z *vector.Rasterizer) {
		x0, y0 := float32(0), float32(0)
		x1, y1 := float32(size.X), float32(size.Y)
		k := float32(max(min(rad, size.X/2, size.Y/2), 0))

		z.MoveTo(x0+k, y0)
		z.LineTo(x1-k, y0)
		z.QuadTo(x1, y0, x1, y0+k)
		z.LineTo(x1, y1-k)
		z.QuadTo(x1, y1, x1-k, y1)
		z.LineTo(x0+k, y1)
		z.QuadTo(x0, y1, x0, y1-k)
		z.LineTo(x0, y0+k)
		z.QuadTo(x0, y0, x0+k, y0)
		z.ClosePath()
	}
}

// starPath traces a five-point star inscribed in a size.X×size.Y box, pointing up.
func starPath(size image.Point) pathFunc {
	return func(z *vector.Rasterizer) {
		cx := float64(size.X) / 2
		cy := float64(size.Y) / 2
		outer := float64(min(size.X, size.Y)) / 2
		inner := outer * 0.382

		for i := 0; i < 10; i++ {
			rad := outer
			if i%2 == 1 {
				rad = inner
			}
			angle := -math.Pi/2 + float64(i)*math.Pi/5
			x := float32(cx + rad*math.Cos(angle))
			y := float32(cy + rad*math.Sin(angle))
			if i == 0 {
				z.MoveTo(x, y)
			} else {
				z.LineTo(x, y)
			}
		}
		z.ClosePath()
	}
}
