package export

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/sakif/servicecard/internal/render"
)

// OpKind is the kind of a drawing operation.
type OpKind int

const (
	OpRect      OpKind = iota // filled rectangle
	OpRoundRect               // filled rectangle with rounded corners
	OpCircle                  // filled circle inscribed in Rect
	OpStar                    // filled five-point star inscribed in Rect
	OpText                    // one line of text with its baseline at Dot
)

// Op is one positioned drawing operation in device pixels.
type Op struct {
	Kind   OpKind
	Rect   image.Rectangle
	Radius int
	Color  color.RGBA
	Text   string
	Dot    image.Point
	face   faceKey
}

// Document is the off-screen visual representation of a card: a list of
// drawing operations on a canvas of fixed width and content height. It has
// no dependency on any page or stylesheet.
type Document struct {
	Width      int
	Height     int
	Background color.RGBA
	Ops        []Op

	faces *faceCache
}

// Face returns the face an OpText operation is drawn with.
func (d *Document) Face(op Op) (font.Face, error) {
	return d.faces.face(op.face)
}

const (
	lineHeightText    = 1.4
	lineHeightHeading = 1.2
	pillPadX          = 16
	pillPadY          = 8
	iconGap           = 10
	starGap           = 2
)

// layout positions every item of t on a canvas cfg.Width CSS pixels wide,
// scaled by cfg.Scale.
func layout(ctx context.Context, t render.Tree, cfg Config, faces *faceCache) (*Document, error) {
	l := &layouter{
		s:      cfg.Scale,
		faces:  faces,
		width:  int(math.Round(float64(cfg.Width) * cfg.Scale)),
		cardBg: parseColor(t.Background, color.RGBA{0xF5, 0xF5, 0xDC, 0xFF}),
		cardFg: parseColor(t.Color, color.RGBA{0x33, 0x33, 0x33, 0xFF}),
	}
	doc := &Document{Width: l.width, Background: l.cardBg, faces: faces}

	y := 0
	for _, region := range t.Regions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ops, next, err := l.region(region, y)
		if err != nil {
			return nil, fmt.Errorf("laying out %s region: %w", region.Kind, err)
		}
		doc.Ops = append(doc.Ops, ops...)
		y = next
	}

	maxH := int(math.Round(float64(cfg.MaxHeight) * cfg.Scale))
	if y > maxH {
		return nil, fmt.Errorf("card is %dpx tall, limit is %dpx", y, maxH)
	}
	doc.Height = max(y, 1)
	return doc, nil
}

type layouter struct {
	s      float64
	width  int
	faces  *faceCache
	cardBg color.RGBA
	cardFg color.RGBA
}

func (l *layouter) px(v float64) int {
	return int(math.Round(v * l.s))
}

type regionCtx struct {
	x0, w int
	bg    color.RGBA
	fg    color.RGBA
	align render.Align
}

func (l *layouter) region(r render.Region, top int) ([]Op, int, error) {
	rc := regionCtx{
		x0:    l.px(r.Padding.Horizontal),
		w:     l.width - 2*l.px(r.Padding.Horizontal),
		bg:    l.cardBg,
		fg:    l.cardFg,
		align: r.Align,
	}
	if r.Background != "" {
		rc.bg = parseColor(r.Background, l.cardBg)
	}
	if r.Color != "" {
		rc.fg = parseColor(r.Color, l.cardFg)
	}

	var content []Op
	y := top + l.px(r.Padding.Vertical)
	for _, it := range r.Items {
		ops, next, err := l.item(it, rc, y)
		if err != nil {
			return nil, 0, err
		}
		content = append(content, ops...)
		y = next + l.px(it.SpaceAfter)
	}
	bottom := y + l.px(r.Padding.Vertical)

	var ops []Op
	if r.Background != "" {
		ops = append(ops, Op{Kind: OpRect, Rect: image.Rect(0, top, l.width, bottom), Color: rc.bg})
	}
	if r.BorderTop != "" {
		ops = append(ops, Op{Kind: OpRect, Rect: image.Rect(0, top, l.width, top+max(l.px(1), 1)), Color: parseColor(r.BorderTop, rc.fg)})
	}
	return append(ops, content...), bottom, nil
}

func (l *layouter) item(it render.Item, rc regionCtx, y int) ([]Op, int, error) {
	switch it.Kind {
	case render.ItemServiceRow:
		return l.serviceRow(it, rc, y)
	case render.ItemPill:
		return l.pill(it, rc, y)
	case render.ItemRating:
		return l.rating(it, rc, y)
	case render.ItemHeading:
		return l.paragraph(it.Text, it.Style, lineHeightHeading, rc, y)
	default:
		return l.paragraph(it.Text, it.Style, lineHeightText, rc, y)
	}
}

func (l *layouter) styleFace(st render.Style) (faceKey, font.Face, error) {
	k := faceKey{size: st.Size * l.s, bold: st.Bold, italic: st.Italic}
	f, err := l.faces.face(k)
	return k, f, err
}

// textColor resolves a style's color against the region, blending toward the
// region background when the style is translucent.
func (l *layouter) textColor(st render.Style, rc regionCtx) color.RGBA {
	fg := rc.fg
	if st.Color != "" {
		fg = parseColor(st.Color, rc.fg)
	}
	if st.Opacity > 0 && st.Opacity < 1 {
		fg = blend(rc.bg, fg, st.Opacity)
	}
	return fg
}

// baseline returns the baseline of a line box of height lh starting at top.
func baseline(f font.Face, top, lh int) int {
	m := f.Metrics()
	asc, desc := m.Ascent.Ceil(), m.Descent.Ceil()
	return top + (lh-(asc+desc))/2 + asc
}

func (l *layouter) paragraph(text string, st render.Style, lh float64, rc regionCtx, y int) ([]Op, int, error) {
	key, f, err := l.styleFace(st)
	if err != nil {
		return nil, 0, err
	}
	col := l.textColor(st, rc)
	lineH := int(math.Ceil(st.Size * l.s * lh))

	var ops []Op
	for _, line := range wrap(f, l.faces.drawable(text), rc.w) {
		w := font.MeasureString(f, line).Ceil()
		x := rc.x0
		if rc.align == render.AlignCenter {
			x += (rc.w - w) / 2
		}
		if line != "" {
			ops = append(ops, Op{Kind: OpText, Text: line, Dot: image.Pt(x, baseline(f, y, lineH)), Color: col, face: key})
		}
		y += lineH
	}
	return ops, y, nil
}

func (l *layouter) serviceRow(it render.Item, rc regionCtx, y int) ([]Op, int, error) {
	nameKey, nameFace, err := l.styleFace(it.Style)
	if err != nil {
		return nil, 0, err
	}
	priceStyle := it.Style
	if it.TrailingStyle != nil {
		priceStyle = *it.TrailingStyle
	}
	priceKey, priceFace, err := l.styleFace(priceStyle)
	if err != nil {
		return nil, 0, err
	}

	iconSize := it.IconSize
	if iconSize <= 0 {
		iconSize = it.Style.Size
	}
	lineH := int(math.Ceil(max(iconSize, it.Style.Size, priceStyle.Size) * l.s * lineHeightText))

	var ops []Op
	accent := l.textColor(priceStyle, rc)

	// Icon: drawn as text when the fonts can show it, otherwise as a dot.
	iconW := l.px(iconSize)
	iconKey, iconFace, err := l.styleFace(render.Style{Size: iconSize})
	if err != nil {
		return nil, 0, err
	}
	if icon := strings.TrimSpace(l.faces.drawable(it.Icon)); icon != "" {
		iconW = max(iconW, font.MeasureString(iconFace, icon).Ceil())
		ops = append(ops, Op{Kind: OpText, Text: icon, Dot: image.Pt(rc.x0, baseline(iconFace, y, lineH)), Color: rc.fg, face: iconKey})
	} else {
		d := l.px(iconSize * 0.5)
		cy := y + lineH/2
		cx := rc.x0 + iconW/2
		ops = append(ops, Op{Kind: OpCircle, Rect: image.Rect(cx-d/2, cy-d/2, cx+d/2, cy+d/2), Color: accent})
	}

	price := l.faces.drawable(it.Trailing)
	priceW := font.MeasureString(priceFace, price).Ceil()
	right := rc.x0 + rc.w
	if price != "" {
		ops = append(ops, Op{Kind: OpText, Text: price, Dot: image.Pt(right-priceW, baseline(priceFace, y, lineH)), Color: accent, face: priceKey})
	}

	nameX := rc.x0 + iconW + l.px(iconGap)
	nameW := right - priceW - l.px(iconGap) - nameX
	nameCol := l.textColor(it.Style, rc)
	lines := wrap(nameFace, l.faces.drawable(it.Text), max(nameW, 1))
	for i, line := range lines {
		if line != "" {
			ops = append(ops, Op{Kind: OpText, Text: line, Dot: image.Pt(nameX, baseline(nameFace, y+i*lineH, lineH)), Color: nameCol, face: nameKey})
		}
	}
	return ops, y + max(len(lines), 1)*lineH, nil
}

func (l *layouter) pill(it render.Item, rc regionCtx, y int) ([]Op, int, error) {
	key, f, err := l.styleFace(it.Style)
	if err != nil {
		return nil, 0, err
	}
	padX, padY := l.px(pillPadX), l.px(pillPadY)
	lineH := int(math.Ceil(it.Style.Size * l.s * lineHeightText))
	lines := wrap(f, l.faces.drawable(it.Text), rc.w-2*padX)

	textW := 0
	for _, line := range lines {
		textW = max(textW, font.MeasureString(f, line).Ceil())
	}
	w := textW + 2*padX
	h := len(lines)*lineH + 2*padY
	x := rc.x0
	if rc.align == render.AlignCenter {
		x += (rc.w - w) / 2
	}

	bg := parseColor(it.Background, rc.fg)
	ops := []Op{{Kind: OpRoundRect, Rect: image.Rect(x, y, x+w, y+h), Radius: min(l.px(20), h/2), Color: bg}}
	col := l.textColor(it.Style, regionCtx{fg: rc.fg, bg: bg})
	for i, line := range lines {
		lw := font.MeasureString(f, line).Ceil()
		lx := x + (w-lw)/2
		ops = append(ops, Op{Kind: OpText, Text: line, Dot: image.Pt(lx, baseline(f, y+padY+i*lineH, lineH)), Color: col, face: key})
	}
	return ops, y + h, nil
}

func (l *layouter) rating(it render.Item, rc regionCtx, y int) ([]Op, int, error) {
	key, f, err := l.styleFace(it.Style)
	if err != nil {
		return nil, 0, err
	}
	lineH := int(math.Ceil(it.Style.Size * l.s * lineHeightText))
	star := l.px(it.Style.Size)
	gap := l.px(starGap)
	top := y + (lineH-star)/2

	var ops []Op
	x := rc.x0
	gold := color.RGBA{0xF5, 0xB3, 0x01, 0xFF}
	for i := 0; i < it.Rating; i++ {
		ops = append(ops, Op{Kind: OpStar, Rect: image.Rect(x, top, x+star, top+star), Color: gold})
		x += star + gap
	}
	if it.Rating > 0 {
		x += l.px(iconGap) - gap
	}
	if author := l.faces.drawable(it.Text); author != "" {
		ops = append(ops, Op{Kind: OpText, Text: author, Dot: image.Pt(x, baseline(f, y, lineH)), Color: l.textColor(it.Style, rc), face: key})
	}
	return ops, y + lineH, nil
}

// wrap breaks text into lines no wider than maxW pixels, splitting words
// that do not fit on a line of their own.
func wrap(f font.Face, text string, maxW int) []string {
	limit := fixed.I(maxW)
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := ""
		for _, w := range words {
			candidate := w
			if line != "" {
				candidate = line + " " + w
			}
			if line != "" && font.MeasureString(f, candidate) > limit {
				lines = append(lines, line)
				candidate = w
			}
			line = candidate
			for font.MeasureString(f, line) > limit && utf8.RuneCountInString(line) > 1 {
				head, tail := splitToFit(f, line, limit)
				lines = append(lines, head)
				line = tail
			}
		}
		lines = append(lines, line)
	}
	return lines
}

// splitToFit returns the longest prefix of s (at least one rune) that fits
// in limit, and the rest.
func splitToFit(f font.Face, s string, limit fixed.Int26_6) (string, string) {
	var width fixed.Int26_6
	prev := rune(-1)
	for i, r := range s {
		if prev >= 0 {
			width += f.Kern(prev, r)
		}
		adv, _ := f.GlyphAdvance(r)
		if width+adv > limit && i > 0 {
			return s[:i], s[i:]
		}
		width += adv
		prev = r
	}
	return s, ""
}

func parseColor(hex string, fallback color.RGBA) color.RGBA {
	c, err := colorful.Hex(strings.TrimSpace(hex))
	if err != nil {
		return fallback
	}
	r, g, b := c.RGB255()
	return color.RGBA{r, g, b, 0xFF}
}

// blend mixes fg over bg with the given opacity.
func blend(bg, fg color.RGBA, opacity float64) color.RGBA {
	from := colorful.Color{R: float64(bg.R) / 255, G: float64(bg.G) / 255, B: float64(bg.B) / 255}
	to := colorful.Color{R: float64(fg.R) / 255, G: float64(fg.G) / 255, B: float64(fg.B) / 255}
	r, g, b := from.BlendRgb(to, opacity).Clamped().RGB255()
	return color.RGBA{r, g, b, 0xFF}
}
