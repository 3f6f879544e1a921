package export

import (
	"fmt"
	"math"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// Fonts is the parsed Go font family. Parsed fonts are shared by all exports;
// faces are per export because a font.Face is not safe for concurrent use.
type Fonts struct {
	regular    *opentype.Font
	bold       *opentype.Font
	italic     *opentype.Font
	boldItalic *opentype.Font
}

// LoadFonts parses the embedded Go fonts.
func LoadFonts() (*Fonts, error) {
	var f Fonts
	for _, src := range []struct {
		name string
		ttf  []byte
		dst  **opentype.Font
	}{
		{"regular", goregular.TTF, &f.regular},
		{"bold", gobold.TTF, &f.bold},
		{"italic", goitalic.TTF, &f.italic},
		{"bold italic", gobolditalic.TTF, &f.boldItalic},
	} {
		parsed, err := opentype.Parse(src.ttf)
		if err != nil {
			return nil, fmt.Errorf("export: parsing %s font: %w", src.name, err)
		}
		*src.dst = parsed
	}
	return &f, nil
}

func (f *Fonts) variant(bold, italic bool) *opentype.Font {
	switch {
	case bold && italic:
		return f.boldItalic
	case bold:
		return f.bold
	case italic:
		return f.italic
	}
	return f.regular
}

type faceKey struct {
	size   float64 // device pixels
	bold   bool
	italic bool
}

// faceCache holds the faces of one export. Close releases all of them.
type faceCache struct {
	fonts *Fonts
	faces map[faceKey]font.Face
	buf   sfnt.Buffer
}

func newFaceCache(fonts *Fonts) *faceCache {
	return &faceCache{fonts: fonts, faces: make(map[faceKey]font.Face)}
}

func (c *faceCache) face(k faceKey) (font.Face, error) {
	k.size = math.Round(k.size*4) / 4
	if f, ok := c.faces[k]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(c.fonts.variant(k.bold, k.italic), &opentype.FaceOptions{
		Size:    k.size,
		DPI:     72, // 1pt == 1px
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("export: creating %.2fpx face: %w", k.size, err)
	}
	c.faces[k] = f
	return f, nil
}

// drawable drops the runes the fonts have no glyph for (emoji, mostly) and
// turns other whitespace into plain spaces.
func (c *faceCache) drawable(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\n' {
			out = append(out, r)
			continue
		}
		if unicode.IsSpace(r) {
			out = append(out, ' ')
			continue
		}
		idx, err := c.fonts.regular.GlyphIndex(&c.buf, r)
		if err != nil || idx == 0 {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

func (c *faceCache) Close() error {
	var firstErr error
	for k, f := range c.faces {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.faces, k)
	}
	return firstErr
}
