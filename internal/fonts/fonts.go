// Package fonts rasterizes a glyph atlas and lays out screen-space
// vertex quads for the debug HUD (spec's carried-through ambient
// observability surface: the profiler's stats string still needs to
// reach the screen even though the spec's Non-goals exclude a full UI
// layer). Grounded on rt/core/text_renderer.go's TextRenderer, kept
// structurally the same since glyph-atlas packing and quad layout are
// not specific to the source's rasterizer domain.
package fonts

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Vertex is one corner of a glyph quad: clip-space position, atlas UV,
// and an RGBA tint.
type Vertex struct {
	Pos   [2]float32
	UV    [2]float32
	Color [4]float32
}

// Item is one line (or block) of HUD text to lay out, in normalized
// screen pixel coordinates with (0,0) at the top-left.
type Item struct {
	Text     string
	Position [2]float32
	Scale    float32
	Color    [4]float32
}

// Glyph is one rasterized character's atlas placement and advance.
type Glyph struct {
	UVMin [2]float32
	UVMax [2]float32
	Size  [2]float32
	Off   [2]float32
	Adv   float32
}

// AtlasSize is the fixed square atlas texture edge length in texels.
const AtlasSize = 512

// Atlas packs the printable ASCII range of one font face into a single
// alpha-only texture, grounded on the teacher's TextRenderer.
type Atlas struct {
	Image  *image.Alpha
	Glyphs map[rune]Glyph
	Face   font.Face
}

// NewAtlas parses an OpenType/TrueType font file and packs glyphs 32..126
// into an AtlasSize x AtlasSize alpha atlas in row-major bin-packing
// order, exactly the teacher's NewTextRenderer.
func NewAtlas(fontPath string, size float64) (*Atlas, error) {
	raw, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("fonts: read %s: %w", fontPath, err)
	}

	f, err := opentype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("fonts: parse %s: %w", fontPath, err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("fonts: face %s: %w", fontPath, err)
	}

	img := image.NewAlpha(image.Rect(0, 0, AtlasSize, AtlasSize))
	glyphs := make(map[rune]Glyph)

	x, y := 2, 2
	rowHeight := 0

	for r := rune(32); r < 127; r++ {
		bounds, mask, _, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}

		w := mask.Bounds().Dx()
		h := mask.Bounds().Dy()

		if x+w >= AtlasSize {
			x = 2
			y += rowHeight + 4
			rowHeight = 0
		}
		if y+h >= AtlasSize {
			break
		}

		draw.Draw(img, image.Rect(x, y, x+w, y+h), mask, mask.Bounds().Min, draw.Src)

		glyphs[r] = Glyph{
			UVMin: [2]float32{float32(x) / AtlasSize, float32(y) / AtlasSize},
			UVMax: [2]float32{float32(x+w) / AtlasSize, float32(y+h) / AtlasSize},
			Size:  [2]float32{float32(w), float32(h)},
			Off:   [2]float32{float32(bounds.Min.X), float32(bounds.Min.Y)},
			Adv:   float32(adv) / 64.0,
		}

		x += w + 4
		if h > rowHeight {
			rowHeight = h
		}
	}

	return &Atlas{Image: img, Glyphs: glyphs, Face: face}, nil
}

// BuildVertices lays out items as a flat triangle list in clip space
// ([-1,1]), exactly the teacher's BuildVertices quad winding.
func (a *Atlas) BuildVertices(items []Item, screenW, screenH int) []Vertex {
	verts := make([]Vertex, 0, len(items)*6)

	sw := float32(screenW)
	sh := float32(screenH)
	metrics := a.Face.Metrics()
	ascent := float32(metrics.Ascent.Ceil())
	lineHeight := float32(metrics.Height.Ceil())

	for _, item := range items {
		startX := item.Position[0]
		posX := startX
		posY := item.Position[1] + ascent*item.Scale

		for _, r := range item.Text {
			if r == '\n' {
				posX = startX
				posY += lineHeight * item.Scale
				continue
			}

			g, ok := a.Glyphs[r]
			if !ok {
				continue
			}

			x0 := (posX+g.Off[0]*item.Scale)/sw*2.0 - 1.0
			y0 := 1.0 - (posY+g.Off[1]*item.Scale)/sh*2.0
			x1 := (posX+(g.Off[0]+g.Size[0])*item.Scale)/sw*2.0 - 1.0
			y1 := 1.0 - (posY+(g.Off[1]+g.Size[1])*item.Scale)/sh*2.0

			verts = append(verts,
				Vertex{Pos: [2]float32{x0, y0}, UV: [2]float32{g.UVMin[0], g.UVMin[1]}, Color: item.Color},
				Vertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.UVMax[0], g.UVMin[1]}, Color: item.Color},
				Vertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.UVMin[0], g.UVMax[1]}, Color: item.Color},

				Vertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.UVMax[0], g.UVMin[1]}, Color: item.Color},
				Vertex{Pos: [2]float32{x1, y1}, UV: [2]float32{g.UVMax[0], g.UVMax[1]}, Color: item.Color},
				Vertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.UVMin[0], g.UVMax[1]}, Color: item.Color},
			)

			posX += g.Adv * item.Scale
		}
	}

	return verts
}

// MeasureText returns the pixel width/height a string would occupy at
// scale, for HUD layout decisions (e.g. right-aligning the stats panel).
func (a *Atlas) MeasureText(text string, scale float32) (float32, float32) {
	if a == nil {
		return 0, 0
	}

	lineHeight := float32(a.Face.Metrics().Height.Ceil())
	maxW, currentW := float32(0), float32(0)
	lines := 1

	for _, r := range text {
		if r == '\n' {
			if currentW > maxW {
				maxW = currentW
			}
			currentW = 0
			lines++
			continue
		}
		g, ok := a.Glyphs[r]
		if !ok {
			continue
		}
		currentW += g.Adv * scale
	}
	if currentW > maxW {
		maxW = currentW
	}

	return maxW, lineHeight * scale * float32(lines)
}

// LineHeight returns the font's line height in pixels at scale.
func (a *Atlas) LineHeight(scale float32) float32 {
	if a == nil {
		return 0
	}
	return float32(a.Face.Metrics().Height.Ceil()) * scale
}
