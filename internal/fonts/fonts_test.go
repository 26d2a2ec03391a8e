package fonts

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// stubFace is a minimal font.Face for exercising Atlas layout logic
// without parsing a real font file.
type stubFace struct{}

func (stubFace) Close() error { return nil }
func (stubFace) Glyph(dot fixed.Point26_6, r rune) (image.Rectangle, image.Image, image.Point, fixed.Int26_6, bool) {
	return image.Rectangle{}, nil, image.Point{}, 0, false
}
func (stubFace) GlyphBounds(r rune) (fixed.Rectangle26_6, fixed.Int26_6, bool) {
	return fixed.Rectangle26_6{}, 0, false
}
func (stubFace) GlyphAdvance(r rune) (fixed.Int26_6, bool) { return 0, false }
func (stubFace) Kern(r0, r1 rune) fixed.Int26_6            { return 0 }
func (stubFace) Metrics() font.Metrics {
	return font.Metrics{
		Height: fixed.I(16),
		Ascent: fixed.I(12),
	}
}

func newTestAtlas() *Atlas {
	return &Atlas{
		Face: stubFace{},
		Glyphs: map[rune]Glyph{
			'A': {UVMin: [2]float32{0, 0}, UVMax: [2]float32{0.1, 0.1}, Size: [2]float32{8, 10}, Off: [2]float32{0, -10}, Adv: 9},
			'B': {UVMin: [2]float32{0.1, 0}, UVMax: [2]float32{0.2, 0.1}, Size: [2]float32{8, 10}, Off: [2]float32{0, -10}, Adv: 9},
		},
	}
}

func TestAtlas_BuildVerticesEmitsSixVerticesPerGlyph(t *testing.T) {
	a := newTestAtlas()
	items := []Item{{Text: "AB", Position: [2]float32{0, 0}, Scale: 1, Color: [4]float32{1, 1, 1, 1}}}

	verts := a.BuildVertices(items, 800, 600)
	assert.Len(t, verts, 12, "2 glyphs * 6 vertices (2 triangles) each")
}

func TestAtlas_BuildVerticesSkipsUnknownRunesAndNewlines(t *testing.T) {
	a := newTestAtlas()
	items := []Item{{Text: "A\nZB", Position: [2]float32{0, 0}, Scale: 1, Color: [4]float32{1, 1, 1, 1}}}

	verts := a.BuildVertices(items, 800, 600)
	assert.Len(t, verts, 12, "newline and the unmapped 'Z' glyph contribute no vertices")
}

func TestAtlas_MeasureTextAccumulatesAdvanceAcrossLines(t *testing.T) {
	a := newTestAtlas()
	w, h := a.MeasureText("AB\nA", 1)
	assert.Equal(t, float32(18), w, "first line AB is widest: 9+9")
	assert.Equal(t, float32(32), h, "2 lines * 16px line height")
}

func TestAtlas_MeasureTextOnNilReceiverIsZero(t *testing.T) {
	var a *Atlas
	w, h := a.MeasureText("anything", 2)
	assert.Zero(t, w)
	assert.Zero(t, h)
}

func TestAtlas_LineHeightScalesWithFontMetrics(t *testing.T) {
	a := newTestAtlas()
	assert.Equal(t, float32(32), a.LineHeight(2))
}
