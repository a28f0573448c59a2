package wheel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryColor_CyclesPalette(t *testing.T) {
	assert.Equal(t, palette[0], CategoryColor(0))
	assert.Equal(t, palette[1], CategoryColor(1))
	assert.Equal(t, palette[0], CategoryColor(len(palette)))
	assert.Equal(t, palette[0], CategoryColor(-3))
}

func TestDeriveColor_Deterministic(t *testing.T) {
	a := DeriveColor("#C0392B", 2, 5)
	b := DeriveColor("#C0392B", 2, 5)
	assert.Equal(t, a, b)
}

func TestDeriveColor_ProgressivelyLighter(t *testing.T) {
	base := "#2980B9"
	prev := -1
	for i := 0; i < 4; i++ {
		c := DeriveColor(base, i, 4)
		r, g, b, ok := parseHex(c)
		assert.True(t, ok)
		lum := int(r) + int(g) + int(b)
		assert.Greater(t, lum, prev, "sibling %d should be lighter than %d", i, i-1)
		prev = lum
	}
}

func TestDeriveColor_LighterThanBase(t *testing.T) {
	base := "#27AE60"
	br, bg, bb, _ := parseHex(base)
	r, g, b, ok := parseHex(DeriveColor(base, 0, 3))
	assert.True(t, ok)
	assert.Greater(t, int(r)+int(g)+int(b), int(br)+int(bg)+int(bb))
}

func TestDeriveColor_SingleChildMidpoint(t *testing.T) {
	assert.Equal(t, lighten("#C0392B", 0.40), DeriveColor("#C0392B", 0, 1))
}

func TestLighten_Bounds(t *testing.T) {
	assert.Equal(t, "#FFFFFF", lighten("#000000", 1))
	assert.Equal(t, "#000000", lighten("#000000", 0))
	// out-of-range fractions clamp
	assert.Equal(t, "#FFFFFF", lighten("#123456", 2))
	assert.Equal(t, "#123456", lighten("#123456", -1))
}

func TestLighten_MalformedPassthrough(t *testing.T) {
	assert.Equal(t, "teal", lighten("teal", 0.5))
	assert.Equal(t, "#12", lighten("#12", 0.5))
}

func TestParseHex(t *testing.T) {
	r, g, b, ok := parseHex("#C0392B")
	assert.True(t, ok)
	assert.Equal(t, uint8(0xC0), r)
	assert.Equal(t, uint8(0x39), g)
	assert.Equal(t, uint8(0x2B), b)

	_, _, _, ok = parseHex("not-a-color")
	assert.False(t, ok)
}
