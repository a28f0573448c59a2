package wheel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSVG_Structure(t *testing.T) {
	segs, err := LayoutWheel(simpleWheel(), DefaultRingConfig())
	require.NoError(t, err)

	out := RenderSVG(segs, SVGOptions{Size: 400})

	assert.True(t, strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" width="400" height="400"`))
	assert.True(t, strings.HasSuffix(out, "</svg>\n"))
	assert.Equal(t, len(segs), strings.Count(out, "<path "))

	// Tooltip content is "label (count)".
	assert.Contains(t, out, "<title>Fruity (2)</title>")
	assert.Contains(t, out, "<title>apple (2)</title>")
	assert.Contains(t, out, `data-ring="descriptor"`)
}

func TestRenderSVG_Deterministic(t *testing.T) {
	segs, err := LayoutWheel(simpleWheel(), DefaultRingConfig())
	require.NoError(t, err)
	assert.Equal(t, RenderSVG(segs, SVGOptions{}), RenderSVG(segs, SVGOptions{}))
}

func TestRenderSVG_DefaultSizeAndBackground(t *testing.T) {
	segs, err := LayoutWheel(simpleWheel(), DefaultRingConfig())
	require.NoError(t, err)

	plain := RenderSVG(segs, SVGOptions{})
	assert.Contains(t, plain, `width="600"`)
	assert.NotContains(t, plain, "<rect")

	withBG := RenderSVG(segs, SVGOptions{Background: "#FFFFFF"})
	assert.Contains(t, withBG, `<rect width="600" height="600" fill="#FFFFFF"/>`)
}

func TestRenderSVG_EscapesLabels(t *testing.T) {
	segs := []WheelSegment{{
		StartAngle: StartAngle, EndAngle: StartAngle + 1,
		InnerRadius: 0.3, OuterRadius: 0.5,
		Color: "#C0392B", Label: `sweet & "sour" <citrus>`, Count: 1,
		RingLevel: RingCategory,
	}}
	out := RenderSVG(segs, SVGOptions{})
	assert.Contains(t, out, "sweet &amp; &quot;sour&quot; &lt;citrus&gt;")
}

func TestAnnularPath_FullCircleKeepsSeam(t *testing.T) {
	// A full-circle sector must not collapse to a zero-length arc.
	p := annularPath(100, 100, 30, 50, StartAngle, StartAngle+2*3.141592653589793)
	assert.True(t, strings.HasPrefix(p, "M "))
	assert.Contains(t, p, "A 50.000 50.000")
	assert.True(t, strings.HasSuffix(p, "Z"))
}
