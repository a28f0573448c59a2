package wheel

import (
	"fmt"
	"strconv"
	"strings"
)

// palette is the fixed category color cycle.  Categories are assigned by
// position (index mod palette size), so the same aggregation always paints
// the same wheel.
var palette = []string{
	"#C0392B", // brick red
	"#D35400", // burnt orange
	"#F1C40F", // saffron
	"#27AE60", // leaf green
	"#16A085", // teal
	"#2980B9", // lake blue
	"#8E44AD", // plum
	"#2C3E50", // slate
	"#A04000", // cocoa
	"#7F8C8D", // ash
}

// CategoryColor returns the palette color for the category at the given
// position in the aggregated order.
func CategoryColor(index int) string {
	if index < 0 {
		index = 0
	}
	return palette[index%len(palette)]
}

// DeriveColor returns a progressively lightened variant of base for the
// sibling at siblingIndex among siblingCount children.  The first sibling is
// lightened by minLighten; the last approaches maxLighten; a lone child sits
// at the midpoint.  The function is pure — equal inputs always yield equal
// output — replacing the imperative chained "brighten" mutation of the
// reference renderer.
func DeriveColor(base string, siblingIndex, siblingCount int) string {
	const (
		minLighten = 0.20
		maxLighten = 0.60
	)
	var f float64
	switch {
	case siblingCount <= 1 || siblingIndex < 0:
		f = (minLighten + maxLighten) / 2
	default:
		if siblingIndex >= siblingCount {
			siblingIndex = siblingCount - 1
		}
		f = minLighten + (maxLighten-minLighten)*float64(siblingIndex)/float64(siblingCount-1)
	}
	return lighten(base, f)
}

// lighten blends a #RRGGBB color toward white by fraction f in [0, 1].
// Malformed input is returned unchanged rather than guessed at.
func lighten(hex string, f float64) string {
	r, g, b, ok := parseHex(hex)
	if !ok {
		return hex
	}
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	blend := func(c uint8) uint8 {
		return uint8(float64(c) + (255-float64(c))*f)
	}
	return fmt.Sprintf("#%02X%02X%02X", blend(r), blend(g), blend(b))
}

func parseHex(hex string) (r, g, b uint8, ok bool) {
	s := strings.TrimPrefix(hex, "#")
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), true
}
