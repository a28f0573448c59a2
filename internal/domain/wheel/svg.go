package wheel

import (
	"fmt"
	"math"
	"strings"
)

// SVGOptions controls static SVG rendering of a laid-out wheel.
type SVGOptions struct {
	// Size is the width and height of the square viewport in pixels.
	// Values <= 0 select 600.
	Size int
	// Background is the canvas fill; empty means transparent.
	Background string
}

// RenderSVG serializes laid-out segments into a standalone SVG document.
//
// This covers the export half of the rendering surface: hover tooltips come
// from embedded <title> elements ("label (count)"); interactive behavior
// (click callbacks, zoom/pan) belongs to the consuming front end, which
// renders the same segments itself.  Output is deterministic for equal input.
func RenderSVG(segments []WheelSegment, opts SVGOptions) string {
	size := opts.Size
	if size <= 0 {
		size = 600
	}

	// Segment radii are expressed against the layout's configured radius;
	// scale them so the descriptor ring touches the viewport edge with a
	// small margin.
	maxR := 0.0
	for _, s := range segments {
		if s.OuterRadius > maxR {
			maxR = s.OuterRadius
		}
	}
	if maxR == 0 {
		maxR = 1
	}
	center := float64(size) / 2
	scale := (center - 4) / maxR

	var sb strings.Builder
	fmt.Fprintf(&sb,
		`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		size, size, size, size)
	sb.WriteByte('\n')
	if opts.Background != "" {
		fmt.Fprintf(&sb, `<rect width="%d" height="%d" fill="%s"/>`, size, size, opts.Background)
		sb.WriteByte('\n')
	}

	for _, s := range segments {
		fmt.Fprintf(&sb,
			`<path d="%s" fill="%s" stroke="#FFFFFF" stroke-width="1" data-ring="%s"><title>%s (%d)</title></path>`,
			annularPath(center, center, s.InnerRadius*scale, s.OuterRadius*scale, s.StartAngle, s.EndAngle),
			s.Color, s.RingLevel, escapeXML(s.Label), s.Count)
		sb.WriteByte('\n')
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

// annularPath builds the path data for an annular sector between angles a0
// and a1 (radians, a1 > a0) with inner radius ri and outer radius ro.
func annularPath(cx, cy, ri, ro, a0, a1 float64) string {
	span := a1 - a0
	// SVG arc commands collapse when start and end coincide, so a
	// full-circle sector keeps a hairline seam.
	if span >= 2*math.Pi-1e-9 {
		a1 = a0 + 2*math.Pi - 1e-4
		span = a1 - a0
	}

	largeArc := 0
	if span > math.Pi {
		largeArc = 1
	}

	x0o, y0o := cx+ro*math.Cos(a0), cy+ro*math.Sin(a0)
	x1o, y1o := cx+ro*math.Cos(a1), cy+ro*math.Sin(a1)
	x1i, y1i := cx+ri*math.Cos(a1), cy+ri*math.Sin(a1)
	x0i, y0i := cx+ri*math.Cos(a0), cy+ri*math.Sin(a0)

	return fmt.Sprintf("M %.3f %.3f A %.3f %.3f 0 %d 1 %.3f %.3f L %.3f %.3f A %.3f %.3f 0 %d 0 %.3f %.3f Z",
		x0o, y0o, ro, ro, largeArc, x1o, y1o,
		x1i, y1i, ri, ri, largeArc, x0i, y0i)
}

func escapeXML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}
