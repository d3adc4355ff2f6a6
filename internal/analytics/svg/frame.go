package svg

import (
	"errors"
	"fmt"
	"html/template"
	"math"
	"strings"
)

var errViewport = errors.New("svg: viewport too small")

// frame is the plotting area of a chart together with its value scale.
type frame struct {
	width, height int
	left, top     float64
	w, h          float64
	min, max      float64
	theme         Theme
	b             strings.Builder
}

func newFrame(width, height int, values []float64, theme Theme) (*frame, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	theme = theme.withDefaults()
	f := &frame{
		width:  width,
		height: height,
		left:   theme.Padding * 1.5,
		top:    theme.Padding,
		theme:  theme,
	}
	f.w = float64(width) - f.left - theme.Padding
	f.h = float64(height) - 2*theme.Padding
	if f.w <= 0 || f.h <= 0 {
		return nil, errViewport
	}

	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		f.min = math.Min(f.min, v)
		f.max = math.Max(f.max, v)
	}
	if f.max-f.min < 1e-9 {
		f.max = f.min + 1
	}
	return f, nil
}

// y maps a value onto the vertical axis.
func (f *frame) y(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return f.top + f.h - (v-f.min)/(f.max-f.min)*f.h
}

func (f *frame) bottom() float64 { return f.top + f.h }

func (f *frame) open(kind, title, desc string) {
	titleID := makeID(title, kind+"-title")
	descID := makeID(title, kind+"-desc")
	fmt.Fprintf(&f.b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="%s %s">`, f.width, f.height, titleID, descID)
	fmt.Fprintf(&f.b, `<title id="%s">%s</title>`, titleID, template.HTMLEscapeString(title))
	fmt.Fprintf(&f.b, `<desc id="%s">%s</desc>`, descID, template.HTMLEscapeString(desc))
}

func (f *frame) grid() {
	t := f.theme
	for i := 0; i <= t.Ticks; i++ {
		ratio := float64(i) / float64(t.Ticks)
		value := f.min + (f.max-f.min)*ratio
		y := f.y(value)
		fmt.Fprintf(&f.b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="0.5" stroke-dasharray="2,4" aria-hidden="true"></line>`, f.left, y, f.left+f.w, y, t.Grid)
		f.text(f.left-6, y+4, "end", formatTick(value))
	}
	fmt.Fprintf(&f.b, `<g stroke="%s" stroke-width="1" aria-hidden="true">`, t.Axis)
	fmt.Fprintf(&f.b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f"></line>`, f.left, f.top, f.left, f.bottom())
	zero := f.y(0)
	fmt.Fprintf(&f.b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f"></line>`, f.left, zero, f.left+f.w, zero)
	f.b.WriteString(`</g>`)
}

func (f *frame) text(x, y float64, anchor, s string) {
	fmt.Fprintf(&f.b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="%s">%s</text>`, x, y, f.theme.Text, anchor, template.HTMLEscapeString(s))
}

// xLabels writes category labels, thinning them so neighbours never collide.
func (f *frame) xLabels(labels []string, at func(int) float64) {
	every := 1
	if maxLabels := int(f.w / 48); maxLabels > 0 && len(labels) > maxLabels {
		every = (len(labels) + maxLabels - 1) / maxLabels
	}
	for i, label := range labels {
		if i%every != 0 {
			continue
		}
		f.text(at(i), f.bottom()+14, "middle", label)
	}
}

func (f *frame) close() template.HTML {
	f.b.WriteString(`</svg>`)
	return template.HTML(f.b.String())
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '-'
		}
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return cleaned + "-" + suffix
}

func formatTick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 10_000_000:
		return fmt.Sprintf("%.1fCr", v/10_000_000)
	case abs >= 100_000:
		return fmt.Sprintf("%.1fL", v/100_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	case math.Abs(v-math.Round(v)) < 1e-9:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
