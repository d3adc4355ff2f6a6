package svg

import (
	"fmt"
	"html/template"
	"math"
)

// Bars renders one bar per label. An empty series renders the bare axes.
func Bars(width, height int, values []float64, labels []string, opts BarOpts) (template.HTML, error) {
	if len(values) != len(labels) {
		return "", fmt.Errorf("svg: labels length must match values")
	}
	f, err := newFrame(width, height, values, opts.Theme)
	if err != nil {
		return "", err
	}
	color := fallback(opts.Color, "#c08a4a")

	f.open("bar", fallback(opts.Title, "Bar chart"), fallback(opts.Description, "Volume per category"))
	f.grid()
	if len(values) == 0 {
		return f.close(), nil
	}

	slot := f.w / float64(len(values))
	barWidth := math.Min(slot*0.6, 64)
	center := func(i int) float64 { return f.left + slot*(float64(i)+0.5) }
	zero := f.y(0)

	for i, v := range values {
		top, bottom := f.y(v), zero
		if top > bottom {
			top, bottom = bottom, top
		}
		fmt.Fprintf(&f.b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" aria-label="%s"></rect>`,
			center(i)-barWidth/2, top, barWidth, bottom-top, color, template.HTMLEscapeString(labels[i]))
		if opts.ShowValues {
			f.text(center(i), top-4, "middle", formatTick(v))
		}
	}
	f.xLabels(labels, center)
	return f.close(), nil
}
