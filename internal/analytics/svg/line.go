package svg

import (
	"fmt"
	"html/template"
	"strings"
)

// Line renders a line chart with an area fill. An empty series renders a flat
// zero line so the dashboard layout never collapses.
func Line(width, height int, series []float64, labels []string, opts LineOpts) (template.HTML, error) {
	if len(series) != len(labels) {
		return "", fmt.Errorf("svg: labels length must match series")
	}
	if len(series) == 0 {
		series, labels = []float64{0, 0}, []string{"", ""}
	}
	f, err := newFrame(width, height, series, opts.Theme)
	if err != nil {
		return "", err
	}
	stroke := fallback(opts.Stroke, "#8c5a2b")
	fill := fallback(opts.Fill, "rgba(140,90,43,0.14)")

	x := func(i int) float64 {
		if len(series) == 1 {
			return f.left + f.w/2
		}
		return f.left + float64(i)*f.w/float64(len(series)-1)
	}

	var path strings.Builder
	for i, v := range series {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&path, "%s%.2f %.2f ", cmd, x(i), f.y(v))
	}
	line := strings.TrimSpace(path.String())

	f.open("line", fallback(opts.Title, "Line chart"), fallback(opts.Description, "Trend data"))
	f.grid()
	fmt.Fprintf(&f.b, `<path d="%s L%.2f %.2f L%.2f %.2f Z" fill="%s" stroke="none" aria-hidden="true"></path>`, line, x(len(series)-1), f.y(0), x(0), f.y(0), fill)
	fmt.Fprintf(&f.b, `<path d="%s" fill="none" stroke="%s" stroke-width="2" stroke-linejoin="round" stroke-linecap="round"></path>`, line, stroke)
	if opts.ShowDots {
		for i, v := range series {
			fmt.Fprintf(&f.b, `<circle cx="%.2f" cy="%.2f" r="3" fill="%s"><title>%s</title></circle>`, x(i), f.y(v), stroke, template.HTMLEscapeString(labels[i]+": "+formatTick(v)))
		}
	}
	f.xLabels(labels, x)
	return f.close(), nil
}
