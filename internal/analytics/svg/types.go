package svg

// LineOpts customises the line chart renderer.
type LineOpts struct {
	Title       string
	Description string
	Stroke      string
	Fill        string
	ShowDots    bool
	Theme       Theme
}

// BarOpts customises the bar chart renderer.
type BarOpts struct {
	Title       string
	Description string
	Color       string
	ShowValues  bool
	Theme       Theme
}

// Theme carries the colours and spacing shared by every chart.
type Theme struct {
	Axis    string
	Grid    string
	Text    string
	Padding float64
	Ticks   int
}

// Defaults for the analytics charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 240
	DefaultPadding = 32.0
	DefaultTicks   = 5
)

func (t Theme) withDefaults() Theme {
	t.Axis = fallback(t.Axis, "#6b5e4b")
	t.Grid = fallback(t.Grid, "#e8dfd0")
	t.Text = fallback(t.Text, "#3d3428")
	if t.Padding <= 0 {
		t.Padding = DefaultPadding
	}
	if t.Ticks <= 0 {
		t.Ticks = DefaultTicks
	}
	return t
}
