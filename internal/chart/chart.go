// Package chart turns a dashboard envelope into an ECharts page.
package chart

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"metricsdash/internal/core"
	"metricsdash/internal/services"
)

// Type is the chart kind.
type Type string

const (
	TypeBar  Type = "bar"
	TypeLine Type = "line"
)

// ErrUnknownType is returned for a chart type other than bar or line.
var ErrUnknownType = errors.New("unknown chart type")

var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// ParseType maps a query value to a chart type. Empty means bar.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case "", TypeBar:
		return TypeBar, nil
	case TypeLine:
		return TypeLine, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// Layout says whether all metrics share one chart or each gets its own.
type Layout string

const (
	LayoutCombined Layout = "combined"
	LayoutSplit    Layout = "split"
)

// ErrUnknownLayout is returned for a layout other than combined or split.
var ErrUnknownLayout = errors.New("unknown chart layout")

// ParseLayout maps a query value to a layout. Empty means combined.
func ParseLayout(s string) (Layout, error) {
	switch Layout(strings.ToLower(strings.TrimSpace(s))) {
	case "", LayoutCombined:
		return LayoutCombined, nil
	case LayoutSplit:
		return LayoutSplit, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLayout, s)
	}
}

// Label turns a field name such as "averageOrderValue" or "return_rate"
// into a display label ("Average Order Value", "Return Rate").
func Label(name string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}

	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			flush()
			continue
		case unicode.IsUpper(r) && i > 0:
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()

	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// Series is one metric plotted against the record dates. A nil point
// is a record that does not carry the metric.
type Series struct {
	Name   string
	Label  string
	Points []any
}

// Config is a renderable chart.
type Config struct {
	Type     Type
	Layout   Layout
	Title    string
	Subtitle string
	Labels   []string
	Series   []Series
	Colors   []string
}

// Build lays out one series per field present in the envelope data, in
// the order the fields first appear. Labels are the record dates.
func Build(t Type, title string, env services.Envelope) Config {
	cfg := Config{
		Type:   t,
		Title:  title,
		Labels: make([]string, len(env.Data)),
	}
	if len(env.Data) > 0 {
		cfg.Subtitle = env.Data[0].Date.String() + " - " + env.Data[len(env.Data)-1].Date.String()
	}

	for i, r := range env.Data {
		cfg.Labels[i] = r.Date.String()
	}

	for _, name := range seriesNames(env.Data) {
		s := Series{Name: name, Label: Label(name), Points: make([]any, len(env.Data))}
		for i, r := range env.Data {
			if v, ok := r.Get(name); ok {
				s.Points[i] = v.Interface()
			}
		}
		cfg.Series = append(cfg.Series, s)
	}

	cfg.Colors = assignColors(len(cfg.Series))
	return cfg
}

func seriesNames(records []core.Record) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range records {
		for _, f := range r.Fields {
			if !seen[f.Name] {
				seen[f.Name] = true
				names = append(names, f.Name)
			}
		}
	}
	return names
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}

// Render writes the chart as a standalone HTML page. The split layout
// draws one chart per series on a single page.
func Render(w io.Writer, cfg Config) error {
	if cfg.Layout != LayoutSplit {
		c, err := newChart(cfg, cfg.Title, cfg.Series, cfg.Colors)
		if err != nil {
			return err
		}
		return c.Render(w)
	}

	page := components.NewPage()
	page.PageTitle = cfg.Title
	for i, s := range cfg.Series {
		var colors []string
		if i < len(cfg.Colors) {
			colors = cfg.Colors[i : i+1]
		}
		c, err := newChart(cfg, s.displayName(), []Series{s}, colors)
		if err != nil {
			return err
		}
		page.AddCharts(c)
	}
	return page.Render(w)
}

type renderableChart interface {
	components.Charter
	Render(w io.Writer) error
}

func newChart(cfg Config, title string, series []Series, colors []string) (renderableChart, error) {
	global := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: cfg.Title,
			Width:     "100%",
			Height:    "480px",
		}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: cfg.Subtitle}),
	}
	if len(colors) > 0 {
		global = append(global, charts.WithColorsOpts(opts.Colors(colors)))
	}

	switch cfg.Type {
	case TypeLine:
		line := charts.NewLine()
		line.SetGlobalOptions(global...)
		line.SetXAxis(cfg.Labels)
		for _, s := range series {
			data := make([]opts.LineData, len(s.Points))
			for i, p := range s.Points {
				data[i] = opts.LineData{Value: p}
			}
			line.AddSeries(s.displayName(), data)
		}
		return line, nil
	case TypeBar, "":
		bar := charts.NewBar()
		bar.SetGlobalOptions(global...)
		bar.SetXAxis(cfg.Labels)
		for _, s := range series {
			data := make([]opts.BarData, len(s.Points))
			for i, p := range s.Points {
				data[i] = opts.BarData{Value: p}
			}
			bar.AddSeries(s.displayName(), data)
		}
		return bar, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
	}
}

func (s Series) displayName() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Name
}
