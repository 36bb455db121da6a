package report

import (
	"image/color"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/achepred/metrics"
	"github.com/YuminosukeSato/achepred/pkg/errors"
	"github.com/YuminosukeSato/achepred/qsar"
)

const (
	chartWidth  = 6 * vg.Inch
	chartHeight = 4 * vg.Inch
	scoreBins   = 30
)

var (
	inactiveColor = color.RGBA{R: 66, G: 133, B: 244, A: 255}
	activeColor   = color.RGBA{R: 219, G: 68, B: 55, A: 255}
	cutoffColor   = color.RGBA{R: 120, G: 120, B: 120, A: 255}
)

// ScoreHistogram plots the distribution of potency scores with the class
// cut-offs marked, and saves it to path. NaN scores are skipped.
func ScoreHistogram(scores []float64, scoreColumn, path string) error {
	values := make(plotter.Values, 0, len(scores))
	for _, s := range scores {
		if errors.IsFinite(s) {
			values = append(values, s)
		}
	}
	if len(values) == 0 {
		return errors.NewEmptyInputError("ScoreHistogram", 0, 1)
	}

	p := plot.New()
	p.Title.Text = "Potency distribution"
	p.X.Label.Text = scoreColumn
	p.Y.Label.Text = "compounds"

	h, err := plotter.NewHist(values, scoreBins)
	if err != nil {
		return errors.Wrap(err, "build histogram")
	}
	h.FillColor = inactiveColor
	p.Add(h)

	top := 0.0
	for _, b := range h.Bins {
		top = max(top, b.Weight)
	}
	for _, cut := range []struct {
		x     float64
		label string
	}{
		{qsar.InactiveMax, "inactive <= 5"},
		{qsar.ActiveMin, "active >= 6"},
	} {
		l, err := plotter.NewLine(plotter.XYs{{X: cut.x, Y: 0}, {X: cut.x, Y: top}})
		if err != nil {
			return errors.Wrap(err, "build cut-off line")
		}
		l.Color = cutoffColor
		l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(l)
		p.Legend.Add(cut.label, l)
	}

	return save(p, path)
}

// ConfusionChart draws the four confusion-matrix cells as bars.
func ConfusionChart(c metrics.Confusion, title, path string) error {
	if c.Total() == 0 {
		return errors.NewEmptyInputError("ConfusionChart", 0, 4)
	}
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "compounds"

	correct, err := plotter.NewBarChart(plotter.Values{float64(c.TN), 0, 0, float64(c.TP)}, vg.Points(30))
	if err != nil {
		return errors.Wrap(err, "build bar chart")
	}
	correct.Color = inactiveColor
	wrong, err := plotter.NewBarChart(plotter.Values{0, float64(c.FP), float64(c.FN), 0}, vg.Points(30))
	if err != nil {
		return errors.Wrap(err, "build bar chart")
	}
	wrong.Color = activeColor

	p.Add(correct, wrong)
	p.Legend.Add("correct", correct)
	p.Legend.Add("misclassified", wrong)
	p.NominalX("TN", "FP", "FN", "TP")
	return save(p, path)
}

// VarianceChart plots feature variances in descending order against the
// filter threshold.
func VarianceChart(variances []float64, threshold float64, path string) error {
	if len(variances) == 0 {
		return errors.NewEmptyInputError("VarianceChart", 0, 0)
	}
	sorted := append([]float64(nil), variances...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	pts := make(plotter.XYs, len(sorted))
	for i, v := range sorted {
		pts[i] = plotter.XY{X: float64(i), Y: v}
	}

	p := plot.New()
	p.Title.Text = "Feature variance"
	p.X.Label.Text = "feature rank"
	p.Y.Label.Text = "population variance"

	l, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "build variance line")
	}
	l.Color = inactiveColor

	t, err := plotter.NewLine(plotter.XYs{{X: 0, Y: threshold}, {X: float64(len(sorted) - 1), Y: threshold}})
	if err != nil {
		return errors.Wrap(err, "build threshold line")
	}
	t.Color = activeColor
	t.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(plotter.NewGrid(), l, t)
	p.Legend.Add("variance", l)
	p.Legend.Add("threshold", t)
	return save(p, path)
}

// ImportanceChart plots the top features by importance as horizontal bars.
func ImportanceChart(names []string, importances []float64, top int, path string) error {
	if len(names) == 0 || len(names) != len(importances) {
		return errors.NewDimensionError("ImportanceChart", len(names), len(importances), 0)
	}
	order := make([]int, len(names))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return importances[order[a]] > importances[order[b]] })
	if top > 0 && top < len(order) {
		order = order[:top]
	}

	// reversed so the most important feature ends up at the top
	values := make(plotter.Values, len(order))
	labels := make([]string, len(order))
	for k, i := range order {
		values[len(order)-1-k] = importances[i]
		labels[len(order)-1-k] = names[i]
	}

	p := plot.New()
	p.Title.Text = "Feature importance"
	p.X.Label.Text = "mean impurity decrease"

	bars, err := plotter.NewBarChart(values, vg.Points(10))
	if err != nil {
		return errors.Wrap(err, "build bar chart")
	}
	bars.Horizontal = true
	bars.Color = activeColor
	p.Add(bars)
	p.NominalY(labels...)
	return save(p, path)
}

func save(p *plot.Plot, path string) error {
	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return errors.Wrapf(err, "save chart %s", path)
	}
	return nil
}
