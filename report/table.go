// Package report renders the artifacts of a run: terminal previews of each
// table, PNG charts and a YAML run summary.
package report

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/YuminosukeSato/achepred/dataset"
	"github.com/YuminosukeSato/achepred/metrics"
	"github.com/YuminosukeSato/achepred/qsar"
)

// Preview limits used by the CLI.
const (
	DefaultPreviewRows = 5
	DefaultPreviewCols = 8
)

const ellipsis = "…"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	borderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))
)

// Table renders headers and rows as a bordered terminal table.
func Table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

// Section renders a titled block with a dimmed footnote.
func Section(title, body, note string) string {
	parts := []string{titleStyle.Render(title), body}
	if note != "" {
		parts = append(parts, dimStyle.Render(note))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// FrameTable previews the first maxRows rows and maxCols columns of f.
// Truncated axes end in an ellipsis column or row.
func FrameTable(f *dataset.Frame, maxRows, maxCols int) string {
	return Table(frameCells(f, maxRows, maxCols, nil, nil))
}

// DatasetTable previews the raw dataset with its score column last.
func DatasetTable(ds *dataset.Dataset, maxRows, maxCols int) string {
	score := []string{ds.Schema().ScoreColumn}
	return Table(frameCells(ds.Features(), maxRows, maxCols, score, func(i int) []string {
		return []string{formatFloat(ds.Score(i))}
	}))
}

// LabeledTable previews the labeled dataset with score and class columns
// last.
func LabeledTable(l *qsar.LabeledDataset, maxRows, maxCols int) string {
	schema := l.Schema()
	extra := []string{schema.ScoreColumn, schema.LabelColumn}
	return Table(frameCells(l.Features(), maxRows, maxCols, extra, func(i int) []string {
		return []string{formatFloat(l.Score(i)), l.Label(i).String()}
	}))
}

// TargetTable previews the encoded target vector.
func TargetTable(name string, y []float64, maxRows int) string {
	n := min(len(y), maxRows)
	rows := make([][]string, 0, n+1)
	for i := 0; i < n; i++ {
		rows = append(rows, []string{strconv.Itoa(i), formatFloat(y[i])})
	}
	if len(y) > n {
		rows = append(rows, []string{ellipsis, ellipsis})
	}
	return Table([]string{"", name}, rows)
}

// ClassCountTable lists the number of records per class.
func ClassCountTable(counts map[qsar.Label]int) string {
	labels := make([]qsar.Label, 0, len(counts))
	total := 0
	for l, c := range counts {
		labels = append(labels, l)
		total += c
	}
	sort.Slice(labels, func(a, b int) bool { return labels[a] < labels[b] })

	rows := make([][]string, 0, len(labels)+1)
	for _, l := range labels {
		rows = append(rows, []string{l.String(), strconv.Itoa(counts[l])})
	}
	rows = append(rows, []string{"total", strconv.Itoa(total)})
	return Table([]string{"class", "records"}, rows)
}

// ScoresTable lays out the metrics of each subset side by side. Subsets
// with nil scores are skipped.
func ScoresTable(subsets []string, scores []*metrics.Scores) string {
	headers := []string{"metric"}
	var cols []*metrics.Scores
	for i, s := range scores {
		if s != nil {
			headers = append(headers, subsets[i])
			cols = append(cols, s)
		}
	}

	metricRows := []struct {
		name string
		get  func(*metrics.Scores) string
	}{
		{"accuracy", func(s *metrics.Scores) string { return formatMetric(s.Accuracy) }},
		{"precision", func(s *metrics.Scores) string { return formatMetric(s.Precision) }},
		{"recall", func(s *metrics.Scores) string { return formatMetric(s.Recall) }},
		{"f1", func(s *metrics.Scores) string { return formatMetric(s.F1) }},
		{"mcc", func(s *metrics.Scores) string { return formatMetric(s.MCC) }},
		{"roc_auc", func(s *metrics.Scores) string { return formatMetric(s.AUC) }},
		{"confusion [tn fp; fn tp]", func(s *metrics.Scores) string {
			c := s.Confusion
			return fmt.Sprintf("[%d %d; %d %d]", c.TN, c.FP, c.FN, c.TP)
		}},
	}
	rows := make([][]string, 0, len(metricRows))
	for _, m := range metricRows {
		row := []string{m.name}
		for _, s := range cols {
			row = append(row, m.get(s))
		}
		rows = append(rows, row)
	}
	return Table(headers, rows)
}

// frameCells builds the header and body cells of a preview. extra, when set,
// returns the cells of the trailing extraNames columns for row i.
func frameCells(f *dataset.Frame, maxRows, maxCols int, extraNames []string, extra func(i int) []string) ([]string, [][]string) {
	nRows, nCols := f.Dims()
	showRows, showCols := min(nRows, maxRows), min(nCols, maxCols)
	names := f.Names()

	headers := []string{""}
	headers = append(headers, names[:showCols]...)
	if nCols > showCols {
		headers = append(headers, ellipsis)
	}
	headers = append(headers, extraNames...)

	rows := make([][]string, 0, showRows+1)
	for i := 0; i < showRows; i++ {
		row := []string{strconv.Itoa(i)}
		for j := 0; j < showCols; j++ {
			row = append(row, formatFloat(f.At(i, j)))
		}
		if nCols > showCols {
			row = append(row, ellipsis)
		}
		if extra != nil {
			row = append(row, extra(i)...)
		}
		rows = append(rows, row)
	}
	if nRows > showRows {
		row := make([]string, len(headers))
		for k := range row {
			row[k] = ellipsis
		}
		rows = append(rows, row)
	}
	return headers, rows
}

// Shape describes a table as "rows x cols".
func Shape(rows, cols int) string {
	return fmt.Sprintf("%d rows x %d columns", rows, cols)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func formatMetric(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
