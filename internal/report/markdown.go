package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// WriteMarkdown renders m as GitHub-flavored Markdown.
func WriteMarkdown(w io.Writer, m *Model) error {
	md := markdown.NewMarkdown(w)

	title := m.Title
	if title == "" {
		title = defaultTitle
	}
	md.H1(title)
	md.PlainText("")
	info := [][]string{{"Generated", m.Generated.Format("2006-01-02 15:04:05 MST")}}
	if m.FileName != "" {
		info = append([][]string{{"File", "`" + m.FileName + "`"}}, info...)
	}
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: info})
	md.PlainText("")

	writeHealth(md, m)
	writeMetrics(md, m)
	writeMissing(md, m)
	writeDistributions(md, m)
	writeLog(md, m)

	return md.Build()
}

// Markdown renders m to a string.
func Markdown(m *Model) (string, error) {
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, m); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func writeHealth(md *markdown.Markdown, m *Model) {
	md.H2("Health Score Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"", "Before", "After"},
		Rows: [][]string{
			{"Health Score", formatScore(m.Before.HealthScore), formatScore(m.After.HealthScore)},
		},
	})
	md.PlainText("")
	delta := m.After.HealthScore - m.Before.HealthScore
	switch {
	case delta > 0:
		md.Tip(fmt.Sprintf("Health score improved by %.2f points.", delta))
	case delta < 0:
		md.Warningf("Health score dropped by %.2f points.", -delta)
	default:
		md.Note("Health score unchanged.")
	}
	md.PlainText("")
}

func writeMetrics(md *markdown.Markdown, m *Model) {
	md.H2("Dataset Statistics")
	md.PlainText("")
	rows := make([][]string, len(m.Metrics))
	for i, mt := range m.Metrics {
		rows[i] = []string{mt.Name, mt.Before, mt.After}
	}
	md.Table(markdown.TableSet{Header: []string{"Metric", "Before", "After"}, Rows: rows})
	md.PlainText("")
}

func writeMissing(md *markdown.Markdown, m *Model) {
	if len(m.Missing) == 0 {
		return
	}
	md.H2("Missing Values Before Cleaning")
	md.PlainText("")
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Missing values by column"),
		piechart.WithShowData(true),
	)
	for _, c := range m.Missing {
		chart.LabelAndIntValue(c.Column, uint64(c.Count))
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func writeDistributions(md *markdown.Markdown, m *Model) {
	md.H2("Cleaned Data Distributions")
	md.PlainText("")
	if len(m.Distributions) == 0 {
		md.PlainText("No numeric columns.")
		md.PlainText("")
		return
	}
	rows := make([][]string, len(m.Distributions))
	for i, d := range m.Distributions {
		rows[i] = []string{
			d.Column,
			strconv.Itoa(d.Count),
			formatNum(d.Min),
			formatNum(d.Max),
			formatNum(d.Mean),
			formatNum(d.Median),
			formatNum(d.Std),
			sparkline(d.Histogram),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Column", "Count", "Min", "Max", "Mean", "Median", "Std", "Histogram"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeLog(md *markdown.Markdown, m *Model) {
	md.H2("Cleaning Log")
	md.PlainText("")
	if len(m.Log) == 0 {
		md.PlainText("No actions recorded.")
		return
	}
	items := make([]string, len(m.Log))
	for i, e := range m.Log {
		items[i] = fmt.Sprintf("%s %s", e.Time.Format("15:04:05"), e.Action)
	}
	md.BulletList(items...)
	md.PlainText("")
}

func formatScore(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) + "%" }

func formatNum(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// sparkline draws bucket counts as block characters scaled to the largest.
func sparkline(counts []float64) string {
	maxC := 0.0
	for _, c := range counts {
		if c > maxC {
			maxC = c
		}
	}
	if maxC == 0 {
		return ""
	}
	var b strings.Builder
	for _, c := range counts {
		idx := int(c / maxC * float64(len(sparkBlocks)-1))
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}
