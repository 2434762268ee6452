package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nao1215/markdown"
	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/commentpulse/internal/record"
	tbl "github.com/TobiSchelling/commentpulse/internal/table"
)

const barWidth = 40

var renderer = goldmark.New()

// Report is the presentation view of one scored dataset.
type Report struct {
	Source         string // base URL that was scraped
	Termination    string // why scraping stopped
	Summary        tbl.Summary
	CommentLengths []Bin
	Sentiments     []Bin
	Rows           []record.Scored
}

// Build computes both histograms and the totals from the table.
func Build(t *tbl.Table, bins int) (*Report, error) {
	lengths, err := t.CommentLengths()
	if err != nil {
		return nil, fmt.Errorf("reading comment lengths: %w", err)
	}
	averages, err := t.AverageSentiments()
	if err != nil {
		return nil, fmt.Errorf("reading average sentiments: %w", err)
	}
	summary, err := t.Summary()
	if err != nil {
		return nil, fmt.Errorf("reading summary: %w", err)
	}
	rows, err := t.Rows()
	if err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	return &Report{
		Summary:        *summary,
		CommentLengths: Histogram(lengths, bins),
		Sentiments:     Histogram(averages, bins),
		Rows:           rows,
	}, nil
}

// Markdown renders the report with text bar charts.
func Markdown(r *Report) string {
	md := markdown.NewMarkdown(io.Discard)
	md.H1("Comment Sentiment Report")
	md.PlainText("")

	var facts []string
	if r.Source != "" {
		facts = append(facts, "Source: "+r.Source)
	}
	if r.Termination != "" {
		facts = append(facts, "Stopped: "+r.Termination)
	}
	facts = append(facts,
		fmt.Sprintf("Posts: %d", r.Summary.Records),
		fmt.Sprintf("Comments: %d", r.Summary.Comments),
		fmt.Sprintf("Mean of average sentiments: %.3f", r.Summary.AverageSentiment),
	)
	md.BulletList(facts...)
	md.PlainText("")

	sections := []struct {
		title, x, y string
		bins        []Bin
		format      string
	}{
		{"Distribution of Comment Lengths", "Length of comments", "Number of comments", r.CommentLengths, "%7.1f"},
		{"Distribution of Average Comment Sentiments", "Average sentiment score", "Number of posts", r.Sentiments, "%7.3f"},
	}
	for _, s := range sections {
		md.H2(s.title)
		md.PlainText("")
		if len(s.bins) == 0 {
			md.PlainText("No data.")
			md.PlainText("")
			continue
		}
		md.PlainText(fmt.Sprintf("_%s (rows) vs. %s (bars)_", s.x, s.y))
		md.PlainText("")
		var bars strings.Builder
		writeBars(&bars, s.bins, s.format)
		md.CodeBlocks(markdown.SyntaxHighlight(""), strings.TrimSuffix(bars.String(), "\n"))
		md.PlainText("")
	}
	return md.String()
}

func writeBars(w io.Writer, bins []Bin, format string) {
	peak := 0
	for _, bin := range bins {
		peak = max(peak, bin.Count)
	}
	for _, bin := range bins {
		n := 0
		if peak > 0 {
			n = bin.Count * barWidth / peak
		}
		if bin.Count > 0 && n == 0 {
			n = 1
		}
		fmt.Fprintf(w, format+" - "+format+" | %s %d\n", bin.Low, bin.High, strings.Repeat("#", n), bin.Count)
	}
}

// HTML renders the markdown report to an HTML fragment.
func HTML(r *Report) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(Markdown(r)), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

// WriteTable prints one line per post: title, comment count and average sentiment.
func WriteTable(w io.Writer, rows []record.Scored) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Title", "Comments", "Avg sentiment"})
	for i, r := range rows {
		t.AppendRow(table.Row{i + 1, r.Title, len(r.Comments), fmt.Sprintf("%+.3f", r.AverageSentiment)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 60}})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// Write renders r to w in one of the output formats: table, markdown, html or json.
func Write(w io.Writer, r *Report, format string) error {
	switch format {
	case "", "table":
		WriteTable(w, r.Rows)
		_, err := fmt.Fprintf(w, "%d posts, %d comments, mean sentiment %+.3f\n",
			r.Summary.Records, r.Summary.Comments, r.Summary.AverageSentiment)
		return err
	case "markdown":
		_, err := io.WriteString(w, Markdown(r))
		return err
	case "html":
		html, err := HTML(r)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, html)
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r.Rows)
	}
	return fmt.Errorf("unknown report format %q", format)
}
