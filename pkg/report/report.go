// Package report renders predictions as HTML fragments, the HTML index page, and
// Markdown for MCP clients.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/richard-senior/footy/internal/logger"
	"github.com/richard-senior/footy/pkg/datasource"
	"github.com/richard-senior/footy/pkg/predictor"
)

//go:embed templates/*.html
var files embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"pct": func(p float64) string {
		return fmt.Sprintf("%.1f%%", p*100)
	},
	"goals": func(g float64) string {
		return fmt.Sprintf("%.2f", g)
	},
}).ParseFS(files, "templates/*.html"))

// markdown renders headings, lists and the probability tables
var markdown = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

type indexPage struct {
	Leagues       []string
	DefaultLeague string
}

// Index writes the prediction form page
func Index(w io.Writer) error {
	return templates.ExecuteTemplate(w, "index.html", indexPage{
		Leagues:       datasource.Leagues(),
		DefaultLeague: datasource.DefaultLeague,
	})
}

// HTML renders a prediction as an HTML fragment
func HTML(r *predictor.Result) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "report", r); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}

// Markdown renders a prediction as Markdown by converting its HTML report
func Markdown(r *predictor.Result) (string, error) {
	html, err := HTML(r)
	if err != nil {
		return "", err
	}
	md, err := markdown.ConvertString(html)
	if err != nil {
		logger.Error("Failed to convert HTML to Markdown:", err)
		return "", err
	}
	return md, nil
}
