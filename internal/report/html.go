package report

import (
	"bytes"
	"fmt"
	"html"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const htmlHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 960px; margin: 2rem auto; color: #111827; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #9ca3af; padding: 0.3rem 0.6rem; text-align: left; }
th { background: #e5e7eb; }
pre { background: #f3f4f6; padding: 0.8rem; }
</style>
</head>
<body>
`

const htmlTail = "</body>\n</html>\n"

// RenderHTML renders m as a standalone HTML page by converting its Markdown
// form with goldmark.
func RenderHTML(w io.Writer, m *Model) error {
	var src bytes.Buffer
	if err := WriteMarkdown(&src, m); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	gm := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var body bytes.Buffer
	if err := gm.Convert(src.Bytes(), &body); err != nil {
		return fmt.Errorf("convert markdown: %w", err)
	}
	title := m.Title
	if title == "" {
		title = defaultTitle
	}
	if _, err := fmt.Fprintf(w, htmlHead, html.EscapeString(title)); err != nil {
		return err
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return err
	}
	_, err := io.WriteString(w, htmlTail)
	return err
}
