// ABOUTME: HTML transcript export of a timeline view
// ABOUTME: Message bodies are rendered as Markdown with goldmark and sanitised with a UGC policy

package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/2389/anonchat/internal/timeline"
)

var (
	markdown = goldmark.New(goldmark.WithRendererOptions(gmhtml.WithHardWraps()))

	bodyPolicy = bluemonday.UGCPolicy().
			AllowURLSchemes("http", "https", "mailto").
			RequireNoFollowOnLinks(true)
)

var transcriptTmpl = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="generated">Exported {{.GeneratedAt}} &middot; {{len .Entries}} messages</p>
{{- range .Entries}}
<div class="message {{.Side}} {{.Origin}}">
<div class="meta"><strong>{{.Label}}</strong> <time datetime="{{.ISOTime}}">{{.Time}}</time></div>
<div class="body">{{.Body}}</div>
</div>
{{- end}}
</body>
</html>
`))

type transcriptEntry struct {
	Label   string
	Side    string
	Origin  string
	Time    string
	ISOTime string
	Body    template.HTML
}

// RenderMarkdown converts message content to sanitised HTML.
func RenderMarkdown(content string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return template.HTML(bodyPolicy.Sanitize(buf.String())), nil
}

// Transcript writes msgs as a standalone HTML document. Labels follow the
// same viewer rules as the terminal view.
func Transcript(w io.Writer, title string, v Viewer, msgs []timeline.Message, generatedAt time.Time) error {
	entries := make([]transcriptEntry, 0, len(msgs))
	for _, m := range msgs {
		body, err := RenderMarkdown(m.Content)
		if err != nil {
			return err
		}
		side := "message-left"
		if IsOwn(v, m) {
			side = "message-right"
		}
		entries = append(entries, transcriptEntry{
			Label:   AuthorLabel(v, m),
			Side:    side,
			Origin:  m.Origin.String(),
			Time:    m.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			ISOTime: m.CreatedAt.UTC().Format(time.RFC3339),
			Body:    body,
		})
	}

	data := struct {
		Title       string
		GeneratedAt string
		Entries     []transcriptEntry
	}{
		Title:       title,
		GeneratedAt: generatedAt.Local().Format("2006-01-02 15:04"),
		Entries:     entries,
	}
	if err := transcriptTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("rendering transcript: %w", err)
	}
	return nil
}
