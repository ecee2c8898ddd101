package server

import (
	"html"
	"html/template"
	"regexp"
	"strings"
)

// codeBlockRegexp matches ```lang content``` blocks.
var codeBlockRegexp = regexp.MustCompile("```([a-zA-Z0-9_+-]*)\n([\\s\\S]+?)```")

// formatMessage makes message text HTML-safe, rendering fenced code blocks as
// <pre> and preserving line breaks elsewhere.
func formatMessage(content string) template.HTML {
	var builder strings.Builder
	last := 0
	for _, match := range codeBlockRegexp.FindAllStringSubmatchIndex(content, -1) {
		builder.WriteString(formatText(content[last:match[0]]))
		language := content[match[2]:match[3]]
		code := strings.TrimSpace(content[match[4]:match[5]])
		builder.WriteString(`<pre><code class="language-`)
		builder.WriteString(html.EscapeString(language))
		builder.WriteString(`">`)
		builder.WriteString(html.EscapeString(code))
		builder.WriteString(`</code></pre>`)
		last = match[1]
	}
	builder.WriteString(formatText(content[last:]))
	return template.HTML(builder.String())
}

func formatText(text string) string {
	return strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
}
