// Package format turns the assistant's markdown-like replies into HTML
// fragments for the chat log.
//
// The conversion is a fixed sequence of substitutions rather than a parser:
// text is escaped first, then tool headers, bold spans, fenced blocks, inline
// code and list items are rewritten, and finally newlines outside <pre>
// blocks become <br>. Markers that are never closed stay as literal text.
package format

import (
	"regexp"
	"strings"
)

const (
	preOpen   = "<pre"
	preClose  = "</pre>"
	lineBreak = "<br>"

	// OutputClass tags fenced blocks that look like command output.
	OutputClass = "code-output"
)

var (
	escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

	toolHeaderPattern = regexp.MustCompile("\\*\\*Tool Execution:\\*\\* `([^`]+)`")
	boldPattern       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	fencePattern      = regexp.MustCompile("```([\\s\\S]*?)```")
	inlineCodePattern = regexp.MustCompile("`([^`]+)`")
	listItemPattern   = regexp.MustCompile(`(?m)^- (.+)$`)
	listRunPattern    = regexp.MustCompile(`(<li>.*</li>\n?)+`)
)

const toolHeaderHTML = `<div class="tool-execution"><strong>🔧 Tool Execution:</strong> <code>${1}</code></div>`

// Format converts raw reply text into an HTML fragment. It must be applied
// exactly once per text; formatting its own output is not supported.
func Format(raw string) string {
	content := Escape(raw)
	content = toolHeaderPattern.ReplaceAllString(content, toolHeaderHTML)
	content = boldPattern.ReplaceAllString(content, "<strong>${1}</strong>")
	content = replaceFences(content)
	content = inlineCodePattern.ReplaceAllString(content, "<code>${1}</code>")
	content = listItemPattern.ReplaceAllString(content, "<li>${1}</li>")
	content = listRunPattern.ReplaceAllString(content, "<ul>${0}</ul>")
	return breakLines(content)
}

// Escape replaces &, < and > with their entities. Quotes are left alone.
func Escape(raw string) string {
	return escaper.Replace(raw)
}

// IsOutputBlock reports whether a fenced block body reads like shell output.
func IsOutputBlock(code string) bool {
	return strings.Contains(code, "$ ") || strings.Contains(code, "Status:")
}

func replaceFences(content string) string {
	matches := fencePattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return content
	}

	var b strings.Builder
	b.Grow(len(content) + len(matches)*32)
	last := 0
	for _, m := range matches {
		b.WriteString(content[last:m[0]])
		code := content[m[2]:m[3]]
		if IsOutputBlock(code) {
			b.WriteString(`<pre class="` + OutputClass + `"><code>`)
		} else {
			b.WriteString("<pre><code>")
		}
		b.WriteString(strings.TrimSpace(code))
		b.WriteString("</code></pre>")
		last = m[1]
	}
	b.WriteString(content[last:])
	return b.String()
}

// breakLines converts newlines to <br> everywhere except inside <pre> blocks.
func breakLines(content string) string {
	parts := strings.Split(content, preOpen)
	for i, part := range parts {
		if i == 0 {
			parts[i] = strings.ReplaceAll(part, "\n", lineBreak)
			continue
		}
		inner, rest, closed := strings.Cut(part, preClose)
		if !closed {
			parts[i] = part
			continue
		}
		parts[i] = inner + preClose + strings.ReplaceAll(rest, "\n", lineBreak)
	}
	return strings.Join(parts, preOpen)
}
