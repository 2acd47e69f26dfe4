package client

import (
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/zhouzirui/opencode-chat/internal/format"
)

// EntryKind classifies a chat log entry.
type EntryKind string

const (
	KindUser      EntryKind = "user"
	KindAssistant EntryKind = "assistant"
	KindError     EntryKind = "error"
	KindSystem    EntryKind = "system"
)

// Entry is one rendered line of the chat log. HTML is computed once, when
// the entry is appended.
type Entry struct {
	Kind EntryKind
	Raw  string
	HTML string
	At   time.Time
}

// Log is the visible conversation. It is owned by the controller's loop.
type Log struct {
	entries []Entry
}

// Append formats raw and adds it to the log.
func (l *Log) Append(kind EntryKind, raw string) Entry {
	entry := Entry{Kind: kind, Raw: raw, At: time.Now()}
	if kind == KindUser {
		entry.HTML = format.Escape(raw)
	} else {
		entry.HTML = format.Format(raw)
	}
	l.entries = append(l.entries, entry)
	return entry
}

// Reset drops every entry and leaves a single system notice.
func (l *Log) Reset(notice string) Entry {
	l.entries = l.entries[:0]
	return l.Append(KindSystem, notice)
}

// Entries returns a copy of the log.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// ExportHTML writes entries as a standalone HTML document.
func ExportHTML(w io.Writer, title string, entries []Entry) error {
	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(title)))
	sb.WriteString("    <meta name=\"generator\" content=\"opencode-chat\">\n")
	sb.WriteString(exportCSS)
	sb.WriteString("</head>\n")
	sb.WriteString("<body>\n")
	sb.WriteString(fmt.Sprintf("    <h1>%s</h1>\n", html.EscapeString(title)))
	sb.WriteString("    <main class=\"chat\">\n")
	for _, entry := range entries {
		sb.WriteString(fmt.Sprintf("        <div class=\"message %s-message\">\n", entry.Kind))
		if !entry.At.IsZero() {
			sb.WriteString(fmt.Sprintf("            <time datetime=\"%s\">%s</time>\n",
				entry.At.Format(time.RFC3339), entry.At.Format("15:04:05")))
		}
		sb.WriteString(fmt.Sprintf("            <div class=\"content\">%s</div>\n", entry.HTML))
		sb.WriteString("        </div>\n")
	}
	sb.WriteString("    </main>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

const exportCSS = `    <style>
        body { font-family: -apple-system, "Segoe UI", sans-serif; max-width: 860px; margin: 2rem auto; color: #222; }
        .message { padding: 0.6rem 0.9rem; margin: 0.5rem 0; border-radius: 6px; }
        .user-message { background: #e8f0fe; }
        .assistant-message { background: #f5f5f5; }
        .error-message { background: #fdecea; color: #a12622; }
        .system-message { background: #fff8e1; font-style: italic; }
        time { display: block; font-size: 0.75rem; color: #888; }
        pre { background: #272822; color: #f8f8f2; padding: 0.6rem; overflow-x: auto; }
        pre.code-output { background: #1e1e1e; color: #9cdcfe; }
        .tool-execution { font-weight: 600; margin-bottom: 0.3rem; }
    </style>
`
