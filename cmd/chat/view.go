package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/opencode-chat/internal/client"
)

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213")).
			Bold(true)
)

// terminalView prints controller updates. Assistant replies are rendered as
// markdown when a renderer is available.
type terminalView struct {
	out      io.Writer
	markdown *glamour.TermRenderer
}

func newTerminalView(out io.Writer, width int) *terminalView {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		renderer = nil
	}
	return &terminalView{out: out, markdown: renderer}
}

func (v *terminalView) render(content string) string {
	if v.markdown == nil {
		return content
	}
	rendered, err := v.markdown.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

func (v *terminalView) OnEntry(e client.Entry) {
	switch e.Kind {
	case client.KindUser:
		fmt.Fprintln(v.out, userStyle.Render("you> ")+e.Raw)
	case client.KindAssistant:
		fmt.Fprintln(v.out, v.render(e.Raw))
	case client.KindError:
		fmt.Fprintln(v.out, errorStyle.Render("[error] ")+e.Raw)
	default:
		fmt.Fprintln(v.out, systemStyle.Render(e.Raw))
	}
}

func (v *terminalView) OnReset(e client.Entry) {
	fmt.Fprintln(v.out, systemStyle.Render("--- "+e.Raw+" ---"))
}

func (v *terminalView) OnStatus(s client.LinkStatus) {
	fmt.Fprintln(v.out, statusStyle.Render("[server] "+s.String()))
}

func (v *terminalView) OnSelection(s client.Selection) {
	provider := s.ProviderID
	if provider == "" {
		provider = "-"
	}
	model := s.ModelID
	if model == "" {
		model = "-"
	}
	fmt.Fprintln(v.out, statusStyle.Render(fmt.Sprintf("[selection] provider=%s model=%s", provider, model)))
}
