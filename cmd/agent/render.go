package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// renderer prints the conversation with coloured speaker labels and
// markdown-rendered replies.
type renderer struct {
	out      io.Writer
	markdown *glamour.TermRenderer
	you      lipgloss.Style
	bot      lipgloss.Style
	errStyle lipgloss.Style
	muted    lipgloss.Style
}

func newRenderer(out io.Writer) *renderer {
	r := newPlainRenderer(out)
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err == nil {
		r.markdown = md
	}
	return r
}

// newPlainRenderer skips markdown rendering.
func newPlainRenderer(out io.Writer) *renderer {
	return &renderer{
		out:      out,
		you:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		bot:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		errStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		muted:    lipgloss.NewStyle().Faint(true),
	}
}

func (r *renderer) prompt() string {
	return r.you.Render("You") + ": "
}

func (r *renderer) info(text string) {
	fmt.Fprintln(r.out, r.muted.Render(text))
}

func (r *renderer) assistant(text string) {
	fmt.Fprintf(r.out, "%s: %s\n", r.bot.Render("Assistant"), r.renderMarkdown(text))
}

func (r *renderer) failure(text string) {
	fmt.Fprintf(r.out, "%s: %s\n", r.bot.Render("Assistant"), r.errStyle.Render(text))
}

func (r *renderer) renderMarkdown(text string) string {
	if r.markdown == nil || strings.TrimSpace(text) == "" {
		return text
	}
	out, err := r.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(out)
}
