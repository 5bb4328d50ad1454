package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer renders assistant replies with glamour, rebuilding the
// term renderer when the wrap width changes. Any glamour failure falls back
// to the raw text.
type markdownRenderer struct {
	enabled bool
	style   string
	width   int
	r       *glamour.TermRenderer
}

func newMarkdownRenderer(enabled bool, style string, width int) *markdownRenderer {
	md := &markdownRenderer{enabled: enabled, style: style}
	md.SetWidth(width)
	return md
}

// SetWidth sets the word-wrap column.
func (md *markdownRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if md.r != nil && width == md.width {
		return
	}
	md.width = width
	md.r = nil
	if !md.enabled {
		return
	}

	styleOpt := glamour.WithStandardStyle(md.style)
	if md.style == "" || md.style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return
	}
	md.r = r
}

// Render returns content as styled terminal text.
func (md *markdownRenderer) Render(content string) string {
	if md.r == nil {
		return content
	}
	rendered, err := md.r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(rendered, "\n")
}
