package markdown

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Theme maps each semantic style tag to a terminal style. Callers that
// render to an actual terminal supply one; callers that only need the
// semantic StyledLine tree (tests, non-terminal consumers) never touch it.
type Theme map[StyleTag]lipgloss.Style

// DefaultTheme is a minimal ANSI theme sufficient for a dark terminal
// background; consumers with their own palette build their own Theme.
func DefaultTheme() Theme {
	return Theme{
		StyleStrong:       lipgloss.NewStyle().Bold(true),
		StyleEmphasis:     lipgloss.NewStyle().Italic(true),
		StyleStrike:       lipgloss.NewStyle().Strikethrough(true),
		StyleCodeInline:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		StyleCodeBlock:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		StyleCodeFence:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		StyleH1:           lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		StyleH2:           lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45")),
		StyleH3:           lipgloss.NewStyle().Bold(true),
		StyleLink:         lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Underline(true),
		StyleListBullet:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		StyleListNumber:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		StyleBlockQuote:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true),
		StyleAssistant:    lipgloss.NewStyle(),
		StyleUserPrefix:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		StyleToolName:     lipgloss.NewStyle().Foreground(lipgloss.Color("178")),
		StyleToolStatus:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		StyleSystemNotice: lipgloss.NewStyle().Faint(true),
	}
}

// RenderANSI applies theme to every span of every line and joins the spans
// into one ANSI-escaped string per line.
func RenderANSI(lines []StyledLine, theme Theme) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		var b strings.Builder
		for _, s := range l.Spans {
			style, ok := theme[s.Style]
			if !ok {
				b.WriteString(s.Text)
				continue
			}
			b.WriteString(style.Render(s.Text))
		}
		out[i] = b.String()
	}
	return out
}

// TruncateANSI truncates an already-styled ANSI line to width display
// columns without corrupting escape sequences, appending tail as an
// ellipsis marker if truncation occurred.
func TruncateANSI(line string, width int, tail string) string {
	return ansi.Truncate(line, width, tail)
}
