// Package markdown renders CommonMark-ish markdown into styled, wrapped
// terminal lines, and provides a streaming collector that commits only the
// prefix of a growing buffer that is safe to render.
package markdown

// StyleTag is the closed set of semantic style tags a span may carry.
// These are tags, not colors: the caller's renderer maps tags to its own
// palette.
type StyleTag string

const (
	StylePlain        StyleTag = "plain"
	StyleStrong       StyleTag = "strong"
	StyleEmphasis     StyleTag = "emphasis"
	StyleStrike       StyleTag = "strike"
	StyleCodeInline   StyleTag = "code_inline"
	StyleCodeBlock    StyleTag = "code_block"
	StyleCodeFence    StyleTag = "code_fence"
	StyleH1           StyleTag = "h1"
	StyleH2           StyleTag = "h2"
	StyleH3           StyleTag = "h3"
	StyleLink         StyleTag = "link"
	StyleListBullet   StyleTag = "list_bullet"
	StyleListNumber   StyleTag = "list_number"
	StyleBlockQuote   StyleTag = "block_quote"
	StyleAssistant    StyleTag = "assistant"
	StyleUserPrefix   StyleTag = "user_prefix"
	StyleToolName     StyleTag = "tool_name"
	StyleToolStatus   StyleTag = "tool_status"
	StyleSystemNotice StyleTag = "system_notice"
)

// StyledSpan is one run of text carrying a single style tag.
type StyledSpan struct {
	Text  string
	Style StyleTag
}

// StyledLine is one terminal line of output: a sequence of spans that,
// concatenated, make up the line's full display content.
type StyledLine struct {
	Spans []StyledSpan
}

// Plain concatenates every span's text, ignoring style.
func (l StyledLine) Plain() string {
	if len(l.Spans) == 1 {
		return l.Spans[0].Text
	}
	var out []byte
	for _, s := range l.Spans {
		out = append(out, s.Text...)
	}
	return string(out)
}
