package markdown

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Render parses md and lays it out as styled, word-wrapped lines at the
// given display-column width. HTML blocks and inline HTML are dropped
// silently; images are not rendered (only their alt text, if any, survives
// as plain text since the source spec treats images as out of scope).
func Render(md string, width int) []StyledLine {
	source := []byte(md)
	root := parserInstance().Parse(text.NewReader(source))

	r := &renderer{source: source, width: width}
	r.walkBlock(root, 0)
	return r.lines
}

var sharedParser parser.Parser

func parserInstance() parser.Parser {
	if sharedParser == nil {
		sharedParser = goldmarkParser()
	}
	return sharedParser
}

type renderer struct {
	source []byte
	width  int
	lines  []StyledLine
}

func (r *renderer) emit(l StyledLine) {
	r.lines = append(r.lines, l)
}

func (r *renderer) walkBlock(n ast.Node, indent int) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		r.renderBlock(c, indent)
	}
}

func (r *renderer) renderBlock(n ast.Node, indent int) {
	switch node := n.(type) {
	case *ast.Heading:
		r.renderHeading(node, indent)

	case *ast.Paragraph:
		r.renderParagraph(node, indent, "", "")

	case *ast.TextBlock:
		r.renderParagraph(node, indent, "", "")

	case *ast.CodeBlock:
		r.renderCodeBlock(rawLines(node, r.source), "", indent)

	case *ast.FencedCodeBlock:
		lang := string(node.Language(r.source))
		r.renderCodeBlock(rawLines(node, r.source), lang, indent)

	case *ast.Blockquote:
		r.renderBlockquote(node, indent)

	case *ast.List:
		r.renderList(node, indent)

	case *ast.ThematicBreak:
		r.emit(StyledLine{Spans: []StyledSpan{{Text: strings.Repeat("─", max(1, r.width-2*indent)), Style: StylePlain}}})

	case *east.Table:
		r.renderTable(node, indent)

	case *ast.HTMLBlock:
		// dropped silently

	default:
		r.walkBlock(n, indent)
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (r *renderer) renderHeading(h *ast.Heading, indent int) {
	style := StylePlain
	switch h.Level {
	case 1:
		style = StyleH1
	case 2:
		style = StyleH2
	default:
		style = StyleH3
	}
	spans := r.inlineSpans(h, style)
	text := joinSpanText(spans)
	avail := max(1, r.width-indent)
	for _, wrapped := range wrapWords(text, avail) {
		r.emit(indentLine(indent, StyledLine{Spans: []StyledSpan{{Text: wrapped, Style: style}}}))
	}
}

// renderParagraph renders a paragraph's inline content, word-wrapped, with
// an optional first-line prefix (for list items) and continuation prefix
// of equal display width.
func (r *renderer) renderParagraph(n ast.Node, indent int, firstPrefix, contPrefix string) {
	spans := r.inlineSpans(n, StylePlain)
	if len(spans) == 0 {
		return
	}
	avail := max(1, r.width-indent-displayWidth(firstPrefix))
	text := joinSpanText(spans)
	wrapped := wrapWords(text, avail)
	for i, w := range wrapped {
		prefix := contPrefix
		if i == 0 {
			prefix = firstPrefix
		}
		line := indentLine(indent, StyledLine{})
		if prefix != "" {
			line.Spans = append(line.Spans, StyledSpan{Text: prefix, Style: StylePlain})
		}
		line.Spans = append(line.Spans, StyledSpan{Text: w, Style: StylePlain})
		r.emit(line)
	}
}

func (r *renderer) renderCodeBlock(body, lang string, indent int) {
	fence := "```"
	opening := StyledLine{Spans: []StyledSpan{{Text: fence, Style: StyleCodeFence}}}
	if lang != "" {
		opening.Spans = append(opening.Spans, StyledSpan{Text: lang, Style: StyleCodeFence})
	}
	r.emit(indentLine(indent, opening))

	avail := max(1, r.width-indent)
	for _, line := range strings.Split(strings.TrimSuffix(body, "\n"), "\n") {
		if displayWidth(line) <= avail {
			r.emit(indentLine(indent, StyledLine{Spans: []StyledSpan{{Text: line, Style: StyleCodeBlock}}}))
			continue
		}
		for _, piece := range wrapHard(line, avail) {
			r.emit(indentLine(indent, StyledLine{Spans: []StyledSpan{{Text: piece, Style: StyleCodeBlock}}}))
		}
	}
	r.emit(indentLine(indent, StyledLine{Spans: []StyledSpan{{Text: fence, Style: StyleCodeFence}}}))
}

func (r *renderer) renderBlockquote(n *ast.Blockquote, indent int) {
	inner := &renderer{source: r.source, width: r.width - 2}
	inner.walkBlock(n, 0)
	for _, l := range inner.lines {
		line := indentLine(indent, StyledLine{Spans: []StyledSpan{{Text: "> ", Style: StyleBlockQuote}}})
		line.Spans = append(line.Spans, l.Spans...)
		r.emit(line)
	}
}

func (r *renderer) renderList(n *ast.List, indent int) {
	num := n.Start
	if num == 0 {
		num = 1
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		var firstPrefix string
		if n.IsOrdered() {
			firstPrefix = strconv.Itoa(num) + ". "
			num++
		} else {
			firstPrefix = "• "
		}
		contPrefix := strings.Repeat(" ", displayWidth(firstPrefix))
		r.renderListItem(item, indent, firstPrefix, contPrefix)
	}
}

func (r *renderer) renderListItem(item *ast.ListItem, indent int, firstPrefix, contPrefix string) {
	first := true
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.TextBlock, *ast.Paragraph:
			fp, cp := firstPrefix, contPrefix
			if !first {
				fp, cp = contPrefix, contPrefix
			}
			r.renderParagraph(node, indent, fp, cp)
			first = false
		case *ast.List:
			r.renderList(node, indent+2)
			first = false
		default:
			r.renderBlock(c, indent+2)
			first = false
		}
	}
}

// inlineSpans walks the inline children of n, returning styled spans.
// baseStyle is applied to any run that carries no more specific style
// (e.g. a list item's plain prose).
func (r *renderer) inlineSpans(n ast.Node, baseStyle StyleTag) []StyledSpan {
	var spans []StyledSpan
	var walk func(ast.Node, StyleTag)
	walk = func(node ast.Node, style StyleTag) {
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			switch v := c.(type) {
			case *ast.Text:
				t := string(v.Segment.Value(r.source))
				if v.SoftLineBreak() || v.HardLineBreak() {
					t += " "
				}
				spans = append(spans, StyledSpan{Text: t, Style: style})
			case *ast.String:
				spans = append(spans, StyledSpan{Text: string(v.Value), Style: style})
			case *ast.Emphasis:
				s := StyleEmphasis
				if v.Level >= 2 {
					s = StyleStrong
				}
				walk(v, s)
			case *ast.CodeSpan:
				var sb strings.Builder
				for g := v.FirstChild(); g != nil; g = g.NextSibling() {
					if t, ok := g.(*ast.Text); ok {
						sb.Write(t.Segment.Value(r.source))
					}
				}
				spans = append(spans, StyledSpan{Text: sb.String(), Style: StyleCodeInline})
			case *ast.Link:
				walk(v, StyleLink)
				spans = append(spans, StyledSpan{Text: " (" + string(v.Destination) + ")", Style: StyleLink})
			case *ast.AutoLink:
				spans = append(spans, StyledSpan{Text: string(v.URL(r.source)), Style: StyleLink})
			case *east.Strikethrough:
				walk(v, StyleStrike)
			case *east.TaskCheckBox:
				mark := "[ ] "
				if v.IsChecked {
					mark = "[x] "
				}
				spans = append(spans, StyledSpan{Text: mark, Style: style})
			case *ast.Image:
				// images are not rendered; alt text, if any, passes through as plain.
				walk(v, StylePlain)
			default:
				walk(v, style)
			}
		}
	}
	walk(n, baseStyle)
	return spans
}

func (r *renderer) renderTable(t *east.Table, indent int) {
	var header []string
	var rows [][]string
	for c := t.FirstChild(); c != nil; c = c.NextSibling() {
		switch row := c.(type) {
		case *east.TableHeader:
			header = r.tableCells(row)
		case *east.TableRow:
			rows = append(rows, r.tableCells(row))
		}
	}
	widths := columnWidths(header, rows, max(1, r.width-indent))
	if header != nil {
		r.emit(indentLine(indent, renderTableRow(header, widths)))
		r.emit(indentLine(indent, tableSeparator(widths)))
	}
	for _, row := range rows {
		r.emit(indentLine(indent, renderTableRow(row, widths)))
	}
}

func (r *renderer) tableCells(row ast.Node) []string {
	var cells []string
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		cell, ok := c.(*east.TableCell)
		if !ok {
			continue
		}
		spans := r.inlineSpans(cell, StylePlain)
		cells = append(cells, joinSpanText(spans))
	}
	return cells
}

func columnWidths(header []string, rows [][]string, avail int) []int {
	n := len(header)
	for _, row := range rows {
		if len(row) > n {
			n = len(row)
		}
	}
	widths := make([]int, n)
	for i, h := range header {
		if w := displayWidth(h); w > widths[i] {
			widths[i] = w
		}
	}
	for _, row := range rows {
		for i, c := range row {
			if i < n {
				if w := displayWidth(c); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}
	total := 0
	for _, w := range widths {
		total += w + 3
	}
	if total > avail && n > 0 {
		budget := max(avail-3*n, n)
		per := budget / n
		for i := range widths {
			if widths[i] > per {
				widths[i] = per
			}
		}
	}
	return widths
}

func renderTableRow(cells []string, widths []int) StyledLine {
	var b strings.Builder
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		if displayWidth(cell) > w {
			cell = string([]rune(cell)[:w])
		}
		b.WriteString(cell)
		b.WriteString(strings.Repeat(" ", w-displayWidth(cell)))
		if i != len(widths)-1 {
			b.WriteString(" | ")
		}
	}
	return StyledLine{Spans: []StyledSpan{{Text: b.String(), Style: StylePlain}}}
}

func tableSeparator(widths []int) StyledLine {
	var parts []string
	for _, w := range widths {
		parts = append(parts, strings.Repeat("-", w))
	}
	return StyledLine{Spans: []StyledSpan{{Text: strings.Join(parts, "-+-"), Style: StylePlain}}}
}

func indentLine(n int, l StyledLine) StyledLine {
	if n <= 0 {
		return l
	}
	pad := strings.Repeat(" ", n)
	return StyledLine{Spans: append([]StyledSpan{{Text: pad, Style: StylePlain}}, l.Spans...)}
}

func joinSpanText(spans []StyledSpan) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

// rawLines concatenates a block node's source lines verbatim (code blocks
// must not be re-wrapped at word boundaries by the inline walker).
func rawLines(n ast.Node, source []byte) string {
	lines := n.Lines()
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}
