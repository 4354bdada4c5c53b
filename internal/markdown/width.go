package markdown

import (
	"github.com/clipperhouse/displaywidth"
	"github.com/clipperhouse/uax29/v2/graphemes"
	"github.com/mattn/go-runewidth"
)

// displayWidth returns the terminal column width of s, treating CJK and
// emoji as width 2 and combining marks as width 0. Used for quick
// whole-string measurements where grapheme-cluster precision doesn't
// matter (e.g. deciding whether a word fits on the current line).
func displayWidth(s string) int {
	return runewidth.StringWidth(s)
}

// graphemeWidths splits s into user-perceived characters (grapheme
// clusters) paired with their display width, so a wrap never splits a
// multi-rune emoji, flag, or combining-mark sequence mid-cluster.
// displaywidth is used per-cluster rather than per-rune since a cluster
// like a ZWJ emoji sequence must be measured as one unit, not summed rune
// by rune.
func graphemeWidths(s string) []graphemeUnit {
	var units []graphemeUnit
	segs := graphemes.FromString(s)
	for segs.Next() {
		cluster := segs.Value()
		units = append(units, graphemeUnit{text: cluster, width: displaywidth.String(cluster)})
	}
	return units
}

type graphemeUnit struct {
	text  string
	width int
}

// wrapWords wraps text as prose: breaks only between words, unless a single
// word exceeds width, in which case it falls back to a grapheme-boundary
// break within that word.
func wrapWords(text string, width int) []string {
	if width <= 0 {
		width = 1
	}
	words := splitWords(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	var cur []byte
	curWidth := 0

	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, string(cur))
			cur = cur[:0]
			curWidth = 0
		}
	}

	for _, w := range words {
		ww := displayWidth(w)
		if ww > width {
			flush()
			lines = append(lines, wrapGraphemes(w, width)...)
			continue
		}
		sep := 0
		if curWidth > 0 {
			sep = 1
		}
		if curWidth+sep+ww > width {
			flush()
			cur = append(cur, w...)
			curWidth = ww
			continue
		}
		if sep == 1 {
			cur = append(cur, ' ')
			curWidth++
		}
		cur = append(cur, w...)
		curWidth += ww
	}
	flush()
	return lines
}

// splitWords splits on runs of spaces and tabs, dropping empties.
func splitWords(text string) []string {
	var words []string
	start := -1
	runes := []rune(text)
	for i, r := range runes {
		if r == ' ' || r == '\t' {
			if start >= 0 {
				words = append(words, string(runes[start:i]))
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, string(runes[start:]))
	}
	return words
}

// wrapGraphemes breaks a single overlong token at grapheme-cluster
// boundaries so a multi-byte glyph is never split mid-cluster.
func wrapGraphemes(word string, width int) []string {
	units := graphemeWidths(word)
	var lines []string
	var cur []byte
	curWidth := 0
	for _, u := range units {
		if curWidth > 0 && curWidth+u.width > width {
			lines = append(lines, string(cur))
			cur = cur[:0]
			curWidth = 0
		}
		cur = append(cur, u.text...)
		curWidth += u.width
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}

// wrapHard breaks text at character (grapheme) boundaries by display
// width, without regard to word boundaries. Used for code blocks and
// character-wrapped long inline code.
func wrapHard(text string, width int) []string {
	if width <= 0 {
		width = 1
	}
	return wrapGraphemes(text, width)
}
