package markdown

import "strings"

// commitThreshold is the byte threshold past which the collector forces a
// commit at the last space rather than waiting indefinitely for a newline.
const commitThreshold = 500

// Collector accumulates incremental markdown deltas and exposes the
// longest prefix of the buffer that is safe to render without risking a
// later delta changing how an in-flight construct (most commonly a fenced
// code block) parses.
type Collector struct {
	buf     strings.Builder
	content string // cached buf.String(); invalidated on Feed
	dirty   bool
}

// Feed appends an incremental delta to the buffer.
func (c *Collector) Feed(delta string) {
	c.buf.WriteString(delta)
	c.dirty = true
}

// Buffered returns the full buffer content fed so far, including any
// not-yet-committed suffix.
func (c *Collector) Buffered() string {
	c.sync()
	return c.content
}

func (c *Collector) sync() {
	if c.dirty {
		c.content = c.buf.String()
		c.dirty = false
	}
}

// RenderCommitted returns styled lines for the longest safe-to-commit
// prefix of the buffer at the given width, and the byte length of that
// prefix. Callers track the committed length themselves and should not
// call RenderCommitted with content already committed elsewhere; it always
// renders from the start of the buffer.
func (c *Collector) RenderCommitted(width int) ([]StyledLine, int) {
	c.sync()
	n := safeCommitLength(c.content)
	if n == 0 {
		return nil, 0
	}
	return Render(c.content[:n], width), n
}

// Finish renders the whole buffer from its start (the already committed
// prefix included), ignoring the
// safe-commit rule (the stream is complete, so nothing more can arrive to
// invalidate an in-flight fence).
func (c *Collector) Finish(width int) []StyledLine {
	c.sync()
	return Render(c.content, width)
}

// safeCommitLength implements the fence-counting safe-commit rule:
// scan for fence markers (``` or ~~~, optionally indented 0-3 spaces at
// line start); an even count means every fence has closed and the buffer
// up to the last newline (or the newline after the final closing fence) is
// safe; an odd count means the last fence is still open, so only content
// before that fence's line is safe. With no newline at all, a long buffer
// forces a commit at the last space within the threshold.
func safeCommitLength(buf string) int {
	fenceLineStarts := findFenceLines(buf)
	n := len(fenceLineStarts)

	if n > 0 {
		if n%2 == 0 {
			lastFenceLine := fenceLineStarts[n-1]
			lastFenceEnd := lineEnd(buf, lastFenceLine)
			if lastFenceEnd < len(buf) && buf[lastFenceEnd] == '\n' {
				return lastFenceEnd + 1
			}
			return lastNewlineUpTo(buf, len(buf))
		}
		openFenceLine := fenceLineStarts[n-1]
		if openFenceLine > 0 {
			return lastNewlineUpTo(buf, openFenceLine)
		}
		return 0
	}

	if nl := lastNewlineUpTo(buf, len(buf)); nl > 0 {
		return nl
	}

	if len(buf) > commitThreshold {
		if sp := strings.LastIndexByte(buf[:commitThreshold], ' '); sp > 0 {
			return sp + 1
		}
	}
	return 0
}

// findFenceLines returns the byte offset of the start of every line whose
// first non-space (up to 3 leading spaces) characters are ``` or ~~~.
func findFenceLines(buf string) []int {
	var starts []int
	lineStart := 0
	for lineStart <= len(buf) {
		end := strings.IndexByte(buf[lineStart:], '\n')
		var line string
		if end == -1 {
			line = buf[lineStart:]
		} else {
			line = buf[lineStart : lineStart+end]
		}
		if isFenceLine(line) {
			starts = append(starts, lineStart)
		}
		if end == -1 {
			break
		}
		lineStart += end + 1
	}
	return starts
}

func isFenceLine(line string) bool {
	i := 0
	for i < len(line) && i < 3 && line[i] == ' ' {
		i++
	}
	rest := line[i:]
	return strings.HasPrefix(rest, "```") || strings.HasPrefix(rest, "~~~")
}

// lineEnd returns the offset of the newline terminating the line starting
// at lineStart, or len(buf) if that line has no terminator yet.
func lineEnd(buf string, lineStart int) int {
	if idx := strings.IndexByte(buf[lineStart:], '\n'); idx != -1 {
		return lineStart + idx
	}
	return len(buf)
}

// lastNewlineUpTo returns the offset just past the last '\n' in buf[:upTo],
// or 0 if none exists.
func lastNewlineUpTo(buf string, upTo int) int {
	idx := strings.LastIndexByte(buf[:upTo], '\n')
	if idx == -1 {
		return 0
	}
	return idx + 1
}
