package markdown

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// md is the shared CommonMark+GFM instance: tables, strikethrough, and task
// list items, matching the block/inline set this package renders. Raw HTML
// is parsed into the AST (goldmark always does this) and then dropped by
// the renderer, never passed through.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.Table,
		extension.Strikethrough,
		extension.TaskList,
	),
)

func goldmarkParser() parser.Parser {
	return md.Parser()
}
