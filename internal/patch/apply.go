package patch

import (
	"os"
	"path/filepath"
	"strings"
)

// Result records the outcome of applying one FileOp.
type Result struct {
	Path   string
	Kind   OpKind
	MoveTo string
}

// Apply applies every file section of p against root. It plans every
// section in memory first, so a planning failure (a missing file, a hunk
// that does not match, an add over an existing file) aborts before anything
// is written. It then commits the sections in order; a write or remove
// error stops the commit there, and sections already committed stay on
// disk (they are not rolled back).
func Apply(root string, p *Patch) ([]Result, error) {
	type staged struct {
		op      FileOp
		outPath string
		content []byte
		remove  string // non-empty if this op also deletes a source file (Move)
	}

	var plan []staged

	for _, op := range p.Files {
		full := filepath.Join(root, op.Path)

		switch op.Kind {
		case OpAdd:
			if _, err := os.Stat(full); err == nil {
				return nil, newErr(ErrFileExists, op.Path, "file already exists")
			} else if !os.IsNotExist(err) {
				return nil, newErrf(ErrIO, op.Path, "stat: %v", err)
			}
			body := strings.Join(op.Lines, "\n")
			if len(op.Lines) > 0 {
				body += "\n"
			}
			plan = append(plan, staged{op: op, outPath: full, content: []byte(body)})

		case OpDelete:
			if _, err := os.Stat(full); err != nil {
				if os.IsNotExist(err) {
					return nil, newErr(ErrFileNotFound, op.Path, "file does not exist")
				}
				return nil, newErrf(ErrIO, op.Path, "stat: %v", err)
			}
			plan = append(plan, staged{op: op, remove: full})

		case OpUpdate:
			original, err := os.ReadFile(full)
			if err != nil {
				if os.IsNotExist(err) {
					return nil, newErr(ErrFileNotFound, op.Path, "file does not exist")
				}
				return nil, newErrf(ErrIO, op.Path, "read: %v", err)
			}
			updated, err := applyHunks(string(original), op.Hunks)
			if err != nil {
				if perr, ok := err.(*Error); ok && perr.Path == "" {
					perr.Path = op.Path
				}
				return nil, err
			}
			outPath := full
			var removeOld string
			if op.MoveTo != "" {
				outPath = filepath.Join(root, op.MoveTo)
				if outPath != full {
					if _, err := os.Stat(outPath); err == nil {
						return nil, newErr(ErrFileExists, op.MoveTo, "move target already exists")
					}
					removeOld = full
				}
			}
			plan = append(plan, staged{op: op, outPath: outPath, content: []byte(updated), remove: removeOld})
		}
	}

	results := make([]Result, 0, len(plan))
	for _, s := range plan {
		switch s.op.Kind {
		case OpDelete:
			if err := os.Remove(s.remove); err != nil {
				return results, newErrf(ErrIO, s.op.Path, "remove: %v", err)
			}
		default:
			if err := os.MkdirAll(filepath.Dir(s.outPath), 0o755); err != nil {
				return results, newErrf(ErrIO, s.op.Path, "mkdir: %v", err)
			}
			if err := writeAtomic(s.outPath, s.content); err != nil {
				return results, newErrf(ErrIO, s.op.Path, "write: %v", err)
			}
			if s.remove != "" {
				if err := os.Remove(s.remove); err != nil {
					return results, newErrf(ErrIO, s.op.Path, "remove after move: %v", err)
				}
			}
		}
		results = append(results, Result{Path: s.op.Path, Kind: s.op.Kind, MoveTo: s.op.MoveTo})
	}
	return results, nil
}

// writeAtomic writes to a sibling temp path and renames over the target, so
// a crash mid-write never leaves a truncated file at outPath.
func writeAtomic(outPath string, content []byte) error {
	dir := filepath.Dir(outPath)
	tmp, err := os.CreateTemp(dir, ".patch-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// applyHunks runs every hunk against original in order, each hunk's search
// starting where the previous one left off (a single forward-moving
// cursor), and returns the transformed content.
func applyHunks(original string, hunks []Hunk) (string, error) {
	trailingNewline := strings.HasSuffix(original, "\n")
	useCRLF := strings.Contains(original, "\r\n")

	body := original
	if useCRLF {
		body = strings.ReplaceAll(body, "\r\n", "\n")
	}
	body = strings.TrimSuffix(body, "\n")

	var srcLines []string
	if body != "" {
		srcLines = strings.Split(body, "\n")
	}

	cursor := 0
	for _, h := range hunks {
		ctxLines, newLines, minLen := hunkLines(h)

		if h.ChangeContext != "" {
			advanced, err := findChangeContext(srcLines, cursor, h.ChangeContext)
			if err != nil {
				return "", err
			}
			cursor = advanced
		}

		start, err := findMatch(srcLines, cursor, ctxLines, h.EndOfFile)
		if err != nil {
			return "", err
		}

		before := srcLines[:start]
		after := srcLines[start+minLen:]
		srcLines = append(append(append([]string{}, before...), newLines...), after...)
		cursor = start + len(newLines)
	}

	result := strings.Join(srcLines, "\n")
	if trailingNewline || result == "" && original != "" {
		result += "\n"
	}
	if useCRLF {
		result = strings.ReplaceAll(result, "\n", "\r\n")
	}
	return result, nil
}

// hunkLines splits a hunk's lines into (a) the "search" sequence — context
// and removed lines, in order, the exact slice that must be matched in the
// source — and (b) the "replacement" sequence — context and added lines, in
// order, what that slice becomes.
func hunkLines(h Hunk) (search []string, replacement []string, searchLen int) {
	for _, l := range h.Lines {
		switch l.Kind {
		case LineContext:
			search = append(search, l.Text)
			replacement = append(replacement, l.Text)
		case LineRemove:
			search = append(search, l.Text)
		case LineAdd:
			replacement = append(replacement, l.Text)
		}
	}
	return search, replacement, len(search)
}

// findChangeContext scans srcLines from cursor forward for the first line
// equal to ctx (the string following a hunk's "@@" marker, used to
// disambiguate a context block that would otherwise match more than one
// place in the file) and returns the index just past it, so the hunk's own
// context+removed sequence is searched for only from that point on.
func findChangeContext(srcLines []string, cursor int, ctx string) (int, error) {
	for i := cursor; i < len(srcLines); i++ {
		if srcLines[i] == ctx {
			return i + 1, nil
		}
	}
	return 0, newErr(ErrPatternNotFound, "", "change context not found in file")
}

// findMatch scans srcLines starting at cursor for the first contiguous
// occurrence of want. If endOfFile is set, the match must end exactly at
// the last line of srcLines.
func findMatch(srcLines []string, cursor int, want []string, endOfFile bool) (int, error) {
	if len(want) == 0 {
		return cursor, nil
	}
	if endOfFile {
		start := len(srcLines) - len(want)
		if start < cursor {
			return 0, newErr(ErrPatternNotFound, "", "end-of-file hunk does not fit remaining source")
		}
		if linesEqual(srcLines[start:start+len(want)], want) {
			return start, nil
		}
		return 0, newErr(ErrPatternNotFound, "", "end-of-file hunk context did not match")
	}

	for start := cursor; start+len(want) <= len(srcLines); start++ {
		if linesEqual(srcLines[start:start+len(want)], want) {
			return start, nil
		}
	}
	return 0, newErr(ErrPatternNotFound, "", "hunk context not found in file")
}

func linesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
