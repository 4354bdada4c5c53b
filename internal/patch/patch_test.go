package patch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_AddThenUpdate(t *testing.T) {
	add := "*** Begin Patch\n" +
		"*** Add File: a.txt\n" +
		"+line one\n" +
		"+line two\n" +
		"*** End Patch\n"

	p, err := Parse(add)
	require.NoError(t, err)
	require.Len(t, p.Files, 1)
	require.Equal(t, OpAdd, p.Files[0].Kind)
	require.Equal(t, "a.txt", p.Files[0].Path)
	require.Equal(t, []string{"line one", "line two"}, p.Files[0].Lines)

	update := "*** Begin Patch\n" +
		"*** Update File: a.txt\n" +
		"@@\n" +
		" line one\n" +
		"-line two\n" +
		"+line two revised\n" +
		"*** End Patch\n"

	p2, err := Parse(update)
	require.NoError(t, err)
	require.Len(t, p2.Files, 1)
	require.Equal(t, OpUpdate, p2.Files[0].Kind)
	require.Len(t, p2.Files[0].Hunks, 1)
	h := p2.Files[0].Hunks[0]
	require.Equal(t, LineContext, h.Lines[0].Kind)
	require.Equal(t, LineRemove, h.Lines[1].Kind)
	require.Equal(t, LineAdd, h.Lines[2].Kind)
}

func TestApply_AddThenUpdateScenario(t *testing.T) {
	dir := t.TempDir()

	addPatch, err := Parse("*** Begin Patch\n" +
		"*** Add File: a.txt\n" +
		"+line one\n" +
		"+line two\n" +
		"*** End Patch\n")
	require.NoError(t, err)

	results, err := Apply(dir, addPatch)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, OpAdd, results[0].Kind)

	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "line one\nline two\n", string(got))

	updatePatch, err := Parse("*** Begin Patch\n" +
		"*** Update File: a.txt\n" +
		"@@\n" +
		" line one\n" +
		"-line two\n" +
		"+line two revised\n" +
		"+line three\n" +
		"*** End Patch\n")
	require.NoError(t, err)

	_, err = Apply(dir, updatePatch)
	require.NoError(t, err)

	got, err = os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "line one\nline two revised\nline three\n", string(got))
}

func TestApply_ContextOnlyHunkIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("alpha\nbeta\ngamma\n"), 0o644))

	p, err := Parse("*** Begin Patch\n" +
		"*** Update File: b.txt\n" +
		"@@\n" +
		" alpha\n" +
		" beta\n" +
		" gamma\n" +
		"*** End Patch\n")
	require.NoError(t, err)

	_, err = Apply(dir, p)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "b.txt"))
	require.NoError(t, err)
	require.Equal(t, "alpha\nbeta\ngamma\n", string(got))
}

func TestApply_DeleteFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "c.txt")
	require.NoError(t, os.WriteFile(target, []byte("bye\n"), 0o644))

	p, err := Parse("*** Begin Patch\n" +
		"*** Delete File: c.txt\n" +
		"*** End Patch\n")
	require.NoError(t, err)

	_, err = Apply(dir, p)
	require.NoError(t, err)
	_, err = os.Stat(target)
	require.True(t, os.IsNotExist(err))
}

func TestApply_MoveFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.txt"), []byte("content\n"), 0o644))

	p, err := Parse("*** Begin Patch\n" +
		"*** Update File: old.txt\n" +
		"*** Move to: new.txt\n" +
		"@@\n" +
		" content\n" +
		"*** End Patch\n")
	require.NoError(t, err)

	results, err := Apply(dir, p)
	require.NoError(t, err)
	require.Equal(t, "new.txt", results[0].MoveTo)

	_, err = os.Stat(filepath.Join(dir, "old.txt"))
	require.True(t, os.IsNotExist(err))
	got, err := os.ReadFile(filepath.Join(dir, "new.txt"))
	require.NoError(t, err)
	require.Equal(t, "content\n", string(got))
}

func TestApply_UpdateMissingFileReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	p, err := Parse("*** Begin Patch\n" +
		"*** Update File: missing.txt\n" +
		"@@\n" +
		" x\n" +
		"*** End Patch\n")
	require.NoError(t, err)

	_, err = Apply(dir, p)
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, ErrFileNotFound, perr.Kind)
}

func TestApply_ContextNotFoundReturnsPatternNotFound(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "d.txt"), []byte("one\ntwo\n"), 0o644))

	p, err := Parse("*** Begin Patch\n" +
		"*** Update File: d.txt\n" +
		"@@\n" +
		" does-not-exist\n" +
		"-two\n" +
		"+three\n" +
		"*** End Patch\n")
	require.NoError(t, err)

	_, err = Apply(dir, p)
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, ErrPatternNotFound, perr.Kind)
}

func TestApply_EndOfFileMarkerRequiresTailMatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "e.txt"), []byte("one\ntwo\nthree\n"), 0o644))

	p, err := Parse("*** Begin Patch\n" +
		"*** Update File: e.txt\n" +
		"@@\n" +
		" two\n" +
		"-three\n" +
		"+final\n" +
		"*** End of File\n" +
		"*** End Patch\n")
	require.NoError(t, err)

	_, err = Apply(dir, p)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "e.txt"))
	require.NoError(t, err)
	require.Equal(t, "one\ntwo\nfinal\n", string(got))
}

func TestApply_ChangeContextDisambiguatesRepeatedBlock(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte(
		"fn one() {\n    hello();\n}\nfn two() {\n    hello();\n}\n"), 0o644))

	p, err := Parse("*** Begin Patch\n" +
		"*** Update File: f.txt\n" +
		"@@ fn two() {\n" +
		"-    hello();\n" +
		"+    greet();\n" +
		"*** End Patch\n")
	require.NoError(t, err)
	require.Equal(t, "fn two() {", p.Files[0].Hunks[0].ChangeContext)

	_, err = Apply(dir, p)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "f.txt"))
	require.NoError(t, err)
	require.Equal(t, "fn one() {\n    hello();\n}\nfn two() {\n    greet();\n}\n", string(got))
}

func TestApply_ChangeContextNotFoundReturnsPatternNotFound(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "g.txt"), []byte("fn main() {\n    hello();\n}\n"), 0o644))

	p, err := Parse("*** Begin Patch\n" +
		"*** Update File: g.txt\n" +
		"@@ fn missing() {\n" +
		"-    hello();\n" +
		"+    greet();\n" +
		"*** End Patch\n")
	require.NoError(t, err)

	_, err = Apply(dir, p)
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, ErrPatternNotFound, perr.Kind)
}

func TestParse_MissingBeginPatchIsError(t *testing.T) {
	_, err := Parse("*** Update File: a.txt\n@@\n x\n*** End Patch\n")
	require.Error(t, err)
}

func TestParse_UnterminatedPatchIsError(t *testing.T) {
	_, err := Parse("*** Begin Patch\n*** Add File: a.txt\n+hi\n")
	require.Error(t, err)
}
