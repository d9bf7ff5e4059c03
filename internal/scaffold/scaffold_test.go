package scaffold

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/appforge-cli/internal/extract"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	b, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(b)
}

func TestWriteCreatesFilesAndParents(t *testing.T) {
	fs := afero.NewMemMapFs()
	var out bytes.Buffer
	w := &Writer{Fs: fs, Base: "proj", Out: &out}

	rep, err := w.Write([]extract.File{
		{Path: "src/main.txt", Content: "hello"},
		{Path: "README.md", Content: "world"},
	})
	require.NoError(t, err)

	mainPath := filepath.Join("proj", "src", "main.txt")
	readme := filepath.Join("proj", "README.md")
	assert.Equal(t, []string{mainPath, readme}, rep.Written)
	assert.Equal(t, "hello", readFile(t, fs, mainPath))
	assert.Equal(t, "world", readFile(t, fs, readme))

	info, err := fs.Stat(filepath.Join("proj", "src"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.Contains(t, out.String(), "Created: "+mainPath)
	assert.Contains(t, out.String(), "Created: "+readme)
}

func TestWriteOverwritesExisting(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := &Writer{Fs: fs, Base: "."}
	_, err := w.Write([]extract.File{{Path: "a/b.txt", Content: "a much longer first version"}})
	require.NoError(t, err)

	rep, err := w.Write([]extract.File{{Path: "a/b.txt", Content: "v2"}})
	require.NoError(t, err)
	assert.Len(t, rep.Written, 1)
	assert.Equal(t, "v2", readFile(t, fs, filepath.Join("a", "b.txt")))
}

func TestWriteRejectsEscapingPaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := &Writer{Fs: fs, Base: "base", Policy: Continue}

	rep, err := w.Write([]extract.File{
		{Path: "../escape.txt", Content: "x"},
		{Path: "/etc/passwd", Content: "x"},
		{Path: "ok/../../still-out.txt", Content: "x"},
		{Path: "fine.txt", Content: "ok"},
	})
	require.Error(t, err)

	var we *WriteError
	require.ErrorAs(t, err, &we)
	assert.Len(t, rep.Failed, 3)
	for _, f := range rep.Failed {
		assert.True(t, IsPathError(f.Err), "expected path error for %s, got %v", f.Path, f.Err)
	}
	assert.Equal(t, []string{filepath.Join("base", "fine.txt")}, rep.Written)

	for _, p := range []string{"escape.txt", "still-out.txt", filepath.Join("etc", "passwd")} {
		ok, _ := afero.Exists(fs, p)
		assert.False(t, ok, "%s must not be written", p)
	}
}

func TestWriteHaltStopsAtFirstFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := &Writer{Fs: fs, Base: "b", Policy: Halt}

	rep, err := w.Write([]extract.File{
		{Path: "first.txt", Content: "1"},
		{Path: "../bad.txt", Content: "2"},
		{Path: "third.txt", Content: "3"},
	})
	require.Error(t, err)
	assert.Equal(t, []string{filepath.Join("b", "first.txt")}, rep.Written)
	require.Len(t, rep.Failed, 1)
	assert.Equal(t, "../bad.txt", rep.Failed[0].Path)

	ok, _ := afero.Exists(fs, filepath.Join("b", "third.txt"))
	assert.False(t, ok, "halt policy must not write later files")
	ok, _ = afero.Exists(fs, filepath.Join("b", "first.txt"))
	assert.True(t, ok, "earlier files stay on disk")
}

func TestWriteReportsFilesystemFaults(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	var out bytes.Buffer
	w := &Writer{Fs: fs, Base: ".", Policy: Continue, Out: &out}

	rep, err := w.Write([]extract.File{{Path: "a.txt", Content: "x"}, {Path: "b/c.txt", Content: "y"}})
	require.Error(t, err)
	assert.Len(t, rep.Failed, 2)
	assert.Empty(t, rep.Written)
	assert.False(t, IsPathError(rep.Failed[0].Err))
	assert.Contains(t, out.String(), "Failed: a.txt")
}

func TestWriteDryRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := &Writer{Fs: fs, Base: "d", DryRun: true}
	rep, err := w.Write([]extract.File{{Path: "x.txt", Content: "x"}})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("d", "x.txt")}, rep.Skipped)
	assert.Empty(t, rep.Written)
	ok, _ := afero.Exists(fs, filepath.Join("d", "x.txt"))
	assert.False(t, ok)
}

func TestWriteOnDisk(t *testing.T) {
	base := t.TempDir()
	w := NewWriter(base, nil)
	_, err := w.Write([]extract.File{{Path: "nested/deep/file.go", Content: "package deep\n"}})
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(base, "nested", "deep", "file.go"))
	require.NoError(t, err)
	assert.Equal(t, "package deep\n", string(b))
}

func TestResolve(t *testing.T) {
	good := map[string]string{
		"a.txt":          filepath.Join("base", "a.txt"),
		"./src/x.go":     filepath.Join("base", "src", "x.go"),
		"src//y.go":      filepath.Join("base", "src", "y.go"),
		"a/../b.txt":     filepath.Join("base", "b.txt"),
		"..hidden/z.txt": filepath.Join("base", "..hidden", "z.txt"),
	}
	for in, want := range good {
		got, err := Resolve("base", in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "  ", ".", "..", "../x", "/abs", "dir/", "a/../../x"} {
		_, err := Resolve("base", in)
		assert.True(t, IsPathError(err), "expected PathError for %q, got %v", in, err)
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("Continue")
	require.NoError(t, err)
	assert.Equal(t, Continue, p)
	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, Halt, p)
	_, err = ParsePolicy("retry")
	assert.Error(t, err)
}

func TestSaveManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	rep := &Report{Written: []string{"out/a.txt"}, Failed: []Failure{{Path: "../b", Err: &PathError{Path: "../b", Reason: "escapes the output directory"}}}}
	m := NewManifest("run-1", "test/model", "desc", json.RawMessage(`{"a":1}`), rep)

	path, err := SaveManifest(fs, "out", m)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", ManifestDir, "manifest-run-1.json"), path)

	var got Manifest
	require.NoError(t, json.Unmarshal([]byte(readFile(t, fs, path)), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, []string{"out/a.txt"}, got.Written)
	require.Len(t, got.Failed, 1)
	assert.Contains(t, got.Failed[0].Error, "escapes")
	assert.JSONEq(t, `{"a":1}`, string(got.Structure))
}

func TestWriteRejectsSymlinkedComponents(t *testing.T) {
	base := t.TempDir()
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(base, "link")); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(outside, "target.txt"), []byte("keep"), 0o644))
	if err := os.Symlink(filepath.Join(outside, "target.txt"), filepath.Join(base, "file-link.txt")); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	w := NewWriter(base, nil)
	w.Policy = Continue
	rep, err := w.Write([]extract.File{
		{Path: "link/pwned.txt", Content: "x"},
		{Path: "file-link.txt", Content: "x"},
		{Path: "real/ok.txt", Content: "ok"},
	})
	require.Error(t, err)
	require.Len(t, rep.Failed, 2)
	for _, f := range rep.Failed {
		assert.True(t, IsPathError(f.Err), "expected path error for %s, got %v", f.Path, f.Err)
	}
	assert.Equal(t, []string{filepath.Join(base, "real", "ok.txt")}, rep.Written)

	_, statErr := os.Stat(filepath.Join(outside, "pwned.txt"))
	assert.True(t, os.IsNotExist(statErr), "nothing may be written through the link")
	b, err := os.ReadFile(filepath.Join(outside, "target.txt"))
	require.NoError(t, err)
	assert.Equal(t, "keep", string(b))
}
