// Package scaffold writes a generated file tree under a base directory.
package scaffold

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/appforge-cli/internal/extract"
	"github.com/KaramelBytes/appforge-cli/internal/ui"
	"github.com/KaramelBytes/appforge-cli/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Policy decides what happens after a file fails to write.
type Policy string

const (
	Halt     Policy = "halt"
	Continue Policy = "continue"
)

// ParsePolicy accepts "halt" or "continue" (case-insensitive).
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case Halt, Continue:
		return p, nil
	case "":
		return Halt, nil
	default:
		return "", fmt.Errorf("unknown on-error policy %q (use halt or continue)", s)
	}
}

// PathError reports a generated path that cannot be written safely.
type PathError struct {
	Path   string
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("unsafe path %q: %s", e.Path, e.Reason)
}

// Failure is one path that was not written.
type Failure struct {
	Path string
	Err  error
}

// Report lists what happened to each file, in input order.
type Report struct {
	Written []string
	Skipped []string
	Failed  []Failure
}

// WriteError is returned by Write when at least one file failed.
type WriteError struct {
	Report *Report
	Total  int
}

func (e *WriteError) Error() string {
	f := e.Report.Failed[0]
	if len(e.Report.Failed) == 1 {
		return fmt.Sprintf("1 of %d files failed: %s: %v", e.Total, f.Path, f.Err)
	}
	return fmt.Sprintf("%d of %d files failed (first: %s: %v)", len(e.Report.Failed), e.Total, f.Path, f.Err)
}

func (e *WriteError) Unwrap() error { return e.Report.Failed[0].Err }

// Writer materializes files under Base on Fs.
type Writer struct {
	Fs     afero.Fs
	Base   string
	Policy Policy
	DryRun bool
	// Out receives one status line per file; nil discards.
	Out io.Writer
	Log logrus.FieldLogger
}

// NewWriter returns a Writer on the OS filesystem that halts on the first
// failure. Callers may swap Fs, Policy, DryRun and Log before writing.
func NewWriter(base string, out io.Writer) *Writer {
	return &Writer{Fs: afero.NewOsFs(), Base: base, Policy: Halt, Out: out}
}

// Resolve joins rel onto base and rejects anything that would land outside base.
func Resolve(base, rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", &PathError{Path: rel, Reason: "empty path"}
	}
	if strings.ContainsRune(rel, 0) {
		return "", &PathError{Path: rel, Reason: "contains NUL byte"}
	}
	if strings.HasSuffix(rel, "/") || strings.HasSuffix(rel, `\`) {
		return "", &PathError{Path: rel, Reason: "names a directory, not a file"}
	}
	native := filepath.FromSlash(rel)
	if filepath.IsAbs(native) || filepath.VolumeName(native) != "" || strings.HasPrefix(rel, "/") {
		return "", &PathError{Path: rel, Reason: "absolute paths are not allowed"}
	}
	clean := filepath.Clean(native)
	if clean == "." {
		return "", &PathError{Path: rel, Reason: "resolves to the base directory"}
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", &PathError{Path: rel, Reason: "escapes the output directory"}
	}
	if base == "" {
		base = "."
	}
	return filepath.Join(base, clean), nil
}

// checkLinks rejects target when an existing component below base is a
// symlink. Resolve is lexical only; this covers links already on disk.
func checkLinks(fs afero.Fs, base, target, rel string) error {
	lst, ok := fs.(afero.Lstater)
	if !ok {
		return nil
	}
	if base == "" {
		base = "."
	}
	sub, err := filepath.Rel(base, target)
	if err != nil {
		return &PathError{Path: rel, Reason: "escapes the output directory"}
	}
	cur := base
	for _, part := range strings.Split(sub, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		info, lstatCalled, err := lst.LstatIfPossible(cur)
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) {
				return nil
			}
			return err
		}
		if lstatCalled && info.Mode()&iofs.ModeSymlink != 0 {
			return &PathError{Path: rel, Reason: "passes through a symlink"}
		}
	}
	return nil
}

// Write creates each file in order, making parent directories as needed and
// overwriting existing files. It never panics on filesystem faults: failures
// are collected in the Report and, under Halt, stop the loop. Files written
// before a failure stay on disk.
func (w *Writer) Write(files []extract.File) (*Report, error) {
	fs := w.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	out := w.Out
	if out == nil {
		out = io.Discard
	}
	log := w.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	rep := &Report{}
	for _, f := range files {
		target, err := Resolve(w.Base, f.Path)
		if err == nil {
			err = checkLinks(fs, w.Base, target, f.Path)
		}
		if err == nil && !w.DryRun {
			err = utils.WriteFile(fs, target, []byte(f.Content))
		}
		if err != nil {
			log.WithError(err).WithField("path", f.Path).Warn("file not written")
			ui.Fail(out, "Failed: %s: %v", f.Path, err)
			rep.Failed = append(rep.Failed, Failure{Path: f.Path, Err: err})
			if w.Policy != Continue {
				break
			}
			continue
		}
		if w.DryRun {
			ui.Warn(out, "Would create: %s", target)
			rep.Skipped = append(rep.Skipped, target)
			continue
		}
		log.WithFields(logrus.Fields{"path": target, "bytes": len(f.Content)}).Debug("file written")
		ui.Success(out, "Created: %s", target)
		rep.Written = append(rep.Written, target)
	}
	if len(rep.Failed) > 0 {
		return rep, &WriteError{Report: rep, Total: len(files)}
	}
	return rep, nil
}

// IsPathError reports whether err is, or wraps, a *PathError.
func IsPathError(err error) bool {
	var pe *PathError
	return errors.As(err, &pe)
}
