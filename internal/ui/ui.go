// Package ui prints operator-facing status lines with the ✓ / ⚠ / ✗ markers.
// Color is applied only when the output is a terminal.
package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed)
	heading   = color.New(color.Bold)
)

// Success prints "✓ <msg>".
func Success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", okColor.Sprint("✓"), fmt.Sprintf(format, args...))
}

// Warn prints "⚠ <msg>".
func Warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", warnColor.Sprint("⚠"), fmt.Sprintf(format, args...))
}

// Fail prints "✗ <msg>".
func Fail(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", failColor.Sprint("✗"), fmt.Sprintf(format, args...))
}

// Banner prints a bold title line.
func Banner(w io.Writer, title string) {
	heading.Fprintf(w, "=== %s ===\n", title)
}

// Step prints a progress line preceded by a blank line.
func Step(w io.Writer, msg string) {
	fmt.Fprintf(w, "\n%s\n", msg)
}
