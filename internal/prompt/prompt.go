// Package prompt builds the single user message sent to the model.
package prompt

import "strings"

// Instructions is the fixed block that tells the model which JSON shape to return.
const Instructions = `You are an AI app builder. Given a project description, output a JSON object with:
- 'structure': a tree of folders and files
- 'files': a mapping of file paths to their contents

File paths must be relative and must not contain '..' segments.
Return only the JSON object.`

// Build returns Instructions followed by the description, verbatim.
func Build(description string) string {
	var sb strings.Builder
	sb.Grow(len(Instructions) + len(description) + 16)
	sb.WriteString("\n")
	sb.WriteString(Instructions)
	sb.WriteString("\n\nProject: ")
	sb.WriteString(description)
	sb.WriteString("\n")
	return sb.String()
}
