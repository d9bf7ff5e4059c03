// Package extract pulls the generated file tree out of a chat-completion envelope.
//
// Models often wrap the JSON in prose or code fences, so the content is first
// tried as a whole and then scanned for balanced brace regions. The scanner
// tracks string and escape state, so braces inside string literals and in
// trailing commentary do not corrupt the region.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// File is one generated file, keyed by its relative path.
type File struct {
	Path    string
	Content string
}

// Result is the decoded generation. Files keep the order of the JSON object.
type Result struct {
	Structure json.RawMessage
	Files     []File
}

// FromEnvelope navigates to choices[0].message.content and parses it.
func FromEnvelope(raw []byte) (*Result, error) {
	if !gjson.ValidBytes(raw) {
		return nil, &EnvelopeError{Reason: "envelope is not valid JSON"}
	}
	choices := gjson.GetBytes(raw, "choices")
	if !choices.IsArray() {
		return nil, &EnvelopeError{Reason: "missing choices"}
	}
	if len(choices.Array()) == 0 {
		return nil, &EnvelopeError{Reason: "choices is empty"}
	}
	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !content.Exists() {
		return nil, &EnvelopeError{Reason: "missing choices[0].message.content"}
	}
	if content.Type != gjson.String {
		return nil, &EnvelopeError{Reason: "choices[0].message.content is not a string"}
	}
	return Parse(content.String())
}

// Parse finds the first JSON object in content that carries a non-empty
// "structure" and "files". If objects were found but none validated, the
// first object's ValidationError is returned.
func Parse(content string) (*Result, error) {
	var firstInvalid error
	tried := 0

	attempt := func(doc string) *Result {
		if !gjson.Valid(doc) {
			return nil
		}
		root := gjson.Parse(doc)
		if !root.IsObject() {
			return nil
		}
		res, err := decode(root)
		if err != nil {
			if firstInvalid == nil {
				firstInvalid = err
			}
			return nil
		}
		return res
	}

	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") {
		tried++
		if res := attempt(trimmed); res != nil {
			return res, nil
		}
	}

	var found *Result
	eachCandidate(content, func(region string) bool {
		if region == trimmed {
			// already tried as a whole
			return true
		}
		tried++
		found = attempt(region)
		return found == nil
	})
	if found != nil {
		return found, nil
	}
	if firstInvalid != nil {
		return nil, firstInvalid
	}
	span, _ := SliceBraces(content)
	if tried == 0 {
		return nil, &ExtractionError{Reason: "no balanced {...} region found", Span: span}
	}
	return nil, &ExtractionError{Reason: "no region decoded as a JSON object", Candidates: tried, Span: span}
}

// SliceBraces returns the text from the first '{' through the last '}'.
// Parse does not decode it; it is attached to ExtractionError as Span.
func SliceBraces(content string) (string, bool) {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end < start {
		return "", false
	}
	return content[start : end+1], true
}

// eachCandidate calls fn with balanced regions that start at a '{', in order,
// until fn returns false. Scanning resumes after the end of each region, so
// braces nested in an earlier region are never candidates. An unbalanced
// start ends the scan: every later brace lies inside it.
func eachCandidate(s string, fn func(string) bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		end, ok := matchBrace(s, start)
		if !ok || !fn(s[start:end+1]) {
			return
		}
		next := strings.IndexByte(s[end+1:], '{')
		if next < 0 {
			return
		}
		start = end + 1 + next
	}
}

// matchBrace returns the index of the '}' closing the '{' at start.
func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inStr, esc := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func decode(root gjson.Result) (*Result, error) {
	structure := root.Get("structure")
	if !truthy(structure) {
		return nil, &ValidationError{Field: "structure", Reason: "is missing or empty"}
	}
	files := root.Get("files")
	if !truthy(files) {
		return nil, &ValidationError{Field: "files", Reason: "is missing or empty"}
	}
	if !files.IsObject() {
		return nil, &ValidationError{Field: "files", Reason: "must be an object mapping paths to contents"}
	}

	var out []File
	var verr error
	files.ForEach(func(k, v gjson.Result) bool {
		if v.Type != gjson.String {
			verr = &ValidationError{Field: "files", Reason: fmt.Sprintf("entry %q is not a string", k.String())}
			return false
		}
		out = append(out, File{Path: k.String(), Content: v.String()})
		return true
	})
	if verr != nil {
		return nil, verr
	}
	return &Result{Structure: json.RawMessage(structure.Raw), Files: out}, nil
}

// truthy mirrors JSON "non-empty" semantics: null, false, 0, "", [] and {} are falsy.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	default:
		if r.IsArray() {
			return len(r.Array()) > 0
		}
		if r.IsObject() {
			return len(r.Map()) > 0
		}
		return false
	}
}
