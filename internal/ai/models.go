package ai

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Model metadata used for prompt-size warnings. Context windows are
// approximate; unknown models are simply not checked.

type ModelInfo struct {
	Name          string
	ContextTokens int
}

var models = map[string]ModelInfo{
	"moonshotai/kimi-k2:free":     {Name: "moonshotai/kimi-k2:free", ContextTokens: 32768},
	"moonshotai/kimi-k2":          {Name: "moonshotai/kimi-k2", ContextTokens: 131072},
	"deepseek/deepseek-r1:free":   {Name: "deepseek/deepseek-r1:free", ContextTokens: 128000},
	"deepseek/deepseek-chat":      {Name: "deepseek/deepseek-chat", ContextTokens: 128000},
	"openai/gpt-4o-mini":          {Name: "openai/gpt-4o-mini", ContextTokens: 128000},
	"openai/gpt-4o":               {Name: "openai/gpt-4o", ContextTokens: 128000},
	"openai/gpt-4.1-mini":         {Name: "openai/gpt-4.1-mini", ContextTokens: 128000},
	"anthropic/claude-3.5-sonnet": {Name: "anthropic/claude-3.5-sonnet", ContextTokens: 200000},
	"anthropic/claude-3-haiku":    {Name: "anthropic/claude-3-haiku", ContextTokens: 200000},
	"google/gemini-1.5-flash":     {Name: "google/gemini-1.5-flash", ContextTokens: 1000000},
	"meta-llama/llama-3.1-8b-instruct": {
		Name:          "meta-llama/llama-3.1-8b-instruct",
		ContextTokens: 131072,
	},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// CheckPromptFits returns an error when promptTokens plus the reserved
// completion budget exceed the model's known context window.
func CheckPromptFits(model string, promptTokens, reserve int) error {
	mi, ok := LookupModel(model)
	if !ok || mi.ContextTokens <= 0 {
		return nil
	}
	if promptTokens+reserve > mi.ContextTokens {
		return fmt.Errorf("prompt (~%d tokens) plus %d reserved for output exceeds %s context (~%d tokens)", promptTokens, reserve, model, mi.ContextTokens)
	}
	return nil
}

// LoadCatalogFromJSON loads a JSON object map[string]ModelInfo from a file path.
// Example JSON entry:
// { "openai/gpt-4o-mini": {"Name":"openai/gpt-4o-mini","ContextTokens":128000} }
func LoadCatalogFromJSON(path string) (map[string]ModelInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var m map[string]ModelInfo
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return m, nil
}

// MergeCatalog merges/overrides entries in the in-memory catalog.
func MergeCatalog(m map[string]ModelInfo) {
	for k, v := range m {
		if v.Name == "" {
			v.Name = k
		}
		models[k] = v
	}
}

// SortedCatalog returns the catalog ordered by model name.
func SortedCatalog() []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, v := range models {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
