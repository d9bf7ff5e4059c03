package utils_test

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/appforge-cli/internal/utils"
)

func TestCountTokens(t *testing.T) {
	cases := []struct {
		name string
		in   string
		min  int
	}{
		{"empty", "", 0},
		{"simple", "hello world", 2},
		{"long", strings.Repeat("a", 4000), 900}, // heuristic ~ 1 tok ≈ 4 chars
	}
	for _, c := range cases {
		if got := utils.CountTokens(c.in); got < c.min {
			t.Errorf("%s: got %d < min %d", c.name, got, c.min)
		}
	}
}

func TestPreview(t *testing.T) {
	if got := utils.Preview("short", 100); got != "short" {
		t.Fatalf("short text should be unchanged, got %q", got)
	}
	text := strings.Repeat("a", 50) + strings.Repeat("z", 50)
	got := utils.Preview(text, 20)
	if !strings.HasPrefix(got, strings.Repeat("a", 15)) || !strings.HasSuffix(got, strings.Repeat("z", 5)) {
		t.Fatalf("unexpected preview: %q", got)
	}
	if !strings.Contains(got, "…") {
		t.Fatalf("expected elision marker in %q", got)
	}
}
