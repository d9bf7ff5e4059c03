package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("APPFORGE_API_KEY", "")
	t.Setenv("APPFORGE_MODEL", "")
	// keep godotenv from picking up a stray .env in the package dir
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(home); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Model != DefaultModel {
		t.Fatalf("expected default model, got %q", c.Model)
	}
	if c.BaseURL != DefaultBaseURL {
		t.Fatalf("expected default base url, got %q", c.BaseURL)
	}
	if c.RetryMaxAttempts != 1 {
		t.Fatalf("expected a single attempt by default, got %d", c.RetryMaxAttempts)
	}
	if c.OnError != OnErrorHalt || c.OutputDir != "." {
		t.Fatalf("unexpected output defaults: %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadEnvOverridesAndFallbackKey(t *testing.T) {
	isolate(t)
	t.Setenv("APPFORGE_MODEL", "openai/gpt-4o-mini")
	t.Setenv("OPENROUTER_API_KEY", "sk-fallback")
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Model != "openai/gpt-4o-mini" {
		t.Fatalf("env did not override model: %q", c.Model)
	}
	if c.APIKey != "sk-fallback" {
		t.Fatalf("expected OPENROUTER_API_KEY fallback, got %q", c.APIKey)
	}

	t.Setenv("APPFORGE_API_KEY", "sk-primary")
	c, err = Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.APIKey != "sk-primary" {
		t.Fatalf("APPFORGE_API_KEY should win, got %q", c.APIKey)
	}
}

func TestDotEnvIsLoaded(t *testing.T) {
	home := isolate(t)
	os.Unsetenv("APPFORGE_API_KEY")
	t.Cleanup(func() { os.Unsetenv("APPFORGE_API_KEY") })
	if err := os.WriteFile(filepath.Join(home, ".env"), []byte("APPFORGE_API_KEY=sk-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.APIKey != "sk-dotenv" {
		t.Fatalf("expected key from .env, got %q", c.APIKey)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "cfg", "config.yaml")
	in := &Global{
		APIKey:         "sk-file",
		BaseURL:        "http://localhost:9999/v1",
		Model:          "test/model",
		HTTPTimeoutSec: 5,
		OutputDir:      "out",
		OnError:        OnErrorContinue,
		LogLevel:       "debug",
	}
	if err := Save(in, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.APIKey != "sk-file" || out.Model != "test/model" || out.OnError != OnErrorContinue || out.OutputDir != "out" {
		t.Fatalf("unexpected config after round trip: %+v", out)
	}
}

func TestValidateRejectsUnknownPolicy(t *testing.T) {
	c := &Global{BaseURL: DefaultBaseURL, Model: DefaultModel, OnError: "retry"}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown on_error policy")
	}
}

func TestLoadFileIgnoresEnvironment(t *testing.T) {
	home := isolate(t)
	t.Setenv("APPFORGE_API_KEY", "sk-env")
	t.Setenv("OPENROUTER_API_KEY", "sk-fallback")
	path := filepath.Join(home, "config.yaml")

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile on missing file: %v", err)
	}
	if c.APIKey != "" || c.Model != "" {
		t.Fatalf("missing file should give an empty config, got %+v", c)
	}

	c.Model = "test/model"
	if err := Save(c, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "sk-") || strings.Contains(string(b), "api_key") {
		t.Fatalf("env credentials leaked into the file:\n%s", b)
	}
	if strings.Contains(string(b), "on_error") {
		t.Fatalf("unset keys should be omitted so defaults apply:\n%s", b)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Model != "test/model" || loaded.OnError != OnErrorHalt || loaded.APIKey != "sk-env" {
		t.Fatalf("unexpected effective config: %+v", loaded)
	}
}
