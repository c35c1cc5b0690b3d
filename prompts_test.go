package audience

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPromptsWithDefaults(t *testing.T) {
	p := Prompts{Greeting: "custom greeting"}.withDefaults()

	if p.Greeting != "custom greeting" {
		t.Errorf("expected override kept, got %q", p.Greeting)
	}
	if p.Extraction == "" || p.TableFormat == "" {
		t.Error("expected empty fields filled from defaults")
	}
	if p.Extraction != DefaultPrompts().Extraction {
		t.Error("expected default extraction prompt")
	}
}

func TestLoadPromptsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := "greeting: file greeting\nnotFound: file not found\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write prompts file: %v", err)
	}

	p, err := LoadPromptsFile(path)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if p.Greeting != "file greeting" {
		t.Errorf("expected greeting from file, got %q", p.Greeting)
	}
	if p.NotFound != "file not found" {
		t.Errorf("expected notFound from file, got %q", p.NotFound)
	}
	if p.Summary != DefaultPrompts().Summary {
		t.Error("expected missing prompts to keep defaults")
	}

	if _, err := LoadPromptsFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
