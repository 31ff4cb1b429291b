package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LEARN_CURRICULUM_PATH", "")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCatalogValidate_Default(t *testing.T) {
	out, err := execute(t, "catalog", "validate")
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}
	if !strings.Contains(out, "catalog OK: 4 levels, 7 items") {
		t.Errorf("output = %q", out)
	}
}

func TestCatalogValidate_BadDirectory(t *testing.T) {
	dir := t.TempDir()
	doc := `level: basics
order: 1
items:
  - id: a
    title: A
    category: c
    difficulty: 3
    prerequisites: [missing]
    questions:
      - prompt: q
        options: [x, y]
        correct: 0
        explanation: e
`
	if err := os.WriteFile(filepath.Join(dir, "basics.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "catalog", "validate", "--path", dir)
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("validate error = %v, want nonexistent prerequisite", err)
	}
}

func TestCatalogList(t *testing.T) {
	out, err := execute(t, "catalog", "list", "--level", "developing")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !strings.Contains(out, "Developing") || !strings.Contains(out, "hypothesis_testing") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "Foundation\n") {
		t.Error("--level should hide other levels")
	}

	if _, err := execute(t, "catalog", "list", "--level", "nope"); err == nil {
		t.Error("unknown level should fail")
	}
}

func TestDemo(t *testing.T) {
	out, err := execute(t, "demo", "--rounds", "5", "--accuracy", "1", "--learner", "sam")
	if err != nil {
		t.Fatalf("demo error = %v", err)
	}
	if !strings.Contains(out, "round  1") {
		t.Errorf("output missing first round: %q", out)
	}
	if !strings.Contains(out, "attempts:     5 (5 correct, 100.0%)") {
		t.Errorf("output missing summary: %q", out)
	}
	if !strings.Contains(out, "system:       1 learners, 5 interactions, 100.0% correct, 7 items") {
		t.Errorf("output missing system stats: %q", out)
	}
	if strings.Count(out, "wrong answer on ") != 3 || !strings.Contains(out, "next:") {
		t.Errorf("output missing struggle phase: %q", out)
	}
}

func TestDemo_NoStruggle(t *testing.T) {
	out, err := execute(t, "demo", "--rounds", "2", "--wrong", "0")
	if err != nil {
		t.Fatalf("demo error = %v", err)
	}
	if strings.Contains(out, "wrong answer on ") {
		t.Errorf("--wrong 0 should skip the struggle phase: %q", out)
	}
}

func TestDemo_InvalidAccuracy(t *testing.T) {
	if _, err := execute(t, "demo", "--accuracy", "1.5"); err == nil {
		t.Fatal("demo should reject accuracy above 1")
	}
}
