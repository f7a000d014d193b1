package harness

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func runScenarioFile(t *testing.T, path string) *Result {
	t.Helper()
	scenario, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	result, err := Run(t.TempDir(), scenario)
	if err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	return result
}

func TestScenarioConcurrentLabelAdd(t *testing.T) {
	result := runScenarioFile(t, filepath.Join("testdata", "scenarios", "concurrent_label_add.yaml"))
	if !result.Pass {
		t.Fatalf("scenario failed: %v", result.Errors)
	}
}

func TestScenarioConcurrentReopenVsDone(t *testing.T) {
	result := runScenarioFile(t, filepath.Join("testdata", "scenarios", "concurrent_reopen_vs_done.yaml"))
	if !result.Pass {
		t.Fatalf("scenario failed: %v", result.Errors)
	}
}

func TestLoadScenarioRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	writeFile(t, path, "name: x\ndescription: y\nsteps: []\nbogus_field: true\n")
	if _, err := LoadScenario(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadScenarioRequiresSteps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	writeFile(t, path, "name: x\ndescription: y\nsteps: []\n")
	if _, err := LoadScenario(path); err == nil {
		t.Fatal("expected error for empty steps")
	}
}
