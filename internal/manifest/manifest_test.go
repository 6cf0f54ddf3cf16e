package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/pipeline"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

func TestManifestSerialization(t *testing.T) {
	m := &BuildManifest{
		ID:        "run-123",
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Project:   Project{Name: "uspto-pattern-library", Version: "2.1.0", Commit: "abc123"},
		Inputs:    Inputs{ConfigFile: "assetbuilder.yaml", ConfigHash: "config-hash-123"},
		Plan:      Plan{Group: "build", Tasks: []string{"clean", "compile", "package"}},
		Results: []TaskResult{
			{Name: "clean", Result: "success", DurationMS: 3},
			{Name: "compile", Result: "failed", DurationMS: 120, Error: "boom"},
			{Name: "package", Result: "skipped"},
		},
		Outputs: Outputs{
			ContentHash:    "content-hash-789",
			ArtifactHashes: map[string]string{"downloads/lib-2.1.0.zip": "artifact-hash-abc"},
		},
		Status:   "failed",
		Duration: 123,
	}

	data, err := m.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if raw["duration_ms"].(float64) != 123 {
		t.Errorf("duration_ms = %v", raw["duration_ms"])
	}

	m2, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	if m2.ID != m.ID || m2.Project != m.Project || m2.Status != m.Status {
		t.Errorf("round trip mismatch: %+v", m2)
	}
	if len(m2.Results) != 3 || m2.Results[1].Error != "boom" {
		t.Errorf("results mismatch: %+v", m2.Results)
	}
	if m2.Outputs.ArtifactHashes["downloads/lib-2.1.0.zip"] != "artifact-hash-abc" {
		t.Errorf("artifact hashes mismatch: %+v", m2.Outputs.ArtifactHashes)
	}
}

func TestFromJSON_Invalid(t *testing.T) {
	if _, err := FromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed input")
	}
}

func TestManifestHash(t *testing.T) {
	base := BuildManifest{
		ID:      "run-1",
		Project: Project{Name: "lib", Version: "1.0.0"},
		Plan:    Plan{Group: "build", Tasks: []string{"clean", "compile"}},
	}
	other := base
	other.ID = "run-2"
	other.Status = "failed"
	other.Timestamp = time.Now()

	h1, err := base.Hash()
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	h2, err := other.Hash()
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if h1 != h2 {
		t.Errorf("hash depends on run identity: %s != %s", h1, h2)
	}

	other.Plan.Tasks = []string{"compile", "clean"}
	h3, _ := other.Hash()
	if h1 == h3 {
		t.Error("hash ignores task order")
	}
	if len(h1) != 64 {
		t.Errorf("expected sha256 hex, got %q", h1)
	}
}

func TestContentHash(t *testing.T) {
	a := map[string]string{"assets/a.css": "1", "downloads/b.zip": "2"}
	b := map[string]string{"downloads/b.zip": "2", "assets/a.css": "1"}
	if ContentHash(a) != ContentHash(b) {
		t.Error("content hash depends on map order")
	}
	if ContentHash(nil) != "" {
		t.Error("empty artifact set should have an empty hash")
	}
	b["assets/a.css"] = "3"
	if ContentHash(a) == ContentHash(b) {
		t.Error("content hash ignores file hashes")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func resolved(t *testing.T, dir string) *config.Resolved {
	t.Helper()
	paths, err := config.NewPathSet(map[string]string{
		config.RootTmp:       ".tmp",
		config.RootAssets:    "generated",
		config.RootDownloads: "downloads",
	}, dir)
	if err != nil {
		t.Fatal(err)
	}
	return &config.Resolved{BaseDir: dir, Paths: paths}
}

func report() *pipeline.Report {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &pipeline.Report{
		RunID:   "run-7",
		Group:   "build",
		Tasks:   []task.Name{"clean", "compress"},
		Start:   start,
		End:     start.Add(2 * time.Second),
		Outcome: pipeline.OutcomeWarning,
		Results: []pipeline.TaskReport{
			{Name: "clean", Result: task.ResultSuccess, Duration: 5 * time.Millisecond},
			{Name: "compress", Result: task.ResultWarning, Duration: time.Second, Err: task.Warning("compress", os.ErrInvalid)},
		},
	}
}

func TestObserver_WritesManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "generated/styles/a.css"), "a{}")
	writeFile(t, filepath.Join(dir, "generated/scripts/main.js"), "x()")
	writeFile(t, filepath.Join(dir, "downloads/lib-1.0.0.zip"), "PK")

	o := NewObserver(resolved(t, dir), "deadbeef")
	o.Now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 2, 0, time.UTC) }
	o.OnRunComplete(report())

	data, err := os.ReadFile(filepath.Join(dir, ".tmp", FileName))
	if err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	m, err := FromJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	if m.ID != "run-7" || m.Plan.Group != "build" || m.Status != "warning" || m.Duration != 2000 {
		t.Errorf("unexpected header: %+v", m)
	}
	if len(m.Results) != 2 || m.Results[1].Result != "warning" || m.Results[1].Error == "" {
		t.Errorf("unexpected results: %+v", m.Results)
	}
	want := []string{"assets/scripts/main.js", "assets/styles/a.css", "downloads/lib-1.0.0.zip"}
	if len(m.Outputs.ArtifactHashes) != len(want) {
		t.Fatalf("artifacts = %v", m.Outputs.ArtifactHashes)
	}
	for _, k := range want {
		if m.Outputs.ArtifactHashes[k] == "" {
			t.Errorf("missing artifact %s", k)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, ".tmp", FileName+".tmp")); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestObserver_StableAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "generated/styles/a.css"), "a{}")
	o := NewObserver(resolved(t, dir), "")

	first, err := o.Build(report())
	if err != nil {
		t.Fatal(err)
	}
	second, err := o.Build(report())
	if err != nil {
		t.Fatal(err)
	}
	if first.Outputs.ContentHash == "" || first.Outputs.ContentHash != second.Outputs.ContentHash {
		t.Errorf("content hash changed between identical trees: %q vs %q", first.Outputs.ContentHash, second.Outputs.ContentHash)
	}

	writeFile(t, filepath.Join(dir, "generated/styles/a.css"), "b{}")
	third, err := o.Build(report())
	if err != nil {
		t.Fatal(err)
	}
	if third.Outputs.ContentHash == first.Outputs.ContentHash {
		t.Error("content hash did not follow file contents")
	}
}

func TestObserver_MissingRootsAreSkipped(t *testing.T) {
	o := NewObserver(resolved(t, t.TempDir()), "")
	m, err := o.Build(report())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(m.Outputs.ArtifactHashes) != 0 || m.Outputs.ContentHash != "" {
		t.Errorf("expected no artifacts, got %+v", m.Outputs)
	}
}
