package manifest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/pipeline"
)

// Observer writes the build manifest when a run completes.
type Observer struct {
	pipeline.NoopObserver
	RC     *config.Resolved
	Commit string
	Roots  []string // root names whose files are hashed
	Now    func() time.Time
}

// NewObserver hashes the assets and downloads roots of rc.
func NewObserver(rc *config.Resolved, commit string) *Observer {
	return &Observer{RC: rc, Commit: commit, Roots: []string{config.RootAssets, config.RootDownloads}}
}

// Path is where the manifest is written: the work root, or the base directory without one.
func (o *Observer) Path() string {
	dir := o.RC.Paths.Root(config.RootTmp)
	if dir == "" {
		dir = o.RC.BaseDir
	}
	return filepath.Join(dir, FileName)
}

func (o *Observer) OnRunComplete(r *pipeline.Report) {
	m, err := o.Build(r)
	if err == nil {
		err = o.write(m)
	}
	if err != nil {
		slog.Warn("Failed to write build manifest", logfields.Path(o.Path()), logfields.Error(err))
		return
	}
	slog.Debug("Build manifest written", logfields.Path(o.Path()), logfields.Count(len(m.Outputs.ArtifactHashes)))
}

// Build assembles the manifest for a finished run.
func (o *Observer) Build(r *pipeline.Report) (*BuildManifest, error) {
	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	m := &BuildManifest{
		ID:        r.RunID,
		Timestamp: now().UTC(),
		Plan:      Plan{Group: r.Group},
		Status:    string(r.Outcome),
		Duration:  r.Duration().Milliseconds(),
	}
	if p := o.RC.Project; p != nil {
		m.Project = Project{Name: p.Name(), Version: p.Version(), Commit: o.Commit}
	}
	if o.RC.ConfigFile != "" {
		m.Inputs.ConfigFile = o.RC.ConfigFile
		if sum, err := HashFile(o.RC.Abs(o.RC.ConfigFile)); err == nil {
			m.Inputs.ConfigHash = sum
		}
	}
	for _, t := range r.Tasks {
		m.Plan.Tasks = append(m.Plan.Tasks, string(t))
	}
	for _, tr := range r.Results {
		res := TaskResult{Name: string(tr.Name), Result: string(tr.Result), DurationMS: tr.Duration.Milliseconds()}
		if tr.Err != nil {
			res.Error = tr.Err.Error()
		}
		m.Results = append(m.Results, res)
	}

	roots := make(map[string]string, len(o.Roots))
	for _, name := range o.Roots {
		if dir := o.RC.Paths.Root(name); dir != "" {
			roots[name] = dir
		}
	}
	artifacts, err := HashRoots(roots)
	if err != nil {
		return nil, err
	}
	m.Outputs = Outputs{ArtifactHashes: artifacts, ContentHash: ContentHash(artifacts)}
	return m, nil
}

func (o *Observer) write(m *BuildManifest) error {
	data, err := m.ToJSON()
	if err != nil {
		return err
	}
	path := o.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}
