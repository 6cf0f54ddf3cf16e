// Package manifest records what a pipeline run consumed and produced.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// FileName is the manifest's name inside the work root.
const FileName = "build-manifest.json"

// BuildManifest is a complete record of one run's inputs, plan and outputs.
type BuildManifest struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Project   Project      `json:"project"`
	Inputs    Inputs       `json:"inputs"`
	Plan      Plan         `json:"plan"`
	Results   []TaskResult `json:"results"`
	Outputs   Outputs      `json:"outputs"`
	Status    string       `json:"status"`
	Duration  int64        `json:"duration_ms"`
}

// Project identifies the library being built.
type Project struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
}

// Inputs captures the configuration the run was started with.
type Inputs struct {
	ConfigFile string `json:"config_file,omitempty"`
	ConfigHash string `json:"config_hash,omitempty"`
}

// Plan captures the flattened execution plan.
type Plan struct {
	Group string   `json:"group"`
	Tasks []string `json:"tasks"`
}

// TaskResult is one task's outcome.
type TaskResult struct {
	Name       string `json:"name"`
	Result     string `json:"result"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Outputs captures what the run left in the output roots.
type Outputs struct {
	ContentHash    string            `json:"content_hash,omitempty"`
	ArtifactHashes map[string]string `json:"artifact_hashes,omitempty"`
}

// ToJSON serializes the manifest to JSON.
func (m *BuildManifest) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// FromJSON deserializes a manifest from JSON.
func FromJSON(data []byte) (*BuildManifest, error) {
	var m BuildManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Hash computes a deterministic hash of the project, inputs and plan. Two
// runs with equal hashes were asked to do the same work.
func (m *BuildManifest) Hash() (string, error) {
	hashInput := struct {
		Project Project `json:"project"`
		Inputs  Inputs  `json:"inputs"`
		Plan    Plan    `json:"plan"`
	}{m.Project, m.Inputs, m.Plan}

	data, err := json.Marshal(hashInput)
	if err != nil {
		return "", fmt.Errorf("marshal for hash: %w", err)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}

// HashFile returns the hex sha256 of a file's contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- output file of this run
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashRoots hashes every regular file under each named root. Keys are
// "<root>/<slash path relative to the root>". Missing roots are skipped.
func HashRoots(roots map[string]string) (map[string]string, error) {
	out := make(map[string]string)
	for name, dir := range roots {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(dir, p)
			if err != nil {
				return err
			}
			sum, err := HashFile(p)
			if err != nil {
				return err
			}
			out[name+"/"+filepath.ToSlash(rel)] = sum
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("hash %s: %w", dir, err)
		}
	}
	return out, nil
}

// ContentHash folds artifact hashes into one value, independent of map order.
func ContentHash(artifacts map[string]string) string {
	if len(artifacts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(artifacts))
	for k := range artifacts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h := sha256.New()
	for _, k := range keys {
		_, _ = io.WriteString(h, k+"\x00"+artifacts[k]+"\n")
	}
	return hex.EncodeToString(h.Sum(nil))
}
