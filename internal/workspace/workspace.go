package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// Manager handles workspace operations (both temporary and persistent)
type Manager struct {
	baseDir    string
	dir        string
	persistent bool // If true, use a fixed directory without timestamps
	now        func() time.Time
}

// NewManager creates a new workspace manager with ephemeral timestamped directories
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir, now: time.Now}
}

// NewPersistentManager creates a workspace manager that uses a fixed directory.
// An absolute dir is used as is; a relative one is joined to baseDir.
func NewPersistentManager(baseDir, dir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if dir == "" {
		dir = "staging"
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(baseDir, dir)
	}
	return &Manager{baseDir: baseDir, dir: dir, persistent: true, now: time.Now}
}

// Create creates the workspace directory.
// For ephemeral mode: creates a new timestamped directory
// For persistent mode: ensures the fixed directory exists
func (m *Manager) Create() error {
	if m.persistent {
		if err := os.MkdirAll(m.dir, 0o750); err != nil {
			return fmt.Errorf("failed to create persistent workspace directory: %w", err)
		}
		slog.Debug("Using persistent workspace", logfields.Path(m.dir))
		return nil
	}

	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace base directory: %w", err)
	}
	timestamp := m.now().Format("20060102-150405")
	dir, err := os.MkdirTemp(m.baseDir, fmt.Sprintf("assetbuilder-%s-*", timestamp))
	if err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	m.dir = dir
	slog.Debug("Created workspace", logfields.Path(dir))
	return nil
}

// Reset empties a persistent workspace and recreates it, so nothing from an
// earlier run survives. Ephemeral workspaces are recreated under a new name.
func (m *Manager) Reset() error {
	if !m.persistent {
		if err := m.Cleanup(); err != nil {
			return err
		}
		return m.Create()
	}
	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("failed to reset workspace: %w", err)
	}
	return m.Create()
}

// GetPath returns the path to the workspace directory
func (m *Manager) GetPath() string {
	return m.dir
}

// Cleanup removes the workspace directory
// For persistent mode: does nothing (the staged output is inspected later)
// For ephemeral mode: removes the timestamped directory
func (m *Manager) Cleanup() error {
	if m.dir == "" {
		return nil
	}

	if m.persistent {
		slog.Debug("Skipping cleanup for persistent workspace", logfields.Path(m.dir))
		return nil
	}

	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("failed to cleanup workspace: %w", err)
	}

	slog.Debug("Cleaned up workspace", logfields.Path(m.dir))
	m.dir = ""
	return nil
}
