package config

import (
	"fmt"
	"maps"
	"os"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// ProjectConfig is the project metadata read once at startup.
type ProjectConfig struct {
	name       string
	version    string
	repository string
	extra      map[string]any
}

// NewProjectConfig builds project metadata directly, mainly for tests.
func NewProjectConfig(name, version, repository string, extra map[string]any) *ProjectConfig {
	return &ProjectConfig{name: name, version: version, repository: repository, extra: maps.Clone(extra)}
}

func (p *ProjectConfig) Name() string          { return p.name }
func (p *ProjectConfig) Version() string       { return p.version }
func (p *ProjectConfig) RepositoryURL() string { return p.repository }

// Extra returns a copy of the extension fields.
func (p *ProjectConfig) Extra() map[string]any { return maps.Clone(p.extra) }

// Resolve reads the metadata file and resolves the symbolic roots against
// baseDir. It performs no other I/O.
func Resolve(metadataFile string, roots map[string]string, baseDir string) (*ProjectConfig, PathSet, error) {
	project, err := loadProject(absUnder(baseDir, metadataFile))
	if err != nil {
		return nil, PathSet{}, err
	}
	paths, err := NewPathSet(roots, baseDir)
	if err != nil {
		return nil, PathSet{}, err
	}
	return project, paths, nil
}

func loadProject(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.ConfigError("project metadata file not found").
				WithContext("file", path).
				Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read project metadata").
			Fatal().
			WithContext("file", path).
			Build()
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "malformed project metadata").
			Fatal().
			WithContext("file", path).
			Build()
	}

	var problems []string
	p := &ProjectConfig{extra: make(map[string]any)}
	for key, value := range raw {
		switch key {
		case "name":
			p.name = scalarString(value)
		case "version":
			p.version = scalarString(value)
		case "repository":
			p.repository = repositoryURL(value)
		default:
			p.extra[key] = value
		}
	}
	if p.name == "" {
		problems = append(problems, "missing required field: name")
	}
	if p.version == "" {
		problems = append(problems, "missing required field: version")
	} else if !isSemver(p.version) {
		problems = append(problems, fmt.Sprintf("version %q is not a semantic version", p.version))
	}
	if len(problems) > 0 {
		return nil, ferrors.ConfigError("invalid project metadata: " + strings.Join(problems, "; ")).
			WithContext("file", path).
			Build()
	}
	return p, nil
}

// repositoryURL accepts either a plain string or a mapping carrying url.
func repositoryURL(v any) string {
	switch r := v.(type) {
	case string:
		return r
	case map[string]any:
		return scalarString(r["url"])
	default:
		return ""
	}
}

func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(s)
	default:
		return ""
	}
}

// isSemver reports whether v is MAJOR.MINOR.PATCH with optional pre-release
// and build suffixes. A leading "v" is accepted.
func isSemver(v string) bool {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return false
	}
	core := strings.TrimPrefix(v, "v")
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	return strings.Count(core, ".") == 2
}
