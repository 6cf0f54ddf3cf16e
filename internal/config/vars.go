package config

import (
	"fmt"
	"regexp"
	"strings"
)

// Placeholders look like {name} or {paths.assets}. Glob alternations such as
// {,*/} or {png,gif} never match because they contain a comma.
var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_-]+)*)\}`)

// Variable keys available to templates.
const (
	VarName       = "name"
	VarVersion    = "version"
	VarRepository = "repository"
	VarCommit     = "commit"
	extraPrefix   = "extra."
	pathsPrefix   = "paths."
)

// UnknownVariableError reports a placeholder with no value.
type UnknownVariableError struct {
	Key      string
	Template string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("unknown placeholder {%s} in %q", e.Key, e.Template)
}

// Vars is the interpolation environment built from the project metadata,
// the path roots and the current commit.
type Vars struct {
	values map[string]string
}

// NewVars builds the interpolation environment.
func NewVars(project *ProjectConfig, paths PathSet, commit string) Vars {
	values := map[string]string{
		VarName:       project.Name(),
		VarVersion:    project.Version(),
		VarRepository: project.RepositoryURL(),
		VarCommit:     commit,
	}
	for k, v := range project.extra {
		switch v.(type) {
		case string, bool, int, int64, uint64, float64:
			values[extraPrefix+k] = scalarString(v)
		}
	}
	for _, name := range paths.Names() {
		values[pathsPrefix+name] = paths.Root(name)
	}
	return Vars{values: values}
}

// Lookup returns the value of key.
func (v Vars) Lookup(key string) (string, bool) {
	s, ok := v.values[key]
	return s, ok
}

// Expand substitutes every placeholder in tmpl. It fails on the first unknown key.
func (v Vars) Expand(tmpl string) (string, error) {
	var missing error
	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := m[1 : len(m)-1]
		if val, ok := v.values[key]; ok {
			return val
		}
		if missing == nil {
			missing = &UnknownVariableError{Key: key, Template: tmpl}
		}
		return m
	})
	if missing != nil {
		return "", missing
	}
	return out, nil
}

// Validate reports every unknown placeholder in tmpl.
func (v Vars) Validate(tmpl string) []error {
	var errs []error
	for _, m := range placeholderRe.FindAllStringSubmatch(tmpl, -1) {
		if _, ok := v.values[m[1]]; !ok {
			errs = append(errs, &UnknownVariableError{Key: m[1], Template: tmpl})
		}
	}
	return errs
}

// Matcher returns a regexp matching, at the start of input, a rendering of
// tmpl from an earlier release. Only {version} and {commit} may differ; every
// other placeholder must carry its current value. Values are assumed not to
// span lines.
func (v Vars) Matcher(tmpl string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString(`\A`)
	last := 0
	for _, loc := range placeholderRe.FindAllStringSubmatchIndex(tmpl, -1) {
		b.WriteString(regexp.QuoteMeta(tmpl[last:loc[0]]))
		switch key := tmpl[loc[2]:loc[3]]; key {
		case VarVersion, VarCommit:
			b.WriteString(`[^\n]*?`)
		default:
			b.WriteString(regexp.QuoteMeta(v.values[key]))
		}
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(tmpl[last:]))
	return regexp.MustCompile(b.String())
}
