package stages

import (
	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/registry"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// Task and group names of the standard pipeline.
const (
	TaskClean       task.Name = "clean"
	TaskLintJS      task.Name = "lint:js"
	TaskLintStyle   task.Name = "lint:style"
	TaskCompile     task.Name = "compile"
	TaskCompress    task.Name = "compress"
	TaskAnnotate    task.Name = "annotate"
	TaskPrefix      task.Name = "prefix"
	TaskCopyDist    task.Name = "copy:dist"
	TaskPackage     task.Name = "package"
	TaskPublish     task.Name = "publish"
	TaskCopyRelease task.Name = "copy:release"

	GroupLint    task.Name = "lint"
	GroupBundle  task.Name = "bundle"
	GroupBuild   task.Name = "build"
	GroupRelease task.Name = "release"
	GroupDefault task.Name = "default"
)

// BundleTask names the task producing bundle name.
func BundleTask(name string) task.Name { return task.Name("bundle:" + name) }

// WatchGroup names the group run when watch rule name matches.
func WatchGroup(rule string) task.Name { return task.Name("watch:" + rule) }

// NewStandard assembles the registry for a resolved pipeline. The result has
// passed SelfCheck.
func NewStandard(rc *config.Resolved, c Collaborators) (*registry.Registry, error) {
	p := rc.Pipeline
	reg := registry.New()

	bundles := make([]task.Name, 0, len(p.Bundles))
	defs := []task.Definition{
		{Name: TaskClean, Description: "remove output roots", Run: Clean(p.Clean.Targets), Outputs: p.Clean.Targets},
		{Name: TaskLintJS, Description: "lint scripts", Run: Lint(TaskLintJS, p.Lint.JS, c.JSLinter), Inputs: p.Lint.JS.Files},
		{Name: TaskLintStyle, Description: "lint stylesheets", Run: Lint(TaskLintStyle, p.Lint.Style, c.StyleLinter), Inputs: p.Lint.Style.Files},
		{Name: TaskCompile, Description: "compile stylesheets", Run: Compile(p.Compile, c.Compiler), Inputs: mappingSources(p.Compile.Entries), Outputs: mappingDests(p.Compile.Entries)},
		{Name: TaskCompress, Description: "optimise images (best effort)", Run: Compress(p.Compress.Files, c.Images), Inputs: mappingSources(p.Compress.Files), Outputs: mappingDests(p.Compress.Files)},
		{Name: TaskAnnotate, Description: "apply the license banner", Run: Annotate(p.Banner), Outputs: p.Banner.Files},
	}
	for _, b := range p.Bundles {
		name := BundleTask(b.Name)
		bundles = append(bundles, name)
		defs = append(defs, task.Definition{
			Name:        name,
			Description: "concatenate " + b.Name,
			Run:         Bundle(b),
			Inputs:      b.Src,
			Outputs:     []string{b.Dest},
		})
	}
	defs = append(defs,
		task.Definition{Name: TaskPrefix, Description: "add vendor prefixes", Run: Prefix(p.Prefix, c.Prefixer), Outputs: p.Prefix.Files},
		task.Definition{Name: TaskCopyDist, Description: "assemble the downloads tree", Run: Copy(p.Copy.Dist), Inputs: mappingSources(p.Copy.Dist), Outputs: mappingDests(p.Copy.Dist)},
		task.Definition{Name: TaskPackage, Description: "archive the downloads tree", Run: Package(p.Package), Inputs: p.Package.Src, Outputs: []string{p.Package.Dest}},
		task.Definition{Name: TaskPublish, Description: "render the public site", Run: Publish(p.Publish, c.Generator), Inputs: []string{p.Publish.Config}, Outputs: []string{p.Publish.Destination}},
		task.Definition{Name: TaskCopyRelease, Description: "merge the versioned release tree", Run: Copy(p.Copy.Release), Inputs: mappingSources(p.Copy.Release), Outputs: mappingDests(p.Copy.Release)},
	)
	for _, d := range defs {
		if err := reg.Register(d); err != nil {
			return nil, err
		}
	}

	groups := []groupDef{
		{GroupLint, []task.Name{TaskLintJS, TaskLintStyle}},
		{GroupBundle, bundles},
		{GroupBuild, []task.Name{TaskClean, TaskLintJS, TaskLintStyle, TaskCompile, TaskCompress, TaskAnnotate, GroupBundle, TaskPrefix, TaskCopyDist, TaskPackage}},
		{GroupRelease, []task.Name{GroupBuild, TaskPublish, TaskCopyRelease}},
		{GroupDefault, []task.Name{GroupBuild}},
	}
	for _, r := range p.Watch.Rules {
		refs := make([]task.Name, len(r.Tasks))
		for i, t := range r.Tasks {
			refs[i] = task.Name(t)
		}
		groups = append(groups, groupDef{WatchGroup(r.Name), refs})
	}
	for _, g := range groups {
		if err := reg.DefineGroup(g.name, g.refs...); err != nil {
			return nil, err
		}
	}

	if err := reg.SelfCheck(); err != nil {
		return nil, err
	}
	return reg, nil
}

type groupDef struct {
	name task.Name
	refs []task.Name
}

func mappingSources(ms []config.Mapping) []string {
	var out []string
	for _, m := range ms {
		for _, s := range m.Src {
			if m.Cwd == "" {
				out = append(out, s)
				continue
			}
			out = append(out, m.Cwd+"/"+s)
		}
	}
	return out
}

func mappingDests(ms []config.Mapping) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Dest)
	}
	return out
}
