package stages

import "context"

// LintRequest is one linter invocation over a file set.
type LintRequest struct {
	Files []string
	Rules string // rule file, may be empty
	Dir   string
}

// LintReport is the structured result of a lint run. Raw holds the tool's
// native report for inspection.
type LintReport struct {
	Violations []LintViolation
	Raw        []byte
}

// Linter checks source files against a rule set.
type Linter interface {
	Lint(ctx context.Context, req LintRequest) (LintReport, error)
}

// CompileRequest describes one stylesheet entry point.
type CompileRequest struct {
	Src          string
	Dest         string
	IncludePaths []string
	Style        string
	SourceMap    bool
}

// Compiler compiles a stylesheet entry point to CSS.
type Compiler interface {
	Compile(ctx context.Context, req CompileRequest) error
}

// Prefixer adds vendor-prefixed rules to compiled stylesheets, rewriting them in place.
type Prefixer interface {
	Prefix(ctx context.Context, files []string, browsers []string) error
}

// ImageCompressor writes an optimised copy of src to dest.
type ImageCompressor interface {
	Compress(ctx context.Context, src, dest string) error
}

// GenerateRequest describes a static-site generator run.
type GenerateRequest struct {
	Config      string
	Destination string
	Dir         string
}

// SiteGenerator renders the public site.
type SiteGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) error
}

// Collaborators bundles the external transforms used by the standard pipeline.
type Collaborators struct {
	JSLinter    Linter
	StyleLinter Linter
	Compiler    Compiler
	Prefixer    Prefixer
	Images      ImageCompressor
	Generator   SiteGenerator
}
