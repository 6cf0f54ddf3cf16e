package stages

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinels for stage failures.
var (
	ErrLintViolation  = errors.New("assetbuilder: lint violation")      // ErrLintViolation indicates the linter reported findings.
	ErrCompile        = errors.New("assetbuilder: compile error")       // ErrCompile indicates a stylesheet failed to compile.
	ErrMissingSource  = errors.New("assetbuilder: missing source")      // ErrMissingSource indicates a configured input does not exist.
	ErrEmptySourceSet = errors.New("assetbuilder: empty source set")    // ErrEmptySourceSet indicates an archive would have no entries.
	ErrPathEscape     = errors.New("assetbuilder: path escapes root")   // ErrPathEscape indicates a file resolving outside its declared root.
	ErrMergeConflict  = errors.New("assetbuilder: merge conflict")      // ErrMergeConflict indicates a file and a directory competing for one path.
	ErrGenerator      = errors.New("assetbuilder: site generator error") // ErrGenerator indicates the static-site generator failed.
	ErrCompress       = errors.New("assetbuilder: image compression error")
)

// LintViolation is a single linter finding.
type LintViolation struct {
	File     string
	Line     int
	Column   int
	Rule     string
	Severity string
	Message  string
}

func (v LintViolation) String() string {
	s := fmt.Sprintf("%s:%d", v.File, v.Line)
	if v.Column > 0 {
		s += fmt.Sprintf(":%d", v.Column)
	}
	if v.Rule != "" {
		s += " " + v.Rule
	}
	if v.Message != "" {
		s += ": " + v.Message
	}
	return s
}

const maxListedViolations = 5

// LintViolationError lists every violation found by one lint task.
type LintViolationError struct {
	Violations []LintViolation
	Report     string // path of the raw report, if written
}

func (e *LintViolationError) Error() string {
	n := len(e.Violations)
	parts := make([]string, 0, maxListedViolations)
	for i, v := range e.Violations {
		if i == maxListedViolations {
			parts = append(parts, fmt.Sprintf("and %d more", n-maxListedViolations))
			break
		}
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("%s: %d found: %s", ErrLintViolation, n, strings.Join(parts, "; "))
}

func (e *LintViolationError) Unwrap() error { return ErrLintViolation }

// CompileError reports a stylesheet that failed to compile.
type CompileError struct {
	File    string
	Message string
	Err     error
}

func (e *CompileError) Error() string {
	if e.Message == "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", ErrCompile, e.File, e.Err)
		}
		return fmt.Sprintf("%s: %s", ErrCompile, e.File)
	}
	return fmt.Sprintf("%s: %s: %s", ErrCompile, e.File, e.Message)
}

func (e *CompileError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCompile}
	}
	return []error{ErrCompile, e.Err}
}

// MissingSourceError lists inputs that matched no file.
type MissingSourceError struct {
	Patterns []string
}

func (e *MissingSourceError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingSource, strings.Join(e.Patterns, ", "))
}

func (e *MissingSourceError) Unwrap() error { return ErrMissingSource }

// EmptySourceSetError reports an archive source set with no files.
type EmptySourceSetError struct {
	Root     string
	Patterns []string
}

func (e *EmptySourceSetError) Error() string {
	return fmt.Sprintf("%s: nothing under %s matches %s", ErrEmptySourceSet, e.Root, strings.Join(e.Patterns, ", "))
}

func (e *EmptySourceSetError) Unwrap() error { return ErrEmptySourceSet }

// PathEscapeError reports a file that resolves outside its root.
type PathEscapeError struct {
	Root string
	Path string
}

func (e *PathEscapeError) Error() string {
	return fmt.Sprintf("%s: %s is outside %s", ErrPathEscape, e.Path, e.Root)
}

func (e *PathEscapeError) Unwrap() error { return ErrPathEscape }

// MergeConflictError reports a file that would replace a directory or the reverse.
type MergeConflictError struct {
	Src    string
	Dest   string
	Reason string
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("%s: %s -> %s: %s", ErrMergeConflict, e.Src, e.Dest, e.Reason)
}

func (e *MergeConflictError) Unwrap() error { return ErrMergeConflict }

// FileFailure is one file a best-effort stage could not process.
type FileFailure struct {
	File string
	Err  error
}

// CompressFailureError lists images copied unoptimised.
type CompressFailureError struct {
	Failures []FileFailure
}

func (e *CompressFailureError) Error() string {
	files := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		files[i] = f.File
	}
	return fmt.Sprintf("%s: %d image(s) copied unoptimised: %s", ErrCompress, len(e.Failures), strings.Join(files, ", "))
}

func (e *CompressFailureError) Unwrap() error { return ErrCompress }
