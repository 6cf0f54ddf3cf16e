package errors

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorCategory classifies an error for routing and exit codes.
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation" // bad command-line usage
	CategoryNotFound   ErrorCategory = "not_found"
	CategoryConfig     ErrorCategory = "config" // pipeline file, metadata, expansion
	CategoryRegistry   ErrorCategory = "registry"
	CategoryBuild      ErrorCategory = "build" // a task failed and the run stopped
	CategoryTool       ErrorCategory = "tool"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryEventStore ErrorCategory = "eventstore"
	CategoryRuntime    ErrorCategory = "runtime"
	CategoryCanceled   ErrorCategory = "canceled"
	CategoryInternal   ErrorCategory = "internal"
)

var exitCodes = map[ErrorCategory]int{
	CategoryValidation: 2,
	CategoryNotFound:   4,
	CategoryConfig:     7,
	CategoryRegistry:   9,
	CategoryInternal:   10,
	CategoryBuild:      11,
	CategoryTool:       11,
	CategoryFileSystem: 11,
	CategoryRuntime:    12,
	CategoryEventStore: 12,
	CategoryCanceled:   130,
}

// ExitCode is the process exit status for errors of this category.
// Unknown categories exit with 1.
func (c ErrorCategory) ExitCode() int {
	if code, ok := exitCodes[c]; ok {
		return code
	}
	return 1
}

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // stops the run
	SeverityError   ErrorSeverity = "error"   // fails the current operation
	SeverityWarning ErrorSeverity = "warning" // recorded, the run continues
)

// ErrorContext carries structured details such as the task, file or run ID.
type ErrorContext map[string]any

// Set adds or updates a context value.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Get retrieves a context value.
func (c ErrorContext) Get(key string) (any, bool) {
	value, exists := c[key]
	return value, exists
}

// GetString retrieves a string context value.
func (c ErrorContext) GetString(key string) (string, bool) {
	if value, exists := c.Get(key); exists {
		if str, ok := value.(string); ok {
			return str, true
		}
	}
	return "", false
}

// Keys returns the context keys in sorted order.
func (c ErrorContext) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the context as sorted key=value pairs.
func (c ErrorContext) String() string {
	parts := make([]string, 0, len(c))
	for _, k := range c.Keys() {
		parts = append(parts, fmt.Sprintf("%s=%v", k, c[k]))
	}
	return strings.Join(parts, " ")
}
