// Package errors classifies assetbuilder errors by category and severity and
// maps them to process exit codes.
//
//	err := errors.WrapError(cause, errors.CategoryConfig, "load project metadata").
//		Fatal().
//		WithContext("file", "_config.yml").
//		Build()
package errors
