// Package workspace manages scratch directories under the work root.
//
// Ephemeral mode creates a timestamped directory (e.g. assetbuilder-20251214-122336-1234)
// that is removed completely by Cleanup; the package task assembles archives there.
//
// Persistent mode uses a fixed directory (e.g. .tmp/site) that survives Cleanup and
// can be emptied with Reset; the publish task stages the generated site there.
package workspace
