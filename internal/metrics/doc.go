// Package metrics provides observability hooks for pipeline runs.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection never requires nil checks:
//
//	driver := pipeline.NewDriver(reg, pipeline.WithObserver(pipeline.RecorderObserver{Recorder: metrics.NoopRecorder{}}))
//
// When metrics are requested, PrometheusRecorder registers its collectors on a
// dedicated registry. The CLI exports that registry with WriteTextfile after a
// run (--metrics-file) and the watch command may serve it with HTTPHandler.
package metrics
