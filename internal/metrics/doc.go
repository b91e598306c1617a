// Package metrics provides the observability hooks for profile publishing.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	pub, err := profiles.NewPublisher(settings, profiles.WithRecorder(recorder))
//
// PrometheusRecorder registers its collectors on a caller-supplied registry;
// HTTPHandler exposes that registry for scraping (used by `profilepub watch`).
package metrics
