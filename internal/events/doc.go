// Package events publishes and consumes pipeline run lifecycle events on
// Kafka.
//
// Every run emits run.started, then either export.completed carrying the run
// summary or run.failed carrying the failing phase. Messages are keyed by run
// id so all events of one run land on the same partition, and they carry the
// event type and id as headers.
package events
