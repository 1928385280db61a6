// Package analytics batches significant event messages for offline analysis.
//
// Messages enter the backlog only through an explicit QueueForAnalytics call;
// nothing is captured implicitly from the bus. A batch cycle groups the
// backlog by topic family, derives summary insights, forwards the grouped
// batch to the configured Sink and clears the backlog.
package analytics
