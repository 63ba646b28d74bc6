// Package metrics declares the Prometheus instruments for the sync.
//
// Metrics are registered on the default registry at package init and exposed
// by the serve command on GET /metrics. The sync command records them too; a
// one-shot run simply never exposes them.
package metrics
