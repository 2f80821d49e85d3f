package engine

import "github.com/VictoriaMetrics/metrics"

// Cumulative engine counters. Registered in the default metrics set, which
// the server's admin endpoint renders in Prometheus text format.
var (
	putTotal = metrics.NewCounter(`vrdb_put_total`)
	getTotal = metrics.NewCounter(`vrdb_get_total`)
	getHits  = metrics.NewCounter(`vrdb_get_hit_total`)

	flushTotal      = metrics.NewCounter(`vrdb_flush_total`)
	flushBytes      = metrics.NewCounter(`vrdb_flush_bytes_total`)
	flushDurationNs = metrics.NewCounter(`vrdb_flush_duration_nanoseconds_total`)

	mergeTotal      = metrics.NewCounter(`vrdb_merge_total`)
	mergeBytes      = metrics.NewCounter(`vrdb_merge_bytes_total`)
	mergeDurationNs = metrics.NewCounter(`vrdb_merge_duration_nanoseconds_total`)
)
