package engine

// Stats is a point-in-time snapshot of the engine state together with the
// cumulative flush and merge metrics. Served as JSON by the admin
// endpoint.
type Stats struct {
	ActiveEntries   int      `json:"active_entries"`
	ActiveBytes     int64    `json:"active_bytes"`
	ShadowEntries   int      `json:"shadow_entries"`
	ShadowBytes     int64    `json:"shadow_bytes"`
	Tables          []string `json:"tables"`
	MergeInProgress bool     `json:"merge_in_progress"`

	Puts    uint64 `json:"puts"`
	Gets    uint64 `json:"gets"`
	GetHits uint64 `json:"get_hits"`

	Flushes         uint64 `json:"flushes"`
	FlushBytes      uint64 `json:"flush_bytes"`
	FlushDurationNs uint64 `json:"flush_duration_ns"`

	Merges          uint64 `json:"merges"`
	MergeBytes      uint64 `json:"merge_bytes"`
	MergeDurationNs uint64 `json:"merge_duration_ns"`
}

// Stats returns a consistent snapshot of the engine state.
//
// Thread-safety: this method is safe to call concurrently with all other
// engine operations.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	tables := make([]string, len(e.tables))
	copy(tables, e.tables)

	return Stats{
		ActiveEntries:   e.active.Len(),
		ActiveBytes:     e.active.SizeBytes(),
		ShadowEntries:   e.shadow.Len(),
		ShadowBytes:     e.shadow.SizeBytes(),
		Tables:          tables,
		MergeInProgress: e.merging.Load(),

		Puts:    putTotal.Get(),
		Gets:    getTotal.Get(),
		GetHits: getHits.Get(),

		Flushes:         flushTotal.Get(),
		FlushBytes:      flushBytes.Get(),
		FlushDurationNs: flushDurationNs.Get(),

		Merges:          mergeTotal.Get(),
		MergeBytes:      mergeBytes.Get(),
		MergeDurationNs: mergeDurationNs.Get(),
	}
}
