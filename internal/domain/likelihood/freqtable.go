// Package likelihood implements frequency-based log-likelihood estimation of
// molecular typicality.  A trained estimator accumulates fingerprint-key
// statistics over a reference corpus and scores arbitrary molecules by the
// smoothed log-probability of their keys: the higher (less negative) the
// score, the more typical the molecule is of the corpus.
package likelihood

// Key is a fingerprint key as stored in a FrequencyTable.  AtomLL uses the
// decimal form of the raw 64-bit fingerprint hash; MolLL uses composite
// "hash:multiplicity" keys.  String keys keep the table generic across model
// kinds and serialize directly into the persisted document.
type Key string

// FrequencyTable accumulates key occurrence counts over a training corpus.
// Counts only ever grow; there is no decrement operation.  A table is not
// safe for concurrent mutation — the owning estimator documents the required
// external synchronization.
type FrequencyTable struct {
	counts map[Key]uint64
	total  uint64
}

// NewFrequencyTable returns an empty table.
func NewFrequencyTable() *FrequencyTable {
	return &FrequencyTable{counts: make(map[Key]uint64)}
}

// Accumulate increments the count of each key in the sequence by one.
// Repeats within the same sequence count multiple times, modeling key
// multiplicity within a single molecule.
func (t *FrequencyTable) Accumulate(keys ...Key) {
	for _, key := range keys {
		t.counts[key]++
		t.total++
	}
}

// AccumulateCounts increments each key by its associated weight, the batched
// equivalent of repeating the key weight times in an Accumulate call.
func (t *FrequencyTable) AccumulateCounts(counts map[Key]uint64) {
	for key, n := range counts {
		if n == 0 {
			continue
		}
		t.counts[key] += n
		t.total += n
	}
}

// CountOf returns the stored count for key, or zero when absent.
func (t *FrequencyTable) CountOf(key Key) uint64 {
	return t.counts[key]
}

// Total returns the sum of all counts observed during accumulation.
func (t *FrequencyTable) Total() uint64 {
	return t.total
}

// VocabularySize returns the number of distinct keys currently known.
func (t *FrequencyTable) VocabularySize() int {
	return len(t.counts)
}

// TableSnapshot is an immutable copy of a table's state, used by the
// persistence layer.
type TableSnapshot struct {
	Total          uint64
	VocabularySize int
	Counts         map[Key]uint64
}

// Snapshot returns a deep copy of the table state; mutating the snapshot
// does not affect the table.
func (t *FrequencyTable) Snapshot() TableSnapshot {
	counts := make(map[Key]uint64, len(t.counts))
	for key, n := range t.counts {
		counts[key] = n
	}
	return TableSnapshot{
		Total:          t.total,
		VocabularySize: len(t.counts),
		Counts:         counts,
	}
}

// tableFromCounts rebuilds a table from persisted counts.  The total is
// recomputed rather than trusted, preserving the total == sum(counts)
// invariant even for hand-edited documents.
func tableFromCounts(counts map[Key]uint64) *FrequencyTable {
	t := NewFrequencyTable()
	t.AccumulateCounts(counts)
	return t
}
