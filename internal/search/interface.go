package search

// Prefilter narrows a scan to candidate messages before the matcher runs.
// Candidates must be a superset of the real matches: the matcher still
// decides every result, so a prefiltered scan returns exactly what a full
// scan would.
type Prefilter interface {
	// Candidates returns ascending indices into the indexed slice. ok is
	// false when the prefilter cannot answer for these terms, in which
	// case the caller scans everything.
	Candidates(terms Terms) (indices []int, ok bool)
	// Len is the number of message slots the prefilter was built from.
	Len() int
}

// DebugStatser provides lightweight stats for visibility/debugging.
// Implemented by prefilters that can report index doc counts.
type DebugStatser interface {
	DocCount() (int, error)
}
