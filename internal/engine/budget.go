package engine

// budget tracks one window of result and character spending.
// Counters only grow until reset starts a new window.
type budget struct {
	maxResults int
	maxChars   int

	results int
	chars   int

	exhaustedReason string
}

func newBudget(o Options) budget {
	return budget{maxResults: o.MaxResults, maxChars: o.CharBudget}
}

// fits reports whether a match of the given cost can still be recorded.
// A false result does not mean the window is exhausted; see exhausted.
func (b *budget) fits(cost int) bool {
	return b.results < b.maxResults && b.chars+cost <= b.maxChars
}

func (b *budget) spend(cost int) {
	b.results++
	b.chars += cost
}

// exhausted reports whether the window has no room left at all.
func (b *budget) exhausted() bool {
	if b.results >= b.maxResults {
		b.exhaustedReason = "results"
		return true
	}
	if b.chars >= b.maxChars {
		b.exhaustedReason = "chars"
		return true
	}
	return false
}

func (b *budget) reset() {
	b.results = 0
	b.chars = 0
	b.exhaustedReason = ""
}
