package model

// ResultSet accumulates the batches of one run in result order.
//
// Batches are placed by Offset, so a batch that restates matches the set
// already holds (a cancellation replay) adds nothing twice.
type ResultSet struct {
	matches []MatchRecord
	final   *Batch
	batches int
}

// Apply merges b into the set.
func (rs *ResultSet) Apply(b Batch) {
	rs.batches++
	for i, m := range b.Matches {
		pos := b.Offset + i
		switch {
		case pos < len(rs.matches):
			rs.matches[pos] = m
		case pos == len(rs.matches):
			rs.matches = append(rs.matches, m)
		default:
			// A gap means an earlier batch was lost; keep order anyway.
			rs.matches = append(rs.matches, m)
		}
	}
	if b.IsFinal {
		final := b
		rs.final = &final
	}
}

// Matches returns the accumulated matches in result order.
func (rs *ResultSet) Matches() []MatchRecord { return rs.matches }

// Len returns the number of distinct matches.
func (rs *ResultSet) Len() int { return len(rs.matches) }

// Batches returns how many batches were applied.
func (rs *ResultSet) Batches() int { return rs.batches }

// Final returns the terminal batch, if one was applied.
func (rs *ResultSet) Final() (Batch, bool) {
	if rs.final == nil {
		return Batch{}, false
	}
	return *rs.final, true
}

// Reason returns the terminal reason, or "" while the run is open.
func (rs *ResultSet) Reason() TerminalReason {
	if rs.final == nil {
		return ""
	}
	return rs.final.TerminalReason
}
