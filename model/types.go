package model

import (
	"fmt"

	"github.com/hupe1980/graphdig/nodepath"
	"github.com/hupe1980/graphdig/serialize"
)

// MatchRecord is one reported hit. It is immutable once emitted.
type MatchRecord struct {
	Path    nodepath.Path   `json:"path"`
	Key     string          `json:"key"`
	Type    string          `json:"type"`
	Preview string          `json:"preview"`
	Value   serialize.Value `json:"value"`
	Depth   int             `json:"depth"`

	// Excluded marks a match reported from a path the exclusion policy
	// vetoed for traversal only.
	Excluded bool `json:"excluded,omitempty"`
}

// PropertyRecord is one own property of an expanded node.
type PropertyRecord struct {
	Key     string          `json:"key"`
	Path    nodepath.Path   `json:"path"`
	Type    string          `json:"type"`
	Preview string          `json:"preview"`
	Value   serialize.Value `json:"value"`
}

// TerminalReason says why a run ended.
type TerminalReason string

const (
	// Completed means the frontier was exhausted.
	Completed TerminalReason = "completed"
	// Cancelled means cancellation was observed at a batch boundary.
	Cancelled TerminalReason = "cancelled"
	// BudgetExhausted means a result or character ceiling was reached.
	BudgetExhausted TerminalReason = "budget_exhausted"
)

// Batch is one unit of streamed output.
type Batch struct {
	// Seq numbers batches of one run from zero.
	Seq int `json:"seq"`

	// Offset is the position of Matches[0] in the run's ordered result
	// sequence.
	Offset int `json:"offset"`

	Matches []MatchRecord `json:"matches"`

	IsFinal        bool           `json:"isFinal"`
	TerminalReason TerminalReason `json:"terminalReason,omitempty"`

	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Remaining int `json:"remaining"`

	// QueueReduced marks a batch flushed because the frontier was shrunk.
	QueueReduced bool `json:"queueReduced,omitempty"`

	// BudgetReset marks a flush after which the run's counters restarted
	// (flush-and-continue budget policy).
	BudgetReset bool `json:"budgetReset,omitempty"`
}

// End returns the offset just past the batch's last match.
func (b Batch) End() int { return b.Offset + len(b.Matches) }

// String returns a short description for logs.
func (b Batch) String() string {
	if b.IsFinal {
		return fmt.Sprintf("Batch(#%d final=%s matches=%d@%d)", b.Seq, b.TerminalReason, len(b.Matches), b.Offset)
	}
	return fmt.Sprintf("Batch(#%d matches=%d@%d)", b.Seq, len(b.Matches), b.Offset)
}

// Status is a progress snapshot reported between batches.
type Status struct {
	// Path is the node at the head of the frontier.
	Path      string `json:"path"`
	Depth     int    `json:"depth"`
	Queue     int    `json:"queue"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Matches   int    `json:"matches"`
}
