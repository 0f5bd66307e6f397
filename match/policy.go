// Package match decides which keys and values satisfy a search term and
// which paths a traversal should leave alone.
//
// Matching is case-insensitive in both match types. Exclusion is a two-tier
// policy: allow rules force inclusion, deny rules exclude unless the user is
// searching for something the rule itself names.
package match

import (
	"fmt"
	"strings"
)

// Mode selects which side of a (key, value) pair is compared.
type Mode uint8

const (
	// ModeBoth matches on either the key or the value preview.
	ModeBoth Mode = iota
	// ModeKeys matches on the key only.
	ModeKeys
	// ModeValues matches on the value preview only.
	ModeValues
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeKeys:
		return "keys"
	case ModeValues:
		return "values"
	default:
		return "both"
	}
}

// ParseMode accepts "both", "keys"/"key" and "values"/"value". The empty
// string selects ModeBoth.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "both":
		return ModeBoth, nil
	case "keys", "key":
		return ModeKeys, nil
	case "values", "value":
		return ModeValues, nil
	default:
		return ModeBoth, fmt.Errorf("unknown match mode %q", s)
	}
}

// Type selects substring or whole-text comparison.
type Type uint8

const (
	// Partial requires the term to occur anywhere in the text.
	Partial Type = iota
	// Full requires the text to equal the term.
	Full
)

// String returns the wire name of the match type.
func (t Type) String() string {
	if t == Full {
		return "full"
	}
	return "partial"
}

// ParseType accepts "partial" and "full". The empty string selects Partial.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "", "partial":
		return Partial, nil
	case "full", "exact":
		return Full, nil
	default:
		return Partial, fmt.Errorf("unknown match type %q", s)
	}
}

// Config configures a Policy.
type Config struct {
	Mode  Mode
	Type  Type
	Term  string
	Rules Rules
}

// Policy evaluates one search configuration. Its answers depend only on its
// configuration and the arguments; it is safe for concurrent use.
type Policy struct {
	mode      Mode
	matchType Type
	term      string
	lowered   string
	rules     Rules

	// deny rules that stay active for this term
	activeDeny     []Rule
	activeInternal []Rule
}

// New builds a Policy. Deny and internal rules that name the term are
// disabled up front.
func New(cfg Config) *Policy {
	p := &Policy{
		mode:      cfg.Mode,
		matchType: cfg.Type,
		term:      cfg.Term,
		lowered:   strings.ToLower(cfg.Term),
		rules:     cfg.Rules,
	}
	p.activeDeny = p.filterNamed(cfg.Rules.Deny)
	p.activeInternal = p.filterNamed(cfg.Rules.Internal)
	return p
}

// Term returns the configured search term.
func (p *Policy) Term() string { return p.term }

// Mode returns the configured mode.
func (p *Policy) Mode() Mode { return p.mode }

// Type returns the configured match type.
func (p *Policy) Type() Type { return p.matchType }

// IsMatch compares text against the term.
func (p *Policy) IsMatch(text string) bool {
	lowered := strings.ToLower(text)
	if p.matchType == Full {
		return lowered == p.lowered
	}
	return strings.Contains(lowered, p.lowered)
}

// RecordMatches combines key and preview matching according to the mode.
// A false hasPreview means the value has no text form and never matches.
func (p *Policy) RecordMatches(key, preview string, hasPreview bool) bool {
	switch p.mode {
	case ModeKeys:
		return p.IsMatch(key)
	case ModeValues:
		return hasPreview && p.IsMatch(preview)
	default:
		return p.IsMatch(key) || hasPreview && p.IsMatch(preview)
	}
}

// ShouldExclude reports whether the node at path (at the given depth) is
// outside the interesting part of the graph.
func (p *Policy) ShouldExclude(path string, depth int) bool {
	for _, r := range p.rules.Allow {
		if r.Matches(path) {
			return false
		}
	}

	for _, r := range p.activeDeny {
		if r.Matches(path) {
			return true
		}
	}

	if p.rules.InternalDepth >= 0 && depth > p.rules.InternalDepth {
		for _, r := range p.activeInternal {
			if r.Matches(path) {
				return true
			}
		}
	}

	return p.rules.MaxDepth > 0 && depth > p.rules.MaxDepth
}

// filterNamed drops rules that the user is explicitly searching for: rules
// whose pattern text contains the term, or that match the term itself.
func (p *Policy) filterNamed(rules []Rule) []Rule {
	if p.lowered == "" {
		return rules
	}
	active := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Names(p.lowered, p.term) {
			continue
		}
		active = append(active, r)
	}
	return active
}
