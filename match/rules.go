package match

import (
	"regexp"
	"strings"
)

// Rule is a case-insensitive path pattern with an optional exception.
// Go regular expressions have no lookaround, so "config but not configData"
// is written as Pattern `window\.config` with Except `window\.configData`.
type Rule struct {
	Pattern *regexp.Regexp
	Except  *regexp.Regexp
}

// NewRule compiles a rule. Patterns are matched case-insensitively.
// An empty except means no exception.
func NewRule(pattern, except string) (Rule, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return Rule{}, err
	}
	r := Rule{Pattern: re}
	if except != "" {
		ex, err := regexp.Compile("(?i)" + except)
		if err != nil {
			return Rule{}, err
		}
		r.Except = ex
	}
	return r, nil
}

// MustRule is like NewRule but panics on a bad pattern.
func MustRule(pattern, except string) Rule {
	r, err := NewRule(pattern, except)
	if err != nil {
		panic(err)
	}
	return r
}

// Matches reports whether path falls under the rule.
func (r Rule) Matches(path string) bool {
	if r.Pattern == nil || !r.Pattern.MatchString(path) {
		return false
	}
	return r.Except == nil || !r.Except.MatchString(path)
}

// Source returns the rule's pattern text without the case-insensitivity flag.
func (r Rule) Source() string {
	if r.Pattern == nil {
		return ""
	}
	return strings.TrimPrefix(r.Pattern.String(), "(?i)")
}

// Names reports whether the rule names the term: its pattern text contains
// the lowered term, or the pattern matches the term itself.
func (r Rule) Names(lowered, term string) bool {
	if r.Pattern == nil {
		return false
	}
	return strings.Contains(strings.ToLower(r.Source()), lowered) || r.Pattern.MatchString(term)
}

// Rules is the pluggable exclusion heuristic.
type Rules struct {
	// Allow rules force inclusion regardless of every other rule.
	Allow []Rule

	// Deny rules exclude matching paths unless they name the search term.
	Deny []Rule

	// Internal rules exclude matching paths deeper than InternalDepth,
	// unless they name the search term.
	Internal      []Rule
	InternalDepth int

	// MaxDepth, when positive, excludes every path deeper than it.
	MaxDepth int
}

// DefaultRules excludes nothing.
func DefaultRules() Rules { return Rules{} }

// BrowserRules is the heuristic set for searching a web page's global
// object rooted at "window": developer namespaces are always relevant, and
// test fixtures, framework internals, browser APIs and window self-references
// are hidden unless searched for by name.
func BrowserRules() Rules {
	return Rules{
		Allow: []Rule{
			MustRule(`window\.myapp`, ""),
			MustRule(`window\.config`, `window\.configData`),
			MustRule(`window\.data`, `window\.data.*test`),
			MustRule(`window\.api`, ""),
			MustRule(`window\.store`, ""),
			MustRule(`window\.state`, ""),
			MustRule(`window\.user`, ""),
			MustRule(`window\.custom`, ""),
			MustRule(`window\.project`, ""),
			MustRule(`window\.settings`, ""),
			MustRule(`window\.env`, ""),
			MustRule(`window\.globals`, ""),
			MustRule(`^window\.[a-zA-Z]+$`, `(test|mock|spec)$`),
		},
		Deny: []Rule{
			MustRule(`window\.testData`, ""),
			MustRule(`window\.configData`, ""),
			MustRule(`window\.searchableData`, ""),
			MustRule(`test|debug|mock|spec|fixture|stub`, ""),
			MustRule(`angular|react|vue|jquery|\$|_|lodash|moment`, ""),
			MustRule(`webpack|babel|rollup|parcel`, ""),
			MustRule(`node_modules|vendor|lib|dist`, ""),
			MustRule(`chrome\.runtime|chrome\.extension|chrome\.tabs`, ""),
			MustRule(`extension|addon|plugin`, ""),
			MustRule(`SecurityPolicyViolation|ContentSecurityPolicy`, ""),
			MustRule(`ReportingObserver|Report|Violation`, ""),
			MustRule(`PerformanceObserver|Performance|Navigation`, ""),
			MustRule(`globalThis\.globalThis`, ""),
			MustRule(`(globalThis\.)+frames`, ""),
			MustRule(`frames\.(globalThis\.)+`, ""),
			MustRule(`window\.window\.|window\.self\.|window\.top\.|window\.parent\.`, ""),
			MustRule(`window\.frames\.`, ""),
			MustRule(`window\.globalThis\.`, ""),
			MustRule(`\.frames\.`, ""),
			MustRule(`\.globalThis\.`, ""),
			MustRule(`\.constructor\.|\.prototype\.|__proto__|__defineGetter__|__defineSetter__`, ""),
			MustRule(`Audio|Video|Media|Web|HTML|CSS|DOM|SVG|XML`, ""),
			MustRule(`(Event|Handler|Listener)$`, ""),
			MustRule(`(Observer|Observable)$`, ""),
			MustRule(`(Element|Node)$`, ""),
			MustRule(`(Interface|Collection)$`, ""),
			MustRule(`document\.(all|forms|images|links|scripts|stylesheets)`, ""),
			MustRule(`\.children\.|\.childNodes\.`, ""),
			MustRule(`(Window|Document|Navigator|History|Location)$`, ""),
			MustRule(`(Storage|Cache|Database)$`, ""),
		},
		Internal: []Rule{
			MustRule(`window\.(window|top|parent|frames|globalThis)\.`, ""),
			MustRule(`\.frames\.|\.globalThis\.`, ""),
			MustRule(`ReportBody`, ""),
			MustRule(`(Observer|Observable|Event)$`, ""),
		},
		InternalDepth: 1,
		MaxDepth:      3,
	}
}
