// Package expand lists the direct children of one node, for lazily opening a
// node the traversal reported.
package expand

import (
	"log/slog"

	"github.com/hupe1980/graphdig/internal/engine"
	"github.com/hupe1980/graphdig/match"
	"github.com/hupe1980/graphdig/model"
	"github.com/hupe1980/graphdig/node"
	"github.com/hupe1980/graphdig/nodepath"
	"github.com/hupe1980/graphdig/serialize"
)

// DefaultLimit is the property cap when none is given.
const DefaultLimit = 1000

// ReadFailed is the preview of a property whose read failed.
const ReadFailed = "[Error accessing property]"

// Options configures one expansion.
type Options struct {
	// Limit caps the number of returned properties. Zero means DefaultLimit.
	Limit int

	// Policy, when set, hides properties its exclusion rules veto.
	// Its term and match settings are not used.
	Policy *match.Policy
}

// Result is the outcome of one expansion.
type Result struct {
	Path       nodepath.Path
	Properties []model.PropertyRecord

	// NotFound is set when the path does not resolve to an expandable node.
	NotFound bool

	// Truncated is set when the node has more eligible properties than Limit.
	Truncated bool

	// Excluded counts properties hidden by the policy.
	Excluded int
}

// Expander lists properties through one accessor.
// It holds no per-call state and is safe for concurrent use.
type Expander struct {
	acc    node.Accessor
	ser    *serialize.Serializer
	logger *slog.Logger
}

// New creates an Expander. A nil serializer gets default bounds and a nil
// logger discards output.
func New(acc node.Accessor, ser *serialize.Serializer, logger *slog.Logger) *Expander {
	if ser == nil {
		ser = serialize.New(acc, serialize.Options{})
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Expander{acc: acc, ser: ser, logger: logger}
}

// Expand resolves p against root and lists up to opts.Limit own properties
// of the node it names. It never fails: unresolvable paths set NotFound and
// unreadable properties become error records.
func (e *Expander) Expand(root any, p nodepath.Path, opts Options) Result {
	res := Result{Path: p}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	target, ok := nodepath.Resolve(e.acc, root, p)
	if !ok || !e.classify(target).Composite() {
		res.NotFound = true
		return res
	}

	keys, err := node.SafeKeys(e.acc, target)
	if err != nil {
		e.logger.Debug("expand: enumerate failed", "path", p.String(), "error", err)
		res.NotFound = true
		return res
	}

	depth := p.Len() + 1
	res.Properties = make([]model.PropertyRecord, 0, min(len(keys), limit))
	for _, key := range keys {
		if engine.IsStructural(key) {
			continue
		}
		childPath := p.Append(key)
		if opts.Policy != nil && opts.Policy.ShouldExclude(childPath.String(), depth) {
			res.Excluded++
			continue
		}
		if len(res.Properties) >= limit {
			res.Truncated = true
			break
		}
		res.Properties = append(res.Properties, e.record(target, key, childPath))
	}
	return res
}

func (e *Expander) record(target any, key string, path nodepath.Path) model.PropertyRecord {
	v, err := node.SafeGet(e.acc, target, key)
	if err != nil {
		return model.PropertyRecord{
			Key:     key,
			Path:    path,
			Type:    string(serialize.TagError),
			Preview: ReadFailed,
			Value:   serialize.Value{Tag: serialize.TagError, Text: err.Error()},
		}
	}
	return model.PropertyRecord{
		Key:     key,
		Path:    path,
		Type:    e.classify(v).String(),
		Preview: e.ser.Preview(v),
		Value:   e.ser.Serialize(v),
	}
}

func (e *Expander) classify(v any) (k node.Kind) {
	defer func() {
		if recover() != nil {
			k = node.Null
		}
	}()
	return e.acc.Classify(v)
}
