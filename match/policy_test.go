package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatch(t *testing.T) {
	partial := New(Config{Term: "Foo"})
	assert.True(t, partial.IsMatch("foo"))
	assert.True(t, partial.IsMatch("xxFOOxx"))
	assert.False(t, partial.IsMatch("fo"))

	full := New(Config{Term: "foo", Type: Full})
	assert.True(t, full.IsMatch("FOO"))
	assert.False(t, full.IsMatch("foobar"))
}

func TestRecordMatches_Modes(t *testing.T) {
	t.Run("keys full", func(t *testing.T) {
		p := New(Config{Term: "foo", Mode: ModeKeys, Type: Full})
		assert.True(t, p.RecordMatches("foo", "foobar", true))
		assert.False(t, p.RecordMatches("bar", "foo", true))
	})

	t.Run("values partial", func(t *testing.T) {
		p := New(Config{Term: "foo", Mode: ModeValues, Type: Partial})
		assert.True(t, p.RecordMatches("foobar", "nofoohere", true))
		assert.False(t, p.RecordMatches("foobar", "nothing", true))
	})

	t.Run("both", func(t *testing.T) {
		p := New(Config{Term: "foo"})
		assert.True(t, p.RecordMatches("foo", "x", true))
		assert.True(t, p.RecordMatches("x", "foo", true))
		assert.False(t, p.RecordMatches("x", "y", true))
	})

	t.Run("absent preview never matches", func(t *testing.T) {
		p := New(Config{Term: "", Mode: ModeValues})
		assert.False(t, p.RecordMatches("k", "", false))
	})
}

func TestParseModeAndType(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeBoth, "both": ModeBoth, "key": ModeKeys, "KEYS": ModeKeys, "value": ModeValues, "values": ModeValues} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("neither")
	assert.Error(t, err)

	mt, err := ParseType("full")
	require.NoError(t, err)
	assert.Equal(t, Full, mt)
	assert.Equal(t, "full", mt.String())
	_, err = ParseType("fuzzy")
	assert.Error(t, err)

	assert.Equal(t, "values", ModeValues.String())
}

func TestShouldExclude_OverrideByTerm(t *testing.T) {
	rules := Rules{Deny: []Rule{MustRule(`webpack|babel`, "")}}
	path := "root.webpackChunk.modules"

	assert.True(t, New(Config{Term: "modules", Rules: rules}).ShouldExclude(path, 2))

	// The term is a literal substring of the rule's own text.
	assert.False(t, New(Config{Term: "webpack", Rules: rules}).ShouldExclude(path, 2))
	assert.False(t, New(Config{Term: "pack|bab", Rules: rules}).ShouldExclude(path, 2))

	// The rule matches the term itself.
	assert.False(t, New(Config{Term: "mywebpackthing", Rules: rules}).ShouldExclude(path, 2))
}

func TestShouldExclude_OverrideIsPerRule(t *testing.T) {
	rules := Rules{Deny: []Rule{
		MustRule(`webpack`, ""),
		MustRule(`vendor`, ""),
	}}
	p := New(Config{Term: "webpack", Rules: rules})

	assert.False(t, p.ShouldExclude("root.webpack", 1))
	assert.True(t, p.ShouldExclude("root.vendor.webpack", 2))
}

func TestShouldExclude_AllowWins(t *testing.T) {
	rules := Rules{
		Allow: []Rule{MustRule(`root\.app`, "")},
		Deny:  []Rule{MustRule(`_`, "")},
	}
	p := New(Config{Term: "x", Rules: rules})

	assert.False(t, p.ShouldExclude("root.app.__private", 2))
	assert.True(t, p.ShouldExclude("root.other.__private", 2))
}

func TestShouldExclude_AllowException(t *testing.T) {
	rules := Rules{
		Allow: []Rule{MustRule(`window\.config`, `window\.configData`)},
		Deny:  []Rule{MustRule(`config`, "")},
	}
	p := New(Config{Term: "x", Rules: rules})

	assert.False(t, p.ShouldExclude("window.config", 1))
	assert.True(t, p.ShouldExclude("window.configData", 1))
}

func TestShouldExclude_InternalDepth(t *testing.T) {
	rules := Rules{
		Internal:      []Rule{MustRule(`\.frames\.`, "")},
		InternalDepth: 1,
	}
	p := New(Config{Term: "x", Rules: rules})

	assert.False(t, p.ShouldExclude("root.frames.a", 1))
	assert.True(t, p.ShouldExclude("root.frames.a", 2))

	named := New(Config{Term: "frames", Rules: rules})
	assert.False(t, named.ShouldExclude("root.frames.a", 5))
}

func TestShouldExclude_MaxDepth(t *testing.T) {
	p := New(Config{Term: "x", Rules: Rules{MaxDepth: 3}})
	assert.False(t, p.ShouldExclude("root.a.b.c", 3))
	assert.True(t, p.ShouldExclude("root.a.b.c.d", 4))

	assert.False(t, New(Config{Term: "x"}).ShouldExclude("root.a.b.c.d.e.f", 6))
}

func TestShouldExclude_Deterministic(t *testing.T) {
	p := New(Config{Term: "user", Rules: BrowserRules()})
	for i := 0; i < 3; i++ {
		assert.Equal(t, p.ShouldExclude("window.vendorLib", 1), p.ShouldExclude("window.vendorLib", 1))
	}
}

func TestBrowserRules(t *testing.T) {
	p := New(Config{Term: "token", Rules: BrowserRules()})

	assert.False(t, p.ShouldExclude("window.myapp", 1))
	assert.False(t, p.ShouldExclude("window.config.apiKey", 2))
	assert.False(t, p.ShouldExclude("window.session", 1))
	assert.True(t, p.ShouldExclude("window.configData.items", 2))
	assert.True(t, p.ShouldExclude("window.sessiontest", 1))
	assert.True(t, p.ShouldExclude("window.jQuery.fn", 2))
	assert.True(t, p.ShouldExclude("window.performance.timing", 2))

	// Searching for a hidden name reveals it.
	jq := New(Config{Term: "jquery", Rules: BrowserRules()})
	assert.False(t, jq.ShouldExclude("window.jQuery.fn", 2))
}

func TestRule_Source(t *testing.T) {
	r := MustRule(`a\.b`, "")
	assert.Equal(t, `a\.b`, r.Source())
	assert.True(t, r.Matches("A.B"))

	_, err := NewRule(`(`, "")
	assert.Error(t, err)
	assert.Panics(t, func() { MustRule(`(`, "") })
}
