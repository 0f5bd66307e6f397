package engine

// structural names host plumbing rather than data: prototype chain accessors
// and the built-in methods every object inherits. They are never enumerated,
// whatever the match policy says.
var structural = map[string]struct{}{
	"constructor":          {},
	"prototype":            {},
	"__proto__":            {},
	"__defineGetter__":     {},
	"__defineSetter__":     {},
	"__lookupGetter__":     {},
	"__lookupSetter__":     {},
	"isPrototypeOf":        {},
	"hasOwnProperty":       {},
	"valueOf":              {},
	"toLocaleString":       {},
	"toString":             {},
	"propertyIsEnumerable": {},
	"apply":                {},
	"call":                 {},
	"bind":                 {},
}

// IsStructural reports whether key is on the fixed structural denylist.
func IsStructural(key string) bool {
	_, ok := structural[key]
	return ok
}
