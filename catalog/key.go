package catalog

import "strings"

// PluralSuffixes is the fixed, ordered set of plural variant suffixes.
// Variants outside this set are unrelated keys.
var PluralSuffixes = []string{"_one", "_other", "_many", "_few", "_zero"}

// NamespaceSeparator separates the namespace from the key path.
const NamespaceSeparator = ":"

// SplitKey splits "namespace:key" on the first colon. Keys without a colon
// belong to defaultNS.
func SplitKey(raw, defaultNS string) (ns, key string) {
	if i := strings.Index(raw, NamespaceSeparator); i >= 0 {
		return raw[:i], raw[i+1:]
	}
	return defaultNS, raw
}

// JoinKey builds the canonical "namespace:key" identifier.
func JoinKey(ns, key string) string {
	return ns + NamespaceSeparator + key
}

// InNamespace reports whether a canonical key belongs to ns.
func InNamespace(canonical, ns string) bool {
	return strings.HasPrefix(canonical, ns+NamespaceSeparator)
}

// StripNamespace returns the key path without its "namespace:" prefix.
func StripNamespace(canonical string) string {
	if i := strings.Index(canonical, NamespaceSeparator); i >= 0 {
		return canonical[i+1:]
	}
	return canonical
}

// StripPluralSuffix returns the base of a plural variant. ok is false when key
// carries none of the PluralSuffixes.
func StripPluralSuffix(key string) (base string, ok bool) {
	for _, s := range PluralSuffixes {
		if strings.HasSuffix(key, s) && len(key) > len(s) {
			return strings.TrimSuffix(key, s), true
		}
	}
	return key, false
}

// PluralVariants returns the plural variants of key that satisfy has, in
// PluralSuffixes order.
func PluralVariants(key string, has func(string) bool) []string {
	var out []string
	for _, s := range PluralSuffixes {
		if has(key + s) {
			out = append(out, key+s)
		}
	}
	return out
}

// IsUsed reports whether key is referenced either verbatim or, for a plural
// variant, through its base.
func IsUsed(key string, used func(string) bool) bool {
	if used(key) {
		return true
	}
	base, ok := StripPluralSuffix(key)
	return ok && used(base)
}
