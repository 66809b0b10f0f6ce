package extract

import (
	"encoding/json"

	"github.com/ophjod/catalogkit/catalog"
)

// UsageSite is one static reference to a translation key.
type UsageSite struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Snippet string `json:"snippet"`
	Key     string `json:"key"`
}

// DynamicUsage is a call site whose key is computed at runtime.
type DynamicUsage struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Code    string `json:"code"`
	Matcher string `json:"matcher"`
}

// UsageMap groups usage sites by canonical "namespace:key". Keys iterate in
// first-seen order.
type UsageMap struct {
	order []string
	sites map[string][]UsageSite
}

// NewUsageMap returns an empty UsageMap.
func NewUsageMap() *UsageMap {
	return &UsageMap{sites: make(map[string][]UsageSite)}
}

// Add records a usage site under site.Key.
func (m *UsageMap) Add(site UsageSite) {
	if _, ok := m.sites[site.Key]; !ok {
		m.order = append(m.order, site.Key)
	}
	m.sites[site.Key] = append(m.sites[site.Key], site)
}

// Merge appends every site of other, keeping other's key order for keys not
// seen yet.
func (m *UsageMap) Merge(other *UsageMap) {
	for _, k := range other.order {
		for _, s := range other.sites[k] {
			m.Add(s)
		}
	}
}

// Has reports whether key is used.
func (m *UsageMap) Has(key string) bool {
	_, ok := m.sites[key]
	return ok
}

// Keys returns the canonical keys in first-seen order.
func (m *UsageMap) Keys() []string {
	return m.order
}

// Sites returns the usage sites of key.
func (m *UsageMap) Sites(key string) []UsageSite {
	return m.sites[key]
}

// Len returns the number of distinct keys.
func (m *UsageMap) Len() int {
	return len(m.order)
}

// Namespace returns the subset of keys belonging to ns.
func (m *UsageMap) Namespace(ns string) *UsageMap {
	out := NewUsageMap()
	for _, k := range m.order {
		if catalog.InNamespace(k, ns) {
			out.order = append(out.order, k)
			out.sites[k] = m.sites[k]
		}
	}
	return out
}

// IsUsed applies the plural-aware usage test to a canonical key.
func (m *UsageMap) IsUsed(key string) bool {
	return catalog.IsUsed(key, m.Has)
}

type usageEntry struct {
	Key    string      `json:"key"`
	Usages []UsageSite `json:"usages"`
}

// MarshalJSON encodes the map as an array in first-seen key order.
func (m *UsageMap) MarshalJSON() ([]byte, error) {
	entries := make([]usageEntry, 0, len(m.order))
	for _, k := range m.order {
		entries = append(entries, usageEntry{Key: k, Usages: m.sites[k]})
	}
	return json.Marshal(entries)
}
