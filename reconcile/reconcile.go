// Package reconcile compares the keys referenced in source code with the keys
// present in the translation catalogs.
//
// A used key whose plural variants exist in a language is expected in its
// variant form there, so "items" used in code and "items_one"/"items_other"
// in the catalog is not a missing key. Unused keys are advisory; missing keys,
// dynamic usages and cross-namespace duplicates fail the run.
package reconcile

import (
	"sort"

	"github.com/samber/lo"

	"github.com/ophjod/catalogkit/catalog"
	"github.com/ophjod/catalogkit/extract"
)

// Missing is an expected key absent from a language's catalog.
type Missing struct {
	Key   string              `json:"key"`
	Sites []extract.UsageSite `json:"usages"`
}

// Unused is a catalog key nothing in the source references.
type Unused struct {
	Key    string `json:"key"`
	Source string `json:"source"`
}

// Duplicate is a bare key path defined under more than one namespace.
type Duplicate struct {
	Path       string   `json:"path"`
	Namespaces []string `json:"namespaces"`
}

// Counts summarizes one language, or one namespace of a language.
type Counts struct {
	Expected int `json:"expected"`
	Present  int `json:"present"`
	Missing  int `json:"missing"`
	Unused   int `json:"unused"`
}

// LanguageReport holds the findings for one language.
type LanguageReport struct {
	Language   string            `json:"language"`
	Counts     Counts            `json:"counts"`
	Namespaces map[string]Counts `json:"namespaces"`
	Missing    []Missing         `json:"missing"`
	Unused     []Unused          `json:"unused"`
}

// Report is the outcome of one reconciliation.
type Report struct {
	UsedKeys   int                    `json:"usedKeys"`
	Namespaces []string               `json:"namespaces"`
	Languages  []LanguageReport       `json:"languages"`
	Dynamic    []extract.DynamicUsage `json:"dynamic"`
	Duplicates []Duplicate            `json:"duplicates"`
}

// Failed reports whether the run must exit non-zero: any missing key, any
// dynamic usage or any duplicate. Unused keys alone never fail.
func (r *Report) Failed() bool {
	if len(r.Dynamic) > 0 || len(r.Duplicates) > 0 {
		return true
	}
	for _, l := range r.Languages {
		if len(l.Missing) > 0 {
			return true
		}
	}
	return false
}

// MissingTotal returns the number of missing keys over all languages.
func (r *Report) MissingTotal() int {
	return lo.SumBy(r.Languages, func(l LanguageReport) int { return len(l.Missing) })
}

// UnusedTotal returns the number of unused keys over all languages.
func (r *Report) UnusedTotal() int {
	return lo.SumBy(r.Languages, func(l LanguageReport) int { return len(l.Unused) })
}

// Reconcile builds the report for every language in catalogs.
func Reconcile(usage *extract.UsageMap, dynamic []extract.DynamicUsage, catalogs *catalog.Catalogs) *Report {
	usedNS := lo.Map(usage.Keys(), func(k string, _ int) string {
		ns, _ := catalog.SplitKey(k, "")
		return ns
	})
	namespaces := lo.Uniq(append(append([]string{}, catalogs.Namespaces...), usedNS...))
	sort.Strings(namespaces)

	report := &Report{
		UsedKeys:   usage.Len(),
		Namespaces: namespaces,
		Dynamic:    dynamic,
		Duplicates: findDuplicates(catalogs),
	}
	if report.Dynamic == nil {
		report.Dynamic = []extract.DynamicUsage{}
	}

	for _, lang := range catalogs.Languages {
		report.Languages = append(report.Languages, reconcileLanguage(lang, usage, catalogs, namespaces))
	}
	return report
}

func reconcileLanguage(lang string, usage *extract.UsageMap, catalogs *catalog.Catalogs, namespaces []string) LanguageReport {
	has := func(key string) bool { return catalogs.Has(lang, key) }

	// Expected keys in usage order; a plural family replaces its base.
	var expected []string
	sites := make(map[string][]extract.UsageSite)
	for _, k := range usage.Keys() {
		forms := catalog.PluralVariants(k, has)
		if len(forms) == 0 {
			forms = []string{k}
		}
		for _, f := range forms {
			if _, ok := sites[f]; !ok {
				expected = append(expected, f)
			}
			sites[f] = append(sites[f], usage.Sites(k)...)
		}
	}

	lr := LanguageReport{
		Language:   lang,
		Namespaces: make(map[string]Counts, len(namespaces)),
		Missing:    []Missing{},
		Unused:     []Unused{},
	}
	for _, k := range expected {
		if !has(k) {
			lr.Missing = append(lr.Missing, Missing{Key: k, Sites: sites[k]})
		}
	}
	sort.Slice(lr.Missing, func(i, j int) bool { return lr.Missing[i].Key < lr.Missing[j].Key })

	present := catalogs.Keys(lang)
	for _, k := range present {
		if !usage.IsUsed(k) {
			lr.Unused = append(lr.Unused, Unused{Key: k, Source: catalogs.Sources[lang][k]})
		}
	}

	lr.Counts = Counts{
		Expected: len(expected),
		Present:  len(present),
		Missing:  len(lr.Missing),
		Unused:   len(lr.Unused),
	}
	for _, ns := range namespaces {
		in := func(k string) bool { return catalog.InNamespace(k, ns) }
		lr.Namespaces[ns] = Counts{
			Expected: lo.CountBy(expected, in),
			Present:  lo.CountBy(present, in),
			Missing:  lo.CountBy(lr.Missing, func(m Missing) bool { return in(m.Key) }),
			Unused:   lo.CountBy(lr.Unused, func(u Unused) bool { return in(u.Key) }),
		}
	}
	return lr
}

// findDuplicates groups every present key of every language by its bare path
// and keeps the paths defined in more than one namespace.
func findDuplicates(catalogs *catalog.Catalogs) []Duplicate {
	byPath := make(map[string]map[string]bool)
	for _, lang := range catalogs.Languages {
		for k := range catalogs.Values[lang] {
			ns, path := catalog.SplitKey(k, "")
			if byPath[path] == nil {
				byPath[path] = make(map[string]bool)
			}
			byPath[path][ns] = true
		}
	}

	dups := []Duplicate{}
	for path, set := range byPath {
		if len(set) < 2 {
			continue
		}
		nss := lo.Keys(set)
		sort.Strings(nss)
		dups = append(dups, Duplicate{Path: path, Namespaces: nss})
	}
	sort.Slice(dups, func(i, j int) bool { return dups[i].Path < dups[j].Path })
	return dups
}
