// Package catalog loads namespaced i18next JSON catalogs and converts between
// their nested form and flat dot-path keys.
//
// The expected layout is one directory per namespace, each holding one file
// per language:
//
//	locales/
//	    common/
//	        fi.json
//	        sv.json
//	    profile/
//	        fi.json
//
// Flattened keys are canonical "namespace:path" identifiers, for example
// "common:nav.home".
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Catalogs holds the flattened catalogs of every language.
type Catalogs struct {
	// Languages in configuration order.
	Languages []string
	// Namespaces found under the root, sorted.
	Namespaces []string
	// Values maps language -> "namespace:key" -> leaf value.
	Values map[string]map[string]any
	// Sources maps language -> "namespace:key" -> source label ("common/fi.json").
	Sources map[string]map[string]string
}

// NewCatalogs returns empty catalogs for languages.
func NewCatalogs(languages []string) *Catalogs {
	s := &Catalogs{
		Languages: languages,
		Values:    make(map[string]map[string]any),
		Sources:   make(map[string]map[string]string),
	}
	for _, lang := range languages {
		s.Values[lang] = make(map[string]any)
		s.Sources[lang] = make(map[string]string)
	}
	return s
}

// Add merges one flattened namespace catalog into lang.
func (s *Catalogs) Add(lang, ns, label string, flat map[string]any) {
	if _, ok := s.Values[lang]; !ok {
		s.Languages = append(s.Languages, lang)
		s.Values[lang] = make(map[string]any)
		s.Sources[lang] = make(map[string]string)
	}
	for k, v := range flat {
		key := JoinKey(ns, k)
		s.Values[lang][key] = v
		s.Sources[lang][key] = label
	}
	if !slices.Contains(s.Namespaces, ns) {
		s.Namespaces = append(s.Namespaces, ns)
		sort.Strings(s.Namespaces)
	}
}

// Has reports whether lang's catalog contains the canonical key.
func (s *Catalogs) Has(lang, key string) bool {
	_, ok := s.Values[lang][key]
	return ok
}

// Keys returns the sorted canonical keys present for lang.
func (s *Catalogs) Keys(lang string) []string {
	keys := make([]string, 0, len(s.Values[lang]))
	for k := range s.Values[lang] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load reads root/<namespace>/<lang>.json for every namespace directory under
// root. A language without a file in some namespace contributes nothing for
// it.
func Load(fsys afero.Fs, root string, languages []string) (*Catalogs, error) {
	entries, err := afero.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("reading catalog directory %s: %w", root, err)
	}

	set := NewCatalogs(languages)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ns := entry.Name()
		for _, lang := range languages {
			name := lang + ".json"
			path := filepath.Join(root, ns, name)
			tree, err := ReadFile(fsys, path)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					log.Warn().Str("sys", "catalog").Str("namespace", ns).Str("lang", lang).Msg("Catalog file missing")
					continue
				}
				return nil, err
			}
			set.Add(lang, ns, ns+"/"+name, Flatten(tree))
		}
		if !slices.Contains(set.Namespaces, ns) {
			set.Namespaces = append(set.Namespaces, ns)
			sort.Strings(set.Namespaces)
		}
	}

	return set, nil
}

