package merge

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/ophjod/catalogkit/catalog"
	"github.com/ophjod/catalogkit/sheet"
)

// File names of the two tiers inside a language directory.
const (
	ActiveFile = "translation.json"
	DraftFile  = "draft.translation.json"
)

// MergeDir merges rows into dir/<lang>/translation.json and
// dir/<lang>/draft.translation.json for every language. A missing tier file
// is treated as an empty tree. Languages are processed in order; the first
// error stops the import.
func MergeDir(fsys afero.Fs, dir string, languages []string, rows []sheet.Row) ([]Result, error) {
	results := make([]Result, 0, len(languages))
	for _, lang := range languages {
		activePath := filepath.Join(dir, lang, ActiveFile)
		draftPath := filepath.Join(dir, lang, DraftFile)

		active, err := readTier(fsys, activePath)
		if err != nil {
			return results, err
		}
		draft, err := readTier(fsys, draftPath)
		if err != nil {
			return results, err
		}

		res := Merge(lang, active, draft, rows)

		if err := catalog.WriteFile(fsys, activePath, active); err != nil {
			return results, err
		}
		if err := catalog.WriteFile(fsys, draftPath, draft); err != nil {
			return results, err
		}

		log.Info().
			Str("sys", "merge").
			Str("lang", lang).
			Int("updated", res.Updated).
			Int("promoted", res.Promoted).
			Int("demoted", res.Demoted).
			Int("skipped", res.Skipped).
			Msg("Merged import")
		results = append(results, res)
	}
	return results, nil
}

func readTier(fsys afero.Fs, path string) (map[string]any, error) {
	tree, err := catalog.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("sys", "merge").Str("path", path).Msg("Catalog tier missing, starting empty")
		return map[string]any{}, nil
	}
	return tree, err
}
