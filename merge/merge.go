// Package merge applies a translated spreadsheet to the two-tier catalog of
// each language.
//
// Every language directory holds an active tree (translation.json) with the
// confirmed texts and a draft tree (draft.translation.json) with texts still
// being translated. An import confirms the keys it contains: they are updated
// in, or promoted to, the active tree and removed from the draft tree. Keys
// present in both trees that the import does not confirm go back to draft.
package merge

import (
	"strings"

	"github.com/ophjod/catalogkit/catalog"
	"github.com/ophjod/catalogkit/sheet"
)

// BreakTokens are the line-break markup variants recognized in existing
// values, longest first.
var BreakTokens = []string{"<br />", "<br/>", "<br>"}

func breakToken(s string) string {
	for _, tok := range BreakTokens {
		if strings.Contains(s, tok) {
			return tok
		}
	}
	return ""
}

// Normalize adapts imported text to the formatting of the value it replaces.
// original is nil for keys without a previous string value. The first
// matching rule applies:
//
//  1. text without newlines gets a trailing newline iff original had one;
//  2. text whose only newlines are trailing keeps one iff original had one;
//  3. when original uses <br> markup, newlines become that markup;
//  4. otherwise the trailing newline follows original.
//
// Line endings are converted to LF and trailing tabs are dropped unless
// original ended in a tab.
func Normalize(text string, original *string) string {
	orig := ""
	if original != nil {
		orig = *original
	}
	trailingNL := strings.HasSuffix(orig, "\n")

	text = strings.ReplaceAll(text, "\r\n", "\n")
	if !strings.HasSuffix(orig, "\t") {
		text = strings.TrimRight(text, "\t")
	}
	body := strings.TrimRight(text, "\n")

	switch {
	case !strings.Contains(text, "\n"):
		if trailingNL {
			text += "\n"
		}
	case !strings.Contains(body, "\n"):
		text = body
		if trailingNL {
			text += "\n"
		}
	case breakToken(orig) != "":
		text = strings.ReplaceAll(body, "\n", breakToken(orig))
		if trailingNL {
			text += "\n"
		}
	default:
		if trailingNL && !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		if !trailingNL {
			text = body
		}
	}
	return text
}

// Result counts what Merge changed for one language.
type Result struct {
	Language string
	// Updated counts active values overwritten in place.
	Updated int
	// Promoted counts draft keys written to the active tree.
	Promoted int
	// Demoted counts keys removed from active because the import did not
	// confirm them.
	Demoted int
	// Skipped counts imported keys found in neither tree.
	Skipped int
}

// Changed reports whether Merge modified any tree.
func (r Result) Changed() bool {
	return r.Updated+r.Promoted+r.Demoted > 0
}

type entry struct {
	key   string
	value string
}

// Merge applies the lang cells of rows to the active and draft trees in
// place. Keys are dot paths into the trees.
func Merge(lang string, active, draft map[string]any, rows []sheet.Row) Result {
	res := Result{Language: lang}

	// Build the batch: normalized cells of keys that already exist.
	var batch []entry
	inBatch := make(map[string]bool)
	for _, row := range rows {
		cell, ok := row.Value(lang)
		if !ok || inBatch[row.Key] {
			continue
		}
		activeVal, inActive := catalog.Get(active, row.Key)
		draftVal, inDraft := catalog.Get(draft, row.Key)
		if !inActive && !inDraft {
			res.Skipped++
			continue
		}

		var original *string
		if s, ok := activeVal.(string); ok && inActive {
			original = &s
		} else if s, ok := draftVal.(string); ok && inDraft {
			original = &s
		}

		batch = append(batch, entry{key: row.Key, value: Normalize(cell, original)})
		inBatch[row.Key] = true
	}

	// Keys in both tiers that the batch does not confirm go back to draft.
	for _, key := range catalog.LeafPaths(active) {
		if inBatch[key] || !catalog.Has(draft, key) {
			continue
		}
		catalog.Delete(active, key)
		res.Demoted++
	}

	updated := make(map[string]bool, len(batch))
	for _, e := range batch {
		if catalog.Has(active, e.key) {
			catalog.Set(active, e.key, e.value)
			updated[e.key] = true
			res.Updated++
		}
	}

	// A key already in the active tier is only updated, even if a stale
	// draft copy exists.
	for _, e := range batch {
		if !updated[e.key] && catalog.Has(draft, e.key) {
			catalog.Set(active, e.key, e.value)
			res.Promoted++
		}
	}

	for _, e := range batch {
		if catalog.Has(active, e.key) {
			catalog.Delete(draft, e.key)
		}
	}

	return res
}
