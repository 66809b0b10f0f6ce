// Package langmeta provides language display metadata (native names and
// emoji flags) used in report headers and CLI output.
package langmeta

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	// Name in the language itself, e.g. "Suomi".
	Name string
	// English name, e.g. "Finnish".
	English string
	// Flag of the language's most likely region; empty when unknown.
	Flag string
}

// overrides pins the flag for languages whose likely region is not the one
// users of this tool expect.
var overrides = map[string]string{
	"en": "GB",
	"sv": "SE",
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Resolve returns best-effort language metadata for language codes,
// supporting variants like pt_BR, pt-BR, and region fallbacks.
func Resolve(lang string) Meta {
	normalized := canonicalize(lang)
	tag, err := language.Parse(normalized)
	if err != nil || normalized == "" {
		return Meta{Name: lang}
	}

	name := display.Self.Name(tag)
	english := display.English.Tags().Name(tag)
	if name == "" {
		return Meta{Name: lang}
	}

	return Meta{
		Name:    cases.Title(tag).String(name),
		English: english,
		Flag:    flagFor(tag),
	}
}

// Valid reports whether lang parses as a BCP 47 language tag.
func Valid(lang string) bool {
	_, err := language.Parse(canonicalize(lang))
	return err == nil && strings.TrimSpace(lang) != ""
}

func flagFor(tag language.Tag) string {
	base, _ := tag.Base()
	region, conf := tag.Region()
	code := region.String()
	if r, ok := overrides[base.String()]; ok && conf != language.Exact {
		code = r
	}
	if conf == language.No || len(code) != 2 || code == "ZZ" {
		return ""
	}
	var b strings.Builder
	for _, c := range code {
		// Regional indicator symbols start at U+1F1E6 for 'A'.
		b.WriteRune(0x1F1E6 + (c - 'A'))
	}
	return b.String()
}
