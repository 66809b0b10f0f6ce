package extract

import "regexp"

// Classification tells whether a matcher yields static keys or dynamic usages.
type Classification int

const (
	// Static matchers capture a literal key.
	Static Classification = iota
	// Dynamic matchers flag a call site whose key is computed at runtime.
	Dynamic
)

// Matcher is one entry of a matcher table.
type Matcher struct {
	// Name identifies the call-site shape in reports.
	Name string
	// Pattern is applied to the raw file text.
	Pattern *regexp.Regexp
	// Kind classifies the matches.
	Kind Classification
	// KeyGroups are the submatch indexes that may hold the key literal; the
	// first participating group wins. Unused for dynamic matchers.
	KeyGroups []int
	// NSGroups are the submatch indexes that may hold an explicit namespace
	// option, e.g. t('title', { ns: 'profile' }).
	NSGroups []int
}

const (
	single   = `'([^'\n]*)'`
	double   = `"([^"\n]*)"`
	template = "`([^`]*)`"
)

// StaticMatchers in priority order. When several matchers capture the literal
// at the same offset, the earlier entry wins.
var StaticMatchers = []Matcher{
	{
		// t('key', { ns: 'profile' })
		Name:      "t-namespace-option",
		Pattern:   regexp.MustCompile(`\bt\(\s*(?:` + single + `|` + double + `)\s*,\s*\{[^}]*?\bns\s*:\s*(?:` + single + `|` + double + `)`),
		Kind:      Static,
		KeyGroups: []int{1, 2},
		NSGroups:  []int{3, 4},
	},
	{
		// t('key') / t("key"), also i18n.t('ns:key')
		Name:      "t-literal",
		Pattern:   regexp.MustCompile(`\bt\(\s*(?:` + single + `|` + double + `)\s*[,)]`),
		Kind:      Static,
		KeyGroups: []int{1, 2},
	},
	{
		// t(`key`) without interpolation
		Name:      "t-template",
		Pattern:   regexp.MustCompile(`\bt\(\s*` + template + `\s*[,)]`),
		Kind:      Static,
		KeyGroups: []int{1},
	},
	{
		// <Trans i18nKey="key" /> and i18nKey={'key'}
		Name:      "i18nkey-literal",
		Pattern:   regexp.MustCompile(`\bi18nKey=(?:` + double + `|` + single + `|\{\s*(?:` + double + `|` + single + `|` + template + `)\s*\})`),
		Kind:      Static,
		KeyGroups: []int{1, 2, 3, 4, 5},
	},
}

// DynamicMatchers flag call sites whose key cannot be resolved statically.
var DynamicMatchers = []Matcher{
	{
		// t(`prefix.${name}`)
		Name:    "t-template-interpolation",
		Pattern: regexp.MustCompile("\\bt\\(\\s*`[^`]*\\$\\{[^`]*`"),
		Kind:    Dynamic,
	},
	{
		// t('prefix.' + name)
		Name:    "t-concatenation",
		Pattern: regexp.MustCompile(`\bt\(\s*(?:'[^'\n]*'|"[^"\n]*"|` + "`[^`]*`" + `|[\w$.]+)\s*\+`),
		Kind:    Dynamic,
	},
	{
		// t(key), t(item.label); never starts with a quote
		Name:    "t-variable",
		Pattern: regexp.MustCompile(`\bt\(\s*[A-Za-z_$][\w$.?]*(?:\[[^\]\n]*\])*\s*[,)]`),
		Kind:    Dynamic,
	},
	{
		// <Trans i18nKey={key} />, i18nKey={`a.${b}`} and i18nKey={'a.' + b}
		Name:    "i18nkey-expression",
		Pattern: regexp.MustCompile(`\bi18nKey=\{\s*(?:[^'"` + "`" + `\s}][^}]*\}|(?:'[^'\n]*'|"[^"\n]*")\s*\+[^}]*\}|` + "`[^`]*\\$\\{[^`]*`" + `)`),
		Kind:    Dynamic,
	},
}
