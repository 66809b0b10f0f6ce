package reconcile

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ophjod/catalogkit/i18n"
	"github.com/ophjod/catalogkit/langmeta"
)

// DefaultPreview is the number of usage sites shown per missing key.
const DefaultPreview = 3

var (
	heading = color.New(color.Bold, color.FgCyan).SprintFunc()
	bad     = color.New(color.FgRed).SprintFunc()
	warn    = color.New(color.FgYellow).SprintFunc()
	good    = color.New(color.FgGreen).SprintFunc()
	dim     = color.New(color.Faint).SprintFunc()
)

// TextOptions controls WriteText.
type TextOptions struct {
	// Verbose lists every usage site and every unused key.
	Verbose bool
	// Preview caps the usage sites shown per missing key; 0 means DefaultPreview.
	Preview int
}

// WriteText renders a human-readable report.
func WriteText(w io.Writer, r *Report, opts TextOptions) error {
	preview := opts.Preview
	if preview <= 0 {
		preview = DefaultPreview
	}

	var b strings.Builder
	rule := strings.Repeat("─", 60)

	fmt.Fprintf(&b, "\n%s\n%s\n", heading(i18n.T("Translation keys")), rule)
	fmt.Fprintf(&b, "  %s %d\n", i18n.T("Keys used in source:"), r.UsedKeys)
	fmt.Fprintf(&b, "  %s %s\n", i18n.T("Namespaces:"), strings.Join(r.Namespaces, ", "))

	for _, l := range r.Languages {
		meta := langmeta.Resolve(l.Language)
		fmt.Fprintf(&b, "\n%s %s (%s)\n", meta.Flag, heading(meta.Name), l.Language)
		fmt.Fprintf(&b, "  %-14s %8s %8s %8s %8s\n", i18n.T("Namespace"), i18n.T("Expected"), i18n.T("Present"), i18n.T("Missing"), i18n.T("Unused"))
		for _, ns := range r.Namespaces {
			c := l.Namespaces[ns]
			fmt.Fprintf(&b, "  %-14s %8d %8d %s %s\n", ns, c.Expected, c.Present, countCell(c.Missing, bad), countCell(c.Unused, warn))
		}

		if len(l.Missing) > 0 {
			fmt.Fprintf(&b, "\n  %s\n", bad(fmt.Sprintf(i18n.N("%d missing key", "%d missing keys", len(l.Missing)), len(l.Missing))))
			for _, m := range l.Missing {
				fmt.Fprintf(&b, "    %s\n", m.Key)
				shown := m.Sites
				if !opts.Verbose && len(shown) > preview {
					shown = shown[:preview]
				}
				for _, s := range shown {
					fmt.Fprintf(&b, "      %s %s\n", dim(fmt.Sprintf("%s:%d", s.File, s.Line)), s.Snippet)
				}
				if rest := len(m.Sites) - len(shown); rest > 0 {
					fmt.Fprintf(&b, "      %s\n", dim(fmt.Sprintf(i18n.N("... and %d more usage", "... and %d more usages", rest), rest)))
				}
			}
		}

		if len(l.Unused) > 0 {
			fmt.Fprintf(&b, "\n  %s\n", warn(fmt.Sprintf(i18n.N("%d unused key", "%d unused keys", len(l.Unused)), len(l.Unused))))
			if opts.Verbose {
				for _, u := range l.Unused {
					fmt.Fprintf(&b, "    %s %s\n", u.Key, dim(u.Source))
				}
			}
		}
	}

	if len(r.Dynamic) > 0 {
		fmt.Fprintf(&b, "\n%s\n%s\n", bad(fmt.Sprintf(i18n.N("%d dynamic key usage", "%d dynamic key usages", len(r.Dynamic)), len(r.Dynamic))), rule)
		for _, d := range r.Dynamic {
			fmt.Fprintf(&b, "  %s %s\n", dim(fmt.Sprintf("%s:%d", d.File, d.Line)), d.Code)
		}
	}

	if len(r.Duplicates) > 0 {
		fmt.Fprintf(&b, "\n%s\n%s\n", bad(fmt.Sprintf(i18n.N("%d key defined in several namespaces", "%d keys defined in several namespaces", len(r.Duplicates)), len(r.Duplicates))), rule)
		for _, d := range r.Duplicates {
			fmt.Fprintf(&b, "  %s %s\n", d.Path, dim(strings.Join(d.Namespaces, ", ")))
		}
	}

	b.WriteString("\n")
	if r.Failed() {
		fmt.Fprintf(&b, "%s\n", bad(i18n.T("Translation check failed")))
	} else {
		fmt.Fprintf(&b, "%s\n", good(i18n.T("Translation check passed")))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// countCell pads n to the column width before painting it, so escape codes
// do not count toward the width.
func countCell(n int, paint func(a ...any) string) string {
	cell := fmt.Sprintf("%8d", n)
	if n == 0 {
		return cell
	}
	return paint(cell)
}

// WriteJSON encodes the report as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
