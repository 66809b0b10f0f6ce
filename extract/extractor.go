package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/ophjod/catalogkit/catalog"
)

// SourceFile is one file handed to the extractor.
type SourceFile struct {
	// Path relative to the scan root, slash-separated.
	Path  string
	Text  string
	Lines []string

	// lineEnds[i] is the offset just past line i including its newline.
	lineEnds []int
}

// NewSourceFile splits text into lines.
func NewSourceFile(path, text string) SourceFile {
	lines := strings.Split(text, "\n")
	ends := make([]int, len(lines))
	total := 0
	for i, l := range lines {
		total += len(l) + 1
		ends[i] = total
	}
	return SourceFile{Path: path, Text: text, Lines: lines, lineEnds: ends}
}

// LineAt converts a byte offset into a 1-indexed line number: the first line
// whose cumulative length (plus one per newline) exceeds offset.
func (f SourceFile) LineAt(offset int) int {
	i := sort.Search(len(f.lineEnds), func(i int) bool { return f.lineEnds[i] > offset })
	if i >= len(f.lineEnds) {
		return len(f.lineEnds)
	}
	return i + 1
}

func (f SourceFile) lineText(line int) string {
	if line < 1 || line > len(f.Lines) {
		return ""
	}
	return strings.TrimRight(f.Lines[line-1], "\r")
}

// Exception suppresses dynamic usages in files whose path contains File and
// whose line matches Pattern.
type Exception struct {
	File    string
	Pattern *regexp.Regexp
}

// NewException compiles a dynamic usage exception.
func NewException(file, pattern string) (Exception, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Exception{}, fmt.Errorf("invalid exception pattern %q for %s: %w", pattern, file, err)
	}
	return Exception{File: file, Pattern: re}, nil
}

// Matches reports whether the exception applies to a line of file.
func (e Exception) Matches(file, line string) bool {
	return strings.Contains(file, e.File) && e.Pattern.MatchString(line)
}

func isException(exceptions []Exception, file, line string) bool {
	for _, e := range exceptions {
		if e.Matches(file, line) {
			return true
		}
	}
	return false
}

// ExtractFile runs the static and dynamic matcher tables over one file.
func ExtractFile(src SourceFile, defaultNS string, exceptions []Exception) (*UsageMap, []DynamicUsage) {
	return extractStatic(src, defaultNS), extractDynamic(src, exceptions)
}

func extractStatic(src SourceFile, defaultNS string) *UsageMap {
	type match struct {
		offset int
		site   UsageSite
	}
	var matches []match
	// Several matchers may capture the same literal; the first one in table
	// order claims the offset.
	claimed := make(map[int]bool)

	for _, m := range StaticMatchers {
		for _, idx := range m.Pattern.FindAllStringSubmatchIndex(src.Text, -1) {
			literal, offset, ok := firstGroup(src.Text, idx, m.KeyGroups)
			if !ok || claimed[offset] {
				continue
			}
			if strings.Contains(literal, "${") || strings.Contains(literal, "`") {
				continue
			}
			literal = strings.TrimSpace(literal)
			if literal == "" {
				continue
			}
			claimed[offset] = true

			ns, key := catalog.SplitKey(literal, defaultNS)
			if optNS, _, ok := firstGroup(src.Text, idx, m.NSGroups); ok && !strings.Contains(literal, catalog.NamespaceSeparator) {
				ns = optNS
			}

			line := src.LineAt(offset)
			matches = append(matches, match{offset: offset, site: UsageSite{
				File:    src.Path,
				Line:    line,
				Snippet: strings.TrimSpace(src.lineText(line)),
				Key:     catalog.JoinKey(ns, key),
			}})
		}
	}

	// First-seen order follows the file, not the matcher table.
	sort.Slice(matches, func(i, j int) bool { return matches[i].offset < matches[j].offset })

	usages := NewUsageMap()
	for _, m := range matches {
		usages.Add(m.site)
	}
	return usages
}

func firstGroup(text string, idx []int, groups []int) (string, int, bool) {
	for _, g := range groups {
		start, end := idx[2*g], idx[2*g+1]
		if start >= 0 {
			return text[start:end], start, true
		}
	}
	return "", 0, false
}

func extractDynamic(src SourceFile, exceptions []Exception) []DynamicUsage {
	type siteKey struct {
		file string
		line int
		code string
	}
	seen := make(map[siteKey]bool)
	var out []DynamicUsage

	for _, m := range DynamicMatchers {
		for _, idx := range m.Pattern.FindAllStringIndex(src.Text, -1) {
			line := src.LineAt(idx[0])
			text := src.lineText(line)
			code := strings.TrimSpace(text)

			k := siteKey{file: src.Path, line: line, code: code}
			if seen[k] {
				continue
			}
			seen[k] = true

			if isException(exceptions, src.Path, text) {
				continue
			}
			out = append(out, DynamicUsage{File: src.Path, Line: line, Code: code, Matcher: m.Name})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

// ScanOptions configures Scan.
type ScanOptions struct {
	DefaultNamespace string
	Exceptions       []Exception
	// Workers bounds the number of files processed concurrently.
	Workers int
}

// Result is the outcome of scanning a source tree.
type Result struct {
	Files   []string
	Usages  *UsageMap
	Dynamic []DynamicUsage
}

// Scan reads and extracts every file concurrently. Results are merged in file
// order so output does not depend on scheduling. When ctx is cancelled the
// files extracted so far are returned together with ctx's error.
func Scan(ctx context.Context, fsys afero.Fs, root string, files []string, opts ScanOptions) (*Result, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = 8
	}

	type fileResult struct {
		usages  *UsageMap
		dynamic []DynamicUsage
	}
	results := make([]*fileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, rel := range files {
		if gctx.Err() != nil {
			break
		}
		i, rel := i, rel
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := afero.ReadFile(fsys, filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				return fmt.Errorf("reading %s: %w", rel, err)
			}
			usages, dynamic := ExtractFile(NewSourceFile(rel, string(data)), opts.DefaultNamespace, opts.Exceptions)
			results[i] = &fileResult{usages: usages, dynamic: dynamic}
			return nil
		})
	}
	err := g.Wait()

	res := &Result{Files: files, Usages: NewUsageMap()}
	for _, r := range results {
		if r == nil {
			continue
		}
		res.Usages.Merge(r.usages)
		res.Dynamic = append(res.Dynamic, r.dynamic...)
	}

	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return res, err
	}

	log.Debug().
		Str("sys", "extract").
		Int("files", len(files)).
		Int("keys", res.Usages.Len()).
		Int("dynamic", len(res.Dynamic)).
		Msg("Scan complete")

	return res, nil
}
