// Package extract discovers translation-key references in JavaScript and
// TypeScript sources.
//
// Static references (literal keys known at scan time) are collected into a
// UsageMap; references built from variables, concatenation or interpolation
// are reported as DynamicUsage because they cannot be resolved without
// running the program.
package extract

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"
)

// DefaultExtensions are the source extensions scanned when none are configured.
var DefaultExtensions = []string{".js", ".jsx", ".ts", ".tsx"}

// skipDirs contains directory names to skip during source file scanning.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"dist":         true,
	"build":        true,
	"coverage":     true,
	".next":        true,
	".turbo":       true,
	".cache":       true,
	"vendor":       true,
}

// FindSources recursively finds source files under root with one of the given
// extensions. Returned paths are relative to root, slash-separated and sorted.
// Paths matching any exclude glob ("**" crosses directories) are skipped.
func FindSources(fsys afero.Fs, root string, extensions, exclude []string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	extSet := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extSet[ext] = true
	}

	globs := make([]glob.Glob, 0, len(exclude))
	for _, pattern := range exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}

	var files []string
	err := afero.Walk(fsys, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if info.IsDir() {
			if path != root && skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !extSet[filepath.Ext(path)] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		for _, g := range globs {
			if g.Match(rel) {
				return nil
			}
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// DescribeFiles returns a human-readable summary of the source files found,
// grouped by extension.
func DescribeFiles(files []string) string {
	byExt := make(map[string]int)
	for _, f := range files {
		byExt[filepath.Ext(f)]++
	}
	exts := make([]string, 0, len(byExt))
	for ext := range byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	parts := make([]string, 0, len(exts))
	for _, ext := range exts {
		parts = append(parts, fmt.Sprintf("%d %s", byExt[ext], ext))
	}
	return strings.Join(parts, ", ")
}
