// Package config loads the .catalogkit.yaml project file.
//
// The file lives in the project root and declares where the sources and
// catalogs are, which languages are supported and how the remote TMS is
// reached:
//
//	source_dir: src
//	catalog_dir: src/i18n
//	languages: [fi, sv, en]
//	default_namespace: common
//	dynamic_exceptions:
//	  - file: components/LanguageSelection
//	    pattern: 't\(lang\.label\)'
//	tms:
//	  host: https://app.tolgee.io
//	  project_id: "42"
//	sync:
//	  project_namespaces: [common, profile]
//	  shared_tag: yhteinen
//	import:
//	  dir: import
//	  catalog_dir: public/locales
//
// Relative paths are resolved against the directory holding the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/ophjod/catalogkit/extract"
	"github.com/ophjod/catalogkit/ticket"
)

// FileName is the default config file name.
const FileName = ".catalogkit.yaml"

// ErrNotFound means no config file exists at the expected path.
var ErrNotFound = errors.New("config file not found")

// Environment variables overriding file values.
const (
	EnvTMSHost      = "CATALOGKIT_TMS_HOST"
	EnvTMSProjectID = "CATALOGKIT_TMS_PROJECT_ID"
)

// File is the top-level .catalogkit.yaml structure.
type File struct {
	// SourceDir is the application source root (default "src").
	SourceDir string `yaml:"source_dir,omitempty"`
	// SourceExtensions default to .js .jsx .ts .tsx.
	SourceExtensions []string `yaml:"source_extensions,omitempty"`
	// Exclude lists globs, relative to SourceDir, of files not scanned.
	Exclude []string `yaml:"exclude,omitempty"`
	// CatalogDir holds one directory per namespace (default "src/i18n").
	CatalogDir string `yaml:"catalog_dir,omitempty"`
	// Languages supported by the application, in report order.
	Languages []string `yaml:"languages"`
	// DefaultNamespace applies to keys without a "namespace:" prefix (default "common").
	DefaultNamespace string `yaml:"default_namespace,omitempty"`
	// DynamicExceptions suppress known, reviewed dynamic key usages.
	DynamicExceptions []DynamicException `yaml:"dynamic_exceptions,omitempty"`

	TMS    TMS    `yaml:"tms,omitempty"`
	Sync   Sync   `yaml:"sync,omitempty"`
	Import Import `yaml:"import,omitempty"`

	// path of the loaded file; empty when built in code.
	path string
}

// DynamicException is the YAML form of extract.Exception.
type DynamicException struct {
	File    string `yaml:"file"`
	Pattern string `yaml:"pattern"`
}

// TMS configures the Tolgee client.
type TMS struct {
	Host              string  `yaml:"host,omitempty"`
	ProjectID         string  `yaml:"project_id,omitempty"`
	PageSize          int     `yaml:"page_size,omitempty"`
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
	Workers           int     `yaml:"workers,omitempty"`
	MaxRetries        int     `yaml:"max_retries,omitempty"`
}

// Sync configures tag synchronization.
type Sync struct {
	// ProjectNamespaces are the remote namespaces owned by this project
	// (default: the catalog namespaces found on disk).
	ProjectNamespaces []string `yaml:"project_namespaces,omitempty"`
	// SharedNamespace defaults to DefaultNamespace.
	SharedNamespace string `yaml:"shared_namespace,omitempty"`
	// SharedTag defaults to SharedNamespace.
	SharedTag string `yaml:"shared_tag,omitempty"`
	// DeprecatedTag defaults to "deprecated".
	DeprecatedTag string `yaml:"deprecated_tag,omitempty"`
	// TicketPattern is a regular expression (default OPHJOD-\d+).
	TicketPattern string `yaml:"ticket_pattern,omitempty"`
}

// Import configures the spreadsheet import.
type Import struct {
	// Dir holds the workbook to import (default "import").
	Dir string `yaml:"dir,omitempty"`
	// CatalogDir holds <lang>/translation.json and <lang>/draft.translation.json.
	CatalogDir string `yaml:"catalog_dir,omitempty"`
	// Languages imported (default: Languages).
	Languages []string `yaml:"languages,omitempty"`
}

// Load reads and validates the config file. path may be empty to use
// rootDir/.catalogkit.yaml.
func Load(fsys afero.Fs, rootDir, path string) (*File, error) {
	if path == "" {
		path = filepath.Join(rootDir, FileName)
	}
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	f.path = path
	f.applyDefaults()

	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

func (f *File) applyDefaults() {
	if f.SourceDir == "" {
		f.SourceDir = "src"
	}
	if len(f.SourceExtensions) == 0 {
		f.SourceExtensions = extract.DefaultExtensions
	}
	if f.CatalogDir == "" {
		f.CatalogDir = filepath.Join("src", "i18n")
	}
	if f.DefaultNamespace == "" {
		f.DefaultNamespace = "common"
	}
	if f.TMS.PageSize == 0 {
		f.TMS.PageSize = 250
	}
	if f.TMS.Workers == 0 {
		f.TMS.Workers = 4
	}
	if f.TMS.MaxRetries == 0 {
		f.TMS.MaxRetries = 3
	}
	if f.Sync.SharedNamespace == "" {
		f.Sync.SharedNamespace = f.DefaultNamespace
	}
	if f.Sync.SharedTag == "" {
		f.Sync.SharedTag = f.Sync.SharedNamespace
	}
	if f.Sync.DeprecatedTag == "" {
		f.Sync.DeprecatedTag = "deprecated"
	}
	if f.Sync.TicketPattern == "" {
		f.Sync.TicketPattern = ticket.DefaultPattern
	}
	if f.Import.Dir == "" {
		f.Import.Dir = "import"
	}
	if f.Import.CatalogDir == "" {
		f.Import.CatalogDir = filepath.Join("public", "locales")
	}
	if len(f.Import.Languages) == 0 {
		f.Import.Languages = f.Languages
	}
}

func (f *File) validate() error {
	if len(f.Languages) == 0 {
		return errors.New("no languages configured")
	}
	for _, langs := range [][]string{f.Languages, f.Import.Languages} {
		for _, lang := range langs {
			if _, err := language.Parse(lang); err != nil {
				return fmt.Errorf("invalid language code %q: %w", lang, err)
			}
		}
	}
	if strings.Contains(f.DefaultNamespace, ":") {
		return fmt.Errorf("default_namespace %q must not contain ':'", f.DefaultNamespace)
	}
	for _, ext := range f.SourceExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("source extension %q must start with '.'", ext)
		}
	}
	if _, err := f.Exceptions(); err != nil {
		return err
	}
	if _, err := regexp.Compile(f.Sync.TicketPattern); err != nil {
		return fmt.Errorf("invalid ticket_pattern: %w", err)
	}
	if f.TMS.PageSize < 0 || f.TMS.Workers < 0 || f.TMS.MaxRetries < 0 || f.TMS.RequestsPerSecond < 0 {
		return errors.New("tms: page_size, workers, max_retries and requests_per_second must not be negative")
	}
	return nil
}

// ApplyEnv overrides TMS settings from the environment.
func (f *File) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvTMSHost); v != "" {
		f.TMS.Host = v
	}
	if v := getenv(EnvTMSProjectID); v != "" {
		f.TMS.ProjectID = v
	}
}

// ValidateTMS checks the settings needed to reach the TMS.
func (f *File) ValidateTMS() error {
	if f.TMS.Host == "" {
		return fmt.Errorf("%s: tms.host is not set (or set %s)", f.path, EnvTMSHost)
	}
	if f.TMS.ProjectID == "" {
		return fmt.Errorf("%s: tms.project_id is not set (or set %s)", f.path, EnvTMSProjectID)
	}
	return nil
}

// Exceptions compiles the dynamic usage exceptions.
func (f *File) Exceptions() ([]extract.Exception, error) {
	out := make([]extract.Exception, 0, len(f.DynamicExceptions))
	for i, de := range f.DynamicExceptions {
		if de.File == "" {
			return nil, fmt.Errorf("dynamic exception #%d has no file", i+1)
		}
		ex, err := extract.NewException(de.File, de.Pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, nil
}

// TicketRegexp returns the compiled ticket pattern.
func (f *File) TicketRegexp() *regexp.Regexp {
	return regexp.MustCompile(f.Sync.TicketPattern)
}

// Path returns the file the config was loaded from.
func (f *File) Path() string {
	return f.path
}

// Resolve makes rel absolute against the config file's directory.
func (f *File) Resolve(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(filepath.Dir(f.path), rel)
}
