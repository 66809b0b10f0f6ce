package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// Parse decodes a nested JSON catalog object.
func Parse(data []byte) (map[string]any, error) {
	tree := make(map[string]any)
	if len(bytes.TrimSpace(data)) == 0 {
		return tree, nil
	}
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return tree, nil
}

// ReadFile reads and parses a catalog file.
func ReadFile(fsys afero.Fs, path string) (map[string]any, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	tree, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tree, nil
}

// Marshal encodes tree with 2-space indentation.
//
// Object keys come out recursively sorted by byte order (encoding/json sorts
// map keys), markup such as <br> is written verbatim, and the output ends in
// exactly one newline.
func Marshal(tree map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tree); err != nil {
		return nil, fmt.Errorf("encoding JSON: %w", err)
	}
	return append(bytes.TrimRight(buf.Bytes(), "\n"), '\n'), nil
}

// WriteFile marshals tree and writes it to path, creating parent directories.
func WriteFile(fsys afero.Fs, path string, tree map[string]any) error {
	data, err := Marshal(tree)
	if err != nil {
		return err
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := afero.WriteFile(fsys, path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
