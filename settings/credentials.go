// Package settings stores catalogkit user settings, currently the TMS API
// keys.
//
// Settings live in the XDG data directory:
//
//	$XDG_DATA_HOME/catalogkit/auth.json  (default: ~/.local/share/catalogkit/)
//
// auth.json is a JSON object keyed by TMS host, each value holding the API
// key for that host. File permissions are 0600 (owner read/write only).
//
// Lookup order for API keys:
//  1. --api-key flag (highest priority)
//  2. TOLGEE_API_KEY environment variable
//  3. This credential store
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	dataDirName = "catalogkit"
	fileName    = "auth.json"
)

// EnvAPIKey overrides the stored API key.
const EnvAPIKey = "TOLGEE_API_KEY"

// ErrNoAPIKey means no API key was given by flag, environment or store.
var ErrNoAPIKey = errors.New("no TMS API key configured")

// Info is the entry stored per TMS host.
type Info struct {
	// Type is "api" for API keys.
	Type string `json:"type"`
	Key  string `json:"key,omitempty"`
	// ProjectID optionally remembers the project the key was created for.
	ProjectID string `json:"projectId,omitempty"`
}

// Store holds all credentials, keyed by normalized host.
type Store map[string]*Info

// HostKey normalizes a TMS host into a store key.
func HostKey(host string) string {
	h := strings.TrimSpace(strings.ToLower(host))
	h = strings.TrimPrefix(h, "https://")
	h = strings.TrimPrefix(h, "http://")
	return strings.TrimRight(h, "/")
}

// dataDir returns the XDG data directory for catalogkit.
// Respects $XDG_DATA_HOME (falls back to ~/.local/share).
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

func filePath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// FilePath returns the auth.json file path for display purposes.
func FilePath() string {
	p, err := filePath()
	if err != nil {
		return ""
	}
	return p
}

// DataDir returns the catalogkit data directory path.
func DataDir() (string, error) {
	return dataDir()
}

// Load reads the credential store from disk.
// Returns an empty store if the file doesn't exist or is invalid.
func Load() Store {
	path, err := filePath()
	if err != nil {
		return make(Store)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return make(Store)
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil || store == nil {
		return make(Store)
	}
	return store
}

// Save writes the credential store to disk with 0600 permissions.
func Save(store Store) error {
	path, err := filePath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing auth file: %w", err)
	}
	return nil
}

// SetAPIKey stores the API key for host.
func SetAPIKey(host, key, projectID string) error {
	store := Load()
	store[HostKey(host)] = &Info{Type: "api", Key: key, ProjectID: projectID}
	return Save(store)
}

// GetAPIKey returns the stored API key for host, or "".
func GetAPIKey(host string) string {
	info := Load()[HostKey(host)]
	if info == nil || info.Type != "api" {
		return ""
	}
	return info.Key
}

// Remove deletes the credentials of host.
func Remove(host string) error {
	store := Load()
	if _, ok := store[HostKey(host)]; !ok {
		return nil
	}
	delete(store, HostKey(host))
	return Save(store)
}

// RemoveAll removes all stored credentials.
func RemoveAll() error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing auth file: %w", err)
	}
	return nil
}

// Source tells where ResolveAPIKey found the key.
type Source string

const (
	SourceFlag  Source = "flag"
	SourceEnv   Source = "env"
	SourceStore Source = "store"
)

// ResolveAPIKey applies the lookup order flag, environment, store.
func ResolveAPIKey(flag, host string, getenv func(string) string) (string, Source, error) {
	if flag != "" {
		return flag, SourceFlag, nil
	}
	if v := getenv(EnvAPIKey); v != "" {
		return v, SourceEnv, nil
	}
	if v := GetAPIKey(host); v != "" {
		return v, SourceStore, nil
	}
	return "", "", fmt.Errorf("%w for %s (use --api-key, %s or 'catalogkit auth login')", ErrNoAPIKey, host, EnvAPIKey)
}

// MaskKey returns a masked version of a key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
