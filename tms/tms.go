// Package tms talks to the remote Translation Management Service that owns
// the project's keys and their tags.
package tms

import (
	"context"
	"fmt"
	"slices"
)

// Tag is a remote tag attached to a key. Removal addresses tags by ID.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Key is one remote key record.
type Key struct {
	ID        int64  `json:"keyId"`
	Namespace string `json:"keyNamespace"`
	Name      string `json:"keyName"`
	Tags      []Tag  `json:"keyTags"`
}

// Canonical returns the "namespace:key" identifier used by the extractor.
func (k Key) Canonical() string {
	return k.Namespace + ":" + k.Name
}

// TagNames returns the names of the key's tags in remote order.
func (k Key) TagNames() []string {
	names := make([]string, len(k.Tags))
	for i, t := range k.Tags {
		names[i] = t.Name
	}
	return names
}

// Tag returns the tag called name.
func (k Key) Tag(name string) (Tag, bool) {
	i := slices.IndexFunc(k.Tags, func(t Tag) bool { return t.Name == name })
	if i < 0 {
		return Tag{}, false
	}
	return k.Tags[i], true
}

// Client is the remote contract the tag synchronizer depends on.
type Client interface {
	// ListKeys returns every key of the project with its tags.
	ListKeys(ctx context.Context) ([]Key, error)
	// AddTag attaches a tag, creating it remotely when needed.
	AddTag(ctx context.Context, keyID int64, name string) error
	// RemoveTag detaches a tag from a key.
	RemoveTag(ctx context.Context, keyID, tagID int64) error
}

// StatusError is a non-success HTTP response.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status code: %d, body: %s", e.Method, e.URL, e.Status, e.Body)
}
