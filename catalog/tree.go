package catalog

import (
	"sort"
	"strings"
)

// Separator joins the segments of a key path.
const Separator = "."

// Flatten converts a nested catalog tree into dot-path keys.
//
// Arrays are leaf values and are never descended into. Objects without any
// leaf underneath them do not produce a key.
func Flatten(tree map[string]any) map[string]any {
	out := make(map[string]any)
	flattenInto(out, tree, "")
	return out
}

func flattenInto(out map[string]any, node map[string]any, prefix string) {
	for k, v := range node {
		path := k
		if prefix != "" {
			path = prefix + Separator + k
		}
		if child, ok := v.(map[string]any); ok {
			flattenInto(out, child, path)
			continue
		}
		out[path] = v
	}
}

// Unflatten is the structural inverse of Flatten.
func Unflatten(flat map[string]any) map[string]any {
	tree := make(map[string]any)
	// Sorted so a leaf that is later shadowed by a deeper path behaves the
	// same on every run.
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		Set(tree, k, flat[k])
	}
	return tree
}

// Get returns the leaf stored at path.
func Get(tree map[string]any, path string) (any, bool) {
	segs := strings.Split(path, Separator)
	node := tree
	for i, seg := range segs {
		v, ok := node[seg]
		if !ok {
			return nil, false
		}
		if i == len(segs)-1 {
			if _, isObj := v.(map[string]any); isObj {
				return nil, false
			}
			return v, true
		}
		child, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		node = child
	}
	return nil, false
}

// Has reports whether a leaf exists at path.
func Has(tree map[string]any, path string) bool {
	_, ok := Get(tree, path)
	return ok
}

// Set assigns value at path, creating intermediate objects as needed.
// A leaf sitting where an intermediate object is required is replaced.
func Set(tree map[string]any, path string, value any) {
	segs := strings.Split(path, Separator)
	node := tree
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[seg] = child
		}
		node = child
	}
	node[segs[len(segs)-1]] = value
}

// Delete removes the leaf at path and prunes parents left empty.
// It reports whether a leaf was removed.
func Delete(tree map[string]any, path string) bool {
	return deleteSegs(tree, strings.Split(path, Separator))
}

func deleteSegs(node map[string]any, segs []string) bool {
	v, ok := node[segs[0]]
	if !ok {
		return false
	}
	if len(segs) == 1 {
		if _, isObj := v.(map[string]any); isObj {
			return false
		}
		delete(node, segs[0])
		return true
	}
	child, ok := v.(map[string]any)
	if !ok {
		return false
	}
	if !deleteSegs(child, segs[1:]) {
		return false
	}
	if len(child) == 0 {
		delete(node, segs[0])
	}
	return true
}

// LeafPaths returns every leaf path of tree in sorted order.
func LeafPaths(tree map[string]any) []string {
	flat := Flatten(tree)
	paths := make([]string, 0, len(flat))
	for p := range flat {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
