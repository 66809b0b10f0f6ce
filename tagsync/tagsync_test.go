package tagsync

import (
	"context"
	"errors"
	"regexp"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ophjod/catalogkit/extract"
	"github.com/ophjod/catalogkit/tms"
)

// fakeClient keeps tags in memory and records calls per key.
type fakeClient struct {
	mu     sync.Mutex
	tags   map[int64][]tms.Tag
	calls  map[int64][]string
	nextID int64
	fail   map[int64]error
}

func newFakeClient(keys []tms.Key) *fakeClient {
	f := &fakeClient{tags: map[int64][]tms.Tag{}, calls: map[int64][]string{}, nextID: 100, fail: map[int64]error{}}
	for _, k := range keys {
		f.tags[k.ID] = slices.Clone(k.Tags)
	}
	return f
}

func (f *fakeClient) ListKeys(context.Context) ([]tms.Key, error) { return nil, nil }

func (f *fakeClient) AddTag(_ context.Context, keyID int64, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[keyID]; err != nil {
		return err
	}
	f.nextID++
	f.tags[keyID] = append(f.tags[keyID], tms.Tag{ID: f.nextID, Name: name})
	f.calls[keyID] = append(f.calls[keyID], "add "+name)
	return nil
}

func (f *fakeClient) RemoveTag(_ context.Context, keyID, tagID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[keyID]; err != nil {
		return err
	}
	f.tags[keyID] = slices.DeleteFunc(f.tags[keyID], func(t tms.Tag) bool { return t.ID == tagID })
	f.calls[keyID] = append(f.calls[keyID], "remove")
	return nil
}

func (f *fakeClient) names(keyID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []string{}
	for _, t := range f.tags[keyID] {
		out = append(out, t.Name)
	}
	return out
}

func testRules(ticketID string) Rules {
	return Rules{
		ProjectNamespaces: []string{"common", "profile"},
		SharedNamespace:   "common",
		SharedTag:         "yhteinen",
		DeprecatedTag:     "deprecated",
		Ticket:            ticketID,
		TicketPattern:     regexp.MustCompile(`OPHJOD-\d+`),
	}
}

func usageOf(keys ...string) *extract.UsageMap {
	m := extract.NewUsageMap()
	for _, k := range keys {
		m.Add(extract.UsageSite{Key: k})
	}
	return m
}

func tags(names ...string) []tms.Tag {
	out := []tms.Tag{}
	for i, n := range names {
		out = append(out, tms.Tag{ID: int64(i + 1), Name: n})
	}
	return out
}

func TestPlanRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		key        tms.Key
		used       []string
		ticket     string
		wantAdd    []string
		wantRemove []string
	}{
		{
			name:    "shared key used gets shared tag",
			key:     tms.Key{ID: 1, Namespace: "common", Name: "save", Tags: tags()},
			used:    []string{"common:save"},
			wantAdd: []string{"yhteinen"},
		},
		{
			name:       "shared key unused loses shared tag and is deprecated",
			key:        tms.Key{ID: 1, Namespace: "common", Name: "save", Tags: tags("yhteinen")},
			ticket:     "OPHJOD-7",
			wantAdd:    []string{"deprecated", "OPHJOD-7"},
			wantRemove: []string{"yhteinen"},
		},
		{
			name:    "unused key without ticket",
			key:     tms.Key{ID: 1, Namespace: "profile", Name: "old", Tags: tags()},
			wantAdd: []string{"deprecated"},
		},
		{
			name: "unused key with other tags is left alone",
			key:  tms.Key{ID: 1, Namespace: "profile", Name: "old", Tags: tags("release-2")},
		},
		{
			name:       "revived key drops deprecation and every ticket tag",
			key:        tms.Key{ID: 1, Namespace: "profile", Name: "title", Tags: tags("deprecated", "OPHJOD-42", "OPHJOD-7", "release-2")},
			used:       []string{"profile:title"},
			wantRemove: []string{"deprecated", "OPHJOD-42", "OPHJOD-7"},
		},
		{
			name: "plural variant counts as used",
			key:  tms.Key{ID: 1, Namespace: "profile", Name: "items_other", Tags: tags("release-2")},
			used: []string{"profile:items"},
		},
		{
			name:    "usage in another namespace does not count",
			key:     tms.Key{ID: 1, Namespace: "profile", Name: "title", Tags: tags()},
			used:    []string{"common:title"},
			wantAdd: []string{"deprecated"},
		},
		{
			name: "foreign namespace is skipped",
			key:  tms.Key{ID: 1, Namespace: "admin", Name: "old", Tags: tags()},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deltas := Plan([]tms.Key{tc.key}, usageOf(tc.used...), testRules(tc.ticket))
			if tc.wantAdd == nil && tc.wantRemove == nil {
				assert.Empty(t, deltas)
				return
			}
			require.Len(t, deltas, 1)
			d := deltas[0]
			assert.ElementsMatch(t, tc.wantAdd, d.Add)
			var removed []string
			for _, r := range d.Remove {
				removed = append(removed, r.Name)
			}
			assert.ElementsMatch(t, tc.wantRemove, removed)
		})
	}
}

func TestTagRevival(t *testing.T) {
	t.Parallel()

	key := tms.Key{ID: 9, Namespace: "profile", Name: "title", Tags: tags("deprecated", "OPHJOD-42")}
	client := newFakeClient([]tms.Key{key})

	deltas := Plan([]tms.Key{key}, usageOf("profile:title"), testRules("OPHJOD-50"))
	summary, err := Apply(context.Background(), client, deltas, Options{Workers: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{}, client.names(9))
	assert.Equal(t, Summary{Keys: 1, Removed: 2}, summary)
}

func TestApplyConcurrentKeys(t *testing.T) {
	t.Parallel()

	var keys []tms.Key
	for i := int64(1); i <= 20; i++ {
		keys = append(keys, tms.Key{ID: i, Namespace: "common", Name: "k", Tags: tags("yhteinen")})
	}
	client := newFakeClient(keys)

	var progress []int
	var mu sync.Mutex
	deltas := Plan(keys, usageOf(), testRules("OPHJOD-1"))
	require.Len(t, deltas, 20)

	summary, err := Apply(context.Background(), client, deltas, Options{
		Workers: 4,
		OnProgress: func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 20, total)
			progress = append(progress, done)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, Summary{Keys: 20, Added: 40, Removed: 20}, summary)
	assert.Len(t, progress, 20)
	assert.Equal(t, 20, progress[len(progress)-1])

	for _, k := range keys {
		assert.Equal(t, []string{"deprecated", "OPHJOD-1"}, client.names(k.ID))
		// One key's calls stay in order.
		assert.Equal(t, []string{"add deprecated", "add OPHJOD-1", "remove"}, client.calls[k.ID])
	}
}

func TestApplyDryRun(t *testing.T) {
	t.Parallel()

	key := tms.Key{ID: 1, Namespace: "profile", Name: "old", Tags: tags()}
	client := newFakeClient([]tms.Key{key})

	deltas := Plan([]tms.Key{key}, usageOf(), testRules(""))
	summary, err := Apply(context.Background(), client, deltas, Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, Summary{Keys: 1, Added: 1}, summary)
	assert.Empty(t, client.calls)
}

func TestApplyHardFailure(t *testing.T) {
	t.Parallel()

	keys := []tms.Key{
		{ID: 1, Namespace: "profile", Name: "a", Tags: tags()},
		{ID: 2, Namespace: "profile", Name: "b", Tags: tags()},
	}
	client := newFakeClient(keys)
	boom := &tms.StatusError{Method: "PUT", URL: "/keys/2/tags", Status: 500, Body: "boom"}
	client.fail[2] = boom

	_, err := Apply(context.Background(), client, Plan(keys, usageOf(), testRules("")), Options{Workers: 1})
	require.Error(t, err)

	var se *tms.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "boom", se.Body)
}
