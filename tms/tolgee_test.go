package tms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Tolgee {
	t.Helper()
	c, err := NewTolgee(Options{
		Host:          srv.URL + "/",
		ProjectID:     "42",
		APIKey:        "tgpak_test",
		PageSize:      2,
		MaxRetries:    3,
		RetryInterval: time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestNewTolgeeRequiresSettings(t *testing.T) {
	t.Parallel()

	_, err := NewTolgee(Options{Host: "http://x", ProjectID: "1"})
	require.Error(t, err)
	_, err = NewTolgee(Options{Host: "http://x", APIKey: "k"})
	require.Error(t, err)
	_, err = NewTolgee(Options{ProjectID: "1", APIKey: "k"})
	require.Error(t, err)
}

func TestListKeysPaginates(t *testing.T) {
	t.Parallel()

	pages := []string{
		`{"_embedded":{"keys":[
			{"keyId":1,"keyName":"title","keyNamespace":"common","keyTags":[{"id":7,"name":"yhteinen"}]},
			{"keyId":2,"keyName":"old","keyNamespace":"profile","keyTags":[]}
		]},"page":{"size":2,"totalElements":3,"totalPages":2,"number":0}}`,
		`{"_embedded":{"keys":[
			{"keyId":3,"keyName":"save","keyNamespace":"common","keyTags":[{"id":8,"name":"deprecated"},{"id":9,"name":"OPHJOD-42"}]}
		]},"page":{"size":2,"totalElements":3,"totalPages":2,"number":1}}`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/projects/42/translations", r.URL.Path)
		assert.Equal(t, "tgpak_test", r.Header.Get("X-API-Key"))
		assert.Equal(t, "2", r.URL.Query().Get("size"))
		var page int
		fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, pages[page])
	}))
	defer srv.Close()

	keys, err := newTestClient(t, srv).ListKeys(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 3)

	assert.Equal(t, Key{ID: 1, Namespace: "common", Name: "title", Tags: []Tag{{ID: 7, Name: "yhteinen"}}}, keys[0])
	assert.Equal(t, []Tag{}, keys[1].Tags)
	assert.Equal(t, "common:save", keys[2].Canonical())
	assert.Equal(t, []string{"deprecated", "OPHJOD-42"}, keys[2].TagNames())

	tag, ok := keys[2].Tag("OPHJOD-42")
	require.True(t, ok)
	assert.EqualValues(t, 9, tag.ID)
}

func TestListKeysEmptyProject(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		io.WriteString(w, `{"page":{"size":2,"totalElements":0,"totalPages":0,"number":0}}`)
	}))
	defer srv.Close()

	keys, err := newTestClient(t, srv).ListKeys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.EqualValues(t, 1, calls.Load())
}

func TestAddTagRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			io.WriteString(w, "upstream down")
			return
		}
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v2/projects/42/keys/5/tags", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"name": "deprecated"}, body)
		io.WriteString(w, `{"id":11,"name":"deprecated"}`)
	}))
	defer srv.Close()

	require.NoError(t, newTestClient(t, srv).AddTag(context.Background(), 5, "deprecated"))
	assert.EqualValues(t, 3, calls.Load())
}

func TestRemoveTagClientErrorIsPermanent(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v2/projects/42/keys/5/tags/9", r.URL.Path)
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"code":"operation_not_permitted"}`)
	}))
	defer srv.Close()

	err := newTestClient(t, srv).RemoveTag(context.Background(), 5, 9)
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.Status)
	assert.Equal(t, `{"code":"operation_not_permitted"}`, se.Body)
	assert.Contains(t, err.Error(), "operation_not_permitted")
}

func TestRetriesExhausted(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := newTestClient(t, srv).AddTag(context.Background(), 1, "x")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Status)
	assert.EqualValues(t, 4, calls.Load())
}
