package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ophjod/catalogkit/config"
	"github.com/ophjod/catalogkit/settings"
	"github.com/ophjod/catalogkit/sheet"
	"github.com/ophjod/catalogkit/tms"
)

func useFs(t *testing.T, fs afero.Fs) {
	t.Helper()
	old := fsys
	fsys = fs
	t.Cleanup(func() { fsys = old })
}

func noColor(t *testing.T) {
	t.Helper()
	old := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = old })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
}

func projectFixture(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"project/.catalogkit.yaml":         "languages: [fi, sv]\n",
		"project/src/App.tsx":              "export const App = () => <h1>{t('greeting')}</h1>;\n",
		"project/src/routes/Profile.tsx":   "const title = t('profile:title');\n",
		"project/src/i18n/common/fi.json":  `{"greeting": "Hei", "leftover": "x"}`,
		"project/src/i18n/common/sv.json":  `{"greeting": "Hej"}`,
		"project/src/i18n/profile/fi.json": `{"title": "Profiili"}`,
		"project/src/i18n/profile/sv.json": `{"title": "Profil"}`,
	})
	return fs
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	sort.Strings(names)
	assert.Subset(t, names, []string{"auth", "check", "extract", "import", "sync-tags", "version"})

	for _, flag := range []string{"root", "config", "verbose"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "missing persistent flag --%s", flag)
	}

	syncCmd, _, err := root.Find([]string{"sync-tags"})
	require.NoError(t, err)
	for _, flag := range []string{"api-key", "dry-run", "workers"} {
		assert.NotNil(t, syncCmd.Flags().Lookup(flag), "missing sync-tags flag --%s", flag)
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(errFindings))
	assert.Equal(t, 1, exitCode(fmt.Errorf("wrapped: %w", context.Canceled)))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "catalogkit version dev")
}

func TestCheckPassesWithUnusedKeys(t *testing.T) {
	noColor(t)
	useFs(t, projectFixture(t))

	out, err := execute(t, "--root", "project", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "Translation check passed")
	assert.Contains(t, out, "1 unused key")
}

func TestCheckFailsOnMissingKey(t *testing.T) {
	noColor(t)
	fs := projectFixture(t)
	require.NoError(t, fs.Remove("project/src/i18n/profile/sv.json"))
	useFs(t, fs)

	out, err := execute(t, "--root", "project", "check")
	require.ErrorIs(t, err, errFindings)
	assert.Contains(t, out, "profile:title")
	assert.Contains(t, out, "Translation check failed")
}

func TestCheckJSON(t *testing.T) {
	fs := projectFixture(t)
	writeFiles(t, fs, map[string]string{
		"project/src/Dynamic.tsx": "t(`menu.${item}`);\n",
	})
	useFs(t, fs)

	out, err := execute(t, "--root", "project", "check", "--json")
	require.ErrorIs(t, err, errFindings)

	var report struct {
		UsedKeys int `json:"usedKeys"`
		Dynamic  []struct {
			File string `json:"file"`
		} `json:"dynamic"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.UsedKeys)
	require.Len(t, report.Dynamic, 1)
	assert.Equal(t, "Dynamic.tsx", report.Dynamic[0].File)
}

func TestCheckMissingConfig(t *testing.T) {
	useFs(t, afero.NewMemMapFs())

	_, err := execute(t, "--root", "nowhere", "check")
	require.ErrorIs(t, err, config.ErrNotFound)
}

func TestExtract(t *testing.T) {
	useFs(t, projectFixture(t))

	out, err := execute(t, "--root", "project", "extract")
	require.NoError(t, err)

	var got struct {
		Files int `json:"files"`
		Keys  []struct {
			Key string `json:"key"`
		} `json:"keys"`
		Dynamic []any `json:"dynamic"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2, got.Files)
	require.Len(t, got.Keys, 2)
	assert.Equal(t, "common:greeting", got.Keys[0].Key)
	assert.Equal(t, "profile:title", got.Keys[1].Key)
	assert.NotNil(t, got.Dynamic)
}

type recordingClient struct {
	mu     sync.Mutex
	keys   []tms.Key
	added  map[int64][]string
	remove map[int64][]int64
}

func (c *recordingClient) ListKeys(context.Context) ([]tms.Key, error) { return c.keys, nil }

func (c *recordingClient) AddTag(_ context.Context, keyID int64, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.added[keyID] = append(c.added[keyID], name)
	return nil
}

func (c *recordingClient) RemoveTag(_ context.Context, keyID, tagID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove[keyID] = append(c.remove[keyID], tagID)
	return nil
}

func TestSyncTags(t *testing.T) {
	useFs(t, projectFixture(t))
	t.Setenv("TICKET_ID", "OPHJOD-77")

	cfg, err := config.Load(fsys, "project", "")
	require.NoError(t, err)

	client := &recordingClient{
		keys: []tms.Key{
			{ID: 1, Namespace: "common", Name: "greeting", Tags: []tms.Tag{{ID: 10, Name: "deprecated"}, {ID: 11, Name: "OPHJOD-1"}}},
			{ID: 2, Namespace: "common", Name: "leftover"},
			{ID: 3, Namespace: "profile", Name: "title"},
			{ID: 4, Namespace: "other-app", Name: "stale"},
		},
		added:  map[int64][]string{},
		remove: map[int64][]int64{},
	}

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	require.NoError(t, runSyncTags(cmd, cfg, client, syncArgs{workers: 2}))

	assert.Equal(t, map[int64][]int64{1: {10, 11}}, client.remove)
	assert.Equal(t, map[int64][]string{1: {"common"}, 2: {"deprecated", "OPHJOD-77"}}, client.added)
}

func TestSyncTagsDryRun(t *testing.T) {
	useFs(t, projectFixture(t))
	t.Setenv("TICKET_ID", "")

	cfg, err := config.Load(fsys, "project", "")
	require.NoError(t, err)

	client := &recordingClient{
		keys:   []tms.Key{{ID: 2, Namespace: "common", Name: "leftover"}},
		added:  map[int64][]string{},
		remove: map[int64][]int64{},
	}

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	require.NoError(t, runSyncTags(cmd, cfg, client, syncArgs{dryRun: true}))
	assert.Empty(t, client.added)
}

func TestSyncTagsRequiresTMSConfig(t *testing.T) {
	useFs(t, projectFixture(t))
	t.Setenv(config.EnvTMSHost, "")
	t.Setenv(config.EnvTMSProjectID, "")

	_, err := execute(t, "--root", "project", "sync-tags")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tms.host")
}

func writeWorkbook(t *testing.T, fs afero.Fs, path string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0644))
}

func TestImport(t *testing.T) {
	noColor(t)
	fs := afero.NewMemMapFs()
	useFs(t, fs)

	writeFiles(t, fs, map[string]string{
		"project/" + config.FileName:                       "languages: [fi, sv]\n",
		"project/public/locales/fi/translation.json":       "{\"title\": \"Vanha\\n\"}\n",
		"project/public/locales/fi/draft.translation.json": "{\"intro\": \"luonnos\"}\n",
	})
	writeWorkbook(t, fs, "project/import/kaannokset.xlsx", [][]any{
		{"Key", "fi", "sv"},
		{"title", "Uusi", "Ny"},
		{"intro", "Johdanto", ""},
	})

	out, err := execute(t, "--root", "project", "import")
	require.NoError(t, err)
	assert.Contains(t, out, "fi")

	data, err := afero.ReadFile(fs, "project/public/locales/fi/translation.json")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"intro\": \"Johdanto\",\n  \"title\": \"Uusi\\n\"\n}\n", string(data))

	data, err = afero.ReadFile(fs, "project/public/locales/fi/draft.translation.json")
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}

func TestImportWithoutWorkbook(t *testing.T) {
	dir := t.TempDir()
	useFs(t, afero.NewOsFs())
	writeFiles(t, fsys, map[string]string{
		filepath.Join(dir, config.FileName): "languages: [fi]\n",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "import"), 0755))

	_, err := execute(t, "--root", dir, "import")
	require.ErrorIs(t, err, sheet.ErrNoImportFile)
}

func TestImportRejectsInvalidLanguage(t *testing.T) {
	useFs(t, projectFixture(t))

	_, err := execute(t, "--root", "project", "import", "--file", "x.xlsx", "--lang", "not a language")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid language code")
}

func TestAuthLoginAndStatus(t *testing.T) {
	noColor(t)
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	useFs(t, afero.NewMemMapFs())

	require.NoError(t, authLogin(strings.NewReader("  tgpak_0123456789abcdef\n"), "https://app.tolgee.io", "42"))
	assert.Equal(t, "tgpak_0123456789abcdef", settings.GetAPIKey("app.tolgee.io"))

	// Empty input keeps the existing key.
	require.NoError(t, authLogin(strings.NewReader("\n"), "app.tolgee.io", ""))
	assert.Equal(t, "tgpak_0123456789abcdef", settings.GetAPIKey("app.tolgee.io"))

	var buf bytes.Buffer
	writeAuthStatus(&buf, settings.Load(), "")
	assert.Contains(t, buf.String(), "app.tolgee.io")
	assert.Contains(t, buf.String(), "tgpa...cdef")
	assert.Contains(t, buf.String(), "(project 42)")
	assert.Contains(t, buf.String(), "TOLGEE_API_KEY: not set")

	_, err := execute(t, "auth", "logout")
	require.NoError(t, err)
	assert.Empty(t, settings.Load())
}

func TestAuthLoginWithoutInput(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	err := authLogin(strings.NewReader(""), "app.tolgee.io", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input received")
}
