package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudnav/internal/auth"
	"cloudnav/internal/config"
	"cloudnav/internal/domain"
	"cloudnav/internal/extension"
	"cloudnav/internal/storeclient"
	"cloudnav/internal/theme"
)

// fakeStore is a storage API stand-in that accepts only the test password
// on POST and records every accepted POST body.
type fakeStore struct {
	mu    sync.Mutex
	posts []map[string]json.RawMessage
}

func (f *fakeStore) bodies() []map[string]json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]json.RawMessage(nil), f.posts...)
}

func storageServer(t *testing.T, links []domain.LinkItem, site domain.SiteSettings) (*httptest.Server, *fakeStore) {
	t.Helper()
	store := &fakeStore{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			if r.Header.Get(auth.HeaderName) != testPassword {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
				return
			}
			var body map[string]json.RawMessage
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			store.mu.Lock()
			store.posts = append(store.posts, body)
			store.mu.Unlock()
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		if r.URL.Query().Get("getConfig") == domain.ConfigKindWebsite {
			assert.NoError(t, json.NewEncoder(w).Encode(site))
			return
		}
		assert.NoError(t, json.NewEncoder(w).Encode(map[string]any{"links": links, "categories": []domain.Category{}}))
	}))
	t.Cleanup(srv.Close)
	return srv, store
}

const testPassword = "s3cret"

func testApp(t *testing.T, serverURL string, in string) (*app, *bytes.Buffer) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	out := &bytes.Buffer{}
	return &app{
		cfg: config.Config{
			Client:  config.ClientConfig{ServerURL: serverURL, Password: testPassword},
			Keyring: config.KeyringConfig{Backend: "file", Dir: t.TempDir(), Password: "test"},
		},
		log: log,
		out: out,
		in:  strings.NewReader(in),
	}, out
}

func TestThemesCmd_ListsEveryTheme(t *testing.T) {
	a, out := testApp(t, "", "")
	cmd := newThemesCmd(a)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(theme.All()))
	for i, th := range theme.All() {
		assert.True(t, strings.HasPrefix(lines[i], th.ID), lines[i])
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "(not set)", maskSecret(""))
	assert.Equal(t, "******", maskSecret("abc"))
	assert.Equal(t, "sk-...xyz", maskSecret("sk-1234567890xyz"))
}

func TestAbbreviate(t *testing.T) {
	assert.Equal(t, "short", abbreviate("short", 10))
	assert.Equal(t, "abc...", abbreviate("abcdef", 3))
}

func TestConfirm(t *testing.T) {
	for in, want := range map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "\n": false, "": false, "yes": true} {
		var out bytes.Buffer
		assert.Equal(t, want, confirm(strings.NewReader(in), &out, "Go?"), "%q", in)
		assert.Equal(t, "Go? [y/N] ", out.String())
	}
}

func TestNewRand_SeedIsReproducible(t *testing.T) {
	assert.Equal(t, newRand(7).Uint64(), newRand(7).Uint64())
}

func TestRunEnrich_RequiresAPIKey(t *testing.T) {
	srv, _ := storageServer(t, []domain.LinkItem{{ID: "1", Title: "A", URL: "https://a.com"}}, domain.SiteSettings{})
	a, _ := testApp(t, srv.URL, "")

	err := runEnrich(context.Background(), a, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API Key")
}

func TestRunEnrich_NothingToEnrich(t *testing.T) {
	srv, _ := storageServer(t, []domain.LinkItem{{ID: "1", Title: "A", URL: "https://a.com", Description: "done"}}, domain.SiteSettings{})
	a, out := testApp(t, srv.URL, "")
	store, err := a.aiStore()
	require.NoError(t, err)
	require.NoError(t, store.Save(domain.AIConfig{Provider: "openai", APIKey: "sk-test"}))

	require.NoError(t, runEnrich(context.Background(), a, true))
	assert.Contains(t, out.String(), "所有链接都已有描述")
}

func TestRunEnrich_DeclinedPrompt(t *testing.T) {
	srv, _ := storageServer(t, []domain.LinkItem{{ID: "1", Title: "A", URL: "https://a.com"}}, domain.SiteSettings{})
	a, out := testApp(t, srv.URL, "n\n")
	store, err := a.aiStore()
	require.NoError(t, err)
	require.NoError(t, store.Save(domain.AIConfig{Provider: "openai", APIKey: "sk-test"}))

	require.NoError(t, runEnrich(context.Background(), a, false))
	assert.Contains(t, out.String(), "发现 1 个链接缺少描述")
	assert.Contains(t, out.String(), "Cancelled.")
}

func TestExtensionCmd_WritesArchive(t *testing.T) {
	srv, _ := storageServer(t, nil, domain.SiteSettings{NavTitle: "MyNav"})
	a, out := testApp(t, srv.URL, "")
	dest := filepath.Join(t.TempDir(), "ext.zip")

	cmd := newExtensionCmd(a)
	cmd.SetArgs([]string{"--browser", "firefox", "--out", dest})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(data[:2]))
	assert.Contains(t, out.String(), extension.IconMissingFile)
}

func TestExtensionCmd_SingleFileToStdout(t *testing.T) {
	srv, _ := storageServer(t, nil, domain.SiteSettings{NavTitle: "MyNav"})
	a, out := testApp(t, srv.URL, "")

	cmd := newExtensionCmd(a)
	cmd.SetArgs([]string{"--file", extension.ManifestFile, "--domain", "https://nav.example.com"})
	require.NoError(t, cmd.Execute())

	var m map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &m))
	assert.Equal(t, "MyNav Pro", m["name"])
}

func TestExtensionCmd_UnknownFile(t *testing.T) {
	srv, _ := storageServer(t, nil, domain.SiteSettings{})
	a, _ := testApp(t, srv.URL, "")

	cmd := newExtensionCmd(a)
	cmd.SetArgs([]string{"--file", "nope.js"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown artifact")
}

func TestRunEnrich_MissingCredential(t *testing.T) {
	srv, store := storageServer(t, []domain.LinkItem{{ID: "1", Title: "A", URL: "https://a.com"}}, domain.SiteSettings{})
	a, out := testApp(t, srv.URL, "y\n")
	a.cfg.Client.Password = ""
	keys, err := a.aiStore()
	require.NoError(t, err)
	require.NoError(t, keys.Save(domain.AIConfig{Provider: "openai", APIKey: "sk-test"}))

	err = runEnrich(context.Background(), a, true)
	require.ErrorIs(t, err, storeclient.ErrUnauthorized)
	assert.Contains(t, err.Error(), "re-authenticate")
	assert.Empty(t, store.bodies())
	assert.Empty(t, out.String())
}

func TestRunEnrich_RejectedCredential(t *testing.T) {
	srv, store := storageServer(t, []domain.LinkItem{{ID: "1", Title: "A", URL: "https://a.com"}}, domain.SiteSettings{})
	a, out := testApp(t, srv.URL, "")
	a.cfg.Client.Password = "wrong"

	err := runEnrich(context.Background(), a, true)
	require.ErrorIs(t, err, storeclient.ErrUnauthorized)
	assert.Empty(t, store.bodies())
	assert.Empty(t, out.String())
}

func TestSettingsSet_ImmediateSaveLandsBeforeCommit(t *testing.T) {
	srv, store := storageServer(t, nil, domain.SiteSettings{Title: "Old"})
	a, out := testApp(t, srv.URL, "")

	cmd := newSettingsCmd(a)
	cmd.SetArgs([]string{"set", "passwordExpiryDays=3", "title=New"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Settings saved.")

	var saved []domain.SiteSettings
	for _, body := range store.bodies() {
		if string(body["saveConfig"]) != `"`+domain.ConfigKindWebsite+`"` {
			continue
		}
		var site domain.SiteSettings
		require.NoError(t, json.Unmarshal(body["config"], &site))
		saved = append(saved, site)
	}
	require.Len(t, saved, 2)
	assert.Equal(t, "Old", saved[0].Title)
	assert.Equal(t, 3, saved[0].ExpiryDays())
	assert.Equal(t, "New", saved[1].Title)
	assert.Equal(t, 3, saved[1].ExpiryDays())
}
