package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cloudnav/internal/auth"
	"cloudnav/internal/domain"
	"cloudnav/internal/extension"
	"cloudnav/internal/links"
	"cloudnav/internal/storage"
)

const testPassword = "letmein"

type mockRasterizer struct{ mock.Mock }

func (m *mockRasterizer) Rasterize(ctx context.Context, src string, size int) ([]byte, error) {
	args := m.Called(ctx, src, size)
	if b, ok := args.Get(0).([]byte); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

type testEnv struct {
	srv    *httptest.Server
	repo   *storage.BadgerRepository
	raster *mockRasterizer
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repo, err := storage.NewInMemoryBadgerRepository(logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	raster := &mockRasterizer{}
	s := New(Options{
		Repo:     repo,
		Verifier: auth.NewVerifier(testPassword, ""),
		Links:    links.NewService(repo, nil, logger),
		Packager: extension.NewPackager(raster, logger),
		Logger:   logger,
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, repo: repo, raster: raster}
}

func (e *testEnv) do(t *testing.T, method, path, password string, body any) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	require.NoError(t, err)
	if password != "" {
		req.Header.Set(auth.HeaderName, password)
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestGetStorage_SeedsDefaultCategory(t *testing.T) {
	env := setup(t)
	resp := env.do(t, http.MethodGet, "/api/storage", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[storageResponse](t, resp)
	assert.Empty(t, got.Links)
	require.Len(t, got.Categories, 1)
	assert.Equal(t, domain.DefaultCategoryID, got.Categories[0].ID)
}

func TestGetStorage_HidesLockedCategoriesWithoutCredential(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	require.NoError(t, env.repo.SaveData(ctx,
		[]domain.LinkItem{
			{ID: "1", URL: "https://a.com", CategoryID: "common"},
			{ID: "2", URL: "https://b.com", CategoryID: "secret"},
		},
		[]domain.Category{{ID: "common", Name: "C"}, {ID: "secret", Name: "S", Password: "x"}},
	))

	anon := decode[storageResponse](t, env.do(t, http.MethodGet, "/api/storage", "", nil))
	require.Len(t, anon.Links, 1)
	assert.Equal(t, "1", anon.Links[0].ID)
	for _, c := range anon.Categories {
		assert.Empty(t, c.Password)
	}

	full := decode[storageResponse](t, env.do(t, http.MethodGet, "/api/storage", testPassword, nil))
	assert.Len(t, full.Links, 2)
	assert.Equal(t, "x", full.Categories[1].Password)
}

func TestPostStorage_RequiresPassword(t *testing.T) {
	env := setup(t)
	body := map[string]any{"saveConfig": "website", "config": map[string]any{"title": "T"}}

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/storage", "", body).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/storage", "wrong", body).StatusCode)
}

func TestSaveConfig_Website(t *testing.T) {
	env := setup(t)
	body := map[string]any{"saveConfig": "website", "config": map[string]any{"title": "T", "passwordExpiryDays": 0}}

	resp := env.do(t, http.MethodPost, "/api/storage", testPassword, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[domain.SiteSettings](t, env.do(t, http.MethodGet, "/api/storage?getConfig=website", "", nil))
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, 0, got.ExpiryDays())
	assert.Equal(t, domain.DefaultNavTitle, got.NavTitle)

	check := decode[authResponse](t, env.do(t, http.MethodPost, "/api/storage", testPassword, map[string]bool{"authOnly": true}))
	assert.True(t, check.Success)
	assert.Equal(t, 0, check.PasswordExpiryDays)
}

func TestSaveConfig_Rejections(t *testing.T) {
	env := setup(t)
	cases := map[string]map[string]any{
		"ai kind":        {"saveConfig": "ai", "config": map[string]any{"apiKey": "k"}},
		"unknown kind":   {"saveConfig": "colours", "config": map[string]any{}},
		"bad card style": {"saveConfig": "website", "config": map[string]any{"cardStyle": "huge"}},
		"negative days":  {"saveConfig": "website", "config": map[string]any{"passwordExpiryDays": -2}},
		"unknown theme":  {"saveConfig": "website", "config": map[string]any{"displayTheme": "neon"}},
		"no lists":       {},
	}
	for name, body := range cases {
		resp := env.do(t, http.MethodPost, "/api/storage", testPassword, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, name)
	}
}

func TestSaveData_ReplacesAndValidates(t *testing.T) {
	env := setup(t)

	ok := map[string]any{
		"links": []domain.LinkItem{
			{ID: "1", URL: "https://a.com", CategoryID: "common"},
			{ID: "2", URL: "https://b.com", CategoryID: domain.PinnedCategoryID},
		},
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/storage", testPassword, ok).StatusCode)

	dup := map[string]any{"links": []domain.LinkItem{{ID: "1", CategoryID: "common"}, {ID: "1", CategoryID: "common"}}}
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/storage", testPassword, dup).StatusCode)

	orphan := map[string]any{"categories": []domain.Category{{ID: "other"}}}
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/storage", testPassword, orphan).StatusCode)

	links, _, err := env.repo.GetData(context.Background())
	require.NoError(t, err)
	assert.Len(t, links, 2)
}

func TestCreateLink(t *testing.T) {
	env := setup(t)
	body := map[string]string{"title": "A", "url": "https://a.com/", "categoryId": "common"}

	resp := env.do(t, http.MethodPost, "/api/link", testPassword, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := decode[createLinkResponse](t, resp)
	assert.False(t, first.Duplicate)
	assert.Equal(t, "https://favicon.im/a.com", first.Link.Icon)

	body["url"] = "HTTPS://A.COM"
	second := decode[createLinkResponse](t, env.do(t, http.MethodPost, "/api/link", testPassword, body))
	assert.True(t, second.Duplicate)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/link", testPassword, map[string]string{"url": "nope"}).StatusCode)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/link", testPassword, map[string]string{"url": "https://a.com", "categoryId": "ghost"}).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/link", "", body).StatusCode)
}

func TestStatsAndThemes(t *testing.T) {
	env := setup(t)
	require.NoError(t, env.repo.SaveData(context.Background(), []domain.LinkItem{
		{ID: "1", CategoryID: "common", VisitCount: 1, LastVisitedAt: 10},
		{ID: "2", CategoryID: "common", VisitCount: 5, LastVisitedAt: 20},
	}, nil))

	stats := decode[domain.VisitStats](t, env.do(t, http.MethodGet, "/api/stats", "", nil))
	assert.Equal(t, 6, stats.TotalVisits)
	assert.Equal(t, "2", stats.Ranked[0].ID)
	assert.EqualValues(t, 20, stats.LastVisitedAt)

	themes := decode[[]map[string]any](t, env.do(t, http.MethodGet, "/api/themes", "", nil))
	assert.NotEmpty(t, themes)
	fallback := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/themes/does-not-exist", "", nil))
	assert.Equal(t, "default", fallback["id"])
}

func TestFavicon(t *testing.T) {
	env := setup(t)
	client := env.srv.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	get := func() *http.Response {
		resp, err := client.Get(env.srv.URL + "/favicon.ico")
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	resp := get()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	assert.Equal(t, "public, max-age=3600", resp.Header.Get("Cache-Control"))

	ctx := context.Background()
	require.NoError(t, env.repo.SaveWebsiteConfig(ctx, domain.SiteSettings{Favicon: "https://cdn.example.com/f.png"}))
	resp = get()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://cdn.example.com/f.png", resp.Header.Get("Location"))

	require.NoError(t, env.repo.SaveWebsiteConfig(ctx, domain.SiteSettings{Favicon: "data:image/png;base64,iVBORw0KGgo="}))
	resp = get()
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestExtensionBundle(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	require.NoError(t, env.repo.SaveWebsiteConfig(ctx, domain.SiteSettings{NavTitle: "My", Favicon: "https://cdn.example.com/f.png"}))
	env.raster.On("Rasterize", mock.Anything, "https://cdn.example.com/f.png", extension.IconSize).Return([]byte("PNG"), nil).Once()

	resp := env.do(t, http.MethodGet, "/api/extension/bundle.zip?browser=firefox", testPassword, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), extension.ArchiveName)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := map[string]*zip.File{}
	for _, f := range zr.File {
		names[f.Name] = f
	}
	assert.Contains(t, names, extension.IconFile)
	assert.NotContains(t, names, extension.IconMissingFile)

	rc, err := names[extension.BackgroundFile].Open()
	require.NoError(t, err)
	bg, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Contains(t, string(bg), env.srv.URL)
	assert.Contains(t, string(bg), testPassword)

	env.raster.AssertExpectations(t)
}

func TestExtensionFiles(t *testing.T) {
	env := setup(t)
	require.NoError(t, env.repo.SaveWebsiteConfig(context.Background(), domain.SiteSettings{Favicon: "https://x/f.svg"}))
	env.raster.On("Rasterize", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("cors"))

	resp := env.do(t, http.MethodGet, "/api/extension/files/manifest.json", testPassword, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json"))

	resp = env.do(t, http.MethodGet, "/api/extension/files/icon.png", testPassword, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/extension/files/evil.sh", testPassword, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/extension/files/manifest.json?browser=safari", testPassword, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	env := setup(t)
	env.do(t, http.MethodGet, "/api/themes", "", nil)

	resp := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `cloudnav_http_requests_total{method="GET",route="/api/themes",status="200"} 1`)
}
