package settings

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudnav/internal/domain"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

func decodeIcon(t *testing.T, icon string) string {
	t.Helper()
	const prefix = "data:image/svg+xml;base64,"
	require.True(t, strings.HasPrefix(icon, prefix))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(icon, prefix))
	require.NoError(t, err)
	return string(raw)
}

var gradientRe = regexp.MustCompile(`linearGradient id="(g_[0-9a-z]{9})"`)

func TestPalette_DistinctIconsAndGradientIDs(t *testing.T) {
	icons := Palette("导航", seeded(1))
	require.Len(t, icons, PaletteSize)

	seenIcons := map[string]bool{}
	seenIDs := map[string]bool{}
	for _, icon := range icons {
		assert.False(t, seenIcons[icon])
		seenIcons[icon] = true

		svg := decodeIcon(t, icon)
		assert.Contains(t, svg, ">导</text>")
		m := gradientRe.FindStringSubmatch(svg)
		require.Len(t, m, 2)
		assert.False(t, seenIDs[m[1]])
		seenIDs[m[1]] = true
		assert.Contains(t, svg, `fill="url(#`+m[1]+`)"`)
	}
}

func TestPalette_HuesSpreadAcrossArc(t *testing.T) {
	icons := Palette("x", seeded(2))
	assert.Contains(t, decodeIcon(t, icons[0]), `stop-color="hsl(20.0,`)
	assert.Contains(t, decodeIcon(t, icons[11]), `stop-color="hsl(276.7,`)
}

func TestPalette_SeededIsReproducible(t *testing.T) {
	assert.Equal(t, Palette("A", seeded(7)), Palette("A", seeded(7)))
	assert.NotEqual(t, Palette("A", seeded(7)), Palette("A", seeded(8)))
}

func TestMonogram(t *testing.T) {
	assert.Equal(t, "Nav", Monogram(""))
	assert.Equal(t, "Nav", Monogram("CloudNav"))
	assert.Equal(t, "Nav", Monogram("z"))
	assert.Equal(t, "云", Monogram("云导航"))
	assert.Equal(t, "7", Monogram("7days"))
}

func TestOpen_FillsDefaultsAndPalette(t *testing.T) {
	s := Open(domain.DefaultAIConfig(), domain.SiteSettings{NavTitle: "我的"}, nil, "", seeded(1))
	assert.Equal(t, domain.DefaultTitle, s.Site.Title)
	assert.Equal(t, "我的", s.Site.NavTitle)
	assert.Equal(t, domain.DefaultPasswordExpiryDays, s.Site.ExpiryDays())
	assert.False(t, s.Site.PinnedSitesEnabled())
	assert.Len(t, s.Icons, PaletteSize)
	assert.Contains(t, decodeIcon(t, s.Icons[0]), ">我</text>")

	kept := Open(domain.AIConfig{}, domain.SiteSettings{}, []string{"icon"}, "", seeded(1))
	assert.Equal(t, []string{"icon"}, kept.Icons)
}

func TestOpen_DoesNotAliasInput(t *testing.T) {
	days := 3
	site := domain.SiteSettings{PasswordExpiryDays: &days}
	s := Open(domain.AIConfig{}, site, nil, "", seeded(1))
	days = 99
	assert.Equal(t, 3, s.Site.ExpiryDays())
}

func TestSet_StagesWithoutEffects(t *testing.T) {
	s := Open(domain.AIConfig{}, domain.SiteSettings{}, nil, "pw", seeded(1))

	next, effects, err := s.Set(FieldCardStyle, "simple")
	require.NoError(t, err)
	assert.Empty(t, effects)
	assert.Equal(t, "simple", next.Site.CardStyle)
	assert.Equal(t, domain.DefaultCardStyle, s.Site.CardStyle)

	next, _, err = next.Set(FieldEnablePinnedSites, "true")
	require.NoError(t, err)
	assert.True(t, next.Site.PinnedSitesEnabled())

	next, _, err = next.Set(FieldAIKey, " key ")
	require.NoError(t, err)
	assert.Equal(t, "key", next.AI.APIKey)
}

func TestSet_PasswordExpiryPersistsImmediately(t *testing.T) {
	s := Open(domain.AIConfig{}, domain.SiteSettings{Title: "T"}, nil, "pw", seeded(1))

	next, effects, err := s.Set(FieldPasswordExpiryDays, "0")
	require.NoError(t, err)
	require.Len(t, effects, 1)
	persist, ok := effects[0].(PersistWebsite)
	require.True(t, ok)
	assert.Equal(t, 0, persist.Settings.ExpiryDays())
	assert.Equal(t, "T", persist.Settings.Title)
	assert.Equal(t, 0, next.Site.ExpiryDays())

	anon := Open(domain.AIConfig{}, domain.SiteSettings{}, nil, "", seeded(1))
	_, effects, err = anon.Set(FieldPasswordExpiryDays, 30)
	require.NoError(t, err)
	assert.Empty(t, effects)
}

func TestSet_Rejects(t *testing.T) {
	s := Open(domain.AIConfig{}, domain.SiteSettings{}, nil, "pw", seeded(1))
	for field, value := range map[string]any{
		FieldCardStyle:          "fancy",
		FieldPasswordExpiryDays: -1,
		FieldDisplayTheme:       "nope",
		FieldAIProvider:         "claude",
		FieldEnablePinnedSites:  "maybe",
	} {
		_, effects, err := s.Set(field, value)
		assert.ErrorIs(t, err, ErrInvalidValue, field)
		assert.Empty(t, effects)
	}
	_, _, err := s.Set("colour", "red")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestCommitAndDiscard(t *testing.T) {
	s := Open(domain.AIConfig{APIKey: "k"}, domain.SiteSettings{}, nil, "pw", seeded(1))
	s, _, _ = s.Set(FieldTitle, "New")

	closed, effects := s.Commit()
	require.Len(t, effects, 2)
	commit, ok := effects[0].(CommitConfigs)
	require.True(t, ok)
	assert.Equal(t, "New", commit.Site.Title)
	assert.Equal(t, "k", commit.AI.APIKey)
	assert.IsType(t, Close{}, effects[1])
	assert.True(t, closed.Closed())

	_, _, err := closed.Set(FieldTitle, "x")
	assert.ErrorIs(t, err, ErrClosed)

	_, effects = s.Discard()
	assert.Equal(t, []Effect{Close{}}, effects)
}

func TestRegenerateIcons_ReplacesPalette(t *testing.T) {
	s := Open(domain.AIConfig{}, domain.SiteSettings{}, nil, "", seeded(1))
	r := s.RegenerateIcons(seeded(2))
	assert.Len(t, r.Icons, PaletteSize)
	assert.NotEqual(t, s.Icons, r.Icons)
}

type fakeSaver struct {
	mu    sync.Mutex
	calls []domain.SiteSettings
	err   error
}

func (f *fakeSaver) SaveConfig(_ context.Context, kind string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if kind == domain.ConfigKindWebsite {
		f.calls = append(f.calls, payload.(domain.SiteSettings))
	}
	return f.err
}

type fakeAIStore struct {
	saved *domain.AIConfig
	err   error
}

func (f *fakeAIStore) Save(cfg domain.AIConfig) error {
	f.saved = &cfg
	return f.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestRunner_DetachedPersistSwallowsFailure(t *testing.T) {
	saver := &fakeSaver{err: errors.New("offline")}
	r := NewRunner(saver, &fakeAIStore{}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	closed, err := r.Run(ctx, []Effect{PersistWebsite{Settings: domain.SiteSettings{Title: "T"}}})
	cancel()
	require.NoError(t, err)
	assert.False(t, closed)

	r.Wait()
	require.Len(t, saver.calls, 1)
	assert.Equal(t, "T", saver.calls[0].Title)
}

func TestRunner_CommitSurfacesFailure(t *testing.T) {
	ai := &fakeAIStore{}
	r := NewRunner(&fakeSaver{err: errors.New("500")}, ai, quietLogger())

	closed, err := r.Run(context.Background(), []Effect{CommitConfigs{AI: domain.AIConfig{APIKey: "k"}}, Close{}})
	assert.True(t, closed)
	assert.ErrorIs(t, err, ErrCommitFailed)
	require.NotNil(t, ai.saved)
	assert.Equal(t, "k", ai.saved.APIKey)
}

func TestRunner_CommitSucceeds(t *testing.T) {
	saver := &fakeSaver{}
	r := NewRunner(saver, &fakeAIStore{}, quietLogger())
	_, err := r.Run(context.Background(), []Effect{CommitConfigs{Site: domain.SiteSettings{Title: "ok"}}})
	require.NoError(t, err)
	assert.Len(t, saver.calls, 1)
}
