// Package settings stages edits to the site settings and the AI provider
// config until they are committed.
//
// A Session is a plain value. Every operation returns the next Session plus
// the effects the caller must perform; nothing here touches the network.
package settings

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/spf13/cast"

	"cloudnav/internal/domain"
	"cloudnav/internal/theme"
)

// Field keys accepted by Set. Site keys use the stored JSON names.
const (
	FieldTitle              = "title"
	FieldNavTitle           = "navTitle"
	FieldFavicon            = "favicon"
	FieldFaviconAPI         = "faviconApi"
	FieldCardStyle          = "cardStyle"
	FieldPasswordExpiryDays = "passwordExpiryDays"
	FieldEnablePinnedSites  = "enablePinnedSites"
	FieldDisplayTheme       = "displayTheme"

	FieldAIProvider = "ai.provider"
	FieldAIKey      = "ai.apiKey"
	FieldAIBaseURL  = "ai.baseUrl"
	FieldAIModel    = "ai.model"
)

var (
	ErrUnknownField = errors.New("unknown settings field")
	ErrInvalidValue = errors.New("invalid settings value")
	ErrClosed       = errors.New("settings session is closed")
)

// Fields lists every key Set accepts, site keys first.
func Fields() []string {
	return []string{
		FieldTitle, FieldNavTitle, FieldFavicon, FieldFaviconAPI, FieldCardStyle,
		FieldPasswordExpiryDays, FieldEnablePinnedSites, FieldDisplayTheme,
		FieldAIProvider, FieldAIKey, FieldAIBaseURL, FieldAIModel,
	}
}

// Effect is work the owner of a Session must carry out.
type Effect interface {
	effect()
}

// PersistWebsite asks for an immediate, detached save of the site settings.
// It is executed at most once and never retried; failures are only logged.
type PersistWebsite struct {
	Settings domain.SiteSettings
}

// CommitConfigs hands both staged configs to the owner's save path.
type CommitConfigs struct {
	AI   domain.AIConfig
	Site domain.SiteSettings
}

// Close ends the session. Staged values not committed are dropped.
type Close struct{}

func (PersistWebsite) effect() {}
func (CommitConfigs) effect()  {}
func (Close) effect()          {}

// Session is the staged copy of the configuration.
type Session struct {
	AI         domain.AIConfig
	Site       domain.SiteSettings
	Icons      []string
	Credential domain.Credential
	closed     bool
}

// Open stages copies of ai and site with defaults substituted for missing
// site fields. When icons is empty a fresh palette is generated from rng.
func Open(ai domain.AIConfig, site domain.SiteSettings, icons []string, cred domain.Credential, rng *rand.Rand) Session {
	s := Session{
		AI:         ai,
		Site:       site.WithDefaults(),
		Credential: cred,
	}
	if len(icons) > 0 {
		s.Icons = append([]string(nil), icons...)
	} else {
		s.Icons = Palette(s.Site.NavTitle, rng)
	}
	return s
}

// Closed reports whether Commit or Discard has run.
func (s Session) Closed() bool {
	return s.closed
}

// Set updates one staged field. Changing passwordExpiryDays with a valid
// credential yields a PersistWebsite effect carrying the full updated settings.
func (s Session) Set(field string, value any) (Session, []Effect, error) {
	if s.closed {
		return s, nil, ErrClosed
	}
	next := s

	switch field {
	case FieldTitle:
		next.Site.Title = cast.ToString(value)
	case FieldNavTitle:
		next.Site.NavTitle = cast.ToString(value)
	case FieldFavicon:
		next.Site.Favicon = strings.TrimSpace(cast.ToString(value))
	case FieldFaviconAPI:
		next.Site.FaviconAPI = strings.TrimSpace(cast.ToString(value))
	case FieldCardStyle:
		v := cast.ToString(value)
		if v != domain.CardStyleSimple && v != domain.CardStyleDetailed {
			return s, nil, fmt.Errorf("%w: cardStyle %q", ErrInvalidValue, v)
		}
		next.Site.CardStyle = v
	case FieldPasswordExpiryDays:
		days, err := cast.ToIntE(value)
		if err != nil || days < 0 {
			return s, nil, fmt.Errorf("%w: passwordExpiryDays %v", ErrInvalidValue, value)
		}
		next.Site.PasswordExpiryDays = domain.IntPtr(days)
	case FieldEnablePinnedSites:
		on, err := cast.ToBoolE(value)
		if err != nil {
			return s, nil, fmt.Errorf("%w: enablePinnedSites %v", ErrInvalidValue, value)
		}
		next.Site.EnablePinnedSites = domain.BoolPtr(on)
	case FieldDisplayTheme:
		v := cast.ToString(value)
		if !theme.Exists(v) {
			return s, nil, fmt.Errorf("%w: displayTheme %q", ErrInvalidValue, v)
		}
		next.Site.DisplayTheme = v
	case FieldAIProvider:
		v := cast.ToString(value)
		if v != domain.ProviderGemini && v != domain.ProviderOpenAI {
			return s, nil, fmt.Errorf("%w: provider %q", ErrInvalidValue, v)
		}
		next.AI.Provider = v
	case FieldAIKey:
		next.AI.APIKey = strings.TrimSpace(cast.ToString(value))
	case FieldAIBaseURL:
		next.AI.BaseURL = strings.TrimSpace(cast.ToString(value))
	case FieldAIModel:
		next.AI.Model = strings.TrimSpace(cast.ToString(value))
	default:
		return s, nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	var effects []Effect
	if field == FieldPasswordExpiryDays && next.Credential.Valid() {
		effects = append(effects, PersistWebsite{Settings: next.Site})
	}
	return next, effects, nil
}

// RegenerateIcons replaces the whole palette.
func (s Session) RegenerateIcons(rng *rand.Rand) Session {
	s.Icons = Palette(s.Site.NavTitle, rng)
	return s
}

// Commit pushes both staged configs together and closes the session.
func (s Session) Commit() (Session, []Effect) {
	if s.closed {
		return s, nil
	}
	s.closed = true
	return s, []Effect{CommitConfigs{AI: s.AI, Site: s.Site}, Close{}}
}

// Discard closes the session without saving.
func (s Session) Discard() (Session, []Effect) {
	if s.closed {
		return s, nil
	}
	s.closed = true
	return s, []Effect{Close{}}
}
