package domain

import "strings"

// AppName is used in the default titles and in the generated extension.
const AppName = "CloudNav"

// Config kinds accepted by the storage endpoint's saveConfig field.
const (
	ConfigKindWebsite = "website"
	ConfigKindAI      = "ai"
)

// Card styles.
const (
	CardStyleSimple   = "simple"
	CardStyleDetailed = "detailed"
)

// AI providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Defaults substituted for missing SiteSettings fields.
const (
	DefaultTitle              = AppName + " - 我的导航"
	DefaultNavTitle           = AppName
	DefaultCardStyle          = CardStyleDetailed
	DefaultPasswordExpiryDays = 7
	DefaultDisplayTheme       = "default"
	DefaultFaviconAPI         = "https://favicon.im/"
)

// SiteSettings is the website configuration persisted under the "website" kind.
//
// PasswordExpiryDays and EnablePinnedSites are pointers so a stored document
// can distinguish "absent" from an explicit zero/false.
type SiteSettings struct {
	Title              string `json:"title"`
	NavTitle           string `json:"navTitle"`
	Favicon            string `json:"favicon"`
	FaviconAPI         string `json:"faviconApi"`
	CardStyle          string `json:"cardStyle"`
	PasswordExpiryDays *int   `json:"passwordExpiryDays,omitempty"`
	EnablePinnedSites  *bool  `json:"enablePinnedSites,omitempty"`
	DisplayTheme       string `json:"displayTheme"`
}

// WithDefaults returns a copy of s in which every missing field is filled from
// the documented defaults. Present fields are never overwritten.
func (s SiteSettings) WithDefaults() SiteSettings {
	out := s
	if out.Title == "" {
		out.Title = DefaultTitle
	}
	if out.NavTitle == "" {
		out.NavTitle = DefaultNavTitle
	}
	if out.CardStyle == "" {
		out.CardStyle = DefaultCardStyle
	}
	if out.DisplayTheme == "" {
		out.DisplayTheme = DefaultDisplayTheme
	}
	if out.FaviconAPI == "" {
		out.FaviconAPI = DefaultFaviconAPI
	}
	if out.PasswordExpiryDays == nil {
		out.PasswordExpiryDays = IntPtr(DefaultPasswordExpiryDays)
	} else {
		out.PasswordExpiryDays = IntPtr(*out.PasswordExpiryDays)
	}
	if out.EnablePinnedSites == nil {
		out.EnablePinnedSites = BoolPtr(false)
	} else {
		out.EnablePinnedSites = BoolPtr(*out.EnablePinnedSites)
	}
	return out
}

// ExpiryDays returns the credential lifetime in days; 0 means never expire.
func (s SiteSettings) ExpiryDays() int {
	if s.PasswordExpiryDays == nil {
		return DefaultPasswordExpiryDays
	}
	return *s.PasswordExpiryDays
}

// PinnedSitesEnabled reports the pinned-sites toggle.
func (s SiteSettings) PinnedSitesEnabled() bool {
	return s.EnablePinnedSites != nil && *s.EnablePinnedSites
}

// FaviconURLFor builds an icon URL for host using the configured favicon API.
func (s SiteSettings) FaviconURLFor(host string) string {
	base := s.FaviconAPI
	if base == "" {
		base = DefaultFaviconAPI
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + host
}

// AIConfig configures the text-generation provider. It is sensitive and only
// ever persisted on the client side.
type AIConfig struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey"`
	BaseURL  string `json:"baseUrl,omitempty"`
	Model    string `json:"model"`
}

// Configured reports whether an API key is present.
func (c AIConfig) Configured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// DefaultAIConfig is the provider configuration used before the user saves one.
func DefaultAIConfig() AIConfig {
	return AIConfig{Provider: ProviderGemini, Model: "gemini-2.5-flash"}
}

// Credential is the shared-secret password sent as x-auth-password.
type Credential string

// Valid reports whether a credential is present. The server is the final judge.
func (c Credential) Valid() bool {
	return strings.TrimSpace(string(c)) != ""
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }
