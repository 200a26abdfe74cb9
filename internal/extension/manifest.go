package extension

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Browser selects the manifest compatibility block.
type Browser string

const (
	Chromium Browser = "chromium"
	Firefox  Browser = "firefox"
)

var ErrUnknownBrowser = errors.New("unknown browser family")

// Valid reports whether b is a supported family.
func (b Browser) Valid() bool {
	return b == Chromium || b == Firefox
}

// ParseBrowser maps user input onto a browser family. Chrome and Edge are Chromium.
func ParseBrowser(s string) (Browser, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "chromium", "chrome", "edge":
		return Chromium, nil
	case "firefox":
		return Firefox, nil
	}
	return "", ErrUnknownBrowser
}

const geckoID = "cloudnav@example.com"

type manifest struct {
	ManifestVersion      int                  `json:"manifest_version"`
	Name                 string               `json:"name"`
	Version              string               `json:"version"`
	MinimumChromeVersion string               `json:"minimum_chrome_version"`
	Description          string               `json:"description"`
	Permissions          []string             `json:"permissions"`
	Background           manifestBackground   `json:"background"`
	Action               manifestAction       `json:"action"`
	SidePanel            manifestSidePanel    `json:"side_panel"`
	Icons                map[string]string    `json:"icons"`
	Commands             map[string]command   `json:"commands"`
	BrowserSpecific      *browserSpecificInfo `json:"browser_specific_settings,omitempty"`
}

type manifestBackground struct {
	ServiceWorker string `json:"service_worker"`
}

type manifestAction struct {
	DefaultTitle string `json:"default_title"`
}

type manifestSidePanel struct {
	DefaultPath string `json:"default_path"`
}

type command struct {
	SuggestedKey suggestedKey `json:"suggested_key"`
	Description  string       `json:"description"`
}

type suggestedKey struct {
	Default string `json:"default"`
	Mac     string `json:"mac"`
}

type browserSpecificInfo struct {
	Gecko geckoSettings `json:"gecko"`
}

type geckoSettings struct {
	ID               string `json:"id"`
	StrictMinVersion string `json:"strict_min_version"`
}

func renderManifest(name string, browser Browser) ([]byte, error) {
	m := manifest{
		ManifestVersion:      3,
		Name:                 name,
		Version:              Version,
		MinimumChromeVersion: "116",
		Description:          "CloudNav - 极速侧边栏与智能收藏",
		Permissions: []string{
			"activeTab", "scripting", "sidePanel", "storage",
			"favicon", "contextMenus", "notifications", "tabs",
		},
		Background: manifestBackground{ServiceWorker: BackgroundFile},
		Action:     manifestAction{DefaultTitle: "打开侧边栏 (Ctrl+Shift+E)"},
		SidePanel:  manifestSidePanel{DefaultPath: SidebarHTMLFile},
		Icons:      map[string]string{"128": IconFile},
		Commands: map[string]command{
			"_execute_action": {
				SuggestedKey: suggestedKey{Default: "Ctrl+Shift+E", Mac: "Command+Shift+E"},
				Description:  "打开/关闭 CloudNav 侧边栏",
			},
		},
	}
	if browser == Firefox {
		m.BrowserSpecific = &browserSpecificInfo{
			Gecko: geckoSettings{ID: geckoID, StrictMinVersion: "109.0"},
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
