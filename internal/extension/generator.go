// Package extension generates the browser-extension bundle that saves pages
// into the dashboard through the same HTTP API the dashboard uses.
//
// Text artifacts are a pure function of their inputs; only the icon depends
// on fetching the configured favicon.
package extension

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"cloudnav/internal/auth"
	"cloudnav/internal/domain"
)

// Artifact names inside the bundle.
const (
	ManifestFile    = "manifest.json"
	BackgroundFile  = "background.js"
	SidebarHTMLFile = "sidebar.html"
	SidebarJSFile   = "sidebar.js"
	IconFile        = "icon.png"
	IconMissingFile = "icon_missing.txt"

	ArchiveName = "CloudNav-Ext.zip"
)

// Version is stamped into the manifest and the background script header.
const Version = "7.6"

// IconSize is the edge length of the rasterised icon.
const IconSize = 128

// faviconFetchURL is prefixed to the url-encoded page origin when a saved link has no icon.
const faviconFetchURL = "https://t2.gstatic.com/faviconV2?client=SOCIAL&type=FAVICON&fallback_opts=TYPE,SIZE,URL&url="

var ErrEmptyDomain = errors.New("extension api domain is empty")

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("extension").ParseFS(templateFS, "templates/*.tmpl"))

// Params are the generator inputs.
type Params struct {
	// NavTitle names the extension; empty falls back to the app name.
	NavTitle string
	// Domain is the API origin captured at generation time, e.g. https://nav.example.com.
	Domain string
	// Password is the session credential baked into the scripts.
	Password string
	Browser  Browser
}

// File is one generated artifact.
type File struct {
	Name    string
	Content []byte
}

// Bundle holds the text artifacts in a fixed order.
type Bundle struct {
	Files []File
}

// Get returns the named artifact.
func (b Bundle) Get(name string) (File, bool) {
	for _, f := range b.Files {
		if f.Name == name {
			return f, true
		}
	}
	return File{}, false
}

// Names lists the artifact names in bundle order.
func (b Bundle) Names() []string {
	names := make([]string, len(b.Files))
	for i, f := range b.Files {
		names[i] = f.Name
	}
	return names
}

type templateData struct {
	Version            string
	Name               string
	Domain             string
	Password           string
	CacheKey           string
	PortName           string
	RootMenuID         string
	MenuTitle          string
	DuplicateMenuTitle string
	DefaultCategoryID  string
	FaviconFetchURL    string
	AuthHeader         string
	IconFile           string
	SidebarScript      string
}

// Generate renders manifest.json, background.js, sidebar.html and sidebar.js.
// Identical params always produce byte-identical files.
func Generate(p Params) (Bundle, error) {
	domainURL := strings.TrimRight(strings.TrimSpace(p.Domain), "/")
	if domainURL == "" {
		return Bundle{}, ErrEmptyDomain
	}
	if p.Browser == "" {
		p.Browser = Chromium
	}
	if !p.Browser.Valid() {
		return Bundle{}, fmt.Errorf("%w: %q", ErrUnknownBrowser, p.Browser)
	}

	name := extensionName(p.NavTitle)
	manifest, err := renderManifest(name, p.Browser)
	if err != nil {
		return Bundle{}, err
	}

	data := templateData{
		Version:            Version,
		Name:               name,
		Domain:             domainURL,
		Password:           p.Password,
		CacheKey:           "cloudnav_data",
		PortName:           "cloudnav_sidebar",
		RootMenuID:         "cloudnav_root",
		MenuTitle:          "⚡ 保存到 CloudNav",
		DuplicateMenuTitle: "⚠️ 已存在 - 保存到 CloudNav",
		DefaultCategoryID:  domain.DefaultCategoryID,
		FaviconFetchURL:    faviconFetchURL,
		AuthHeader:         auth.HeaderName,
		IconFile:           IconFile,
		SidebarScript:      SidebarJSFile,
	}

	bundle := Bundle{Files: []File{{Name: ManifestFile, Content: manifest}}}
	for _, f := range []struct{ name, tmpl string }{
		{BackgroundFile, "background.js.tmpl"},
		{SidebarHTMLFile, "sidebar.html.tmpl"},
		{SidebarJSFile, "sidebar.js.tmpl"},
	} {
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, f.tmpl, data); err != nil {
			return Bundle{}, fmt.Errorf("render %s: %w", f.name, err)
		}
		bundle.Files = append(bundle.Files, File{Name: f.name, Content: buf.Bytes()})
	}
	return bundle, nil
}

func extensionName(navTitle string) string {
	if strings.TrimSpace(navTitle) == "" {
		navTitle = domain.AppName
	}
	return navTitle + " Pro"
}
