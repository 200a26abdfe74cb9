package server

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"cloudnav/internal/extension"
)

// requestOrigin reconstructs the origin the caller used to reach the server.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = strings.TrimSpace(strings.Split(p, ",")[0])
	}
	host := r.Host
	if h := r.Header.Get("X-Forwarded-Host"); h != "" {
		host = strings.TrimSpace(strings.Split(h, ",")[0])
	}
	return scheme + "://" + host
}

// generateBundle renders the extension for the caller. The domain may be
// overridden with ?domain=; the password is always the caller's own.
func (s *Server) generateBundle(r *http.Request) (extension.Bundle, string, error) {
	browser, err := extension.ParseBrowser(r.URL.Query().Get("browser"))
	if err != nil {
		return extension.Bundle{}, "", err
	}
	settings, _, err := s.repo.GetWebsiteConfig(r.Context())
	if err != nil {
		return extension.Bundle{}, "", err
	}
	cred, _ := credentialFrom(r.Context())

	domainURL := r.URL.Query().Get("domain")
	if domainURL == "" {
		domainURL = requestOrigin(r)
	}
	bundle, err := extension.Generate(extension.Params{
		NavTitle: settings.WithDefaults().NavTitle,
		Domain:   domainURL,
		Password: string(cred),
		Browser:  browser,
	})
	return bundle, settings.Favicon, err
}

func bundleError(w http.ResponseWriter, err error) {
	if errors.Is(err, extension.ErrUnknownBrowser) || errors.Is(err, extension.ErrEmptyDomain) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "failed to generate extension")
}

func (s *Server) handleExtensionBundle(w http.ResponseWriter, r *http.Request) {
	bundle, favicon, err := s.generateBundle(r)
	if err != nil {
		bundleError(w, err)
		return
	}
	archive, err := s.packager.Package(r.Context(), bundle, favicon)
	if err != nil {
		s.log.WithError(err).Error("Extension archive packaging failed")
		writeError(w, http.StatusInternalServerError, "打包失败，请稍后重试")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": extension.ArchiveName}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive.Data)
}

func (s *Server) handleExtensionFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	bundle, favicon, err := s.generateBundle(r)
	if err != nil {
		bundleError(w, err)
		return
	}

	if name == extension.IconFile {
		icon, err := s.packager.Icon(r.Context(), favicon)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, extension.ErrIconUnavailable.Error())
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(icon)
		return
	}

	f, ok := bundle.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "no such extension file")
		return
	}
	ctype := mime.TypeByExtension(path.Ext(name))
	if ctype == "" {
		ctype = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	_, _ = w.Write(f.Content)
}
