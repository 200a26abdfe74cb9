package server

import (
	"net/http"

	"cloudnav/internal/dataurl"
)

// defaultFavicon is a blue rounded square with an "N".
const defaultFavicon = "data:image/svg+xml;base64,PHN2ZyB4bWxucz0iaHR0cDovL3d3dy53My5vcmcvMjAwMC9zdmciIHdpZHRoPSI2NCIsIGhlaWdodD0iNjQiPjxyZWN0IHdpZHRoPSIxMDAlIiBoZWlnaHQ9IjEwMCUiIGZpbGw9IiMzYjgyZjYiIHJ4PSIxOCIvPjx0ZXh0IHg9IjUwJSIgeT0iNTIlIiBkeT0iLjMyZW0iIGZpbGw9IndoaXRlIiBmb250LWZhbWlseT0ic2Fucy1zZXJpZiIgZm9udC1zaXplPSIzMiIgdGV4dC1hbmNob3I9Im1pZGRsZSI+TjwvdGV4dD48L3N2Zz4="

// handleFavicon serves a data-URL favicon inline, redirects to a URL
// favicon, and falls back to the default icon otherwise.
func (s *Server) handleFavicon(w http.ResponseWriter, r *http.Request) {
	settings, found, err := s.repo.GetWebsiteConfig(r.Context())
	if err != nil {
		s.log.WithError(err).Warn("Serving default favicon after config read failure")
	}
	if err == nil && found && settings.Favicon != "" {
		if !dataurl.Is(settings.Favicon) {
			http.Redirect(w, r, settings.Favicon, http.StatusFound)
			return
		}
		if serveDataURL(w, settings.Favicon) {
			return
		}
		s.log.Warn("Stored favicon data url is malformed")
	}
	if !serveDataURL(w, defaultFavicon) {
		http.NotFound(w, r)
	}
}

func serveDataURL(w http.ResponseWriter, u string) bool {
	mimeType, data, err := dataurl.Decode(u)
	if err != nil {
		return false
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	return true
}
