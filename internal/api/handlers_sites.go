package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docsite/internal/export"
	"github.com/dgallion1/docsite/internal/sitestore"
)

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	limit := 200
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	sites, err := s.sites.List(r.Context(), limit)
	if err != nil {
		jsonError(w, "failed to list sites: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sites": sites})
}

func (s *Server) handleGetSite(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	site, ok := s.loadSite(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	if err := export.Write(w, site.Model, format); err != nil {
		s.log.Error("write site", "site_id", site.ID, "error", err)
	}
}

func (s *Server) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "siteID")
	err := s.sites.Delete(r.Context(), id)
	if errors.Is(err, sitestore.ErrNotFound) {
		jsonError(w, "site not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to delete site: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"site_id": id, "deleted": true})
}

func (s *Server) handleHomePreview(w http.ResponseWriter, r *http.Request) {
	site, ok := s.loadSite(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.preview.Home(w, site.Model); err != nil {
		s.log.Error("render home preview", "site_id", site.ID, "error", err)
	}
}

func (s *Server) handleItemPreview(w http.ResponseWriter, r *http.Request) {
	site, ok := s.loadSite(w, r)
	if !ok {
		return
	}
	section, ok := site.Model.Section(chi.URLParam(r, "section"))
	if !ok {
		jsonError(w, "section not found", http.StatusNotFound)
		return
	}
	item, ok := section.Item(chi.URLParam(r, "item"))
	if !ok {
		jsonError(w, "item not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.preview.Item(w, site.Model, section, item); err != nil {
		s.log.Error("render item preview", "site_id", site.ID, "error", err)
	}
}

// loadSite fetches the site named in the route and answers the error itself.
func (s *Server) loadSite(w http.ResponseWriter, r *http.Request) (*sitestore.Site, bool) {
	site, err := s.sites.Get(r.Context(), chi.URLParam(r, "siteID"))
	if errors.Is(err, sitestore.ErrNotFound) {
		jsonError(w, "site not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		jsonError(w, "failed to load site: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return site, true
}
