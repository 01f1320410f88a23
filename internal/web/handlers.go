package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"infracal/internal/crawler"
	"infracal/internal/ical"

	appLog "infracal/internal/log"
)

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "infracal API",
		"endpoints": map[string]string{
			"fetch_pages":    "/crawlers/fetch",
			"extract_events": "/extractors/extract",
			"ical":           "/calendars/ical/{config}",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleCrawlerFetch pulls pages from the crawler export for a config
// and stores them.
func (s *Server) handleCrawlerFetch(w http.ResponseWriter, r *http.Request) {
	cfg := r.URL.Query().Get("config")
	if cfg == "" {
		writeError(w, http.StatusBadRequest, "config query parameter is required")
		return
	}
	limit := queryInt(r, "limit", 100000)

	saved, err := s.pipe.FetchAndStore(r.Context(), cfg, limit)
	if err != nil {
		appLog.Error("crawler fetch failed", err, "config", cfg)
		writeError(w, http.StatusBadGateway, "error fetching pages: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "success",
		"message":     fmt.Sprintf("Fetched and saved %d pages", saved),
		"pages_saved": saved,
		"config":      cfg,
	})
}

// handleDirectFetch renders a single URL headless and stores the result
// as a page, for URLs the crawler service has not exported.
func (s *Server) handleDirectFetch(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}
	cfg := r.URL.Query().Get("config")

	page, err := crawler.FetchPageText(r.Context(), crawler.FetchOptions{
		URL:      url,
		ConfigID: cfg,
		Timeout:  45 * time.Second,
	})
	if err != nil {
		appLog.Error("direct fetch failed", err, "url", url)
		writeError(w, http.StatusBadGateway, "error fetching page: "+err.Error())
		return
	}

	id, err := s.store.UpsertPage(r.Context(), &page)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "error saving page: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"page_id":  id,
		"page_url": page.URL,
		"text_len": len(page.PlainText),
	})
}

// handleRemovePages deletes all pages (and, by cascade, events) for a
// config.
func (s *Server) handleRemovePages(w http.ResponseWriter, r *http.Request) {
	cfg := r.URL.Query().Get("config")
	if cfg == "" {
		writeError(w, http.StatusBadRequest, "config query parameter is required")
		return
	}

	deleted, err := s.store.DeletePagesByConfig(r.Context(), cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "error deleting pages: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"message":       fmt.Sprintf("Deleted %d pages for config=%s", deleted, cfg),
		"pages_deleted": deleted,
		"config":        cfg,
	})
}

// handleExtract runs the extraction pipeline over stored pages.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	configID := r.URL.Query().Get("config_id")
	limit := queryInt(r, "limit", 0)
	save := queryBool(r, "save_to_db", true)

	res, err := s.pipe.Run(r.Context(), configID, limit, save)
	if err != nil {
		appLog.Error("extraction run failed", err, "config_id", configID)
		writeError(w, http.StatusInternalServerError, "error extracting events: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handleICal renders all valid events of a config as a downloadable
// iCalendar document.
func (s *Server) handleICal(w http.ResponseWriter, r *http.Request) {
	configID := mux.Vars(r)["configID"]

	events, err := s.store.ListEventsByConfig(r.Context(), configID, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "error loading events: "+err.Error())
		return
	}
	if len(events) == 0 {
		writeError(w, http.StatusNotFound, "no events found for config_id="+configID)
		return
	}

	doc := ical.Format(events, "infracal-"+configID, s.cfg.Extraction.UIDDomain)

	w.Header().Set("Content-Type", "text/calendar")
	w.Header().Set("Content-Disposition", `attachment; filename=calendar-`+configID+`.ics`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(doc)); err != nil {
		appLog.Error("ical write failed", err, "config_id", configID)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryBool(r *http.Request, key string, def bool) bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
