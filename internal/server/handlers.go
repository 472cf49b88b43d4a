package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dobromatch/dobromatch/internal/utils"
	"github.com/dobromatch/dobromatch/pkg/events"
	"github.com/dobromatch/dobromatch/pkg/extract"
	"github.com/dobromatch/dobromatch/pkg/search"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, q search.Query) (search.Result, bool) {
	res, err := s.Engine.SearchSource(r.Context(), q, s.Source)
	if err != nil {
		utils.Log.Errorf("search failed: %v", err)
		if errors.Is(err, search.ErrDatasetUnavailable) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return search.Result{}, false
	}
	return res.WithMessage(), true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	// Parse query params for filtering
	v := r.URL.Query()
	q := search.Query{
		City:          v.Get("city"),
		Date:          v.Get("date"),
		Time:          v.Get("time"),
		Text:          v.Get("text"),
		WindowMinutes: s.DefaultWindow,
		MaxResults:    s.DefaultMax,
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"window", &q.WindowMinutes}, {"max", &q.MaxResults}} {
		raw := v.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid "+p.name, http.StatusBadRequest)
			return
		}
		*p.dst = n
	}

	res, ok := s.runSearch(w, r, q)
	if !ok {
		return
	}
	if v.Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(res.Text()))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type AskRequest struct {
	Text string `json:"text"`
}

type AskResponse struct {
	Fields extract.Fields `json:"fields"`
	search.Result
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if s.Extractor == nil {
		http.Error(w, "query extraction is not configured", http.StatusNotImplemented)
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	fields, err := s.Extractor.Extract(r.Context(), req.Text)
	if err != nil {
		utils.Log.Warnf("extraction failed: %v", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	res, ok := s.runSearch(w, r, search.Query{
		City:          fields.City,
		Date:          fields.Date,
		Time:          fields.TimeStart,
		Text:          req.Text,
		WindowMinutes: s.DefaultWindow,
		MaxResults:    s.DefaultMax,
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, AskResponse{Fields: fields, Result: res})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.Stats == nil {
		http.Error(w, "statistics need a catalogue (--db)", http.StatusNotFound)
		return
	}
	stats, err := s.Stats.GetStats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{"status": "ok"}
	if c, ok := s.Source.(*events.Cache); ok {
		loadedAt, n := c.LoadedAt()
		body["events"] = n
		if !loadedAt.IsZero() {
			body["loaded_at"] = loadedAt
		}
	}
	writeJSON(w, http.StatusOK, body)
}
