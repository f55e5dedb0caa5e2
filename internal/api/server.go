// Package api exposes detection and baseline management over HTTP for
// editor integrations.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/draftscan/internal/detector"
	"github.com/sells-group/draftscan/internal/model"
	"github.com/sells-group/draftscan/internal/scorer"
	"github.com/sells-group/draftscan/internal/store"
)

// maxBodyBytes bounds request bodies; documents larger than this are rejected.
const maxBodyBytes = 8 << 20

// Options configures a Server.
type Options struct {
	AllowedOrigins []string
	RatePerSec     float64
	Burst          int
	UseAutomatic   bool
	UseManual      bool
}

// Server serves the detection API. Baselines are written through to the
// store and mirrored in the detector's table.
type Server struct {
	det     *detector.Detector
	store   store.Store
	opts    Options
	limiter *rate.Limiter
}

// NewServer returns a Server over det and st.
func NewServer(det *detector.Detector, st store.Store, opts Options) *Server {
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 20
	}
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{
		det:     det,
		store:   st,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
	}
}

// Preload copies every stored baseline into the detector's table and
// returns how many were loaded.
func (s *Server) Preload(ctx context.Context) (int, error) {
	baselines, err := s.store.ListBaselines(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "api: preload baselines")
	}
	for _, b := range baselines {
		s.det.UpdateSavedState(b.DocumentID, b.Content)
	}
	return len(baselines), nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(s.rateLimit)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "documents": s.det.Table().Len()})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/documents/{id}/baseline", func(r chi.Router) {
			r.Get("/", s.getBaseline)
			r.Put("/", s.putBaseline)
			r.Delete("/", s.deleteBaseline)
		})
		r.Post("/detect", s.detect)
		r.Post("/score", s.score)
	})

	return r
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type baselineRequest struct {
	Text *string `json:"text"`
}

type baselineResponse struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	RevisionID string `json:"revision_id,omitempty"`
}

func (s *Server) getBaseline(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	text, found, err := s.baseline(r.Context(), id)
	if err != nil {
		zap.L().Error("api: get baseline", zap.String("document", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load baseline")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no baseline for document")
		return
	}
	writeJSON(w, http.StatusOK, baselineResponse{ID: id, Text: text})
}

func (s *Server) putBaseline(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	var req baselineRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Text == nil {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	b, err := s.store.SaveBaseline(r.Context(), id, *req.Text)
	if err != nil {
		zap.L().Error("api: save baseline", zap.String("document", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save baseline")
		return
	}
	s.det.UpdateSavedState(id, *req.Text)

	zap.L().Info("api: baseline saved", zap.String("document", id), zap.String("revision", b.RevisionID))
	writeJSON(w, http.StatusOK, baselineResponse{ID: id, Text: b.Content, RevisionID: b.RevisionID})
}

func (s *Server) deleteBaseline(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteBaseline(r.Context(), id); err != nil {
		zap.L().Error("api: delete baseline", zap.String("document", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete baseline")
		return
	}
	s.det.ClearDocument(id)
	w.WriteHeader(http.StatusNoContent)
}

type detectRequest struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	UseAutomatic *bool  `json:"use_automatic"`
	UseManual    *bool  `json:"use_manual"`
}

// RegionView is a draft region with its display level.
type RegionView struct {
	model.DraftRegion
	Level scorer.Level `json:"level"`
}

type detectResponse struct {
	ID         string       `json:"id"`
	Regions    []RegionView `json:"regions"`
	Actionable []RegionView `json:"actionable"`
}

func (s *Server) detect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	// Pull a stored baseline into the table on first sight of the document.
	if _, _, err := s.baseline(r.Context(), req.ID); err != nil {
		zap.L().Error("api: load baseline", zap.String("document", req.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load baseline")
		return
	}

	useAuto := boolOr(req.UseAutomatic, s.opts.UseAutomatic)
	useManual := boolOr(req.UseManual, s.opts.UseManual)

	doc := model.NewDocument(req.ID, req.Text)
	regions := s.det.DetectDraftRegions(doc, useAuto, useManual)

	writeJSON(w, http.StatusOK, detectResponse{
		ID:         req.ID,
		Regions:    views(regions),
		Actionable: views(s.det.Actionable(regions)),
	})
}

type scoreRequest struct {
	Text string `json:"text"`
}

type scoreResponse struct {
	Confidence float64                   `json:"confidence"`
	Level      scorer.Level              `json:"level"`
	Breakdown  model.ConfidenceBreakdown `json:"breakdown"`
}

func (s *Server) score(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !decode(w, r, &req) {
		return
	}
	res := scorer.Score(req.Text)
	writeJSON(w, http.StatusOK, scoreResponse{
		Confidence: res.Confidence,
		Level:      scorer.LevelOf(res.Confidence),
		Breakdown:  res.Breakdown,
	})
}

// baseline returns the saved state of id, consulting the store when the
// table has none and mirroring what it finds.
func (s *Server) baseline(ctx context.Context, id string) (string, bool, error) {
	if text, ok := s.det.SavedState(id); ok {
		return text, true, nil
	}
	b, err := s.store.GetBaseline(ctx, id)
	if err != nil {
		return "", false, err
	}
	if b == nil {
		return "", false, nil
	}
	s.det.ObserveDocument(id, b.Content, false)
	text, _ := s.det.SavedState(id)
	return text, true, nil
}

func views(regions []model.DraftRegion) []RegionView {
	out := make([]RegionView, 0, len(regions))
	for _, r := range regions {
		out = append(out, RegionView{DraftRegion: r, Level: scorer.LevelOf(r.Confidence)})
	}
	return out
}

func documentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil || strings.TrimSpace(id) == "" {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return "", false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
