package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hyperjump/kbase/internal/models"
	"github.com/hyperjump/kbase/internal/search"
	"github.com/hyperjump/kbase/internal/storage"
	"go.uber.org/zap"
)

const defaultBuildsLimit = 20

// queryResponse is the wire form of a retrieval result. Message is what the dialog layer
// should show the user.
type queryResponse struct {
	Status  models.Status `json:"status"`
	Context string        `json:"context,omitempty"`
	Message string        `json:"message"`
	Hits    []*models.Hit `json:"hits"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	requested := req.K
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	k := req.K
	if requested <= 0 {
		// Let the engine apply the configured default.
		k = 0
	}
	s.logger.Debug("query request", zap.String("query", req.Query), zap.Int("k", k))

	result := s.engine.Query(r.Context(), req.Query, k)
	resp := queryResponse{
		Status:  result.Status,
		Context: result.Context,
		Message: result.Message(),
		Hits:    result.Hits,
	}
	if resp.Hits == nil {
		resp.Hits = []*models.Hit{}
	}
	status := http.StatusOK
	if result.Status == models.StatusUnavailable {
		status = http.StatusServiceUnavailable
	}
	s.respondJSON(w, status, resp)
}

type statusResponse struct {
	Engine         search.Stats        `json:"engine"`
	LatestBuild    *models.BuildRecord `json:"latest_build,omitempty"`
	Builds         int64               `json:"builds"`
	DiskUsageBytes int64               `json:"disk_usage_bytes,omitempty"`
	Config         map[string]any      `json:"config,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := statusResponse{Engine: s.engine.Stats()}

	if s.catalog != nil {
		n, err := s.catalog.CountBuilds(ctx)
		if err != nil {
			s.logger.Error("status: count builds failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Builds = n
		latest, err := s.catalog.LatestBuild(ctx)
		switch {
		case err == nil:
			resp.LatestBuild = latest
		case !errors.Is(err, storage.ErrNoBuilds):
			s.logger.Error("status: latest build failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	if s.config != nil {
		resp.Config = s.config.Summary()
		if n, err := storage.SnapshotUsage(s.config.Storage.SnapshotDir, s.config.Storage.CatalogPath); err == nil {
			resp.DiskUsageBytes = n
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBuilds(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.respondError(w, http.StatusNotImplemented, "build catalog not configured")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := queryInt(r, "limit", defaultBuildsLimit)
	if err != nil || limit <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	builds, err := s.catalog.ListBuilds(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list builds failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if builds == nil {
		builds = []*models.BuildRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"builds": builds})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"engine": s.engine.State().String(),
	})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
