package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/nishad/enaimport/internal/models"
	"github.com/nishad/enaimport/internal/runstore"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 500
)

// handleRoot returns API information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	endpoints := map[string]string{
		"health": "/health",
		"runs":   "/api/v1/runs",
	}
	if s.metrics != nil {
		endpoints["metrics"] = "/metrics"
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":        "enaimport",
		"description": "ENA to BioSamples import pipeline",
		"endpoints":   endpoints,
	})
}

// handleHealth pings every configured dependency
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	for name, p := range s.checks {
		if err := p.Ping(ctx); err != nil {
			health["status"] = "unhealthy"
			health[name] = err.Error()
		} else {
			health[name] = "healthy"
		}
	}

	status := http.StatusOK
	if health["status"] != "healthy" {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, health)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := runstore.Filter{
		PipelineName: q.Get("pipeline"),
		Status:       models.RunStatus(q.Get("status")),
		Limit:        defaultRunLimit,
	}
	if f.Status != "" && f.Status != models.RunCompleted && f.Status != models.RunFailed {
		s.writeError(w, http.StatusBadRequest, "status must be COMPLETED or FAILED")
		return
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxRunLimit {
			n = maxRunLimit
		}
		f.Limit = n
	}

	runs, err := s.runs.List(r.Context(), f)
	if err != nil {
		s.log.Error("failed to list runs", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []*models.PipelineRun{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	run, err := s.runs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, runstore.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "Run not found")
		} else {
			s.log.Error("failed to get run", "id", id, "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to get run")
		}
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"run":    run,
		"failed": run.Failed(),
	})
}
