package server

import (
	"net/http"

	"github.com/sadopc/courier/internal/apierr"
	"github.com/sadopc/courier/internal/runner"
)

func buildRunnerConfig(id Identity, in runnerStartDTO) (runner.Config, error) {
	tlsConfig, err := in.TLS.toCore()
	if err != nil {
		return runner.Config{}, apierr.Validation("invalid tls config", err)
	}
	return runner.Config{
		TeamID: id.TeamID, ActorID: id.UserID, CollectionID: in.CollectionID,
		EnvironmentID:          in.EnvironmentID,
		IterationCount:         in.IterationCount,
		DelayBetweenRequestsMs: in.DelayBetweenRequestsMs,
		DataFilename:           in.DataFilename,
		DataContent:            []byte(in.DataContent),
		TimeoutMs:              in.TimeoutMs,
		FollowRedirects:        in.FollowRedirects,
		ProxyURL:               in.ProxyURL,
		RecordHistory:          in.RecordHistory,
		TLSConfig:              tlsConfig,
	}, nil
}

// handleRunnerStart implements POST /runner/start: validate + kick off
// a Collection Runner run, returning its id immediately (§4.I, §6).
func (s *Server) handleRunnerStart(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	var in runnerStartDTO
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cfg, err := buildRunnerConfig(id, in)
	if err != nil {
		writeAPIErr(w, err)
		return
	}

	runID, err := s.Runner.Start(r.Context(), cfg)
	if err != nil {
		writeAPIErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, runnerStartResponseDTO{RunID: runID})
}

// handleRunnerStatus implements GET /runner/{id}: current status and
// partial stats, asserting the run belongs to the caller's team.
func (s *Server) handleRunnerStatus(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	runID := r.PathValue("id")

	result, err := s.Runs.Get(r.Context(), runID)
	if err != nil {
		writeAPIErr(w, apierr.NotFound("run not found", err))
		return
	}
	if result.TeamID != id.TeamID {
		writeAPIErr(w, apierr.Authorization("run does not belong to this team", nil))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRunnerCancel implements POST /runner/{id}/cancel: best-effort
// cooperative cancellation via the Run Registry (§4.J). A run this
// process isn't driving (already finished, or owned by another
// process) is not an error — the caller should poll status instead.
func (s *Server) handleRunnerCancel(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	runID := r.PathValue("id")

	result, err := s.Runs.Get(r.Context(), runID)
	if err != nil {
		writeAPIErr(w, apierr.NotFound("run not found", err))
		return
	}
	if result.TeamID != id.TeamID {
		writeAPIErr(w, apierr.Authorization("run does not belong to this team", nil))
		return
	}

	s.Runner.Cancel(runID)
	writeJSON(w, http.StatusAccepted, map[string]bool{"cancelRequested": true})
}

// handleRunnerIterations implements GET /runner/{id}/iterations:
// paginated iteration records.
func (s *Server) handleRunnerIterations(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	runID := r.PathValue("id")

	result, err := s.Runs.Get(r.Context(), runID)
	if err != nil {
		writeAPIErr(w, apierr.NotFound("run not found", err))
		return
	}
	if result.TeamID != id.TeamID {
		writeAPIErr(w, apierr.Authorization("run does not belong to this team", nil))
		return
	}

	limit, offset := pageParams(r)
	iterations, err := s.Runs.ListIterations(r.Context(), runID, limit, offset)
	if err != nil {
		writeAPIErr(w, apierr.Internal("listing iterations", err))
		return
	}
	writeJSON(w, http.StatusOK, iterations)
}
