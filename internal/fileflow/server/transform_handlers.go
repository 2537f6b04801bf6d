package server

import (
	"net/http"

	"fileflow/internal/fileflow/api"
	"fileflow/internal/fileflow/domain"
	"fileflow/internal/fileflow/mappers"
)

func (s *Server) handleTransformSubmit(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	log := s.logger.WithFields("operation", "transform-submit", "kind", kind)

	var req api.TransformRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, log, err)
		return
	}

	job, err := s.engine.Submit(r.Context(), domain.JobKind(kind), req.InputFileIDs, req.Params)
	if err != nil {
		writeError(w, log, err)
		return
	}

	writeJSON(w, http.StatusAccepted, &api.TransformResponse{
		JobID:     job.JobID,
		Status:    string(job.Status),
		StatusURL: "/api/v1/transform/status/" + job.JobID,
	})
}

func (s *Server) handleTransformStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobId")
	log := s.logger.WithFields("operation", "transform-status", "jobId", jobID)

	job, err := s.engine.Job(jobID)
	if err != nil {
		writeError(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, mappers.JobToResponse(job))
}
