package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dataquerypro/dataquery/internal/database"
	"github.com/dataquerypro/dataquery/internal/errs"
	"github.com/dataquerypro/dataquery/internal/introspect"
	"github.com/dataquerypro/dataquery/internal/logger"
	"github.com/dataquerypro/dataquery/internal/schema"
)

type submitResponse struct {
	JobID string `json:"jobId"`
}

type diffRequest struct {
	Current schema.Schema `json:"current"`
	Fresh   schema.Schema `json:"fresh"`
}

type connectionsResponse struct {
	Connections []string `json:"connections"`
}

type healthResponse struct {
	Status  string   `json:"status"`
	Version string   `json:"version"`
	Drivers []string `json:"drivers"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: s.version,
		Drivers: database.Drivers(),
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var desc introspect.ConnectionDescriptor
	if err := decodeJSON(w, r, &desc); err != nil {
		_ = writeErr(w, err)
		return
	}

	id, err := s.svc.Submit(r.Context(), desc)
	if err != nil {
		logger.FromContext(r.Context()).WarnWith("introspection rejected", err, nil)
		_ = writeErr(w, err)
		return
	}
	_ = writeJSON(w, http.StatusAccepted, submitResponse{JobID: id})
}

// handleStatus is the polling endpoint. Unknown and expired jobs both answer
// 404 {"error":"not_found"}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Status(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		if errs.IsNotFound(err) {
			_ = writeError(w, http.StatusNotFound, errs.ErrKindNotFound.String(), "")
			return
		}
		_ = writeErr(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetBaseline(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Baseline(r.Context(), chi.URLParam(r, "connectionID"))
	if err != nil {
		_ = writeErr(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "connectionID")

	var sc schema.Schema
	if err := decodeJSON(w, r, &sc); err != nil {
		_ = writeErr(w, err)
		return
	}
	if sc.ConnectionID == "" {
		sc.ConnectionID = id
	}
	if sc.ConnectionID != id {
		_ = writeErr(w, errs.Newf(errs.ErrKindInvalidInput,
			"body connectionId %q does not match path %q", sc.ConnectionID, id))
		return
	}

	if err := s.svc.Accept(r.Context(), sc); err != nil {
		_ = writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleForget(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Forget(r.Context(), chi.URLParam(r, "connectionID")); err != nil {
		_ = writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	ids, err := s.svc.Connections(r.Context())
	if err != nil {
		_ = writeErr(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, connectionsResponse{Connections: ids})
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	var req diffRequest
	if err := decodeJSON(w, r, &req); err != nil {
		_ = writeErr(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, s.svc.Preview(req.Current, req.Fresh))
}
