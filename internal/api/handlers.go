// Package api provides HTTP handlers for IntakeFlow endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BTreeMap/IntakeFlow/internal/models"
	"github.com/BTreeMap/IntakeFlow/internal/util"
)

// createSessionRequest is the optional body of POST /sessions. A caller may
// supply its own session id to resume a previously persisted session.
type createSessionRequest struct {
	SessionID string `json:"session_id"`
}

// advanceRequest is the body of POST /sessions/{id}/advance. Answers are
// keyed by field id of the session's current step.
type advanceRequest struct {
	Answers map[string]interface{} `json:"answers"`
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.createSessionHandler: processing create request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.createSessionHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("Server.createSessionHandler: failed to decode JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = util.GenerateSessionID()
	}

	sess, err := s.engine.Open(sessionID)
	if err != nil {
		slog.Warn("Server.createSessionHandler: failed to open session", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	slog.Info("Server.createSessionHandler: session opened", "sessionID", sessionID)
	writeJSONResponse(w, http.StatusCreated, models.Success(s.sessionView(sess.Snapshot())))
}

// sessionsHandler routes /sessions/{id} and its sub-resources.
func (s *Server) sessionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.sessionsHandler: routing", "method", r.Method, "path", r.URL.Path)

	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	segments := strings.Split(path, "/")
	if len(segments) == 0 || segments[0] == "" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Missing session id"))
		return
	}
	sessionID := segments[0]

	if len(segments) == 1 {
		// /sessions/{id}
		switch r.Method {
		case http.MethodGet:
			s.getSessionHandler(w, r, sessionID)
		default:
			w.Header().Set("Allow", http.MethodGet)
			writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		}
		return
	}

	if len(segments) == 2 {
		// /sessions/{id}/{action}
		switch segments[1] {
		case "advance":
			s.requirePost(w, r, sessionID, s.advanceHandler)
		case "back":
			s.requirePost(w, r, sessionID, s.backHandler)
		case "reset":
			s.requirePost(w, r, sessionID, s.resetHandler)
		case "checkpoints":
			s.requireGet(w, r, sessionID, s.checkpointsHandler)
		case "submission":
			s.requireGet(w, r, sessionID, s.submissionHandler)
		default:
			writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown session endpoint"))
		}
		return
	}

	writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown session endpoint"))
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sessionID string)

func (s *Server) requirePost(w http.ResponseWriter, r *http.Request, sessionID string, h sessionHandler) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		return
	}
	h(w, r, sessionID)
}

func (s *Server) requireGet(w http.ResponseWriter, r *http.Request, sessionID string, h sessionHandler) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		return
	}
	h(w, r, sessionID)
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, err := s.engine.Session(sessionID)
	if err != nil {
		slog.Warn("Server.getSessionHandler: session not found", "sessionID", sessionID)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.sessionView(sess.Snapshot())))
}

func (s *Server) advanceHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req advanceRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("Server.advanceHandler: failed to decode JSON", "error", err, "sessionID", sessionID)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
	}

	result, err := s.engine.Advance(sessionID, req.Answers)
	if err != nil {
		s.writeEngineError(w, "advanceHandler", sessionID, err)
		return
	}
	if len(result.Failures) > 0 {
		sess, sessErr := s.engine.Session(sessionID)
		lang := models.LanguageEnglish
		if sessErr == nil {
			lang = sess.Language()
		}
		slog.Debug("Server.advanceHandler: validation failed", "sessionID", sessionID, "failures", len(result.Failures))
		writeJSONResponse(w, http.StatusUnprocessableEntity, models.Invalid(failureViews(result.Failures, lang)))
		return
	}

	slog.Info("Server.advanceHandler: session advanced", "sessionID", sessionID, "step", result.CurrentStep, "completed", result.Completed)
	writeJSONResponse(w, http.StatusOK, models.Success(s.advanceView(sessionID, result)))
}

func (s *Server) backHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	stepID, err := s.engine.Back(sessionID)
	if err != nil {
		s.writeEngineError(w, "backHandler", sessionID, err)
		return
	}
	sess, err := s.engine.Session(sessionID)
	if err != nil {
		s.writeEngineError(w, "backHandler", sessionID, err)
		return
	}
	slog.Debug("Server.backHandler: moved back", "sessionID", sessionID, "step", stepID)
	writeJSONResponse(w, http.StatusOK, models.Success(s.sessionView(sess.Snapshot())))
}

func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	if _, err := s.engine.Reset(sessionID); err != nil {
		s.writeEngineError(w, "resetHandler", sessionID, err)
		return
	}
	sess, err := s.engine.Session(sessionID)
	if err != nil {
		s.writeEngineError(w, "resetHandler", sessionID, err)
		return
	}
	slog.Info("Server.resetHandler: session reset", "sessionID", sessionID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session reset successfully", s.sessionView(sess.Snapshot())))
}

func (s *Server) checkpointsHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	checkpoints, err := s.st.GetCheckpoints(sessionID)
	if err != nil {
		slog.Error("Server.checkpointsHandler: failed to fetch checkpoints", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch checkpoints"))
		return
	}
	slog.Debug("Server.checkpointsHandler: checkpoints fetched", "sessionID", sessionID, "count", len(checkpoints))
	writeJSONResponse(w, http.StatusOK, models.Success(checkpoints))
}

func (s *Server) submissionHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	sub, err := s.st.GetSubmission(sessionID)
	if err != nil {
		slog.Error("Server.submissionHandler: failed to fetch submission", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch submission"))
		return
	}
	if sub == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Submission not available yet"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sub))
}

// healthHandler provides a health check endpoint for monitoring and load balancing
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	healthData := map[string]interface{}{
		"status":        "healthy",
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"open_sessions": s.engine.SessionCount(),
	}
	writeJSONResponse(w, http.StatusOK, healthData)
}

// writeEngineError maps engine errors onto HTTP status codes.
func (s *Server) writeEngineError(w http.ResponseWriter, handler, sessionID string, err error) {
	switch {
	case errors.Is(err, models.ErrSessionNotFound):
		slog.Warn("Server."+handler+": session not found", "sessionID", sessionID)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
	case errors.Is(err, models.ErrSessionAlreadyEnded):
		slog.Warn("Server."+handler+": session already submitted", "sessionID", sessionID)
		writeJSONResponse(w, http.StatusConflict, models.Error("Session already submitted"))
	case errors.Is(err, models.ErrEmptySessionID):
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Session id cannot be empty"))
	default:
		slog.Error("Server."+handler+": internal error", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Internal server error"))
	}
}
