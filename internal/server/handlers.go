package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/anoncore/anoncore/internal/audit"
	"github.com/anoncore/anoncore/internal/engine"
	"github.com/anoncore/anoncore/internal/mapping"
	"github.com/anoncore/anoncore/internal/session"
	"github.com/anoncore/anoncore/internal/websocket"
)

// anonymizeRequest is the body of POST /v1/anonymize. SessionID optionally
// names a stored session whose forced and ignored lists are merged with the
// request-level ones.
type anonymizeRequest struct {
	Text           string          `json:"text"`
	SessionID      string          `json:"sessionId,omitempty"`
	ForcedEntities []engine.Entity `json:"forcedEntities,omitempty"`
	IgnoredValues  []string        `json:"ignoredValues,omitempty"`
}

type anonymizeResponse struct {
	OriginalText      string          `json:"originalText"`
	PseudonymizedText string          `json:"pseudonymizedText"`
	EntitiesFound     []engine.Entity `json:"entitiesFound"`
	ProcessingMS      float64         `json:"processingMs"`
}

type reverseRequest struct {
	Text    string          `json:"text"`
	Mapping []engine.Entity `json:"mapping"`
}

type reverseResponse struct {
	OriginalText string  `json:"originalText"`
	ProcessingMS float64 `json:"processingMs"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	log := s.logger.WithRequestID(requestID)

	var req anonymizeRequest
	if err := decodeJSON(w, r, s.config.Server.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_request", err.Error())
		return
	}

	// Empty input is a caller error; the engine is never invoked for it.
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "empty_text", "text must not be empty")
		return
	}

	forced := req.ForcedEntities
	ignored := req.IgnoredValues
	if req.SessionID != "" {
		state, err := s.sessions.Get(r.Context(), req.SessionID)
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			log.Error("Session lookup failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "session_unavailable", "")
			return
		}
		if state != nil {
			forced = append(append([]engine.Entity{}, state.ForcedEntities...), forced...)
			ignored = append(append([]string{}, state.IgnoredValues...), ignored...)
		}
	}

	start := time.Now()
	result, err := s.engine.Anonymize(req.Text, forced, ignored)
	if err != nil {
		log.Error("Anonymization failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "anonymization_failed", err.Error())
		return
	}
	elapsed := time.Since(start)

	log.LogRun(string(engine.ModeAnon), len(result.OriginalText), len(result.PseudonymizedText), len(result.EntitiesFound), elapsed)
	s.broadcastRun(requestID, engine.ModeAnon, result.EntitiesFound, len(result.OriginalText), len(result.PseudonymizedText), elapsed)
	s.recordAudit(requestID, engine.ModeAnon, result.OriginalText, result.EntitiesFound, elapsed)

	writeJSON(w, http.StatusOK, anonymizeResponse{
		OriginalText:      result.OriginalText,
		PseudonymizedText: result.PseudonymizedText,
		EntitiesFound:     result.EntitiesFound,
		ProcessingMS:      float64(elapsed.Nanoseconds()) / 1e6,
	})
}

func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	log := s.logger.WithRequestID(requestID)

	var req reverseRequest
	if err := decodeJSON(w, r, s.config.Server.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_request", err.Error())
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "empty_text", "text must not be empty")
		return
	}

	// A missing mapping and a malformed one are distinct caller errors;
	// neither may produce output with unresolved placeholders.
	if err := mapping.Validate(req.Mapping); err != nil {
		switch {
		case errors.Is(err, engine.ErrEmptyMapping):
			writeError(w, http.StatusBadRequest, "empty_mapping", "mapping must contain at least one entity")
		default:
			writeError(w, http.StatusBadRequest, "malformed_mapping", err.Error())
		}
		return
	}

	start := time.Now()
	restored, err := s.engine.Reverse(req.Text, req.Mapping)
	if err != nil {
		log.Error("Reversal failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, "reversal_failed", err.Error())
		return
	}
	elapsed := time.Since(start)

	log.LogRun(string(engine.ModeRevert), len(req.Text), len(restored), len(req.Mapping), elapsed)
	s.broadcastRun(requestID, engine.ModeRevert, req.Mapping, len(req.Text), len(restored), elapsed)
	s.recordAudit(requestID, engine.ModeRevert, req.Text, req.Mapping, elapsed)

	writeJSON(w, http.StatusOK, reverseResponse{
		OriginalText: restored,
		ProcessingMS: float64(elapsed.Nanoseconds()) / 1e6,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	state, err := s.sessions.Get(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session_not_found", "")
		return
	}
	if err != nil {
		s.logger.Error("Session lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "session_unavailable", "")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handlePutSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var state session.State
	if err := decodeJSON(w, r, s.config.Server.MaxBodyBytes, &state); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_request", err.Error())
		return
	}

	if err := s.sessions.Put(r.Context(), id, &state); err != nil {
		s.logger.Error("Session store failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "session_unavailable", "")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.sessions.Delete(r.Context(), id); err != nil {
		s.logger.Error("Session delete failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "session_unavailable", "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// broadcastRun publishes a content-free run summary to dashboard clients.
func (s *Server) broadcastRun(requestID string, mode engine.Mode, entities []engine.Entity, inputBytes, outputBytes int, elapsed time.Duration) {
	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeRunCompleted,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data: websocket.RunEvent{
			RequestID:     requestID,
			Mode:          string(mode),
			EntityCounts:  countByRootType(entities),
			TotalEntities: len(entities),
			InputBytes:    inputBytes,
			OutputBytes:   outputBytes,
			ProcessingMS:  float64(elapsed.Nanoseconds()) / 1e6,
		},
	})
}

// recordAudit appends a run to the audit trail when auditing is enabled.
func (s *Server) recordAudit(requestID string, mode engine.Mode, sourceText string, entities []engine.Entity, elapsed time.Duration) {
	if s.audit == nil {
		return
	}

	record := &audit.Record{
		RunID:        requestID,
		Mode:         string(mode),
		TextHash:     audit.HashText(sourceText),
		EntityCounts: countByRootType(entities),
		DurationMS:   elapsed.Milliseconds(),
	}

	// Auditing is off the request path; a failed insert is logged, not surfaced.
	go func() {
		ctx, cancel := contextWithTimeout(5 * time.Second)
		defer cancel()
		if err := s.audit.Insert(ctx, record); err != nil {
			s.logger.Warn("Audit insert failed", zap.Error(err))
		}
	}()
}

func countByRootType(entities []engine.Entity) audit.Counts {
	counts := make(audit.Counts)
	for _, e := range entities {
		root := e.Type
		if i := strings.Index(root, "_"); i >= 0 {
			root = root[:i]
		}
		if root == "" {
			root = "UNKNOWN"
		}
		counts[root]++
	}
	return counts
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v interface{}) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}
