// Package api is the HTTP intake boundary: it owns request decoding, the
// in-memory session registry and the mapping from domain errors to status
// codes. All domain behavior lives in the packages it calls into.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"complaintbot/internal/analytics"
	"complaintbot/internal/domain"
	"complaintbot/internal/notify"
	"complaintbot/internal/session"
	"complaintbot/internal/storage/sqlite"
)

type Server struct {
	db          *sql.DB
	orch        *session.Orchestrator
	store       *sessionStore
	notifier    *notify.Notifier
	defaultLang domain.Language
}

func NewServer(db *sql.DB, orch *session.Orchestrator, notifier *notify.Notifier, defaultLang domain.Language) *Server {
	if !defaultLang.Valid() {
		defaultLang = domain.LangKK
	}
	return &Server{
		db:          db,
		orch:        orch,
		store:       newSessionStore(),
		notifier:    notifier,
		defaultLang: defaultLang,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", s.handleStartSession)
	mux.HandleFunc("POST /api/sessions/{id}/retry", s.handleRetry)
	mux.HandleFunc("POST /api/sessions/{id}/answer", s.handleAnswer)
	mux.HandleFunc("POST /api/sessions/{id}/submit", s.handleSubmit)
	mux.HandleFunc("GET /api/complaints/{reference}", s.handleGetComplaint)
	mux.HandleFunc("PATCH /api/complaints/{reference}/status", s.handleUpdateStatus)
	mux.HandleFunc("GET /api/analytics/summary", s.handleAnalytics)
	mux.HandleFunc("GET /api/dictionary/{kind}", s.handleDictionary)
	return mux
}

type startRequest struct {
	Description string            `json:"description"`
	Language    string            `json:"language,omitempty"`
	Source      string            `json:"source,omitempty"`
	IsAnonymous bool              `json:"isAnonymous,omitempty"`
	Contact     *domain.Contact   `json:"contact,omitempty"`
	Media       []domain.MediaRef `json:"media,omitempty"`
}

type sessionResponse struct {
	SessionID  string                 `json:"sessionId"`
	State      string                 `json:"state"`
	Slot       string                 `json:"slot,omitempty"`
	Question   string                 `json:"question,omitempty"`
	Draft      *domain.ComplaintDraft `json:"draft,omitempty"`
	BestEffort bool                   `json:"bestEffort,omitempty"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	lang := domain.Language(req.Language)
	if req.Language == "" {
		lang = s.defaultLang
	}
	source := req.Source
	if source == "" {
		source = "web"
	}

	sess, err := session.NewSession(uuid.NewString(), lang, req.Description, source)
	if err != nil {
		writeError(w, err)
		return
	}
	sess.IsAnonymous = req.IsAnonymous
	sess.Contact = req.Contact
	sess.Media = req.Media

	// Registered before the first analysis so a failed session survives and
	// can be retried under the same id and submission time.
	s.store.putBusy(sess)
	defer s.store.release(sess.ID)

	out, err := s.orch.Start(r.Context(), sess)
	if err != nil {
		writeSessionError(w, sess.ID, err)
		return
	}
	writeJSON(w, http.StatusCreated, outcomeResponse(sess.ID, out))
}

// handleRetry re-runs the first analysis of a session whose start failed.
// The submission time was fixed when the session was created, so the retry
// is the identical upstream call.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.store.checkout(id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer s.store.release(id)

	out, err := s.orch.Start(r.Context(), sess)
	if err != nil {
		writeSessionError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeResponse(id, out))
}

type answerRequest struct {
	Slot  string `json:"slot,omitempty"`
	Value string `json:"value"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := r.PathValue("id")
	sess, err := s.store.checkout(id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer s.store.release(id)

	slot := req.Slot
	if slot == "" {
		slot = sess.PendingSlot
	}
	out, err := s.orch.Answer(r.Context(), sess, slot, req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeResponse(id, out))
}

type submitResponse struct {
	Success         bool   `json:"success"`
	ID              int64  `json:"id"`
	ReferenceNumber string `json:"referenceNumber"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.store.checkout(id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer s.store.release(id)

	if sess.State != session.StateReady || sess.Draft == nil {
		writeError(w, domain.Validationf("state", "session has no submittable draft (state=%s)", sess.State))
		return
	}

	saved, err := sqlite.InsertComplaint(s.db, *sess.Draft)
	if err != nil {
		writeError(w, err)
		return
	}
	session.MarkSubmitted(sess)
	s.store.remove(id)
	log.Printf("complaint submitted reference=%s priority=%s source=%s", saved.Reference, saved.Priority, saved.Source)

	if saved.Priority == domain.PriorityCritical {
		s.notifier.CriticalComplaint(saved)
	}
	writeJSON(w, http.StatusCreated, submitResponse{
		Success:         true,
		ID:              saved.ID,
		ReferenceNumber: saved.Reference,
	})
}

func (s *Server) handleGetComplaint(w http.ResponseWriter, r *http.Request) {
	c, err := sqlite.GetComplaintByReference(s.db, r.PathValue("reference"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, complaintResponse(c))
}

type statusRequest struct {
	Status         string `json:"status"`
	AdminComment   string `json:"adminComment,omitempty"`
	ExpectedStatus string `json:"expectedStatus,omitempty"`
}

// handleUpdateStatus moves a complaint through its lifecycle. Without
// expectedStatus the edit is last-write-wins; with it, a stale update is
// rejected with a conflict.
func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	reference := r.PathValue("reference")
	if err := sqlite.UpdateComplaintStatus(s.db, reference, req.Status, req.AdminComment, req.ExpectedStatus); err != nil {
		writeError(w, err)
		return
	}
	c, err := sqlite.GetComplaintByReference(s.db, reference)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, complaintResponse(c))
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	complaints, err := sqlite.ListComplaints(s.db)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.Summarize(complaints))
}

func (s *Server) handleDictionary(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, domain.Validationf("limit", "must be a positive integer, got %q", raw))
			return
		}
		limit = parsed
	}
	entries, err := sqlite.TopDictionaryEntries(s.db, r.PathValue("kind"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.DictionaryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// complaintWire is the read-side complaint shape, matching the submit
// payload's field names.
type complaintWire struct {
	Reference      string                 `json:"referenceNumber"`
	Description    string                 `json:"description"`
	Priority       domain.Priority        `json:"priority"`
	Tuples         []domain.Tuple         `json:"tuples"`
	Analysis       *domain.AnalysisResult `json:"analysis,omitempty"`
	Media          []domain.MediaRef      `json:"media"`
	IsAnonymous    bool                   `json:"isAnonymous"`
	Contact        *domain.Contact        `json:"contact,omitempty"`
	Source         string                 `json:"source"`
	Status         string                 `json:"status"`
	AdminComment   string                 `json:"adminComment,omitempty"`
	SubmissionTime time.Time              `json:"submissionTime"`
	ReportedTime   time.Time              `json:"reportedTime"`
}

func complaintResponse(c domain.Complaint) complaintWire {
	media := c.Media
	if media == nil {
		media = []domain.MediaRef{}
	}
	tuples := c.Tuples
	if tuples == nil {
		tuples = []domain.Tuple{}
	}
	contact := c.Contact
	if c.IsAnonymous {
		contact = nil
	}
	return complaintWire{
		Reference:      c.Reference,
		Description:    c.Description,
		Priority:       c.Priority,
		Tuples:         tuples,
		Analysis:       c.Analysis,
		Media:          media,
		IsAnonymous:    c.IsAnonymous,
		Contact:        contact,
		Source:         c.Source,
		Status:         c.Status,
		AdminComment:   c.AdminComment,
		SubmissionTime: c.SubmissionTime,
		ReportedTime:   c.ReportedTime,
	}
}

func outcomeResponse(id string, out session.Outcome) sessionResponse {
	return sessionResponse{
		SessionID:  id,
		State:      string(out.State),
		Slot:       out.Slot,
		Question:   out.Question,
		Draft:      out.Draft,
		BestEffort: out.BestEffort,
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Validationf("body", "invalid JSON: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("response encode error: %v", err)
	}
}

type errorBody struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

func errorStatus(err error) (int, errorBody) {
	var verr *domain.ValidationError
	var uerr *domain.UpstreamError
	var merr *domain.MalformedResponseError

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorBody{Error: verr.Error(), Field: verr.Field}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: "not found"}
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, errorBody{Error: "conflict"}
	case errors.As(err, &uerr), errors.As(err, &merr):
		log.Printf("analyzer error: %v", err)
		return http.StatusBadGateway, errorBody{Error: "analysis service unavailable, please retry"}
	default:
		log.Printf("internal error: %v", err)
		return http.StatusInternalServerError, errorBody{Error: "internal error"}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, body := errorStatus(err)
	writeJSON(w, status, body)
}

// writeSessionError carries the session id so the client can address a
// retry after a failed analysis turn.
func writeSessionError(w http.ResponseWriter, id string, err error) {
	status, body := errorStatus(err)
	body.SessionID = id
	writeJSON(w, status, body)
}

// Start runs the HTTP server until it fails. Kept fatal like the rest of
// startup: a dead listener is not recoverable.
func Start(addr string, handler http.Handler) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("HTTP API listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("HTTP server error: %v", err)
	}
}
