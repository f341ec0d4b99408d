// Package session drives the clarification dialogue for one complaint
// narrative: repeated analyzer calls accumulate known slot values until a
// terminal, submittable draft exists.
package session

import (
	"context"
	"log"
	"maps"
	"strings"
	"time"

	"complaintbot/internal/analyze"
	"complaintbot/internal/domain"
)

type State string

const (
	StateInit               State = "init"
	StateAnalyzing          State = "analyzing"
	StateNeedsClarification State = "needs_clarification"
	StateAwaitingAnswer     State = "awaiting_answer"
	StateReady              State = "ready"
	StateSubmitted          State = "submitted"
)

// HistoryItem records one clarifying question, ordered by first appearance.
// An item only ever transitions from unanswered to answered.
type HistoryItem struct {
	Slot     string
	Question string
	Answer   string
	Answered bool
}

// Session is the per-narrative dialogue state. It lives in memory only;
// nothing is persisted until the user confirms the submit, so abandoning a
// session has no side effects.
type Session struct {
	ID          string
	Language    domain.Language
	Description string
	Source      string
	IsAnonymous bool
	Contact     *domain.Contact
	Media       []domain.MediaRef

	// SubmissionTime is fixed at the first analysis call and never shifts,
	// however many clarification turns follow.
	SubmissionTime time.Time

	KnownFields map[string]any
	History     []HistoryItem
	PendingSlot string
	Analysis    *domain.AnalysisResult
	Draft       *domain.ComplaintDraft
	State       State
	Turns       int
}

func NewSession(id string, lang domain.Language, description, source string) (*Session, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, domain.Validationf("description", "must not be empty")
	}
	if !lang.Valid() {
		return nil, domain.Validationf("language", "must be kk or ru, got %q", lang)
	}
	if source != "web" && source != "telegram" {
		return nil, domain.Validationf("source", "must be web or telegram, got %q", source)
	}
	return &Session{
		ID:          id,
		Language:    lang,
		Description: description,
		Source:      source,
		KnownFields: map[string]any{},
		State:       StateInit,
	}, nil
}

// Outcome is what a dialogue turn produced: either a question to relay to
// the user, or a submittable draft. BestEffort marks drafts built after the
// turn cap or a non-converging slot forced the fallback.
type Outcome struct {
	State      State
	Slot       string
	Question   string
	Draft      *domain.ComplaintDraft
	BestEffort bool
}

type Orchestrator struct {
	analyzer analyze.Analyzer
	maxTurns int
	now      func() time.Time
}

func NewOrchestrator(analyzer analyze.Analyzer, maxTurns int) *Orchestrator {
	if maxTurns < 1 {
		maxTurns = 5
	}
	return &Orchestrator{analyzer: analyzer, maxTurns: maxTurns, now: time.Now}
}

// Start runs the first analysis turn, fixing the session's submission time.
func (o *Orchestrator) Start(ctx context.Context, s *Session) (Outcome, error) {
	if s.State != StateInit {
		return Outcome{}, domain.Validationf("state", "session already started (state=%s)", s.State)
	}
	// Fixed once per session, even across failed first calls, so a retry is
	// the identical call.
	if s.SubmissionTime.IsZero() {
		s.SubmissionTime = o.now().UTC()
	}
	return o.analyzeTurn(ctx, s)
}

// Answer merges the clarification answer into the accumulated known fields
// (a later answer for the same slot overwrites the prior one) and re-invokes
// the analyzer with the full map; the service is stateless per call and
// re-derives the missing-slot set from the whole picture.
func (o *Orchestrator) Answer(ctx context.Context, s *Session, slot, value string) (Outcome, error) {
	if s.State != StateAwaitingAnswer {
		return Outcome{}, domain.Validationf("state", "no pending question (state=%s)", s.State)
	}
	slot = strings.TrimSpace(slot)
	value = strings.TrimSpace(value)
	if value == "" {
		return Outcome{}, domain.Validationf("value", "must not be empty")
	}
	if !historyHasSlot(s.History, slot) {
		return Outcome{}, domain.Validationf("slot", "%q was never asked", slot)
	}

	s.KnownFields[slot] = value
	s.History = markAnswered(s.History, slot, value)
	// PendingSlot is cleared only by a successful turn: a failed re-analysis
	// leaves the session awaiting the same slot, so retrying the identical
	// answer remains valid.
	return o.analyzeTurn(ctx, s)
}

// MarkSubmitted finalizes the session after the draft was persisted.
func MarkSubmitted(s *Session) {
	s.State = StateSubmitted
}

func (o *Orchestrator) analyzeTurn(ctx context.Context, s *Session) (Outcome, error) {
	entered := s.State
	s.State = StateAnalyzing

	res, err := o.analyzer.Analyze(ctx, analyze.Request{
		Description:       s.Description,
		KnownFields:       maps.Clone(s.KnownFields),
		SubmissionTimeISO: s.SubmissionTime.Format(time.RFC3339),
	})
	if err != nil {
		// The call is side-effect-free: fall back to the state the turn was
		// entered from so the caller can retry the identical call.
		s.State = entered
		return Outcome{}, err
	}

	s.Turns++
	s.Analysis = &res

	if !res.Actionable() {
		return o.ready(s, false), nil
	}

	slot := firstSlot(res.MissingSlots)
	if slot == "" {
		return o.ready(s, false), nil
	}
	if historyAnswered(s.History, slot) {
		// The slot came back after being answered: the loop is not
		// converging, present the best-effort draft instead.
		log.Printf("session %s slot=%s reappeared after answer, falling back to draft", s.ID, slot)
		return o.ready(s, true), nil
	}
	if s.Turns >= o.maxTurns {
		log.Printf("session %s hit turn cap %d, falling back to draft", s.ID, o.maxTurns)
		return o.ready(s, true), nil
	}

	s.State = StateNeedsClarification
	question := domain.PickQuestion(res, s.Language)
	if !historyHasSlot(s.History, slot) {
		s.History = appendHistory(s.History, HistoryItem{Slot: slot, Question: question})
	}
	s.PendingSlot = slot
	s.State = StateAwaitingAnswer
	return Outcome{State: s.State, Slot: slot, Question: question}, nil
}

func (o *Orchestrator) ready(s *Session, bestEffort bool) Outcome {
	draft := BuildDraft(*s.Analysis, DraftContext{
		Description:    s.Description,
		SubmissionTime: s.SubmissionTime,
		Media:          s.Media,
		IsAnonymous:    s.IsAnonymous,
		Contact:        s.Contact,
		Source:         s.Source,
	})
	s.Draft = &draft
	s.PendingSlot = ""
	s.State = StateReady
	return Outcome{State: StateReady, Draft: &draft, BestEffort: bestEffort}
}

func firstSlot(slots []string) string {
	for _, slot := range slots {
		if trimmed := strings.TrimSpace(slot); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// History helpers return fresh slices so each answer produces a new history
// value; retries and tests see stable snapshots, never in-place mutation.

func appendHistory(history []HistoryItem, item HistoryItem) []HistoryItem {
	next := make([]HistoryItem, len(history), len(history)+1)
	copy(next, history)
	return append(next, item)
}

func markAnswered(history []HistoryItem, slot, answer string) []HistoryItem {
	next := make([]HistoryItem, len(history))
	copy(next, history)
	for i := range next {
		if next[i].Slot == slot {
			next[i].Answer = answer
			next[i].Answered = true
		}
	}
	return next
}

func historyHasSlot(history []HistoryItem, slot string) bool {
	for _, item := range history {
		if item.Slot == slot {
			return true
		}
	}
	return false
}

func historyAnswered(history []HistoryItem, slot string) bool {
	for _, item := range history {
		if item.Slot == slot && item.Answered {
			return true
		}
	}
	return false
}
