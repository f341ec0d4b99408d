package session

import (
	"strings"
	"time"

	"complaintbot/internal/domain"
)

// DraftContext carries the session facts the analyzer never sees.
type DraftContext struct {
	Description    string
	SubmissionTime time.Time
	Media          []domain.MediaRef
	IsAnonymous    bool
	Contact        *domain.Contact
	Source         string
}

// BuildDraft turns a terminal analysis into the submittable payload. Pure
// transform: priority and tuples are copied verbatim (including the
// "submission_time" sentinel, which is resolved only at presentation time),
// media is whatever was already uploaded in the session, and contact is
// included only for non-anonymous sessions with at least one non-blank
// field; otherwise it is omitted entirely, never an empty object.
func BuildDraft(res domain.AnalysisResult, sc DraftContext) domain.ComplaintDraft {
	draft := domain.ComplaintDraft{
		Description:    sc.Description,
		Priority:       res.Priority,
		Tuples:         res.Tuples,
		Analysis:       &res,
		Media:          sc.Media,
		IsAnonymous:    sc.IsAnonymous,
		Source:         sc.Source,
		SubmissionTime: sc.SubmissionTime,
		ReportedTime:   reportedTime(res.Tuples, sc.SubmissionTime),
		Status:         domain.StatusPending,
	}
	if draft.Media == nil {
		draft.Media = []domain.MediaRef{}
	}
	if !sc.IsAnonymous && sc.Contact != nil && !sc.Contact.Empty() {
		draft.Contact = &domain.Contact{
			Name:  strings.TrimSpace(sc.Contact.Name),
			Phone: strings.TrimSpace(sc.Contact.Phone),
			Email: strings.TrimSpace(sc.Contact.Email),
		}
	}
	return draft
}

// reportedTime is the earliest concrete tuple time, falling back to the
// submission time when no tuple carries one.
func reportedTime(tuples []domain.Tuple, fallback time.Time) time.Time {
	earliest := time.Time{}
	for _, tuple := range tuples {
		ts, ok := tuple.ReportedAt()
		if !ok {
			continue
		}
		if earliest.IsZero() || ts.Before(earliest) {
			earliest = ts
		}
	}
	if earliest.IsZero() {
		return fallback
	}
	return earliest
}
