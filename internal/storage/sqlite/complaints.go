package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"complaintbot/internal/domain"
)

// InsertComplaint persists a confirmed draft and bumps the dictionary
// counters for every entity the draft's tuples mention, all in one
// transaction. The returned complaint carries the assigned reference.
// Concurrent same-day submits can race to the same reference number; the
// UNIQUE constraint catches that and the whole insert is retried with a
// fresh number.
func InsertComplaint(db *sql.DB, draft domain.ComplaintDraft) (domain.Complaint, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		c, err := insertComplaintOnce(db, draft)
		if err == nil {
			return c, nil
		}
		if !isReferenceConflict(err) {
			return domain.Complaint{}, err
		}
		lastErr = err
	}
	return domain.Complaint{}, lastErr
}

func insertComplaintOnce(db *sql.DB, draft domain.ComplaintDraft) (domain.Complaint, error) {
	tx, err := db.Begin()
	if err != nil {
		return domain.Complaint{}, err
	}
	defer tx.Rollback()

	reference, err := nextReference(tx, draft.SubmissionTime)
	if err != nil {
		return domain.Complaint{}, err
	}

	tuplesJSON, err := json.Marshal(draft.Tuples)
	if err != nil {
		return domain.Complaint{}, err
	}
	analysisJSON := ""
	if draft.Analysis != nil {
		raw, err := json.Marshal(draft.Analysis)
		if err != nil {
			return domain.Complaint{}, err
		}
		analysisJSON = string(raw)
	}
	media := draft.Media
	if media == nil {
		media = []domain.MediaRef{}
	}
	mediaJSON, err := json.Marshal(media)
	if err != nil {
		return domain.Complaint{}, err
	}

	var name, phone, email string
	if draft.Contact != nil {
		name, phone, email = draft.Contact.Name, draft.Contact.Phone, draft.Contact.Email
	}
	status := draft.Status
	if status == "" {
		status = domain.StatusPending
	}

	res, err := tx.Exec(
		`INSERT INTO complaints
		 (reference, description, priority, tuples, analysis, media, is_anonymous,
		  contact_name, contact_phone, contact_email, source, status,
		  submission_time, reported_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reference, draft.Description, string(draft.Priority), string(tuplesJSON),
		analysisJSON, string(mediaJSON), draft.IsAnonymous,
		name, phone, email, draft.Source, status,
		draft.SubmissionTime, draft.ReportedTime,
	)
	if err != nil {
		return domain.Complaint{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Complaint{}, err
	}

	if err := upsertDictionary(tx, draft.Tuples, draft.SubmissionTime); err != nil {
		return domain.Complaint{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Complaint{}, err
	}

	return domain.Complaint{
		ID:             id,
		Reference:      reference,
		Description:    draft.Description,
		Priority:       draft.Priority,
		Tuples:         draft.Tuples,
		Analysis:       draft.Analysis,
		Media:          media,
		IsAnonymous:    draft.IsAnonymous,
		Contact:        draft.Contact,
		Source:         draft.Source,
		Status:         status,
		SubmissionTime: draft.SubmissionTime,
		ReportedTime:   draft.ReportedTime,
	}, nil
}

// nextReference assigns AST-YYYYMMDD-NNNNNN, continuing from the highest
// number already used that day. The zero-padded fixed-width suffix makes
// MAX(reference) the numeric maximum.
func nextReference(tx *sql.Tx, submitted time.Time) (string, error) {
	day := submitted.UTC().Format("20060102")
	var last string
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(reference), '') FROM complaints WHERE reference LIKE ?`,
		"AST-"+day+"-%",
	).Scan(&last); err != nil {
		return "", err
	}
	next := 1
	if last != "" {
		n, err := strconv.Atoi(last[strings.LastIndex(last, "-")+1:])
		if err != nil {
			return "", fmt.Errorf("unparsable reference %q: %w", last, err)
		}
		next = n + 1
	}
	return fmt.Sprintf("AST-%s-%06d", day, next), nil
}

func isReferenceConflict(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// upsertDictionary increments one counter per entity occurrence. The seen
// timestamp prefers the tuple's own concrete time over the submission time.
// Values are trimmed; blank values are skipped, never counted.
func upsertDictionary(tx *sql.Tx, tuples []domain.Tuple, submitted time.Time) error {
	stmt, err := tx.Prepare(
		`INSERT INTO dictionary (kind, value, freq, first_seen, last_seen)
		 VALUES (?, ?, 1, ?, ?)
		 ON CONFLICT(kind, value) DO UPDATE SET
		   freq = freq + 1,
		   last_seen = excluded.last_seen`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	bump := func(kind, value string, seen time.Time) error {
		value = strings.TrimSpace(value)
		if value == "" {
			return nil
		}
		_, err := stmt.Exec(kind, value, seen, seen)
		return err
	}

	for _, tuple := range tuples {
		seen := submitted
		if ts, ok := tuple.ReportedAt(); ok {
			seen = ts
		}
		for _, obj := range tuple.Objects {
			var kind string
			switch obj.Type {
			case domain.ObjectRoute:
				kind = domain.DictRoute
			case domain.ObjectBusPlate:
				kind = domain.DictPlate
			default:
				continue
			}
			if err := bump(kind, obj.Value, seen); err != nil {
				return err
			}
		}
		if tuple.Place != nil {
			kind := domain.DictPlace
			if tuple.Place.Kind == domain.PlaceStop {
				kind = domain.DictStop
			}
			if err := bump(kind, tuple.Place.Value, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

func GetComplaintByReference(db *sql.DB, reference string) (domain.Complaint, error) {
	row := db.QueryRow(
		`SELECT id, reference, description, priority, tuples, analysis, media,
		        is_anonymous, contact_name, contact_phone, contact_email,
		        source, status, admin_comment, submission_time, reported_time, created_at
		 FROM complaints WHERE reference = ?`,
		reference,
	)
	c, err := scanComplaint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Complaint{}, domain.ErrNotFound
	}
	return c, err
}

func ListComplaints(db *sql.DB) ([]domain.Complaint, error) {
	rows, err := db.Query(
		`SELECT id, reference, description, priority, tuples, analysis, media,
		        is_anonymous, contact_name, contact_phone, contact_email,
		        source, status, admin_comment, submission_time, reported_time, created_at
		 FROM complaints ORDER BY submission_time, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func CountComplaints(db *sql.DB) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM complaints`).Scan(&count)
	return count, err
}

// UpdateComplaintStatus moves a complaint through its lifecycle. With a
// non-empty expectedStatus the update applies only if the current status
// matches, otherwise ErrConflict; unguarded updates are last-write-wins.
func UpdateComplaintStatus(db *sql.DB, reference, status, adminComment, expectedStatus string) error {
	if !domain.ValidStatus(status) {
		return domain.Validationf("status", "unknown status %q", status)
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRow(`SELECT status FROM complaints WHERE reference = ?`, reference).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	if expectedStatus != "" && current != expectedStatus {
		return domain.ErrConflict
	}

	_, err = tx.Exec(
		`UPDATE complaints SET status = ?, admin_comment = ? WHERE reference = ?`,
		status, adminComment, reference,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComplaint(row rowScanner) (domain.Complaint, error) {
	var c domain.Complaint
	var tuplesJSON, analysisJSON, mediaJSON string
	var name, phone, email string
	err := row.Scan(
		&c.ID, &c.Reference, &c.Description, &c.Priority, &tuplesJSON, &analysisJSON,
		&mediaJSON, &c.IsAnonymous, &name, &phone, &email,
		&c.Source, &c.Status, &c.AdminComment,
		&c.SubmissionTime, &c.ReportedTime, &c.CreatedAt,
	)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal([]byte(tuplesJSON), &c.Tuples); err != nil {
		return c, fmt.Errorf("decode tuples for %s: %w", c.Reference, err)
	}
	if analysisJSON != "" {
		c.Analysis = &domain.AnalysisResult{}
		if err := json.Unmarshal([]byte(analysisJSON), c.Analysis); err != nil {
			return c, fmt.Errorf("decode analysis for %s: %w", c.Reference, err)
		}
	}
	if err := json.Unmarshal([]byte(mediaJSON), &c.Media); err != nil {
		return c, fmt.Errorf("decode media for %s: %w", c.Reference, err)
	}
	if name != "" || phone != "" || email != "" {
		c.Contact = &domain.Contact{Name: name, Phone: phone, Email: email}
	}
	return c, nil
}
