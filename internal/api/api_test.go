package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"complaintbot/internal/analyze"
	"complaintbot/internal/domain"
	"complaintbot/internal/session"
	"complaintbot/internal/storage/sqlite"
)

type scriptedAnalyzer struct {
	responses []domain.AnalysisResult
	errs      []error
	requests  []analyze.Request
	calls     int
}

func (a *scriptedAnalyzer) Analyze(_ context.Context, req analyze.Request) (domain.AnalysisResult, error) {
	idx := a.calls
	a.calls++
	a.requests = append(a.requests, req)
	if idx < len(a.errs) && a.errs[idx] != nil {
		return domain.AnalysisResult{}, a.errs[idx]
	}
	if idx >= len(a.responses) {
		return domain.AnalysisResult{}, fmt.Errorf("scripted analyzer exhausted at call %d", idx+1)
	}
	return a.responses[idx], nil
}

func newTestServer(t *testing.T, stub *scriptedAnalyzer) (*httptest.Server, *sql.DB) {
	t.Helper()
	db, err := sqlite.InitDB(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := NewServer(db, session.NewOrchestrator(stub, 5), nil, domain.LangRU)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, db
}

func doJSON(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func clarify() domain.AnalysisResult {
	return domain.AnalysisResult{
		NeedClarification:    true,
		MissingSlots:         []string{"time"},
		Priority:             domain.PriorityMedium,
		Language:             domain.LangRU,
		ClarifyingQuestionRU: "Во сколько это произошло?",
	}
}

func terminal(priority domain.Priority) domain.AnalysisResult {
	return domain.AnalysisResult{
		Priority: priority,
		Language: domain.LangRU,
		Tuples: []domain.Tuple{{
			Objects: []domain.TupleObject{{Type: domain.ObjectRoute, Value: "12"}},
			Time:    domain.TimeSubmission,
			Aspects: []string{"punctuality"},
		}},
	}
}

func TestIntakeFlow(t *testing.T) {
	stub := &scriptedAnalyzer{responses: []domain.AnalysisResult{clarify(), terminal(domain.PriorityMedium)}}
	ts, _ := newTestServer(t, stub)

	var started sessionResponse
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions", startRequest{
		Description: "Bus 12 was late",
		Contact:     &domain.Contact{Name: "Aizhan", Phone: "+77010000000"},
	}, &started)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d", resp.StatusCode)
	}
	if started.State != string(session.StateAwaitingAnswer) || started.Slot != "time" {
		t.Fatalf("unexpected start response: %+v", started)
	}
	if started.Question != "Во сколько это произошло?" {
		t.Fatalf("expected localized question, got %q", started.Question)
	}

	var answered sessionResponse
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/sessions/"+started.SessionID+"/answer",
		answerRequest{Value: "09:00"}, &answered)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("answer: expected 200, got %d", resp.StatusCode)
	}
	if answered.State != string(session.StateReady) || answered.Draft == nil {
		t.Fatalf("unexpected answer response: %+v", answered)
	}

	var submitted submitResponse
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/sessions/"+started.SessionID+"/submit", nil, &submitted)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d", resp.StatusCode)
	}
	if !submitted.Success || submitted.ID == 0 {
		t.Fatalf("unexpected submit response: %+v", submitted)
	}
	if !strings.HasPrefix(submitted.ReferenceNumber, "AST-") {
		t.Fatalf("expected assigned reference, got %q", submitted.ReferenceNumber)
	}

	// A submitted session is gone; a second submit cannot double-insert.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/sessions/"+started.SessionID+"/submit", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second submit: expected 404, got %d", resp.StatusCode)
	}

	var fetched complaintWire
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/complaints/"+submitted.ReferenceNumber, nil, &fetched)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	if fetched.Status != domain.StatusPending {
		t.Fatalf("expected pending status, got %q", fetched.Status)
	}
	if fetched.Contact == nil || fetched.Contact.Name != "Aizhan" {
		t.Fatalf("expected contact on fetched complaint: %+v", fetched.Contact)
	}
}

func TestStartValidation(t *testing.T) {
	ts, _ := newTestServer(t, &scriptedAnalyzer{})

	var body errorBody
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions", startRequest{Description: "   "}, &body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if body.Field != "description" {
		t.Fatalf("expected description field error, got %+v", body)
	}
}

func TestUpstreamFailureMapsTo502(t *testing.T) {
	stub := &scriptedAnalyzer{errs: []error{&domain.UpstreamError{Op: "analyze", Err: errors.New("down")}}}
	ts, _ := newTestServer(t, stub)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions", startRequest{Description: "Bus 12 was late"}, nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
}

func TestStartRetryKeepsSubmissionTime(t *testing.T) {
	stub := &scriptedAnalyzer{
		responses: []domain.AnalysisResult{{}, terminal(domain.PriorityMedium)},
		errs:      []error{&domain.UpstreamError{Op: "analyze", Err: errors.New("down")}},
	}
	ts, _ := newTestServer(t, stub)

	var failed errorBody
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions", startRequest{Description: "Bus 12 was late"}, &failed)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("start: expected 502, got %d", resp.StatusCode)
	}
	if failed.SessionID == "" {
		t.Fatal("failed start must return the session id for a retry")
	}

	var retried sessionResponse
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/sessions/"+failed.SessionID+"/retry", nil, &retried)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("retry: expected 200, got %d", resp.StatusCode)
	}
	if retried.State != string(session.StateReady) {
		t.Fatalf("expected ready after retry, got %+v", retried)
	}

	if len(stub.requests) != 2 {
		t.Fatalf("expected 2 analyzer calls, got %d", len(stub.requests))
	}
	// The retry is the identical upstream call: same description and the
	// submission time fixed when the session was created.
	if !reflect.DeepEqual(stub.requests[0], stub.requests[1]) {
		t.Fatalf("retry diverged from the original call:\n%+v\n%+v", stub.requests[0], stub.requests[1])
	}

	// A session past its first analysis cannot be started again.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/sessions/"+failed.SessionID+"/retry", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("retry after success: expected 400, got %d", resp.StatusCode)
	}
}

func TestAnswerUnknownSession(t *testing.T) {
	ts, _ := newTestServer(t, &scriptedAnalyzer{})
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions/nope/answer", answerRequest{Value: "x"}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSubmitRequiresReadyState(t *testing.T) {
	stub := &scriptedAnalyzer{responses: []domain.AnalysisResult{clarify()}}
	ts, _ := newTestServer(t, stub)

	var started sessionResponse
	doJSON(t, http.MethodPost, ts.URL+"/api/sessions", startRequest{Description: "Bus 12 was late"}, &started)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions/"+started.SessionID+"/submit", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for submit before ready, got %d", resp.StatusCode)
	}
}

func TestAnonymousComplaintHidesContact(t *testing.T) {
	stub := &scriptedAnalyzer{responses: []domain.AnalysisResult{terminal(domain.PriorityLow)}}
	ts, _ := newTestServer(t, stub)

	var started sessionResponse
	doJSON(t, http.MethodPost, ts.URL+"/api/sessions", startRequest{
		Description: "Announcements are broken on T1",
		IsAnonymous: true,
		Contact:     &domain.Contact{Name: "Aizhan"},
	}, &started)
	if started.State != string(session.StateReady) {
		t.Fatalf("expected ready, got %+v", started)
	}

	var submitted submitResponse
	doJSON(t, http.MethodPost, ts.URL+"/api/sessions/"+started.SessionID+"/submit", nil, &submitted)

	var fetched complaintWire
	doJSON(t, http.MethodGet, ts.URL+"/api/complaints/"+submitted.ReferenceNumber, nil, &fetched)
	if fetched.Contact != nil {
		t.Fatalf("anonymous complaint must not expose contact: %+v", fetched.Contact)
	}
}

func TestStatusLifecycle(t *testing.T) {
	stub := &scriptedAnalyzer{responses: []domain.AnalysisResult{terminal(domain.PriorityHigh)}}
	ts, _ := newTestServer(t, stub)

	var started sessionResponse
	doJSON(t, http.MethodPost, ts.URL+"/api/sessions", startRequest{Description: "Driver skipped the stop"}, &started)
	var submitted submitResponse
	doJSON(t, http.MethodPost, ts.URL+"/api/sessions/"+started.SessionID+"/submit", nil, &submitted)

	statusURL := ts.URL + "/api/complaints/" + submitted.ReferenceNumber + "/status"

	var updated complaintWire
	resp := doJSON(t, http.MethodPatch, statusURL, statusRequest{
		Status:       domain.StatusApproved,
		AdminComment: "inspector assigned",
	}, &updated)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if updated.Status != domain.StatusApproved || updated.AdminComment != "inspector assigned" {
		t.Fatalf("update not applied: %+v", updated)
	}

	// Stale guard: the complaint is no longer pending.
	resp = doJSON(t, http.MethodPatch, statusURL, statusRequest{
		Status:         domain.StatusResolved,
		ExpectedStatus: domain.StatusPending,
	}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPatch, ts.URL+"/api/complaints/AST-19990101-000001/status",
		statusRequest{Status: domain.StatusApproved}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAnalyticsAndDictionaryEndpoints(t *testing.T) {
	stub := &scriptedAnalyzer{responses: []domain.AnalysisResult{
		terminal(domain.PriorityCritical),
		terminal(domain.PriorityLow),
	}}
	ts, _ := newTestServer(t, stub)

	for i := 0; i < 2; i++ {
		var started sessionResponse
		doJSON(t, http.MethodPost, ts.URL+"/api/sessions", startRequest{Description: "Bus 12 was late again"}, &started)
		doJSON(t, http.MethodPost, ts.URL+"/api/sessions/"+started.SessionID+"/submit", nil, nil)
	}

	var summary domain.AnalyticsSummary
	resp := doJSON(t, http.MethodGet, ts.URL+"/api/analytics/summary", nil, &summary)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if summary.PriorityDistribution.Critical != 1 || summary.PriorityDistribution.Low != 1 {
		t.Fatalf("unexpected distribution: %+v", summary.PriorityDistribution)
	}
	if len(summary.TopRoutes) != 1 || summary.TopRoutes[0].Route != "12" || summary.TopRoutes[0].Count != 2 {
		t.Fatalf("unexpected top routes: %+v", summary.TopRoutes)
	}

	var entries []domain.DictionaryEntry
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/dictionary/route", nil, &entries)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(entries) != 1 || entries[0].Value != "12" || entries[0].Freq != 2 {
		t.Fatalf("unexpected dictionary entries: %+v", entries)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/dictionary/color", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown kind: expected 400, got %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/dictionary/route?limit=abc", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad limit: expected 400, got %d", resp.StatusCode)
	}
}
