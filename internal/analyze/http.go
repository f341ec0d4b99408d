package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"complaintbot/internal/domain"
)

// HTTPAnalyzer calls the standalone analyzer service's /analyze endpoint.
type HTTPAnalyzer struct {
	baseURL string
	client  *http.Client
}

func NewHTTPAnalyzer(baseURL string, timeout time.Duration) *HTTPAnalyzer {
	return &HTTPAnalyzer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Analyze performs the call with one format-fix retry: a structurally
// invalid response triggers exactly one re-request; a second invalid
// response is surfaced as MalformedResponseError. Transport and non-2xx
// failures are UpstreamError and are never retried here; the caller owns
// that decision and the call is side-effect-free.
func (a *HTTPAnalyzer) Analyze(ctx context.Context, req Request) (domain.AnalysisResult, error) {
	res, err := a.call(ctx, req)
	if err == nil {
		return res, nil
	}
	var malformed *domain.MalformedResponseError
	if !errors.As(err, &malformed) {
		return domain.AnalysisResult{}, err
	}

	log.Printf("analyze http malformed response, retrying once: %v", malformed.Reason)
	res, err = a.call(ctx, req)
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	return res, nil
}

func (a *HTTPAnalyzer) call(ctx context.Context, req Request) (domain.AnalysisResult, error) {
	if req.KnownFields == nil {
		req.KnownFields = map[string]any{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("marshaling analyze request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("creating analyze request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return domain.AnalysisResult{}, &domain.UpstreamError{Op: "analyze", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.AnalysisResult{}, &domain.UpstreamError{Op: "analyze", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(respBody)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return domain.AnalysisResult{}, &domain.UpstreamError{
			Op:  "analyze",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, snippet),
		}
	}

	return decodeResult(string(respBody))
}
