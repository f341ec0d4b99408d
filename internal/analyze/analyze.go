// Package analyze implements the contract with the external text-analysis
// service: one fixed request shape in, one strictly validated result out.
// Two providers exist: "http" talks to the standalone analyzer service,
// "anthropic" drives the same JSON schema through the Anthropic API.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"complaintbot/internal/config"
	"complaintbot/internal/domain"
)

// Request is the analyze call payload. knownFields accumulates every
// clarification answer given so far; the analyzer is stateless per call and
// re-derives the missing-slot set from the whole picture.
type Request struct {
	Description       string         `json:"description"`
	KnownFields       map[string]any `json:"knownFields"`
	SubmissionTimeISO string         `json:"submission_time_iso"`
}

type Analyzer interface {
	Analyze(ctx context.Context, req Request) (domain.AnalysisResult, error)
}

// New picks the provider configured in cfg.
func New(cfg config.Config) (Analyzer, error) {
	switch cfg.AnalyzerProvider {
	case "http":
		return NewHTTPAnalyzer(cfg.AnalyzerURL, cfg.AnalyzeTimeout()), nil
	case "anthropic":
		return NewAnthropicAnalyzer(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	}
	return nil, fmt.Errorf("unknown analyzer provider %q", cfg.AnalyzerProvider)
}

// decodeResult parses an analyzer response strictly: unknown keys are
// rejected, then the payload is checked against the schema. Any failure is a
// MalformedResponseError; the caller owns the single format-fix retry.
func decodeResult(raw string) (domain.AnalysisResult, error) {
	var res domain.AnalysisResult
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&res); err != nil {
		return domain.AnalysisResult{}, &domain.MalformedResponseError{Reason: err.Error(), Raw: raw}
	}
	if err := validateResult(res); err != nil {
		return domain.AnalysisResult{}, &domain.MalformedResponseError{Reason: err.Error(), Raw: raw}
	}
	normalizeResult(&res)
	return res, nil
}

func validateResult(res domain.AnalysisResult) error {
	if !res.Priority.Valid() {
		return fmt.Errorf("priority %q not in {low, medium, high, critical}", res.Priority)
	}
	if !res.Language.Valid() {
		return fmt.Errorf("language %q not in {kk, ru}", res.Language)
	}
	for i, tuple := range res.Tuples {
		for _, obj := range tuple.Objects {
			if obj.Type != domain.ObjectRoute && obj.Type != domain.ObjectBusPlate {
				return fmt.Errorf("tuple %d: object type %q not in {route, bus_plate}", i, obj.Type)
			}
			if strings.TrimSpace(obj.Value) == "" {
				return fmt.Errorf("tuple %d: empty object value", i)
			}
		}
		if tuple.Place != nil {
			switch tuple.Place.Kind {
			case domain.PlaceStop, domain.PlaceStreet, domain.PlaceCrossroad:
			default:
				return fmt.Errorf("tuple %d: place kind %q not in {stop, street, crossroad}", i, tuple.Place.Kind)
			}
		}
	}
	return nil
}

func normalizeResult(res *domain.AnalysisResult) {
	if res.MissingSlots == nil {
		res.MissingSlots = []string{}
	}
	if res.Tuples == nil {
		res.Tuples = []domain.Tuple{}
	}
	for i := range res.MissingSlots {
		res.MissingSlots[i] = strings.TrimSpace(res.MissingSlots[i])
	}
}

// extractJSON pulls the JSON object out of a model reply that may carry
// markdown fences or prose around it.
func extractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("JSON boundaries not found")
	}
	return text[start : end+1], nil
}
