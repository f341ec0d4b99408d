package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"complaintbot/internal/domain"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

const analyzerSystemPrompt = `You are a public-transport complaint analyst for Astana.
Analyze the passenger complaint and respond with a single strictly valid JSON object, no markdown, no commentary:
{
  "need_clarification": bool,
  "missing_slots": ["time" | "route" | "place" | ...],
  "priority": "low" | "medium" | "high" | "critical",
  "tuples": [{"objects": [{"type": "route" | "bus_plate", "value": "..."}], "time": "<RFC3339>" | "submission_time", "place": {"kind": "stop" | "street" | "crossroad", "value": "..."}, "aspects": ["punctuality", "crowding", "safety", "staff", "condition", "payment", "other"]}],
  "aspects_count": {"punctuality": 0, "crowding": 0, "safety": 0, "staff": 0, "condition": 0, "payment": 0, "other": 0},
  "recommendation_kk": "...",
  "language": "kk" | "ru",
  "extracted_fields": {"route_numbers": [], "bus_plates": [], "places": []},
  "clarifying_question_kk": "...",
  "clarifying_question_ru": "..."
}
Treat knownFields values as already-clarified facts and do not ask about them again.
Set need_clarification true only when a slot is genuinely missing, and list that slot in missing_slots.`

const formatFixPrompt = "The previous reply was not valid JSON for the required schema. " +
	"Fix the format and reply with the JSON object only, no explanations."

// AnthropicAnalyzer produces AnalysisResults by holding the Anthropic model
// to the same strict JSON schema the standalone service speaks. The
// format-fix retry is done in-conversation: the bad reply plus a correction
// instruction are appended and the model is asked once more.
type AnthropicAnalyzer struct {
	client anthropic.Client
	model  string
}

func NewAnthropicAnalyzer(apiKey, model string) *AnthropicAnalyzer {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicAnalyzer{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (a *AnthropicAnalyzer) Analyze(ctx context.Context, req Request) (domain.AnalysisResult, error) {
	if req.KnownFields == nil {
		req.KnownFields = map[string]any{}
	}
	userPayload, err := json.Marshal(map[string]any{
		"complaint":           req.Description,
		"known_fields":        req.KnownFields,
		"submission_time_iso": req.SubmissionTimeISO,
	})
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("marshaling analyze payload: %w", err)
	}

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(string(userPayload))),
	}

	raw, err := a.generate(ctx, messages)
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	res, err := parseModelReply(raw)
	if err == nil {
		return res, nil
	}
	var malformed *domain.MalformedResponseError
	if !errors.As(err, &malformed) {
		return domain.AnalysisResult{}, err
	}

	log.Printf("analyze anthropic malformed reply, format-fix retry: %v", malformed.Reason)
	messages = append(messages,
		anthropic.NewAssistantMessage(anthropic.NewTextBlock(raw)),
		anthropic.NewUserMessage(anthropic.NewTextBlock(formatFixPrompt)),
	)
	raw, err = a.generate(ctx, messages)
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	return parseModelReply(raw)
}

func (a *AnthropicAnalyzer) generate(ctx context.Context, messages []anthropic.MessageParam) (string, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   2048,
		Temperature: anthropic.Float(0),
		System: []anthropic.TextBlockParam{
			{Text: analyzerSystemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: messages,
	})
	if err != nil {
		return "", &domain.UpstreamError{Op: "analyze", Err: err}
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("analyze anthropic response size=%d tokens_in=%d tokens_out=%d",
				len(block.Text), message.Usage.InputTokens, message.Usage.OutputTokens)
			return block.Text, nil
		}
	}
	return "", &domain.UpstreamError{Op: "analyze", Err: fmt.Errorf("no text content in response")}
}

func parseModelReply(raw string) (domain.AnalysisResult, error) {
	jsonText, err := extractJSON(raw)
	if err != nil {
		return domain.AnalysisResult{}, &domain.MalformedResponseError{Reason: err.Error(), Raw: raw}
	}
	return decodeResult(jsonText)
}
