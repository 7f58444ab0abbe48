package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Benrobo/nexusai-sub000/internal/telephony"
)

// CallAssessment is the model's post-call judgement of a screened call.
type CallAssessment struct {
	Sentiment  string   `json:"sentiment"`
	RedFlags   []string `json:"red_flags"`
	Confidence int      `json:"confidence"`
	Summary    string   `json:"summary"`
}

// AnalyzeCall scores a finished call transcript for scam likelihood and
// overall sentiment.
func (s *Service) AnalyzeCall(ctx context.Context, transcript []telephony.ChatMessage) (CallAssessment, error) {
	if len(transcript) == 0 {
		return CallAssessment{}, fmt.Errorf("ai: empty transcript")
	}

	resp, err := s.client.Models.GenerateContent(
		ctx,
		s.cfg.ChatModel,
		genai.Text(flattenTranscript(transcript)),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: analysisSystemPrompt}}},
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		return CallAssessment{}, fmt.Errorf("ai: analyze: %w", err)
	}

	return parseAssessment(collectText(resp))
}

func flattenTranscript(transcript []telephony.ChatMessage) string {
	var b strings.Builder
	b.WriteString("Call transcript:\n")
	for _, m := range transcript {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}

func parseAssessment(raw string) (CallAssessment, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CallAssessment{}, ErrEmptyResponse
	}

	var a CallAssessment
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return CallAssessment{}, fmt.Errorf("ai: malformed assessment: %w", err)
	}
	switch a.Sentiment {
	case "positive", "neutral", "negative":
	default:
		a.Sentiment = "neutral"
	}
	if a.Confidence < 0 {
		a.Confidence = 0
	}
	if a.Confidence > 100 {
		a.Confidence = 100
	}
	return a, nil
}
