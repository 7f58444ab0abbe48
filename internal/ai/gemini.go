// Package ai adapts Google Gemini to the conversation, embedding and
// speech needs of the platform. Nothing outside this package imports the
// genai SDK.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Benrobo/nexusai-sub000/internal/agents"
	"github.com/Benrobo/nexusai-sub000/internal/telephony"
)

var ErrEmptyResponse = errors.New("ai: empty model response")

// ContextRetriever supplies grounding text for sales conversations.
// Implemented by the knowledge-base service.
type ContextRetriever interface {
	Retrieve(ctx context.Context, kbIDs []string, query string) (string, error)
}

// Config selects the models used for each capability.
type Config struct {
	APIKey     string
	ChatModel  string
	EmbedModel string
	TTSModel   string
}

// Service is the Gemini-backed conversation engine.
type Service struct {
	client    *genai.Client
	retriever ContextRetriever
	cfg       Config
}

func NewService(ctx context.Context, cfg Config, retriever ContextRetriever) (*Service, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("ai: client init: %w", err)
	}
	return &Service{client: client, retriever: retriever, cfg: cfg}, nil
}

// turnEnvelope is the strict JSON shape the chat model is instructed to
// emit for each voice turn.
type turnEnvelope struct {
	Reply  string `json:"reply"`
	Action string `json:"action"`
}

const (
	turnContinue = "continue"
	turnEnd      = "end"
	turnEscalate = "escalate"
)

// HandleTurn generates the agent's next reply for an in-flight call.
func (s *Service) HandleTurn(ctx context.Context, req telephony.TurnRequest) (telephony.AIReply, error) {
	var system string
	switch req.Agent.Type {
	case agents.TypeAntiTheft:
		system = antiTheftSystemPrompt(req.Agent, req.State.CountryCode)
	case agents.TypeSalesAssistant:
		grounding, err := s.retriever.Retrieve(ctx, req.State.KbIDs, req.Speech)
		if err != nil {
			return telephony.AIReply{}, fmt.Errorf("ai: retrieve context: %w", err)
		}
		system = salesSystemPrompt(req.Agent, grounding)
	default:
		return telephony.AIReply{}, fmt.Errorf("ai: unsupported agent type %q", req.Agent.Type)
	}

	resp, err := s.client.Models.GenerateContent(
		ctx,
		s.cfg.ChatModel,
		genai.Text(renderTranscript(req.State.History, req.Speech)),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		return telephony.AIReply{}, fmt.Errorf("ai: generate: %w", err)
	}

	env, err := parseTurnEnvelope(collectText(resp))
	if err != nil {
		return telephony.AIReply{}, err
	}

	reply := telephony.AIReply{Msg: env.Reply}
	switch env.Action {
	case turnEnd:
		reply.Ended = true
	case turnEscalate:
		if req.Agent.EscalationNumber == "" {
			// Nothing to hand off to; close the call gracefully instead.
			reply.Ended = true
		} else {
			reply.EscalationNumber = req.Agent.EscalationNumber
		}
	}
	return reply, nil
}

// EmbedText returns the embedding vector for one chunk of text.
func (s *Service) EmbedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.client.Models.EmbedContent(
		ctx,
		s.cfg.EmbedModel,
		genai.Text(text),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("ai: embed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp.Embeddings[0].Values, nil
}

// parseTurnEnvelope decodes the model's JSON control envelope, tolerating
// markdown code fences some models wrap around JSON output.
func parseTurnEnvelope(raw string) (turnEnvelope, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return turnEnvelope{}, ErrEmptyResponse
	}

	var env turnEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return turnEnvelope{}, fmt.Errorf("ai: malformed turn envelope: %w", err)
	}
	if strings.TrimSpace(env.Reply) == "" {
		return turnEnvelope{}, ErrEmptyResponse
	}
	switch env.Action {
	case turnContinue, turnEnd, turnEscalate:
	case "":
		env.Action = turnContinue
	default:
		return turnEnvelope{}, fmt.Errorf("ai: unknown turn action %q", env.Action)
	}
	return env, nil
}

// renderTranscript flattens the conversation so far into the user prompt.
func renderTranscript(history []telephony.ChatMessage, speech string) string {
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	if strings.TrimSpace(speech) == "" {
		b.WriteString("\nThe caller said nothing this turn. Prompt them briefly.")
	} else {
		fmt.Fprintf(&b, "\nThe caller just said: %s", speech)
	}
	return b.String()
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
