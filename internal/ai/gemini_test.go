package ai

import (
	"encoding/binary"
	"testing"

	"github.com/Benrobo/nexusai-sub000/internal/telephony"
)

func TestParseTurnEnvelope(t *testing.T) {
	env, err := parseTurnEnvelope(`{"reply": "Sure, we open at nine.", "action": "continue"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if env.Reply != "Sure, we open at nine." || env.Action != turnContinue {
		t.Fatalf("env = %+v", env)
	}
}

func TestParseTurnEnvelopeStripsCodeFence(t *testing.T) {
	raw := "```json\n{\"reply\": \"Goodbye.\", \"action\": \"end\"}\n```"
	env, err := parseTurnEnvelope(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if env.Action != turnEnd {
		t.Fatalf("action = %q, want end", env.Action)
	}
}

func TestParseTurnEnvelopeDefaultsAction(t *testing.T) {
	env, err := parseTurnEnvelope(`{"reply": "Hello there."}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if env.Action != turnContinue {
		t.Fatalf("action = %q, want continue", env.Action)
	}
}

func TestParseTurnEnvelopeRejectsBadInput(t *testing.T) {
	for name, raw := range map[string]string{
		"empty":          "",
		"not json":       "I'd be happy to help!",
		"empty reply":    `{"reply": "  ", "action": "continue"}`,
		"unknown action": `{"reply": "hi", "action": "shout"}`,
	} {
		if _, err := parseTurnEnvelope(raw); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestParseAssessmentClampsAndDefaults(t *testing.T) {
	a, err := parseAssessment(`{"sentiment": "furious", "confidence": 250, "summary": "Caller demanded gift cards."}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a.Sentiment != "neutral" {
		t.Fatalf("sentiment = %q, want neutral", a.Sentiment)
	}
	if a.Confidence != 100 {
		t.Fatalf("confidence = %d, want 100", a.Confidence)
	}
}

func TestFlattenTranscript(t *testing.T) {
	got := flattenTranscript([]telephony.ChatMessage{
		{Role: "agent", Content: "Who is calling?"},
		{Role: "caller", Content: "Parcel delivery."},
	})
	want := "Call transcript:\nagent: Who is calling?\ncaller: Parcel delivery.\n"
	if got != want {
		t.Fatalf("flatten = %q, want %q", got, want)
	}
}

func TestWrapWAVHeader(t *testing.T) {
	pcm := make([]byte, 480)
	out := wrapWAV(pcm, 24000, 1, 16)

	if len(out) != 44+len(pcm) {
		t.Fatalf("len = %d, want %d", len(out), 44+len(pcm))
	}
	if string(out[0:4]) != "RIFF" || string(out[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE magic")
	}
	if got := binary.LittleEndian.Uint32(out[24:28]); got != 24000 {
		t.Fatalf("sample rate = %d, want 24000", got)
	}
	if got := binary.LittleEndian.Uint32(out[40:44]); got != uint32(len(pcm)) {
		t.Fatalf("data size = %d, want %d", got, len(pcm))
	}
}
