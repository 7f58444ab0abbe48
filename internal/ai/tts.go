package ai

import (
	"context"
	"encoding/binary"
	"fmt"

	"google.golang.org/genai"
)

const ttsVoice = "Kore"

// Synthesize converts prompt text to a playable WAV clip.
//
// The TTS model emits raw 24kHz 16-bit mono PCM; telephony providers want
// a container, so the PCM is wrapped in a minimal WAV header here.
func (s *Service) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.client.Models.GenerateContent(
		ctx,
		s.cfg.TTSModel,
		genai.Text(text),
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &genai.SpeechConfig{
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: ttsVoice},
				},
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("ai: synthesize: %w", err)
	}

	pcm := collectAudio(resp)
	if len(pcm) == 0 {
		return nil, ErrEmptyResponse
	}
	return wrapWAV(pcm, 24000, 1, 16), nil
}

func collectAudio(resp *genai.GenerateContentResponse) []byte {
	if resp == nil {
		return nil
	}
	var out []byte
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil {
				continue
			}
			out = append(out, part.InlineData.Data...)
		}
	}
	return out
}

// wrapWAV prepends a RIFF/WAVE header to raw PCM samples.
func wrapWAV(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	buf := make([]byte, 0, 44+len(pcm))
	le := binary.LittleEndian

	u32 := func(v uint32) []byte {
		b := make([]byte, 4)
		le.PutUint32(b, v)
		return b
	}
	u16 := func(v uint16) []byte {
		b := make([]byte, 2)
		le.PutUint16(b, v)
		return b
	}

	buf = append(buf, []byte("RIFF")...)
	buf = append(buf, u32(uint32(36+len(pcm)))...)
	buf = append(buf, []byte("WAVE")...)
	buf = append(buf, []byte("fmt ")...)
	buf = append(buf, u32(16)...)
	buf = append(buf, u16(1)...) // PCM
	buf = append(buf, u16(uint16(channels))...)
	buf = append(buf, u32(uint32(sampleRate))...)
	buf = append(buf, u32(uint32(byteRate))...)
	buf = append(buf, u16(uint16(blockAlign))...)
	buf = append(buf, u16(uint16(bitsPerSample))...)
	buf = append(buf, []byte("data")...)
	buf = append(buf, u32(uint32(len(pcm)))...)
	buf = append(buf, pcm...)
	return buf
}
