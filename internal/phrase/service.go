// Package phrase memoizes text-to-speech output. Agents repeat themselves
// constantly (greetings, refusals, sign-offs), so each unique (voice, text)
// pair is synthesized once, written to the static audio directory, and
// served by URL from then on.
package phrase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Benrobo/nexusai-sub000/pkg/logger"
)

// Synthesizer renders prompt text to an audio clip.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Service implements the audio lookup used by the voice pipeline.
type Service struct {
	repo  Repository
	tts   Synthesizer
	dir   string
	base  string
	clock func() time.Time
}

// NewService stores clips under dir and serves them below base
// (the public URL mapped to dir, e.g. https://api.example.com/static/audio).
func NewService(repo Repository, tts Synthesizer, dir, base string) *Service {
	return &Service{repo: repo, tts: tts, dir: dir, base: base, clock: time.Now}
}

// AudioURL returns a playable URL for the given prompt, synthesizing and
// memoizing it on first use.
func (s *Service) AudioURL(ctx context.Context, agentName, text string) (string, error) {
	h := PhraseHash(agentName, text)

	now := s.clock()
	p, err := s.repo.GetByHash(ctx, h)
	switch {
	case err == nil && !p.Pending:
		if err := s.repo.Touch(ctx, p.ID, now); err != nil {
			logger.From(ctx).Warn("phrase touch failed", "id", p.ID, "err", err)
		}
		return s.base + "/" + p.Filename, nil

	case err == nil:
		// A pending row from an earlier failed synthesis; reuse it rather
		// than colliding on the hash index.

	default:
		p = Phrase{
			ID:         uuid.NewString(),
			Hash:       h,
			AgentName:  agentName,
			Text:       text,
			Filename:   h + ".wav",
			Pending:    true,
			LastUsedAt: now,
			CreatedAt:  now,
		}
		// The row exists as pending before the file does, so the
		// stale-audio sweep cannot reap a clip that is mid-synthesis.
		if err := s.repo.Create(ctx, p); err != nil {
			return "", fmt.Errorf("phrase: create record: %w", err)
		}
	}

	clip, err := s.tts.Synthesize(ctx, text)
	if err != nil {
		return "", fmt.Errorf("phrase: synthesize: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, p.Filename), clip, 0o644); err != nil {
		return "", fmt.Errorf("phrase: write clip: %w", err)
	}
	if err := s.repo.MarkReady(ctx, p.ID); err != nil {
		logger.From(ctx).Warn("phrase mark ready failed", "id", p.ID, "err", err)
	}

	return s.base + "/" + p.Filename, nil
}

// CleanupStale deletes clips that have not been used since the cutoff.
// Row first, file second: a re-request after a half-failed cleanup just
// re-synthesizes.
func (s *Service) CleanupStale(ctx context.Context, maxAge time.Duration) (int, error) {
	stale, err := s.repo.ListStale(ctx, s.clock().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("phrase: list stale: %w", err)
	}

	deleted := 0
	for _, p := range stale {
		if err := s.repo.Delete(ctx, p.ID); err != nil {
			logger.From(ctx).Warn("stale phrase delete failed", "id", p.ID, "err", err)
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, p.Filename)); err != nil && !os.IsNotExist(err) {
			logger.From(ctx).Warn("stale clip remove failed", "file", p.Filename, "err", err)
		}
		deleted++
	}
	return deleted, nil
}

// PhraseHash fingerprints a (voice, text) pair.
func PhraseHash(agentName, text string) string {
	sum := sha256.Sum256([]byte(agentName + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
