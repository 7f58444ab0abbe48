// Package calls records inbound-call transcripts and serves them to the
// dashboard, including on-demand AI analysis of screened calls.
package calls

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Benrobo/nexusai-sub000/internal/ai"
	"github.com/Benrobo/nexusai-sub000/internal/telephony"
)

// Analyzer scores a finished transcript. Implemented by the ai service.
type Analyzer interface {
	AnalyzeCall(ctx context.Context, transcript []telephony.ChatMessage) (ai.CallAssessment, error)
}

type Service struct {
	repo     Repository
	analyzer Analyzer
	clock    func() time.Time
}

func NewService(repo Repository, analyzer Analyzer) *Service {
	return &Service{repo: repo, analyzer: analyzer, clock: time.Now}
}

// StartCall records a new call log. Duplicate webhook deliveries for the
// same ref are tolerated: the first row wins.
func (s *Service) StartCall(ctx context.Context, refID, userID, agentID, caller, called, country, zipcode string) error {
	if _, err := s.repo.GetByRef(ctx, refID); err == nil {
		return nil
	}
	return s.repo.Create(ctx, CallLog{
		ID:          uuid.NewString(),
		RefID:       refID,
		UserID:      userID,
		AgentID:     agentID,
		CallerPhone: caller,
		CalledPhone: called,
		CountryCode: country,
		Zipcode:     zipcode,
		CreatedAt:   s.clock(),
	})
}

// AppendMessage adds one transcript line to the call identified by refID.
func (s *Service) AppendMessage(ctx context.Context, refID, role, content string) error {
	l, err := s.repo.GetByRef(ctx, refID)
	if err != nil {
		return err
	}
	return s.repo.AppendMessage(ctx, Message{
		ID:        uuid.NewString(),
		CallLogID: l.ID,
		Role:      role,
		Content:   content,
		CreatedAt: s.clock(),
	})
}

func (s *Service) List(ctx context.Context, userID string) ([]CallLog, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID, logID string) (CallLog, []Message, error) {
	l, err := s.repo.Get(ctx, userID, logID)
	if err != nil {
		return CallLog{}, nil, err
	}
	msgs, err := s.repo.ListMessages(ctx, l.ID)
	if err != nil {
		return CallLog{}, nil, err
	}
	return l, msgs, nil
}

// Stats aggregates call counts for the dashboard overview.
func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	return s.repo.Stats(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, logID string) error {
	return s.repo.MarkRead(ctx, userID, logID)
}

func (s *Service) Delete(ctx context.Context, userID, logID string) error {
	return s.repo.Delete(ctx, userID, logID)
}

// Analyze runs (or re-runs) the AI assessment for a call and stores it.
func (s *Service) Analyze(ctx context.Context, userID, logID string) (Analysis, error) {
	l, err := s.repo.Get(ctx, userID, logID)
	if err != nil {
		return Analysis{}, err
	}
	msgs, err := s.repo.ListMessages(ctx, l.ID)
	if err != nil {
		return Analysis{}, err
	}
	if len(msgs) == 0 {
		return Analysis{}, fmt.Errorf("calls: no transcript to analyze")
	}

	transcript := make([]telephony.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		transcript = append(transcript, telephony.ChatMessage{Role: m.Role, Content: m.Content})
	}

	assessment, err := s.analyzer.AnalyzeCall(ctx, transcript)
	if err != nil {
		return Analysis{}, err
	}

	a := Analysis{
		CallLogID:  l.ID,
		Sentiment:  assessment.Sentiment,
		RedFlags:   assessment.RedFlags,
		Confidence: assessment.Confidence,
		Summary:    assessment.Summary,
		UpdatedAt:  s.clock(),
	}
	if err := s.repo.UpsertAnalysis(ctx, a); err != nil {
		return Analysis{}, err
	}
	return a, nil
}

// GetAnalysis returns the stored assessment for a call, if any.
func (s *Service) GetAnalysis(ctx context.Context, userID, logID string) (Analysis, error) {
	l, err := s.repo.Get(ctx, userID, logID)
	if err != nil {
		return Analysis{}, err
	}
	return s.repo.GetAnalysis(ctx, l.ID)
}
