package telephony

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Benrobo/nexusai-sub000/internal/agents"
	"github.com/Benrobo/nexusai-sub000/internal/numbers"
	"github.com/Benrobo/nexusai-sub000/pkg/logger"
	"github.com/Benrobo/nexusai-sub000/pkg/utils"
)

// AIReply is the adapter's answer for one conversation turn.
type AIReply struct {
	Msg   string
	Ended bool

	// EscalationNumber is set when a sales conversation should be handed
	// to a human; the call is dialed there and this service is done.
	EscalationNumber string
}

// TurnRequest carries everything the AI adapter needs for one turn.
type TurnRequest struct {
	Agent  agents.Agent
	State  ConversationState
	Speech string
}

// ConversationAI generates the next reply for an in-flight call.
type ConversationAI interface {
	HandleTurn(ctx context.Context, req TurnRequest) (AIReply, error)
}

// AudioResolver maps prompt text to a playable audio URL (phrase cache).
type AudioResolver interface {
	AudioURL(ctx context.Context, agentName, text string) (string, error)
}

// KnowledgeChecker reports the knowledge bases linked to an agent.
type KnowledgeChecker interface {
	LinkedKbIDs(ctx context.Context, agentID string) ([]string, error)
}

// CallLogStore persists the call record and its transcript.
// Start is called once per call; Append once per transcript message.
type CallLogStore interface {
	StartCall(ctx context.Context, refID, userID, agentID, caller, called, country, zipcode string) error
	AppendMessage(ctx context.Context, refID, role, content string) error
}

// Gather timing: the initial prompt waits a fixed window; subsequent turns
// let the provider detect end-of-speech automatically.
const (
	initGatherTimeout   = 5
	initSpeechTimeout   = "3"
	followSpeechTimeout = "auto"
)

// Initial voice prompts per agent type.
const (
	antiTheftGreeting = "Hello. This number is protected by an automated call screener. Please say who you are and why you are calling."
	salesGreetingTmpl = "Hi, this is %s, an AI assistant. How can I help you today?"
)

// CallService resolves inbound calls to a tenant agent and drives the
// voice dialogue until the call reaches a terminal state.
//
// Per webhook invocation exactly one provider response is produced:
// a gather (loop continues), a hangup, or a dial (handoff).
type CallService struct {
	numbers numbers.Repository
	agents  agents.Repository
	cache   utils.Cmdable
	state   *StateStore
	ai      ConversationAI
	audio   AudioResolver
	kb      KnowledgeChecker
	logs    CallLogStore

	apiURL string
	clock  func() time.Time
}

func NewCallService(
	numbersRepo numbers.Repository,
	agentsRepo agents.Repository,
	cache utils.Cmdable,
	ai ConversationAI,
	audio AudioResolver,
	kb KnowledgeChecker,
	logs CallLogStore,
	apiURL string,
) *CallService {
	return &CallService{
		numbers: numbersRepo,
		agents:  agentsRepo,
		cache:   cache,
		state:   NewStateStore(cache),
		ai:      ai,
		audio:   audio,
		kb:      kb,
		logs:    logs,
		apiURL:  apiURL,
		clock:   time.Now,
	}
}

/* ===================== INBOUND ROUTING ===================== */

// HandleIncomingCall resolves the dialed number to a (user, agent) pair and
// begins the voice dialogue, or fails closed with a prerecorded cue.
func (s *CallService) HandleIncomingCall(ctx context.Context, form InboundForm) VoiceResponse {
	log := logger.From(ctx)

	info, link, infoErr, linkErr := s.lookupRouting(ctx, form.To)
	if infoErr != nil {
		// Only a genuinely unknown number gets the not-found cue; a flaky
		// lookup must not tell the caller the number does not exist.
		if !errors.Is(infoErr, numbers.ErrNotFound) {
			log.Error("phone info lookup failed", "to", form.To, "err", infoErr)
			return s.cueHangup(CueErrorOccurred)
		}
		return s.cueHangup(CueNumberNotFound)
	}

	if len(info.Agents) == 0 {
		return s.cueHangup(CueUnableToAssist)
	}

	activated := map[string]agents.Agent{}
	for _, a := range info.Agents {
		if a.Activated {
			activated[a.ID] = a
		}
	}
	if len(activated) == 0 {
		return s.cueHangup(CueUnableToAssist)
	}

	if linkErr != nil {
		if !errors.Is(linkErr, numbers.ErrNotFound) {
			log.Error("agent link lookup failed", "to", form.To, "err", linkErr)
		}
		return s.cueHangup(CueUnableToAssist)
	}

	agent, ok := activated[link.AgentID]
	if !ok {
		return s.cueHangup(CueUnableToAssist)
	}

	return s.initConversation(ctx, agent, info.Purchased.UserID, form)
}

// lookupRouting fetches the phone info and agent link concurrently, each
// through a 1-hour read-through cache.
func (s *CallService) lookupRouting(ctx context.Context, to string) (PhoneInfo, numbers.UsedPhoneNumber, error, error) {
	var (
		wg      sync.WaitGroup
		info    PhoneInfo
		link    numbers.UsedPhoneNumber
		infoErr error
		linkErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		info, infoErr = s.phoneInfo(ctx, to)
	}()
	go func() {
		defer wg.Done()
		link, linkErr = s.agentLink(ctx, to)
	}()
	wg.Wait()

	return info, link, infoErr, linkErr
}

func (s *CallService) phoneInfo(ctx context.Context, phone string) (PhoneInfo, error) {
	var cached PhoneInfo
	if err := utils.GetJSON(ctx, s.cache, phoneInfoKey(phone), &cached); err == nil {
		return cached, nil
	}

	purchased, err := s.numbers.GetByPhone(ctx, phone)
	if err != nil {
		return PhoneInfo{}, err
	}
	owned, err := s.agents.ListByUser(ctx, purchased.UserID)
	if err != nil {
		return PhoneInfo{}, err
	}

	info := PhoneInfo{Purchased: purchased, Agents: owned}
	if err := utils.SetJSON(ctx, s.cache, phoneInfoKey(phone), info, routingCacheTTL); err != nil {
		logger.From(ctx).Warn("phone info cache populate failed", "phone", phone, "err", err)
	}
	return info, nil
}

func (s *CallService) agentLink(ctx context.Context, phone string) (numbers.UsedPhoneNumber, error) {
	var cached numbers.UsedPhoneNumber
	if err := utils.GetJSON(ctx, s.cache, agentLinkKey(phone), &cached); err == nil {
		return cached, nil
	}

	link, err := s.numbers.GetLink(ctx, phone)
	if err != nil {
		return numbers.UsedPhoneNumber{}, err
	}
	if err := utils.SetJSON(ctx, s.cache, agentLinkKey(phone), link, routingCacheTTL); err != nil {
		logger.From(ctx).Warn("agent link cache populate failed", "phone", phone, "err", err)
	}
	return link, nil
}

/* ===================== CONVERSATION ===================== */

func (s *CallService) initConversation(ctx context.Context, agent agents.Agent, userID string, form InboundForm) VoiceResponse {
	ref := CallRef{Caller: form.Caller, Called: form.To, CallSid: form.CallSid}
	if !ref.Valid() {
		return s.cueHangup(CueErrorOccurred)
	}

	var greeting, processPath string
	switch agent.Type {
	case agents.TypeAntiTheft:
		greeting = antiTheftGreeting
		processPath = "/api/voice/process/anti-theft"
	case agents.TypeSalesAssistant:
		greeting = fmt.Sprintf(salesGreetingTmpl, agent.Name)
		processPath = "/api/voice/process/sales-assistant"
	default:
		// An unroutable type must still answer the provider; an empty
		// response would leave the call hanging.
		return s.cueHangup(CueErrorOccurred)
	}

	st := ConversationState{
		CallerPhone: form.Caller,
		CalledPhone: form.To,
		CallSid:     form.CallSid,
		State:       StateGathering,
		CountryCode: form.CallerCountry,
		Zipcode:     form.CallerZip,
	}
	if agent.Type == agents.TypeSalesAssistant {
		ids, err := s.kb.LinkedKbIDs(ctx, agent.ID)
		if err != nil {
			logger.From(ctx).Warn("kb lookup failed at call start", "agent_id", agent.ID, "err", err)
		}
		st.KbIDs = ids
	}
	st.History = append(st.History, ChatMessage{Role: "agent", Content: greeting})

	if err := s.state.Save(ctx, ref, st); err != nil {
		logger.From(ctx).Error("call state save failed", "ref", ref.Encode(), "err", err)
		return s.cueHangup(CueErrorOccurred)
	}

	if err := s.logs.StartCall(ctx, ref.Encode(), userID, agent.ID, form.Caller, form.To, form.CallerCountry, form.CallerZip); err != nil {
		logger.From(ctx).Error("call log create failed", "ref", ref.Encode(), "err", err)
	}
	if err := s.logs.AppendMessage(ctx, ref.Encode(), "agent", greeting); err != nil {
		logger.From(ctx).Warn("call log append failed", "ref", ref.Encode(), "err", err)
	}

	audioURL, err := s.audio.AudioURL(ctx, agent.Name, greeting)
	if err != nil {
		logger.From(ctx).Error("greeting synthesis failed", "err", err)
		return s.errorHangup(ctx, ref)
	}

	return VoiceResponse{
		Action:         ActionPlayGather,
		AudioURL:       audioURL,
		GatherAction:   s.apiURL + processPath,
		TimeoutSeconds: initGatherTimeout,
		SpeechTimeout:  initSpeechTimeout,
	}
}

// ProcessTurn handles one recognized-speech webhook for an in-flight call
// and produces the next provider response.
func (s *CallService) ProcessTurn(ctx context.Context, agentType agents.AgentType, form InboundForm) VoiceResponse {
	log := logger.From(ctx)
	ref := CallRef{Caller: form.Caller, Called: form.Called, CallSid: form.CallSid}
	if !ref.Valid() {
		return s.cueHangup(CueErrorOccurred)
	}

	// Resolve the owning agent through the indexed phone link.
	link, err := s.agentLink(ctx, form.Called)
	if err != nil {
		log.Error("turn agent link lookup failed", "called", form.Called, "err", err)
		return s.errorHangup(ctx, ref)
	}
	agent, err := s.agents.GetAny(ctx, link.AgentID)
	if err != nil || agent.Type != agentType || !agent.Activated {
		return s.errorHangup(ctx, ref)
	}

	st, err := s.state.Get(ctx, ref)
	if err != nil {
		if !errors.Is(err, utils.ErrCacheMiss) {
			log.Warn("call state read failed", "ref", ref.Encode(), "err", err)
		}
		// Mid-call state loss (restart, eviction): rebuild what we can.
		st = ConversationState{
			CallerPhone: form.Caller,
			CalledPhone: form.Called,
			CallSid:     form.CallSid,
			State:       StateGathering,
			CountryCode: form.CallerCountry,
			Zipcode:     form.CallerZip,
		}
	}

	if agent.Type == agents.TypeSalesAssistant && len(st.KbIDs) == 0 {
		ids, kbErr := s.kb.LinkedKbIDs(ctx, agent.ID)
		if kbErr != nil {
			log.Error("kb lookup failed", "agent_id", agent.ID, "err", kbErr)
			return s.errorHangup(ctx, ref)
		}
		if len(ids) == 0 {
			// A sales assistant without a datasource cannot answer
			// anything truthfully. Hard stop.
			_ = s.state.Delete(ctx, ref)
			return s.cueHangup(CueDatasourceNotFound)
		}
		st.KbIDs = ids
	}

	speech := strings.TrimSpace(form.SpeechResult)
	if speech != "" {
		st.History = append(st.History, ChatMessage{Role: "caller", Content: speech})
		if err := s.logs.AppendMessage(ctx, ref.Encode(), "caller", speech); err != nil {
			log.Warn("call log append failed", "ref", ref.Encode(), "err", err)
		}
	}

	reply, err := s.ai.HandleTurn(ctx, TurnRequest{Agent: agent, State: st, Speech: speech})
	if err != nil {
		log.Error("ai turn failed", "ref", ref.Encode(), "err", err)
		return s.errorHangup(ctx, ref)
	}

	audioURL, err := s.audio.AudioURL(ctx, agent.Name, reply.Msg)
	if err != nil {
		log.Error("reply synthesis failed", "err", err)
		return s.errorHangup(ctx, ref)
	}

	st.History = append(st.History, ChatMessage{Role: "agent", Content: reply.Msg})
	if err := s.logs.AppendMessage(ctx, ref.Encode(), "agent", reply.Msg); err != nil {
		log.Warn("call log append failed", "ref", ref.Encode(), "err", err)
	}

	switch {
	case reply.Ended:
		if err := s.state.Delete(ctx, ref); err != nil {
			log.Warn("call state delete failed", "ref", ref.Encode(), "err", err)
		}
		return VoiceResponse{Action: ActionPlayHangup, AudioURL: audioURL}

	case reply.EscalationNumber != "":
		if err := s.state.Delete(ctx, ref); err != nil {
			log.Warn("call state delete failed", "ref", ref.Encode(), "err", err)
		}
		return VoiceResponse{Action: ActionPlayDial, AudioURL: audioURL, DialNumber: reply.EscalationNumber}

	default:
		if err := s.state.Save(ctx, ref, st); err != nil {
			log.Warn("call state save failed", "ref", ref.Encode(), "err", err)
		}
		return VoiceResponse{
			Action:        ActionPlayGather,
			AudioURL:      audioURL,
			GatherAction:  s.apiURL + processPathFor(agentType),
			SpeechTimeout: followSpeechTimeout,
		}
	}
}

func processPathFor(t agents.AgentType) string {
	if t == agents.TypeAntiTheft {
		return "/api/voice/process/anti-theft"
	}
	return "/api/voice/process/sales-assistant"
}

// errorHangup is the masked-failure path: the caller hears a short apology,
// the call ends, and the per-call state is deleted best-effort so the key
// cannot outlive the call.
func (s *CallService) errorHangup(ctx context.Context, ref CallRef) VoiceResponse {
	if ref.Valid() {
		_ = s.state.Delete(ctx, ref)
	}
	return s.cueHangup(CueErrorOccurred)
}

func (s *CallService) cueHangup(c Cue) VoiceResponse {
	return VoiceResponse{Action: ActionPlayHangup, AudioURL: CueURL(s.apiURL, c)}
}
