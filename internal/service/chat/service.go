package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/medic/backend/internal/config"
	"github.com/zhouzirui/medic/backend/internal/model/chat"
)

// Conversation is the session-scoped context: one session, its turn log and
// its coordinator. Nothing in it is shared with other sessions.
type Conversation struct {
	Session     chat.Session
	Store       *Store
	Coordinator *Coordinator
}

// Service keeps the live conversations in memory; they are gone when the
// process exits.
type Service struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	agent         Replier
	cfg           config.ChatConfig
	logger        *slog.Logger
}

// NewService bootstraps the in-memory conversation registry.
func NewService(agent Replier, cfg config.ChatConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		conversations: make(map[string]*Conversation),
		agent:         agent,
		cfg:           cfg,
		logger:        logger.With("component", "chat"),
	}
}

// RetainContext reports the configured context-retention mode.
func (s *Service) RetainContext() bool {
	return s.cfg.RetainContext
}

// CreateSession provisions an anonymous session with a seeded conversation.
func (s *Service) CreateSession(_ context.Context) (*Conversation, error) {
	session := chat.Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	store := NewStore(s.cfg.Greeting, s.cfg.ResetGreeting)
	coordinator := NewCoordinator(session.ID, store, s.agent, Options{
		RetainContext: s.cfg.RetainContext,
		HistoryLimit:  s.cfg.HistoryLimit,
		OnChange:      s.logEvent,
		Logger:        s.logger,
	})

	conv := &Conversation{Session: session, Store: store, Coordinator: coordinator}

	s.mu.Lock()
	s.conversations[session.ID] = conv
	s.mu.Unlock()

	s.logger.Info("session created", "session", session.ID)
	return conv, nil
}

// GetSession retrieves a conversation by session identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[sessionID]
	if !ok {
		return nil, chat.ErrSessionNotFound
	}
	return conv, nil
}

// DeleteSession destroys a conversation.
func (s *Service) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[sessionID]; !ok {
		return chat.ErrSessionNotFound
	}
	delete(s.conversations, sessionID)
	s.logger.Info("session deleted", "session", sessionID)
	return nil
}

// Count returns the number of live sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

func (s *Service) logEvent(ev Event) {
	if ev.Err != nil {
		s.logger.Info("turn finished", "session", ev.SessionID, "state", ev.State, "turns", ev.Turns, "kind", chat.KindOf(ev.Err))
		return
	}
	s.logger.Debug("turn finished", "session", ev.SessionID, "state", ev.State, "turns", ev.Turns)
}
