package chat

import (
	"context"
	"sync"

	"github.com/zhouzirui/medic/backend/internal/model/chat"
)

type stubCall struct {
	history []chat.Turn
	message string
}

// stubAgent returns a fixed reply or error and records each call.
type stubAgent struct {
	mu     sync.Mutex
	reply  string
	err    error
	calls  []stubCall
	block  chan struct{}
	chunks []string
}

func (s *stubAgent) Reply(_ context.Context, history []chat.Turn, message string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, stubCall{history: history, message: message})
	block := s.block
	s.mu.Unlock()

	if block != nil {
		<-block
	}
	return s.reply, s.err
}

func (s *stubAgent) Calls() []stubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stubCall(nil), s.calls...)
}

// streamingStub adds incremental delivery on top of stubAgent.
type streamingStub struct {
	*stubAgent
}

func (s streamingStub) Stream(ctx context.Context, history []chat.Turn, message string, onDelta func(string)) (string, error) {
	if _, err := s.Reply(ctx, history, message); err != nil {
		return "", err
	}
	for _, chunk := range s.chunks {
		onDelta(chunk)
	}
	return s.reply, nil
}
